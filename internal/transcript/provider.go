// Package transcript memoizes media transcriptions per candidate.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/ai"
	"github.com/spigell/interview-judge/internal/interview"
	"github.com/spigell/interview-judge/internal/store"
)

// Provider returns the transcript of a response, transcribing the media at most once per candidate.
type Provider struct {
	media       afero.Fs
	transcripts store.Store[string]
	transcriber ai.Transcriber
	logger      *zap.Logger
}

// New builds a Provider. media is the filesystem the response media paths are resolved against.
func New(media afero.Fs, transcripts store.Store[string], transcriber ai.Transcriber, logger *zap.Logger) (*Provider, error) {
	if media == nil {
		return nil, errors.New("media filesystem is required")
	}
	if transcripts == nil {
		return nil, errors.New("transcript store is required")
	}
	if transcriber == nil {
		return nil, errors.New("transcriber is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Provider{
		media:       media,
		transcripts: transcripts,
		transcriber: transcriber,
		logger:      logger,
	}, nil
}

// Get returns the stored transcript verbatim, or transcribes and stores it on first use.
func (p *Provider) Get(ctx context.Context, response *interview.Response) (string, error) {
	id, err := response.CandidateID()
	if err != nil {
		return "", err
	}

	ok, err := p.transcripts.Exists(id)
	if err != nil {
		return "", err
	}
	if ok {
		p.logger.Debug("transcript cache hit", zap.String("candidate_id", id))
		return p.transcripts.Read(id)
	}

	return p.transcribe(ctx, id, response.MediaPath)
}

// Regenerate transcribes the media again and replaces the stored transcript.
func (p *Provider) Regenerate(ctx context.Context, response *interview.Response) (string, error) {
	id, err := response.CandidateID()
	if err != nil {
		return "", err
	}
	return p.transcribe(ctx, id, response.MediaPath)
}

func (p *Provider) transcribe(ctx context.Context, id, mediaPath string) (string, error) {
	data, err := afero.ReadFile(p.media, mediaPath)
	if err != nil {
		return "", fmt.Errorf("%w: read media %s: %w", ai.ErrTranscription, mediaPath, err)
	}

	text, err := p.transcriber.Transcribe(ctx, filepath.Base(mediaPath), data)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ai.ErrTranscription, id, err)
	}

	if err := p.transcripts.Write(id, text); err != nil {
		return "", err
	}

	p.logger.Info("transcript stored",
		zap.String("candidate_id", id),
		zap.String("media", mediaPath),
		zap.Int("length", utf8.RuneCountInString(text)),
	)

	return text, nil
}
