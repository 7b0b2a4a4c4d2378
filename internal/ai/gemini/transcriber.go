package gemini

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const transcriptionInstruction = "Transcribe the speech in the attached recording verbatim. " +
	"Reply with the transcript text only, without timestamps, speaker labels or commentary."

// Transcriber sends recorded media inline to Gemini and returns the spoken text.
type Transcriber struct {
	models contentModels
	model  string
	logger *zap.Logger
}

func NewTranscriber(client *genai.Client, model string, logger *zap.Logger) (*Transcriber, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Transcriber{models: client.Models, model: model, logger: logger}, nil
}

func (t *Transcriber) Transcribe(ctx context.Context, name string, data []byte) (string, error) {
	if t == nil || t.models == nil {
		return "", errors.New("gemini transcriber is not initialized")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("media %q is empty", name)
	}

	mimeType := mediaType(name)
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromText(transcriptionInstruction),
		genai.NewPartFromBytes(data, mimeType),
	}, genai.RoleUser)}

	t.logger.Debug("gemini transcription request",
		zap.String("media", name),
		zap.String("mime_type", mimeType),
		zap.Int("size", len(data)),
	)

	resp, err := t.models.GenerateContent(ctx, t.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", name, err)
	}

	text, err := responseText(resp)
	if err != nil {
		return "", err
	}

	t.logger.Debug("gemini transcription response",
		zap.String("media", name),
		zap.Int("response_length", utf8.RuneCountInString(text)),
	)

	return text, nil
}

func mediaType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".webm":
		return "video/webm"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	}

	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
