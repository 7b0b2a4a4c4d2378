// Package pool tracks which candidates are raw, summarized or rejected.
package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/interview"
	"github.com/spigell/interview-judge/internal/store"
	"github.com/spigell/interview-judge/internal/viability"
)

type voter interface {
	Vote(ctx context.Context, candidateID string, cycles int) (viability.Result, error)
}

// ErrUnknownCandidate is returned for ids found in none of the pool sets.
var ErrUnknownCandidate = errors.New("unknown candidate")

// State is the pool set a candidate belongs to.
type State string

const (
	StateRaw        State = "raw"
	StateSummarized State = "summarized"
	StateRejected   State = "rejected"
)

// Step summarizes one filtering pass.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config wires a Manager. Summaries and Rejections must share one filesystem so moves are renames.
// Voter is only needed by FilterSummarized.
type Config struct {
	Media      afero.Fs
	MediaDir   string
	Summaries  *store.FileStore[interview.Assessment]
	Rejections *store.FileStore[interview.Assessment]
	Voter      voter
	Cycles     int
	Logger     *zap.Logger
}

// Manager lists the candidate sets and moves non-viable candidates out of the summarized set.
type Manager struct {
	media      afero.Fs
	mediaDir   string
	summaries  *store.FileStore[interview.Assessment]
	rejections *store.FileStore[interview.Assessment]
	voter      voter
	cycles     int
	logger     *zap.Logger
}

func New(cfg Config) (*Manager, error) {
	if cfg.Media == nil || cfg.MediaDir == "" {
		return nil, errors.New("media filesystem and directory are required")
	}
	if cfg.Summaries == nil || cfg.Rejections == nil {
		return nil, errors.New("summary and rejection stores are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Cycles == 0 {
		cfg.Cycles = viability.DefaultCycles
	}

	return &Manager{
		media:      cfg.Media,
		mediaDir:   cfg.MediaDir,
		summaries:  cfg.Summaries,
		rejections: cfg.Rejections,
		voter:      cfg.Voter,
		cycles:     cfg.Cycles,
		logger:     cfg.Logger,
	}, nil
}

// ListRaw returns the ids with media on disk that are neither summarized nor rejected.
func (m *Manager) ListRaw() ([]string, error) {
	ids, err := store.ListIDs(m.media, m.mediaDir)
	if err != nil {
		return nil, err
	}

	processed := make(map[string]struct{})
	for _, list := range []func() ([]string, error){m.summaries.List, m.rejections.List} {
		done, err := list()
		if err != nil {
			return nil, err
		}
		for _, id := range done {
			processed[id] = struct{}{}
		}
	}

	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := processed[id]; !ok {
			raw = append(raw, id)
		}
	}
	return raw, nil
}

// State reports which set the candidate is in, with its assessment unless it is raw.
func (m *Manager) State(id string) (State, *interview.Assessment, error) {
	for _, set := range []struct {
		state State
		store *store.FileStore[interview.Assessment]
	}{
		{StateSummarized, m.summaries},
		{StateRejected, m.rejections},
	} {
		ok, err := set.store.Exists(id)
		if err != nil {
			return "", nil, err
		}
		if !ok {
			continue
		}
		a, err := set.store.Read(id)
		if err != nil {
			return "", nil, err
		}
		a.CandidateID = id
		return set.state, &a, nil
	}

	ids, err := store.ListIDs(m.media, m.mediaDir)
	if err != nil {
		return "", nil, err
	}
	for _, raw := range ids {
		if raw == id {
			return StateRaw, nil, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %s", ErrUnknownCandidate, id)
}

func (m *Manager) ListSummarized() ([]string, error) { return m.summaries.List() }

func (m *Manager) ListRejected() ([]string, error) { return m.rejections.List() }

// FilterSummarized votes on every summarized candidate and moves the non-viable ones to
// rejections. It returns how many were moved; on failure the count so far is returned
// with the error.
func (m *Manager) FilterSummarized(ctx context.Context) (int, error) {
	if m.voter == nil {
		return 0, errors.New("voter is not configured")
	}

	ids, err := m.summaries.List()
	if err != nil {
		return 0, err
	}

	step := Step{Initial: len(ids)}
	rejected := make([]string, 0)
	defer func() {
		step.Left = step.Initial - step.Dropped
		m.logger.Info("filtering summarized candidates",
			zap.Int("initial", step.Initial),
			zap.Int("dropped", step.Dropped),
			zap.Int("left", step.Left),
			zap.Strings("rejected_candidates", rejected),
		)
	}()

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return step.Dropped, err
		}

		result, err := m.voter.Vote(ctx, id, m.cycles)
		if err != nil {
			return step.Dropped, fmt.Errorf("filter %s: %w", id, err)
		}
		if result.Viable {
			continue
		}

		if err := store.Move(m.summaries, m.rejections, id); err != nil {
			return step.Dropped, fmt.Errorf("reject %s: %w", id, err)
		}
		step.Dropped++
		rejected = append(rejected, id)
	}

	return step.Dropped, nil
}
