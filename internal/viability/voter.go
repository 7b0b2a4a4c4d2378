// Package viability turns a persisted assessment into a binary decision by repeated sampling.
package viability

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/ai"
	"github.com/spigell/interview-judge/internal/interview"
	"github.com/spigell/interview-judge/internal/store"
	"github.com/spigell/interview-judge/internal/utils"
)

// DefaultCycles is the cycle count used when none is configured.
const DefaultCycles = 3

// ErrNotAssessed is returned when no assessment is stored for the candidate.
var ErrNotAssessed = errors.New("candidate not assessed")

//go:embed prompt.md
var systemPrompt string

// Result is the outcome of one vote.
type Result struct {
	CandidateID string
	Score       int
	Calls       int
	Viable      bool
}

// Voter asks the model to classify a stored assessment several times and takes the majority.
type Voter struct {
	summaries    store.Store[interview.Assessment]
	generator    ai.Generator
	logger       *zap.Logger
	maxLogLength int
}

func NewVoter(summaries store.Store[interview.Assessment], generator ai.Generator, logger *zap.Logger) (*Voter, error) {
	if summaries == nil {
		return nil, errors.New("summary store is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Voter{
		summaries:    summaries,
		generator:    generator,
		logger:       logger,
		maxLogLength: 40,
	}, nil
}

// IsViable reports whether the candidate passes the vote.
func (v *Voter) IsViable(ctx context.Context, candidateID string, cycles int) (bool, error) {
	result, err := v.Vote(ctx, candidateID, cycles)
	if err != nil {
		return false, err
	}
	return result.Viable, nil
}

// Vote samples the classifier cycles+1 times. Every answer containing "good" adds one and every
// answer containing "bad" subtracts one; an answer with both counts for neither.
// The candidate is viable when the score is positive.
func (v *Voter) Vote(ctx context.Context, candidateID string, cycles int) (Result, error) {
	result := Result{CandidateID: candidateID}

	exists, err := v.summaries.Exists(candidateID)
	if err != nil {
		return result, err
	}
	if !exists {
		return result, fmt.Errorf("%w: %s", ErrNotAssessed, candidateID)
	}

	assessment, err := v.summaries.Read(candidateID)
	if err != nil {
		return result, err
	}

	if cycles < 0 {
		cycles = 0
	}
	message := buildMessage(&assessment)
	logger := v.logger.With(zap.String("candidate_id", candidateID))

	for i := 0; i < cycles+1; i++ {
		answer, err := v.generator.GenerateContent(ctx, systemPrompt, message)
		result.Calls++
		if err != nil {
			if errors.Is(err, ai.ErrGeneration) {
				return result, fmt.Errorf("vote %s: %w", candidateID, err)
			}
			return result, fmt.Errorf("%w: vote %s: %w", ai.ErrGeneration, candidateID, err)
		}

		answer = strings.ToLower(answer)
		if strings.Contains(answer, "good") {
			result.Score++
		}
		if strings.Contains(answer, "bad") {
			result.Score--
		}
		logger.Debug("vote cast",
			zap.Int("call", result.Calls),
			zap.String("answer", utils.TruncateForLog(answer, v.maxLogLength)),
		)
	}

	result.Viable = result.Score > 0

	viability := "low"
	if result.Viable {
		viability = "high"
	}
	logger.Info("candidate voted",
		zap.String("viability", viability),
		zap.Int("score", result.Score),
		zap.Int("calls", result.Calls),
	)

	return result, nil
}

func buildMessage(a *interview.Assessment) string {
	return fmt.Sprintf("General candidate summary: ```%s```\nCandidate knowledge: ```%s```\nCandidate truthfulness: ```%s```",
		a.Verdict,
		a.JudgmentOrNoData(interview.Knowledge),
		a.JudgmentOrNoData(interview.Factuality),
	)
}
