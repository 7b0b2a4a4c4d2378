// Package assessment judges a candidate response per criterion and aggregates the judgments
// into a final verdict.
package assessment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/ai"
	"github.com/spigell/interview-judge/internal/interview"
	"github.com/spigell/interview-judge/internal/utils"
)

const defaultMaxLogLength = 200

// Evaluator produces a free-text judgment of a transcript for one criterion.
type Evaluator struct {
	generator    ai.Generator
	logger       *zap.Logger
	maxLogLength int
}

// NewEvaluator builds an Evaluator backed by the given generator.
// maxLogLength bounds the prompt and answer previews logged at debug level.
func NewEvaluator(generator ai.Generator, logger *zap.Logger, maxLogLength int) (*Evaluator, error) {
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Evaluator{
		generator:    generator,
		logger:       logger,
		maxLogLength: maxLogLength,
	}, nil
}

// Evaluate returns the model's judgment of the transcript under criterion c.
// Accuracy always yields interview.NoData without contacting the model.
func (e *Evaluator) Evaluate(ctx context.Context, c interview.Criterion, task, transcript string) (string, error) {
	prompt, ok := criteria[c]
	if !ok {
		return "", fmt.Errorf("unknown criterion %q", c)
	}
	if prompt.system == "" {
		return interview.NoData, nil
	}

	message := buildCriterionMessage(task, transcript)
	logger := e.logger.With(zap.String("criterion", string(c)))
	logger.Debug("evaluating criterion",
		zap.String("task", utils.TruncateForLog(task, e.maxLogLength)),
		zap.String("message_preview", utils.TruncateForLog(message, e.maxLogLength)),
	)

	judgment, err := e.generator.GenerateContent(ctx, prompt.system, message)
	if err != nil {
		if errors.Is(err, ai.ErrGeneration) {
			return "", fmt.Errorf("criterion %s: %w", c, err)
		}
		return "", fmt.Errorf("%w: criterion %s: %w", ai.ErrGeneration, c, err)
	}

	logger.Debug("criterion evaluated",
		zap.String("judgment_preview", utils.TruncateForLog(judgment, e.maxLogLength)),
	)

	return judgment, nil
}
