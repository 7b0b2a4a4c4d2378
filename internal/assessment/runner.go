package assessment

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/interview"
)

type assessor interface {
	Assess(ctx context.Context, response *interview.Response, overwrite bool) (*interview.Assessment, error)
}

// Runner assesses a batch of responses one after another.
type Runner struct {
	assessor assessor
	logger   *zap.Logger
}

func NewRunner(a assessor, logger *zap.Logger) (*Runner, error) {
	if a == nil {
		return nil, errors.New("assessor is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{assessor: a, logger: logger}, nil
}

// Run stops at the first failure and returns the assessments completed before it.
func (r *Runner) Run(ctx context.Context, responses []*interview.Response, overwrite bool) ([]*interview.Assessment, error) {
	done := make([]*interview.Assessment, 0, len(responses))
	for i, response := range responses {
		if err := ctx.Err(); err != nil {
			return done, err
		}

		r.logger.Info("assessing response",
			zap.Int("index", i+1),
			zap.Int("total", len(responses)),
			zap.String("media", response.MediaPath),
		)

		result, err := r.assessor.Assess(ctx, response, overwrite)
		if err != nil {
			r.logger.Error("assessment failed", zap.String("media", response.MediaPath), zap.Error(err))
			return done, err
		}
		done = append(done, result)
	}

	r.logger.Info("batch assessed", zap.Int("count", len(done)))
	return done, nil
}
