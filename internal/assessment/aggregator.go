package assessment

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/ai"
	"github.com/spigell/interview-judge/internal/interview"
	"github.com/spigell/interview-judge/internal/store"
	"github.com/spigell/interview-judge/internal/utils"
)

type transcriptSource interface {
	Get(ctx context.Context, response *interview.Response) (string, error)
}

type criterionEvaluator interface {
	Evaluate(ctx context.Context, c interview.Criterion, task, transcript string) (string, error)
}

// AggregatorDeps wires the collaborators of an Aggregator.
type AggregatorDeps struct {
	Transcripts transcriptSource
	Evaluator   criterionEvaluator
	// Master writes the final verdict from the per-criterion judgments.
	Master    ai.Generator
	Summaries store.Store[interview.Assessment]
	Logger    *zap.Logger
	// MaxLogLength bounds the verdict preview logged at debug level.
	MaxLogLength int
}

// Aggregator computes and persists the assessment of a response.
type Aggregator struct {
	transcripts  transcriptSource
	evaluator    criterionEvaluator
	master       ai.Generator
	summaries    store.Store[interview.Assessment]
	logger       *zap.Logger
	maxLogLength int
}

func NewAggregator(deps AggregatorDeps) (*Aggregator, error) {
	if deps.Transcripts == nil {
		return nil, errors.New("transcript source is required")
	}
	if deps.Evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	if deps.Master == nil {
		return nil, errors.New("master generator is required")
	}
	if deps.Summaries == nil {
		return nil, errors.New("summary store is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxLogLength := deps.MaxLogLength
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &Aggregator{
		transcripts:  deps.Transcripts,
		evaluator:    deps.Evaluator,
		master:       deps.Master,
		summaries:    deps.Summaries,
		logger:       logger,
		maxLogLength: maxLogLength,
	}, nil
}

// Assess returns the assessment of the response. A stored assessment is returned untouched
// unless overwrite is set. A fresh assessment is persisted only when every criterion and the
// final verdict succeeded.
func (a *Aggregator) Assess(ctx context.Context, response *interview.Response, overwrite bool) (*interview.Assessment, error) {
	id, err := response.CandidateID()
	if err != nil {
		return nil, err
	}
	logger := a.logger.With(zap.String("candidate_id", id))

	exists, err := a.summaries.Exists(id)
	if err != nil {
		return nil, err
	}
	if exists && !overwrite {
		stored, err := a.summaries.Read(id)
		if err != nil {
			return nil, err
		}
		stored.CandidateID = id
		logger.Info("assessment already present, skipping")
		return &stored, nil
	}
	if exists {
		logger.Info("assessment already present, overwriting")
	}

	transcript, err := a.transcripts.Get(ctx, response)
	if err != nil {
		return nil, fmt.Errorf("assess %s: %w", id, err)
	}

	result := &interview.Assessment{
		CandidateID: id,
		Task:        response.Task.Text,
	}
	for _, c := range interview.Criteria {
		judgment, err := a.evaluator.Evaluate(ctx, c, response.Task.Text, transcript)
		if err != nil {
			return nil, fmt.Errorf("assess %s: %w", id, err)
		}
		result.SetJudgment(c, judgment)
	}

	verdict, err := a.master.GenerateContent(ctx, summarySystem, buildSummaryMessage(result))
	if err != nil {
		if errors.Is(err, ai.ErrGeneration) {
			return nil, fmt.Errorf("assess %s: verdict: %w", id, err)
		}
		return nil, fmt.Errorf("%w: assess %s: verdict: %w", ai.ErrGeneration, id, err)
	}
	result.Verdict = verdict

	if err := a.summaries.Write(id, *result); err != nil {
		return nil, err
	}

	logger.Info("assessment stored",
		zap.String("verdict_preview", utils.TruncateForLog(verdict, a.maxLogLength)),
	)

	return result, nil
}
