package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/ai"
	"github.com/spigell/interview-judge/internal/ai/gemini"
	"github.com/spigell/interview-judge/internal/ai/openai"
	"github.com/spigell/interview-judge/internal/assessment"
	"github.com/spigell/interview-judge/internal/interview"
	"github.com/spigell/interview-judge/internal/logger"
	"github.com/spigell/interview-judge/internal/pool"
	"github.com/spigell/interview-judge/internal/registry"
	"github.com/spigell/interview-judge/internal/secrets"
	"github.com/spigell/interview-judge/internal/store"
	"github.com/spigell/interview-judge/internal/transcript"
	"github.com/spigell/interview-judge/internal/viability"
)

const (
	roleBasic       = "basic"
	roleMaster      = "master"
	roleTranscriber = "transcriber"
)

// stores share a single filesystem so pool moves stay renames.
type stores struct {
	fs          afero.Fs
	transcripts *store.FileStore[string]
	summaries   *store.FileStore[interview.Assessment]
	rejections  *store.FileStore[interview.Assessment]
}

// backends are the model capabilities: basic for criteria and votes, master for verdicts.
type backends struct {
	basic       ai.Generator
	master      ai.Generator
	transcriber ai.Transcriber
}

func newStores(cfg StorageConfig) (*stores, error) {
	fs := afero.NewOsFs()

	transcripts, err := store.NewText(fs, cfg.Transcripts)
	if err != nil {
		return nil, fmt.Errorf("transcript store: %w", err)
	}
	summaries, err := store.NewJSON[interview.Assessment](fs, cfg.Summaries)
	if err != nil {
		return nil, fmt.Errorf("summary store: %w", err)
	}
	rejections, err := store.NewJSON[interview.Assessment](fs, cfg.Rejections)
	if err != nil {
		return nil, fmt.Errorf("rejection store: %w", err)
	}

	return &stores{fs: fs, transcripts: transcripts, summaries: summaries, rejections: rejections}, nil
}

func newBackends(ctx context.Context, cfg AIConfig, l *zap.Logger) (*backends, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	switch provider {
	case "", "gemini":
		return newGeminiBackends(ctx, cfg.Gemini, l)
	case "openai", "ollama", "openrouter":
		return newOpenAIBackends(cfg.OpenAI, provider, l)
	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

func newGeminiBackends(ctx context.Context, cfg *GeminiConfig, l *zap.Logger) (*backends, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gemini configuration is required")
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.APIKey,
		File:  cfg.APIKeyFile,
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	withAI := func(model, role string) *zap.Logger {
		return logger.WithAI(l, logger.AI{Provider: "gemini", Model: model, Role: role})
	}

	basic, err := gemini.NewGenerator(client, cfg.BasicModel, cfg.MaxRetries, withAI(cfg.BasicModel, roleBasic))
	if err != nil {
		return nil, err
	}
	master, err := gemini.NewGenerator(client, cfg.MasterModel, cfg.MaxRetries, withAI(cfg.MasterModel, roleMaster))
	if err != nil {
		return nil, err
	}
	transcriber, err := gemini.NewTranscriber(client, cfg.TranscriptionModel, withAI(cfg.TranscriptionModel, roleTranscriber))
	if err != nil {
		return nil, err
	}

	return &backends{basic: basic, master: master, transcriber: transcriber}, nil
}

func newOpenAIBackends(cfg *OpenAIConfig, provider string, l *zap.Logger) (*backends, error) {
	if cfg == nil {
		return nil, fmt.Errorf("openai configuration is required")
	}

	// Local Ollama endpoints run without a key.
	apiKey, err := secrets.Load(secrets.Source{
		Name:     "openai api key",
		Value:    cfg.APIKey,
		File:     cfg.APIKeyFile,
		Optional: true,
	})
	if err != nil {
		return nil, err
	}

	client, err := openai.New(openai.Config{
		BaseURL:            cfg.BaseURL,
		APIKey:             apiKey,
		Model:              cfg.BasicModel,
		TranscriptionModel: cfg.TranscriptionModel,
		Timeout:            cfg.Timeout,
	}, logger.WithAI(l, logger.AI{Provider: provider, Model: cfg.BasicModel}))
	if err != nil {
		return nil, err
	}

	return &backends{
		basic:       client,
		master:      client.WithModel(cfg.MasterModel),
		transcriber: client,
	}, nil
}

func newAggregator(cfg *Config, s *stores, b *backends, l *zap.Logger) (*assessment.Aggregator, error) {
	provider, err := transcript.New(s.fs, s.transcripts, b.transcriber, l)
	if err != nil {
		return nil, err
	}

	evaluator, err := assessment.NewEvaluator(b.basic, l, cfg.AI.MaxLogLength)
	if err != nil {
		return nil, err
	}

	return assessment.NewAggregator(assessment.AggregatorDeps{
		Transcripts:  provider,
		Evaluator:    evaluator,
		Master:       b.master,
		Summaries:    s.summaries,
		Logger:       l,
		MaxLogLength: cfg.AI.MaxLogLength,
	})
}

// newPool builds the pool manager; voter may be nil for read-only use.
func newPool(cfg *Config, s *stores, voter *viability.Voter, l *zap.Logger) (*pool.Manager, error) {
	poolCfg := pool.Config{
		Media:      s.fs,
		MediaDir:   cfg.Storage.Media,
		Summaries:  s.summaries,
		Rejections: s.rejections,
		Cycles:     cfg.Viability.Cycles,
		Logger:     l,
	}
	if voter != nil {
		poolCfg.Voter = voter
	}
	return pool.New(poolCfg)
}

// openRegistry opens the submissions database and upserts the configured tasks.
func openRegistry(ctx context.Context, cfg *Config, l *zap.Logger) (*registry.Registry, error) {
	reg, err := registry.Open(ctx, cfg.Storage.Registry, l)
	if err != nil {
		return nil, err
	}

	for id, text := range cfg.Tasks {
		if err := reg.UpsertTask(ctx, id, text); err != nil {
			reg.Close()
			return nil, err
		}
	}

	return reg, nil
}
