package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/logger"
	"github.com/spigell/interview-judge/internal/server"
	"github.com/spigell/interview-judge/internal/viability"
)

const (
	app       = "interview-judge"
	envPrefix = "INTERVIEW_JUDGE"
)

type Config struct {
	Storage   StorageConfig     `mapstructure:"storage"`
	AI        AIConfig          `mapstructure:"ai"`
	Viability ViabilityConfig   `mapstructure:"viability"`
	Server    server.Config     `mapstructure:"server"`
	Tasks     map[string]string `mapstructure:"tasks"`
}

type StorageConfig struct {
	Media       string `mapstructure:"media"`
	Transcripts string `mapstructure:"transcripts"`
	Summaries   string `mapstructure:"summaries"`
	Rejections  string `mapstructure:"rejections"`
	Registry    string `mapstructure:"registry"`
}

type AIConfig struct {
	Provider     string        `mapstructure:"provider"`
	MaxLogLength int           `mapstructure:"max-log-length"`
	Gemini       *GeminiConfig `mapstructure:"gemini"`
	OpenAI       *OpenAIConfig `mapstructure:"openai"`
}

type GeminiConfig struct {
	APIKey             string `mapstructure:"api-key"`
	APIKeyFile         string `mapstructure:"api-key-file"`
	BasicModel         string `mapstructure:"basic-model"`
	MasterModel        string `mapstructure:"master-model"`
	TranscriptionModel string `mapstructure:"transcription-model"`
	MaxRetries         int    `mapstructure:"max-retries"`
}

type OpenAIConfig struct {
	BaseURL            string        `mapstructure:"base-url"`
	APIKey             string        `mapstructure:"api-key"`
	APIKeyFile         string        `mapstructure:"api-key-file"`
	BasicModel         string        `mapstructure:"basic-model"`
	MasterModel        string        `mapstructure:"master-model"`
	TranscriptionModel string        `mapstructure:"transcription-model"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

type ViabilityConfig struct {
	Cycles int `mapstructure:"cycles"`
}

var defaults = map[string]any{
	"storage.media":       "data/videos",
	"storage.transcripts": "data/text",
	"storage.summaries":   "data/summaries",
	"storage.rejections":  "data/rejections",
	"storage.registry":    "data/registry.db",

	"ai.provider":                   "gemini",
	"ai.max-log-length":             200,
	"ai.gemini.api-key":             "",
	"ai.gemini.api-key-file":        "",
	"ai.gemini.basic-model":         "gemini-2.5-flash",
	"ai.gemini.master-model":        "gemini-2.5-pro",
	"ai.gemini.transcription-model": "gemini-2.5-flash",
	"ai.gemini.max-retries":         0,
	"ai.openai.base-url":            "http://localhost:11434/v1",
	"ai.openai.api-key":             "",
	"ai.openai.api-key-file":        "",
	"ai.openai.basic-model":         "zephyr:7b-beta-q5_K_M",
	"ai.openai.master-model":        "zephyr:7b-beta-q5_K_M",
	"ai.openai.transcription-model": "whisper-1",
	"ai.openai.timeout":             "5m",

	"viability.cycles": viability.DefaultCycles,

	"server.listen":        ":8080",
	"server.max-upload-mb": 200,
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "interview-judge assesses recorded interview answers with language models and filters the candidate pool",
	}
)

// Execute runs the root command until it finishes or the process is interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is interview-judge.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	// Well-known provider variables work alongside the prefixed ones.
	for key, env := range map[string]string{
		"ai.gemini.api-key": "GEMINI_API_KEY",
		"ai.openai.api-key": "OPENAI_API_KEY",
	} {
		if err := viper.BindEnv(key, envName(key), env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}
}

func initConfig() {
	// A missing .env is fine; a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	for key, value := range defaults {
		viper.SetDefault(key, value)
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
	}

	// Everything has a default, so only an explicitly requested config file is mandatory.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	if config == nil {
		return nil, errors.New("empty configuration")
	}

	return config, nil
}

// setup builds the logger and config shared by every command, exiting on failure.
func setup() (*Config, *zap.Logger) {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		l.Fatal("getting a config", zap.Error(err))
	}

	l.Debug("starting "+app,
		zap.String("version", version),
		zap.String("config_file", viper.ConfigFileUsed()),
		zap.String("ai_provider", config.AI.Provider),
	)

	return config, l
}
