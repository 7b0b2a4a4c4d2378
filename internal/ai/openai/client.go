// Package openai talks to OpenAI-compatible HTTP APIs (OpenAI, OpenRouter, Ollama).
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	defaultBaseURL            = "http://localhost:11434/v1"
	defaultTranscriptionModel = "whisper-1"
	defaultTimeout            = 5 * time.Minute
)

// Config describes an OpenAI-compatible endpoint.
type Config struct {
	BaseURL            string
	APIKey             string
	Model              string
	TranscriptionModel string
	Timeout            time.Duration
}

// Client implements ai.Generator and ai.Transcriber over the chat completions and audio
// transcriptions endpoints.
type Client struct {
	http               *resty.Client
	model              string
	transcriptionModel string
	logger             *zap.Logger
}

func New(cfg Config, logger *zap.Logger) (*Client, error) {
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, errors.New("model is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	transcriptionModel := strings.TrimSpace(cfg.TranscriptionModel)
	if transcriptionModel == "" {
		transcriptionModel = defaultTranscriptionModel
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		client.SetAuthToken(key)
	}

	return &Client{
		http:               client,
		model:              model,
		transcriptionModel: transcriptionModel,
		logger:             logger,
	}, nil
}

// WithModel returns a copy of the client that generates with another model over the same connection.
func (c *Client) WithModel(model string) *Client {
	clone := *c
	if model = strings.TrimSpace(model); model != "" {
		clone.model = model
	}
	return &clone
}

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// GenerateContent posts a system + user conversation and returns the first choice content.
func (c *Client) GenerateContent(ctx context.Context, system, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	messages := make([]map[string]string, 0, 2)
	if system = strings.TrimSpace(system); system != "" {
		messages = append(messages, map[string]string{"role": "system", "content": system})
	}
	messages = append(messages, map[string]string{"role": "user", "content": message})

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]any{
			"model":    c.model,
			"messages": messages,
		}).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("chat completion request: %w", err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("chat completion: bad status %s: %s", resp.Status(), apiErrorMessage(resp.Body()))
	}

	text := strings.TrimSpace(gjson.GetBytes(resp.Body(), "choices.0.message.content").String())
	if text == "" {
		return "", errors.New("chat completion returned empty response")
	}

	return text, nil
}

// Transcribe uploads the media to the audio transcriptions endpoint.
func (c *Client) Transcribe(ctx context.Context, name string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("media %q is empty", name)
	}

	c.logger.Debug("transcription request",
		zap.String("media", name),
		zap.String("model", c.transcriptionModel),
		zap.Int("size", len(data)),
	)

	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("file", filepath.Base(name), bytes.NewReader(data)).
		SetFormData(map[string]string{
			"model":           c.transcriptionModel,
			"response_format": "json",
		}).
		Post("/audio/transcriptions")
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("transcription: bad status %s: %s", resp.Status(), apiErrorMessage(resp.Body()))
	}

	text := strings.TrimSpace(gjson.GetBytes(resp.Body(), "text").String())
	if text == "" {
		return "", errors.New("transcription returned empty text")
	}

	return text, nil
}

func apiErrorMessage(body []byte) string {
	if msg := gjson.GetBytes(body, "error.message"); msg.Exists() {
		return msg.String()
	}
	if msg := gjson.GetBytes(body, "error"); msg.Exists() {
		return msg.String()
	}
	return strings.TrimSpace(string(body))
}
