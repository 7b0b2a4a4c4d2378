package ai

import (
	"context"
	"errors"
)

var (
	// ErrGeneration marks failures of the text generation backend.
	ErrGeneration = errors.New("generation failed")
	// ErrTranscription marks unreadable media or transcription backend failures.
	ErrTranscription = errors.New("transcription failed")
)

// Generator produces a single whole-text answer for a system instruction and a user message.
type Generator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

// Transcriber turns recorded media into plain text.
type Transcriber interface {
	Transcribe(ctx context.Context, name string, data []byte) (string, error)
}
