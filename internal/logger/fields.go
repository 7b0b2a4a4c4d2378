package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldProvider = "ai_provider"
	FieldModel    = "ai_model"
	// FieldRole tells which part of the pipeline a model serves: basic, master or transcriber.
	FieldRole = "ai_role"
)

// StringField is a key/value pair dropped from the output when either side is blank.
type StringField struct {
	Key   string
	Value string
}

func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}
		result = append(result, zap.String(key, value))
	}
	return result
}

// WithFields attaches fields to logger, falling back to a no-op logger when it is nil.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(fields) == 0 {
		return logger
	}
	return logger.With(fields...)
}

// AI describes the model behind a generation or transcription capability.
type AI struct {
	Provider string
	Model    string
	Role     string
}

func (a AI) Fields() []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: a.Provider},
		StringField{Key: FieldModel, Value: a.Model},
		StringField{Key: FieldRole, Value: a.Role},
	)
}

// WithAI returns a logger annotated with the model description.
func WithAI(logger *zap.Logger, a AI) *zap.Logger {
	return WithFields(logger, a.Fields()...)
}
