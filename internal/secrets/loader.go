// Package secrets resolves API keys from files or inline configuration values.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotConfigured is returned when a required secret has neither a file nor a value.
var ErrNotConfigured = errors.New("secret is not configured")

// Source describes where a secret comes from.
type Source struct {
	// Name is used in error messages.
	Name  string
	Value string
	// File takes precedence over Value when set.
	File string
	// Optional makes a missing secret resolve to "" instead of ErrNotConfigured.
	Optional bool
}

// Load resolves src against the OS filesystem.
func Load(src Source) (string, error) {
	return LoadFS(afero.NewOsFs(), src)
}

// LoadFS returns the trimmed secret described by src.
func LoadFS(fs afero.Fs, src Source) (string, error) {
	name := strings.TrimSpace(src.Name)
	if name == "" {
		name = "secret"
	}

	value := src.Value
	file := strings.TrimSpace(src.File)
	if file != "" {
		data, err := afero.ReadFile(fs, file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		value = string(data)
	}

	secret := strings.TrimSpace(value)
	switch {
	case secret != "":
		return secret, nil
	case file != "":
		return "", fmt.Errorf("%s file %q is empty", name, file)
	case src.Optional:
		return "", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}
}
