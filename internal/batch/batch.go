// Package batch loads the list of responses to assess from a YAML file.
package batch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/spigell/interview-judge/internal/interview"
)

// Entry is one line of a batch file. Task holds the task text inline; TaskID refers to a task
// configured under `tasks:` instead.
type Entry struct {
	Media  string `mapstructure:"media"`
	Task   string `mapstructure:"task"`
	TaskID string `mapstructure:"task_id"`
}

// LoadFile reads and parses the batch file at path.
func LoadFile(fs afero.Fs, path string, tasks map[string]string) ([]*interview.Response, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("read batch file %s: %w", path, err)
	}
	return Parse(data, tasks)
}

// Parse decodes a YAML list of entries into responses, in file order.
func Parse(data []byte, tasks map[string]string) ([]*interview.Response, error) {
	var raw []map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse batch file: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("batch file has no entries")
	}

	responses := make([]*interview.Response, 0, len(raw))
	for i, item := range raw {
		var entry Entry
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			ErrorUnused: true,
			Result:      &entry,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(item); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}

		response, err := entry.response(tasks)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		responses = append(responses, response)
	}

	return responses, nil
}

func (e Entry) response(tasks map[string]string) (*interview.Response, error) {
	media := strings.TrimSpace(e.Media)
	if media == "" {
		return nil, errors.New("media is required")
	}

	text := strings.TrimSpace(e.Task)
	if e.TaskID != "" {
		if text != "" {
			return nil, errors.New("task and task_id are mutually exclusive")
		}
		configured, ok := tasks[e.TaskID]
		if !ok {
			return nil, fmt.Errorf("unknown task_id %q", e.TaskID)
		}
		text = strings.TrimSpace(configured)
	}
	if text == "" {
		return nil, errors.New("task is required")
	}

	response := interview.NewResponse(media, text)
	if _, err := response.CandidateID(); err != nil {
		return nil, err
	}
	return response, nil
}
