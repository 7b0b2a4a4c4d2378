// Package interview holds the records the assessment pipeline passes around: tasks, candidate
// responses and persisted assessments.
package interview

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// NoData is the placeholder stored for judgments that were not produced.
const NoData = "No data."

var ErrEmptyID = errors.New("candidate id is empty")

// Task is the prompt given to a candidate. MediaPath optionally points to a recorded question.
type Task struct {
	Text      string `json:"text" yaml:"text" mapstructure:"text"`
	MediaPath string `json:"media_path,omitempty" yaml:"media_path" mapstructure:"media_path"`
}

// Response is a candidate's recorded answer to a task.
type Response struct {
	MediaPath string
	Task      Task
}

func NewResponse(mediaPath, taskText string) *Response {
	return &Response{MediaPath: mediaPath, Task: Task{Text: taskText}}
}

// CandidateID derives the stable candidate identifier from the response media reference.
func (r *Response) CandidateID() (string, error) {
	if r == nil {
		return "", ErrEmptyID
	}
	return IDFromPath(r.MediaPath)
}

// IDFromPath strips directories and everything after the first dot of the file name:
// "data/videos/practice1.webm" becomes "practice1".
func IDFromPath(path string) (string, error) {
	base := filepath.Base(filepath.ToSlash(strings.TrimSpace(path)))
	if i := strings.Index(base, "."); i >= 0 {
		base = base[:i]
	}
	if base == "" || base == "/" {
		return "", fmt.Errorf("%w: media reference %q", ErrEmptyID, path)
	}
	return base, nil
}
