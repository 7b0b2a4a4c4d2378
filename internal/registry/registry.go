// Package registry records interview tasks and the media submitted for them.
package registry

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/spigell/interview-judge/internal/interview"
)

// ErrTaskNotFound is returned for task ids the registry does not know.
var ErrTaskNotFound = errors.New("task not found")

//go:embed schema.sql
var schema string

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

// Submission is one uploaded response.
type Submission struct {
	CandidateID   string
	TaskID        string
	RecruitmentID string
	MediaPath     string
	CreatedAt     time.Time
}

type Registry struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

// Open opens or creates the sqlite database at path and applies the schema.
func Open(ctx context.Context, path string, logger *zap.Logger) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("registry path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create registry directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open registry: %w", err)
	}
	// sqlite allows one writer; a single connection keeps the pragmas in effect.
	db.SetMaxOpenConns(1)

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply registry schema: %w", err)
	}

	logger.Debug("registry opened", zap.String("path", path))

	return &Registry{db: db, logger: logger, now: time.Now}, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// UpsertTask stores the task text under id, replacing an existing text.
func (r *Registry) UpsertTask(ctx context.Context, id, text string) error {
	id = strings.TrimSpace(id)
	if id == "" || strings.TrimSpace(text) == "" {
		return errors.New("task id and text are required")
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, text) VALUES (?, ?) ON CONFLICT(id) DO UPDATE SET text = excluded.text`,
		id, text)
	if err != nil {
		return fmt.Errorf("upsert task %s: %w", id, err)
	}
	return nil
}

func (r *Registry) Task(ctx context.Context, id string) (interview.Task, error) {
	var text string
	err := r.db.QueryRowContext(ctx, `SELECT text FROM tasks WHERE id = ?`, id).Scan(&text)
	if errors.Is(err, sql.ErrNoRows) {
		return interview.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	if err != nil {
		return interview.Task{}, fmt.Errorf("get task %s: %w", id, err)
	}
	return interview.Task{Text: text}, nil
}

// AddSubmission records an upload. The task must already exist.
func (r *Registry) AddSubmission(ctx context.Context, s Submission) (Submission, error) {
	if s.CandidateID == "" || s.MediaPath == "" {
		return s, errors.New("candidate id and media path are required")
	}
	if _, err := r.Task(ctx, s.TaskID); err != nil {
		return s, err
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO submissions (candidate_id, task_id, recruitment_id, media_path, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.CandidateID, s.TaskID, s.RecruitmentID, s.MediaPath, s.CreatedAt.UnixNano())
	if err != nil {
		return s, fmt.Errorf("add submission %s: %w", s.CandidateID, err)
	}

	r.logger.Info("submission recorded",
		zap.String("candidate_id", s.CandidateID),
		zap.String("task_id", s.TaskID),
		zap.String("recruitment_id", s.RecruitmentID),
	)
	return s, nil
}

// Submissions lists the uploads of a recruitment in arrival order. An empty recruitment id
// lists every upload.
func (r *Registry) Submissions(ctx context.Context, recruitmentID string) ([]Submission, error) {
	query := `SELECT candidate_id, task_id, recruitment_id, media_path, created_at FROM submissions`
	args := []any{}
	if recruitmentID != "" {
		query += ` WHERE recruitment_id = ?`
		args = append(args, recruitmentID)
	}
	query += ` ORDER BY created_at, candidate_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var out []Submission
	for rows.Next() {
		var (
			s       Submission
			created int64
		)
		if err := rows.Scan(&s.CandidateID, &s.TaskID, &s.RecruitmentID, &s.MediaPath, &created); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		s.CreatedAt = time.Unix(0, created)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Responses joins the submissions of a recruitment with their task texts.
func (r *Registry) Responses(ctx context.Context, recruitmentID string) ([]*interview.Response, error) {
	query := `SELECT s.media_path, t.text FROM submissions s JOIN tasks t ON t.id = s.task_id`
	args := []any{}
	if recruitmentID != "" {
		query += ` WHERE s.recruitment_id = ?`
		args = append(args, recruitmentID)
	}
	query += ` ORDER BY s.created_at, s.candidate_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var out []*interview.Response
	for rows.Next() {
		var media, text string
		if err := rows.Scan(&media, &text); err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		out = append(out, interview.NewResponse(media, text))
	}
	return out, rows.Err()
}
