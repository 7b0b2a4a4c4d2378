// Package server accepts candidate media uploads over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/spigell/interview-judge/internal/interview"
	"github.com/spigell/interview-judge/internal/pool"
	"github.com/spigell/interview-judge/internal/registry"
)

const (
	defaultListen      = ":8080"
	defaultMaxUploadMB = 200
	mediaField         = "media"
)

var allowedExtensions = map[string]struct{}{
	".webm": {}, ".mp4": {}, ".mkv": {}, ".mov": {},
	".wav": {}, ".mp3": {}, ".m4a": {}, ".ogg": {}, ".flac": {},
}

type taskRegistry interface {
	Task(ctx context.Context, id string) (interview.Task, error)
	AddSubmission(ctx context.Context, s registry.Submission) (registry.Submission, error)
}

type candidateStates interface {
	State(id string) (pool.State, *interview.Assessment, error)
}

type Config struct {
	Listen      string `mapstructure:"listen"`
	MaxUploadMB int    `mapstructure:"max-upload-mb"`
}

// Deps wires the server. Media uploads are written into MediaDir on the Media filesystem.
type Deps struct {
	Media      afero.Fs
	MediaDir   string
	Registry   taskRegistry
	Candidates candidateStates
	Logger     *zap.Logger
}

type Server struct {
	app       *fiber.App
	listen    string
	maxUpload int64
	media     afero.Fs
	mediaDir  string
	registry  taskRegistry
	states    candidateStates
	logger    *zap.Logger
	newID     func() string
}

type uploadResponse struct {
	CandidateID   string `json:"candidate_id"`
	TaskID        string `json:"task_id"`
	RecruitmentID string `json:"recruitment_id"`
}

type candidateResponse struct {
	CandidateID string                `json:"candidate_id"`
	State       pool.State            `json:"state"`
	Assessment  *interview.Assessment `json:"assessment,omitempty"`
}

func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Media == nil || deps.MediaDir == "" {
		return nil, errors.New("media filesystem and directory are required")
	}
	if deps.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if deps.Candidates == nil {
		return nil, errors.New("candidate states are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = defaultMaxUploadMB
	}
	if err := deps.Media.MkdirAll(deps.MediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}

	s := &Server{
		listen:    cfg.Listen,
		maxUpload: int64(cfg.MaxUploadMB) << 20,
		media:     deps.Media,
		mediaDir:  deps.MediaDir,
		registry:  deps.Registry,
		states:    deps.Candidates,
		logger:    deps.Logger,
		newID:     func() string { return uuid.NewString() },
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "interview-judge",
		DisableStartupMessage: true,
		// Room for the multipart envelope; the media size itself is checked in the handler.
		BodyLimit:    int(s.maxUpload) + 1<<20,
		ErrorHandler: s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(healthcheck.New())
	s.app.Use(s.logRequests)
	s.routes()

	return s, nil
}

func (s *Server) routes() {
	s.app.Post("/candidate/upload", s.upload)
	s.app.Put("/candidate/upload", s.upload)
	s.app.Get("/candidate/:id", s.candidate)
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("upload server listening", zap.String("listen", s.listen))
		errCh <- s.app.Listen(s.listen)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.app.ShutdownWithContext(shutdownCtx)
	}
}

func (s *Server) upload(c *fiber.Ctx) error {
	taskID := strings.TrimSpace(c.FormValue("task_id"))
	recruitmentID := strings.TrimSpace(c.FormValue("recruitment_id"))
	if taskID == "" || recruitmentID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "task_id and recruitment_id are required")
	}

	file, err := c.FormFile(mediaField)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "media file is required")
	}
	if file.Size > s.maxUpload {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("media file is too large (max %d MB)", s.maxUpload>>20))
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unsupported media type %q", ext))
	}

	ctx := c.UserContext()
	if _, err := s.registry.Task(ctx, taskID); err != nil {
		if errors.Is(err, registry.ErrTaskNotFound) {
			return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("task %q not found", taskID))
		}
		return err
	}

	candidateID := s.newID()
	mediaPath := filepath.Join(s.mediaDir, candidateID+ext)

	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if err := afero.WriteReader(s.media, mediaPath, src); err != nil {
		return fmt.Errorf("save media %s: %w", mediaPath, err)
	}

	_, err = s.registry.AddSubmission(ctx, registry.Submission{
		CandidateID:   candidateID,
		TaskID:        taskID,
		RecruitmentID: recruitmentID,
		MediaPath:     mediaPath,
	})
	if err != nil {
		if rmErr := s.media.Remove(mediaPath); rmErr != nil {
			s.logger.Warn("failed to remove orphaned media", zap.String("media", mediaPath), zap.Error(rmErr))
		}
		return err
	}

	s.logger.Info("media uploaded",
		zap.String("candidate_id", candidateID),
		zap.String("task_id", taskID),
		zap.String("recruitment_id", recruitmentID),
		zap.Int64("size", file.Size),
	)

	return c.Status(fiber.StatusCreated).JSON(uploadResponse{
		CandidateID:   candidateID,
		TaskID:        taskID,
		RecruitmentID: recruitmentID,
	})
}

func (s *Server) candidate(c *fiber.Ctx) error {
	id := c.Params("id")
	if parsed, err := interview.IDFromPath(id); err != nil || parsed != id {
		return fiber.NewError(fiber.StatusBadRequest, "invalid candidate id")
	}

	state, assessment, err := s.states.State(id)
	if err != nil {
		if errors.Is(err, pool.ErrUnknownCandidate) {
			return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("candidate %q not found", id))
		}
		return err
	}

	return c.JSON(candidateResponse{CandidateID: id, State: state, Assessment: assessment})
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	message := err.Error()
	if code == fiber.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		message = "internal server error"
	}

	return c.Status(code).JSON(fiber.Map{"error": message})
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.logger.Debug("request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", c.Response().StatusCode()),
		zap.Duration("latency", time.Since(start)),
	)
	return err
}
