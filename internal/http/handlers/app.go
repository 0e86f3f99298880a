package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"veostudio/internal/domain"
	"veostudio/internal/middleware"
	"veostudio/internal/videogen"
)

// VideoService is the part of videogen.Service the handlers call.
type VideoService interface {
	Submit(ctx context.Context, in videogen.SubmitInput) (*domain.Job, error)
	ListJobs(ctx context.Context, ownerID string) ([]domain.Job, error)
	GetJob(ctx context.Context, ownerID, jobID string) (*domain.Job, error)
	ResultURI(ctx context.Context, ownerID, jobID string) (string, error)
	DeleteJob(ctx context.Context, ownerID, jobID string) error
	DeleteLatest(ctx context.Context, ownerID string) (string, error)
	ReconcileOwned(ctx context.Context, ownerID, jobID string) (*domain.Job, error)
	ReconcileManyOwned(ctx context.Context, ownerID string, jobIDs []string) []*domain.Job
}

type App struct {
	Videos VideoService
	Users  domain.UserRepository
	Logger zerolog.Logger

	// Ping reports storage health for /healthz. Optional.
	Ping func(ctx context.Context) error
	// MaxUploadBytes bounds a multipart submission including references.
	MaxUploadBytes int64
}

const defaultMaxUploadBytes = 32 << 20

func NewApp(videos VideoService, users domain.UserRepository, logger zerolog.Logger) *App {
	return &App{
		Videos:         videos,
		Users:          users,
		Logger:         logger,
		MaxUploadBytes: defaultMaxUploadBytes,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, msg string) {
	a.json(w, code, map[string]any{
		"error": map[string]string{"code": errCode, "message": msg},
	})
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func (a *App) requestLogger(r *http.Request) zerolog.Logger {
	return a.Logger.With().
		Str("request_id", middleware.RequestIDFromContext(r.Context())).
		Str("user_id", a.currentUserID(r)).
		Logger()
}
