package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/rs/zerolog"

	"veostudio/internal/domain"
	"veostudio/internal/http/handlers"
	"veostudio/internal/middleware"
	"veostudio/internal/videogen"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubVideos struct {
	listed  string
	batched []string
}

func (s *stubVideos) Submit(context.Context, videogen.SubmitInput) (*domain.Job, error) {
	return nil, domain.ErrInvalidRequest
}

func (s *stubVideos) ListJobs(_ context.Context, ownerID string) ([]domain.Job, error) {
	s.listed = ownerID
	return nil, nil
}

func (s *stubVideos) GetJob(context.Context, string, string) (*domain.Job, error) {
	return nil, domain.ErrNotFound
}

func (s *stubVideos) ResultURI(context.Context, string, string) (string, error) {
	return "", domain.ErrNotFound
}

func (s *stubVideos) DeleteJob(context.Context, string, string) error { return nil }

func (s *stubVideos) DeleteLatest(context.Context, string) (string, error) { return "vid_9", nil }

func (s *stubVideos) ReconcileOwned(context.Context, string, string) (*domain.Job, error) {
	return nil, domain.ErrNotFound
}

func (s *stubVideos) ReconcileManyOwned(_ context.Context, _ string, ids []string) []*domain.Job {
	s.batched = ids
	return nil
}

type stubUsers struct{}

func (stubUsers) Credits(context.Context, string) (int, error) { return 5, nil }

func newTestRouter(videos *stubVideos) http.Handler {
	app := handlers.NewApp(videos, stubUsers{}, zerolog.Nop())
	return NewRouter(app, Options{JWTSecret: testSecret, DefaultLocale: "en", SyncRatePerMin: 2, Logger: zerolog.Nop()})
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := middleware.SignJWT(testSecret, middleware.TokenClaims{Claims: jwt.Claims{
		Subject: userID,
		Expiry:  jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	return "Bearer " + token
}

func TestRouterHealthIsPublic(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubVideos{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
}

func TestRouterRequiresToken(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubVideos{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/videos", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRouterRoutesAuthenticatedCalls(t *testing.T) {
	videos := &stubVideos{}
	router := newTestRouter(videos)

	req := httptest.NewRequest(http.MethodGet, "/v1/videos", nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || videos.listed != "user-1" {
		t.Fatalf("list status = %d owner = %q", rec.Code, videos.listed)
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/videos/latest", nil)
	req.Header.Set("Authorization", bearer(t, "user-1"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "vid_9") {
		t.Fatalf("delete latest = %d %s", rec.Code, rec.Body.String())
	}
}

func TestRouterRateLimitsSync(t *testing.T) {
	videos := &stubVideos{}
	router := newTestRouter(videos)
	auth := bearer(t, "user-1")

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/videos/sync", strings.NewReader(`{"ids":["a","b"]}`))
		req.Header.Set("Authorization", auth)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("sync status codes = %v, want [200 200 429]", codes)
	}
	if len(videos.batched) != 2 {
		t.Fatalf("batched ids = %v", videos.batched)
	}
}
