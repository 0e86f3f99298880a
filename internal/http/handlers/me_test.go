package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestMe(t *testing.T) {
	app := newTestApp(newFakeVideos())

	tests := []struct {
		user string
		want int
	}{
		{user: "user-1", want: 3},
		{user: "fresh", want: 5},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		app.Me(rec, withUser(httptest.NewRequest(http.MethodGet, "/v1/me", nil), tc.user))
		var body meResponse
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Credits != tc.want || body.ID != tc.user {
			t.Fatalf("%s: body = %+v, want credits %d", tc.user, body, tc.want)
		}
	}

	failing := NewApp(newFakeVideos(), fakeUsers{err: errBoom}, zerolog.Nop())
	rec := httptest.NewRecorder()
	failing.Me(rec, withUser(httptest.NewRequest(http.MethodGet, "/v1/me", nil), "user-1"))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(newFakeVideos())
	rec := httptest.NewRecorder()
	app.Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	app.Ping = func(context.Context) error { return errors.New("down") }
	rec = httptest.NewRecorder()
	app.Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}
