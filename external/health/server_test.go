package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/foxseedlab/pwbot/internal/lobby"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type staticLobbies []lobby.Info

func (s staticLobbies) Active() []lobby.Info { return s }

func TestHealthz(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "store reachable", status: http.StatusOK},
		{name: "store unreachable", err: errors.New("connection refused"), status: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(":0", pingerFunc(func(context.Context) error { return tt.err }), staticLobbies(nil))
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, rec.Code)
			}
		})
	}
}

func TestListLobbies(t *testing.T) {
	expires := time.Date(2026, 1, 1, 6, 0, 0, 0, time.UTC)
	s := NewServer(":0", pingerFunc(func(context.Context) error { return nil }), staticLobbies{
		{OwnerID: "owner", ChannelID: "beta", MessageID: "m1", Name: "group alpha", Required: 4, Players: []string{"a"}, ExpiresAt: expires},
	})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lobbies", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type: %s", ct)
	}

	var got []lobbyView
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(got) != 1 || got[0].OwnerID != "owner" || got[0].Required != 4 || !got[0].ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected lobbies: %+v", got)
	}
}

func TestListLobbies_EmptyIsArray(t *testing.T) {
	s := NewServer(":0", pingerFunc(func(context.Context) error { return nil }), staticLobbies(nil))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/lobbies", nil))
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("expected empty json array, got %q", body)
	}
}

func TestUnknownRoute(t *testing.T) {
	s := NewServer(":0", pingerFunc(func(context.Context) error { return nil }), staticLobbies(nil))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
