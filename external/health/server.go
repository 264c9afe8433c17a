package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/foxseedlab/pwbot/internal/lobby"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	pingTimeout       = 3 * time.Second
	readHeaderTimeout = 5 * time.Second
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type LobbyLister interface {
	Active() []lobby.Info
}

type lobbyView struct {
	OwnerID   string    `json:"owner_id"`
	ChannelID string    `json:"channel_id"`
	MessageID string    `json:"message_id"`
	Name      string    `json:"name,omitempty"`
	Required  int       `json:"required"`
	Players   []string  `json:"players"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Server exposes liveness and a read-only view of open lobbies.
type Server struct {
	db      Pinger
	lobbies LobbyLister
	http    *http.Server
}

func NewServer(addr string, db Pinger, lobbies LobbyLister) *Server {
	s := &Server{db: db, lobbies: lobbies}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.healthz)
	r.Get("/lobbies", s.listLobbies)
	return r
}

func (s *Server) Start() {
	go func() {
		slog.Info("health server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("health server stopped", "error", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		slog.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listLobbies(w http.ResponseWriter, _ *http.Request) {
	active := s.lobbies.Active()
	out := make([]lobbyView, 0, len(active))
	for _, info := range active {
		out = append(out, lobbyView{
			OwnerID:   info.OwnerID,
			ChannelID: info.ChannelID,
			MessageID: info.MessageID,
			Name:      info.Name,
			Required:  info.Required,
			Players:   info.Players,
			ExpiresAt: info.ExpiresAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}
