package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ghanabus/bustracker/internal/hub"
	"github.com/ghanabus/bustracker/track"
)

const (
	// defaultTitle is used when no custom title is configured.
	defaultTitle = "Ghana Bus Tracker"

	// titlePlaceholder is the marker in HTML that gets replaced with the actual title.
	titlePlaceholder = "{{.Title}}"

	// historyDefaultLimit and historyMaxLimit bound the /history query.
	historyDefaultLimit = 100
	historyMaxLimit     = 1000

	// chatSaveTimeout bounds the detached chat-history write.
	chatSaveTimeout = 5 * time.Second
)

// Applier is the ingest pipeline as the server sees it.
type Applier interface {
	Apply(fix track.Fix, userID string) (track.VehicleState, error)
}

// Responder answers chat queries.
type Responder interface {
	Reply(query string) string
}

// Hub is the subscriber registry as the server sees it.
type Hub interface {
	Attach(sub hub.Subscriber, snapshot track.VehicleState)
	Detach(id string)
	Len() int
}

// Recorder is the history backend as the server sees it.
type Recorder interface {
	SaveChat(ctx context.Context, userID, query, reply string) error
	History(ctx context.Context, limit int) ([]track.HistoryEntry, error)
	Name() string
}

// Authenticator decides whether a request may use the protected endpoints
// and identifies the caller for attribution.
type Authenticator interface {
	Authenticate(r *http.Request) (userID string, err error)
}

// Config carries the server's collaborators. Pipeline, Snapshot, Hub, Chat,
// Recorder, Auth and Logger are required; Assets and Metrics are optional.
type Config struct {
	Port     int
	Pipeline Applier
	Snapshot func() track.VehicleState
	Hub      Hub
	Chat     Responder
	Recorder Recorder
	Auth     Authenticator
	Assets   fs.FS
	Title    string
	Metrics  http.Handler
	Logger   *slog.Logger
}

// Server handles HTTP requests for the bus tracker dashboard and API.
type Server struct {
	cfg        Config
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates an HTTP [Server]. It is not started until [Server.Start]
// is called.
func New(cfg Config) *Server {
	return &Server{cfg: cfg, logger: cfg.Logger}
}

// Handler builds the route table. It is exposed so tests can drive the
// server through [net/http/httptest] without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/ingest", s.handleIngest)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/history", s.handleHistory)
	mux.HandleFunc("/stream", s.handleStream)

	if s.cfg.Metrics != nil {
		mux.Handle("/metrics", s.cfg.Metrics)
	}
	if s.cfg.Assets != nil {
		mux.HandleFunc("/", s.handleDashboard)
	}

	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server runs until the context is cancelled, at which
// point it initiates a graceful shutdown with a 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.cfg.Port, err)
	}

	s.httpServer = &http.Server{
		Handler: s.Handler(),
		// BaseContext derives all request contexts from the server context.
		// When ctx is cancelled, all request contexts are also cancelled,
		// which unblocks long-lived stream handlers during shutdown.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server error", "error", err)
		}
	}()

	// shutdown on context cancellation
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("http server shutdown error", "error", err)
		}
	}()

	return nil
}

// ingestRequest decodes with pointers so that an absent coordinate is
// distinguishable from zero. A missing speed is treated as zero to match
// devices that omit the field while stationary.
type ingestRequest struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Speed *float64 `json:"speed"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID, err := s.cfg.Auth.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Lat == nil || req.Lng == nil {
		writeError(w, http.StatusBadRequest, "invalid coordinates")
		return
	}

	fix := track.Fix{Lat: *req.Lat, Lng: *req.Lng}
	if req.Speed != nil {
		fix.Speed = *req.Speed
	}

	if _, err := s.cfg.Pipeline.Apply(fix, userID); err != nil {
		if errors.Is(err, track.ErrInvalidFix) {
			writeError(w, http.StatusBadRequest, "invalid coordinates")
			return
		}
		s.logger.Error("fix ingest failed", "error", err)
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

type chatRequest struct {
	Query string `json:"query"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID, err := s.cfg.Auth.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	reply := s.cfg.Chat.Reply(req.Query)

	// best effort, detached from the request lifetime
	go func(userID, query, reply string) {
		ctx, cancel := context.WithTimeout(context.Background(), chatSaveTimeout)
		defer cancel()
		if err := s.cfg.Recorder.SaveChat(ctx, userID, query, reply); err != nil {
			s.logger.Warn("chat history save failed", "error", err)
		}
	}(userID, req.Query, reply)

	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	state := s.cfg.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "online",
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"busConnected":  state.Connected,
		"activeClients": s.cfg.Hub.Len(),
		"database":      s.cfg.Recorder.Name(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if _, err := s.cfg.Auth.Authenticate(r); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := historyDefaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	if limit < 1 {
		limit = historyDefaultLimit
	}
	if limit > historyMaxLimit {
		limit = historyMaxLimit
	}

	entries, err := s.cfg.Recorder.History(r.Context(), limit)
	if err != nil {
		s.logger.Error("history fetch failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch history")
		return
	}
	if entries == nil {
		entries = []track.HistoryEntry{}
	}

	writeJSON(w, http.StatusOK, entries)
}

// handleDashboard serves the map page from the embedded assets.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	content, err := fs.ReadFile(s.cfg.Assets, "assets/index.html")
	if err != nil {
		http.Error(w, "Dashboard not found", http.StatusInternalServerError)
		return
	}

	title := s.cfg.Title
	if title == "" {
		title = defaultTitle
	}
	rendered := strings.ReplaceAll(string(content), titlePlaceholder, html.EscapeString(title))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err = w.Write([]byte(rendered)); err != nil {
		s.logger.Error("failed to write dashboard response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
