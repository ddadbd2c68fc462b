// Package server is the network intake: subtitle updates over WebSocket and
// HTTP, status and glossary-reload endpoints, and the /display frame feed.
package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/valpere/subtran/internal"
	"github.com/valpere/subtran/internal/coordinator"
	"github.com/valpere/subtran/internal/display"
	"github.com/valpere/subtran/internal/glossary"
)

const (
	maxMessageBytes = 64 << 10
	writeWait       = 10 * time.Second
	pingPeriod      = 30 * time.Second
)

// Coordinator is the part of coordinator.Coordinator the server drives.
type Coordinator interface {
	Submit(ctx context.Context, req internal.UpdateRequest) (uint64, error)
	Snapshot(ctx context.Context) (coordinator.Snapshot, error)
}

// Reloader re-reads the glossary source.
type Reloader interface {
	Load(ctx context.Context) (glossary.LoadReport, error)
}

// Translator reports the load on the translation dispatcher.
type Translator interface {
	ServiceName() string
	InFlight() int64
}

type Option func(*Server)

// WithTranslator adds translator load to /status.
func WithTranslator(t Translator) Option {
	return func(s *Server) { s.translator = t }
}

type Server struct {
	coord      Coordinator
	reloader   Reloader
	hub        *display.Hub
	translator Translator
	logger     *zap.SugaredLogger
	upgrader   websocket.Upgrader
	started    time.Time
}

// New builds the intake server. reloader and hub may be nil, which disables
// /glossary/reload and /display respectively.
func New(coord Coordinator, reloader Reloader, hub *display.Hub, logger *zap.SugaredLogger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		coord:    coord,
		reloader: reloader,
		hub:      hub,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler wrapped in access logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.healthHandler)
	mux.HandleFunc("GET /status", s.statusHandler)
	mux.HandleFunc("POST /update_subtitle", s.updateHandler)
	mux.HandleFunc("POST /glossary/reload", s.reloadHandler)
	mux.HandleFunc("GET /display", s.displayHandler)
	mux.HandleFunc("GET /ws", s.intakeHandler)
	mux.HandleFunc("GET /{$}", s.intakeHandler)
	return s.loggingMiddleware(mux)
}

// ListenAndServe serves on addr until ctx ends, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("server listening", "addr", addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Infow("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Errorw("graceful shutdown failed", "error", err)
		if closeErr := server.Close(); closeErr != nil {
			s.logger.Errorw("forced close failed", "error", closeErr)
		}
		return err
	}
	return nil
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprint(w, `{"status":"ok"}`); err != nil {
		s.logger.Errorw("failed to write health response", "error", err)
	}
}

type translatorStatus struct {
	Service  string `json:"service"`
	InFlight int64  `json:"in_flight"`
}

type statusResponse struct {
	Display        coordinator.Snapshot `json:"display"`
	Uptime         string               `json:"uptime"`
	DisplayClients int                  `json:"display_clients"`
	Translator     *translatorStatus    `json:"translator,omitempty"`
}

func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	snap, err := s.coord.Snapshot(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, internal.Failure(err))
		return
	}
	resp := statusResponse{
		Display: snap,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	}
	if s.hub != nil {
		resp.DisplayClients = s.hub.Subscribers()
	}
	if s.translator != nil {
		resp.Translator = &translatorStatus{
			Service:  s.translator.ServiceName(),
			InFlight: s.translator.InFlight(),
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) updateHandler(w http.ResponseWriter, r *http.Request) {
	var req internal.UpdateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, internal.Failure(fmt.Errorf("invalid JSON: %w", err)))
		return
	}

	resp, status := s.submit(r.Context(), req)
	s.writeJSON(w, status, resp)
}

func (s *Server) reloadHandler(w http.ResponseWriter, r *http.Request) {
	if s.reloader == nil {
		s.writeJSON(w, http.StatusNotFound, internal.Failure(errors.New("glossary reload not available")))
		return
	}
	report, err := s.reloader.Load(r.Context())
	if err != nil {
		s.logger.Errorw("glossary reload failed", "error", err)
		s.writeJSON(w, http.StatusInternalServerError, internal.Failure(err))
		return
	}
	s.writeJSON(w, http.StatusOK, internal.Success(fmt.Sprintf(
		"glossary reloaded: %d entries, %d skipped lines", report.Entries, len(report.Skipped))))
}

// submit validates and hands req to the coordinator.
func (s *Server) submit(ctx context.Context, req internal.UpdateRequest) (internal.Response, int) {
	if err := req.Validate(); err != nil {
		return internal.Failure(err), http.StatusBadRequest
	}
	seq, err := s.coord.Submit(ctx, req)
	if err != nil {
		s.logger.Errorw("failed to submit update", "error", err)
		return internal.Failure(err), http.StatusServiceUnavailable
	}
	return internal.Success(fmt.Sprintf("subtitle updated (seq %d)", seq)), http.StatusOK
}

// intakeHandler reads UpdateRequest frames and answers each with a Response.
// A malformed frame gets an error response; the connection stays open.
func (s *Server) intakeHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	s.logger.Infow("intake client connected", "conn", connID, "remote", r.RemoteAddr)
	defer s.logger.Infow("intake client disconnected", "conn", connID)

	conn.SetReadLimit(maxMessageBytes)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warnw("intake read failed", "conn", connID, "error", err)
			}
			return
		}

		var (
			req  internal.UpdateRequest
			resp internal.Response
		)
		if err := json.Unmarshal(message, &req); err != nil {
			s.logger.Warnw("malformed intake message", "conn", connID, "error", err)
			resp = internal.Failure(fmt.Errorf("invalid JSON: %w", err))
		} else {
			resp, _ = s.submit(r.Context(), req)
		}

		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(resp); err != nil {
			s.logger.Warnw("intake write failed", "conn", connID, "error", err)
			return
		}
	}
}

// displayHandler streams display frames to an overlay client.
func (s *Server) displayHandler(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "display feed not available", http.StatusNotFound)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id, frames, cancel := s.hub.Subscribe()
	defer cancel()
	s.logger.Infow("display client connected", "client", id, "remote", r.RemoteAddr)
	defer s.logger.Infow("display client disconnected", "client", id)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-frames:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Warnw("display write failed", "client", id, "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Errorw("failed to encode response", "error", err)
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		s.logger.Infow("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", lrw.statusCode,
			"duration", time.Since(start),
		)
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(statusCode int) {
	lrw.statusCode = statusCode
	lrw.ResponseWriter.WriteHeader(statusCode)
}

// Hijack lets websocket upgrades pass through the logging wrapper.
func (lrw *loggingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := lrw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	lrw.statusCode = http.StatusSwitchingProtocols
	return hj.Hijack()
}
