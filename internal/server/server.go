// Package server exposes conversation reconstruction over a JSON HTTP API.
//
// Every request fetches from the monitoring service and builds its own
// model; nothing is cached between requests. When a snapshot store is
// configured, fetched conversations are persisted before they are returned.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/busscope/internal/ids"
	"github.com/roach88/busscope/internal/message"
	"github.com/roach88/busscope/internal/servicecontrol"
	"github.com/roach88/busscope/internal/store"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-Id"

// Source is the subset of the monitoring service client the API uses.
type Source interface {
	GetEndpoints(ctx context.Context, monitoredOnly bool) ([]servicecontrol.EndpointGroup, error)
	GetAuditMessages(ctx context.Context, q servicecontrol.AuditQuery) (*servicecontrol.AuditPage, error)
	GetConversation(ctx context.Context, conversationID string, pageSize int) ([]message.Message, error)
	GetMessageBody(ctx context.Context, messageID, bodyURL string) (string, error)
	RetryMessage(ctx context.Context, messageID, instanceID string) error
	GetSaga(ctx context.Context, sagaID string) (json.RawMessage, error)
}

// SnapshotStore persists fetched conversations.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, conversationID, source string, msgs []message.Message) (store.SaveResult, error)
}

// Server routes API requests to a Source.
type Server struct {
	source     Source
	store      SnapshotStore
	sourceName string
	pageSize   int
	metrics    *Metrics
	ids        ids.Generator
	health     func() servicecontrol.MonitorStatus
	mux        *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithStore persists every fetched conversation to st.
func WithStore(st SnapshotStore) Option {
	return func(s *Server) { s.store = st }
}

// WithSourceName sets the source recorded on saved fetches.
func WithSourceName(name string) Option {
	return func(s *Server) { s.sourceName = name }
}

// WithConversationPageSize sets the page size used for conversation fetches.
func WithConversationPageSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithMetrics shares a metrics set, e.g. with the client observer.
func WithMetrics(m *Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithIDGenerator overrides the request id generator.
func WithIDGenerator(g ids.Generator) Option {
	return func(s *Server) { s.ids = g }
}

// WithHealth reports upstream connectivity on /healthz.
func WithHealth(fn func() servicecontrol.MonitorStatus) Option {
	return func(s *Server) { s.health = fn }
}

// New creates a Server and registers its routes.
func New(src Source, opts ...Option) *Server {
	s := &Server{
		source:     src,
		sourceName: "servicecontrol",
		pageSize:   100,
		ids:        ids.UUIDv7Generator{},
		mux:        http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics()
	}

	s.handle("GET /healthz", s.handleHealth)
	s.handle("GET /api/endpoints", s.handleEndpoints)
	s.handle("GET /api/messages", s.handleMessages)
	s.handle("GET /api/conversations/{id}", s.handleConversation)
	s.handle("GET /api/conversations/{id}/model", s.handleModel)
	s.handle("GET /api/messages/{id}/body", s.handleBody)
	s.handle("POST /api/messages/{id}/retry", s.handleRetry)
	s.handle("GET /api/sagas/{id}", s.handleSaga)
	s.handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP)
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.mux }

// Metrics returns the server's metrics.
func (s *Server) Metrics() *Metrics { return s.metrics }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("api stopped")
	return nil
}

type ctxKey struct{}

// RequestID returns the request id stored on ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// handle registers h under pattern with request ids, access logging and
// per-route counters.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = s.ids.Generate()
		}
		w.Header().Set(RequestIDHeader, id)
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, id))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h(rec, r)

		s.metrics.httpRequests.WithLabelValues(pattern, strconv.Itoa(rec.status)).Inc()
		slog.Debug("api request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}
