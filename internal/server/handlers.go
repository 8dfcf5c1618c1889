package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/roach88/busscope/internal/message"
	"github.com/roach88/busscope/internal/sequence"
	"github.com/roach88/busscope/internal/servicecontrol"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Upstream  string `json:"upstream"`
	LastError string `json:"last_error,omitempty"`
	Checks    int    `json:"checks"`
	Failures  int    `json:"failures"`
}

// ConversationResponse carries the raw messages of one conversation.
type ConversationResponse struct {
	ConversationID string            `json:"conversation_id"`
	SnapshotID     string            `json:"snapshot_id,omitempty"`
	Messages       []message.Message `json:"messages"`
}

// ModelResponse carries a reconstructed conversation.
type ModelResponse struct {
	ConversationID string `json:"conversation_id"`
	SnapshotID     string `json:"snapshot_id,omitempty"`
	sequence.ModelView
}

// BodyResponse carries a formatted message body.
type BodyResponse struct {
	MessageID string `json:"message_id"`
	Body      string `json:"body"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{Status: "ok", Upstream: "unknown"}
	if s.health != nil {
		st := s.health()
		resp.Checks = st.Checks
		resp.Failures = st.Failures
		if st.Checks > 0 {
			if st.Healthy {
				resp.Upstream = "healthy"
			} else {
				resp.Upstream = "unhealthy"
			}
		}
		if st.LastError != nil {
			resp.LastError = st.LastError.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	all, err := boolParam(r, "all")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	groups, err := s.source.GetEndpoints(r.Context(), !all)
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(r, "page")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	perPage, err := intParam(r, "per_page")
	if err != nil {
		s.badRequest(w, r, err)
		return
	}
	direction := q.Get("direction")
	if direction != "" && direction != "asc" && direction != "desc" {
		s.badRequest(w, r, fmt.Errorf("direction must be asc or desc, got %q", direction))
		return
	}

	result, err := s.source.GetAuditMessages(r.Context(), servicecontrol.AuditQuery{
		Endpoint:  q.Get("endpoint"),
		Search:    q.Get("q"),
		Page:      page,
		PageSize:  perPage,
		OrderBy:   q.Get("order_by"),
		Ascending: direction == "asc",
	})
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	msgs, snapshotID, ok := s.fetchConversation(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ConversationResponse{
		ConversationID: id,
		SnapshotID:     snapshotID,
		Messages:       msgs,
	})
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	msgs, snapshotID, ok := s.fetchConversation(w, r, id)
	if !ok {
		return
	}

	start := time.Now()
	model, err := sequence.Build(msgs)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.recordReconstruction("structural_error", elapsed, 0)
		var me *sequence.ModelError
		if errors.As(err, &me) {
			slog.Warn("conversation rejected",
				"request_id", RequestID(r.Context()),
				"conversation_id", id,
				"code", me.Code,
				"error", err,
			)
			writeError(w, r, http.StatusConflict, string(me.Code), err)
			return
		}
		writeError(w, r, http.StatusInternalServerError, "", err)
		return
	}
	s.metrics.recordReconstruction("ok", elapsed, model.Stats.OrphanRoots)

	writeJSON(w, http.StatusOK, ModelResponse{
		ConversationID: id,
		SnapshotID:     snapshotID,
		ModelView:      model.View(),
	})
}

func (s *Server) handleBody(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	body, err := s.source.GetMessageBody(r.Context(), id, r.URL.Query().Get("body_url"))
	if errors.Is(err, servicecontrol.ErrForeignURL) {
		s.badRequest(w, r, err)
		return
	}
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BodyResponse{MessageID: id, Body: body})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.source.RetryMessage(r.Context(), id, r.URL.Query().Get("instance_id")); err != nil {
		s.upstreamError(w, r, err)
		return
	}
	slog.Info("retry requested", "request_id", RequestID(r.Context()), "message_id", id)
	writeJSON(w, http.StatusAccepted, map[string]string{"message_id": id, "status": "retry requested"})
}

func (s *Server) handleSaga(w http.ResponseWriter, r *http.Request) {
	raw, err := s.source.GetSaga(r.Context(), r.PathValue("id"))
	if err != nil {
		s.upstreamError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

// fetchConversation loads a conversation and persists it when a store is
// configured. It writes the error response itself and reports ok=false.
func (s *Server) fetchConversation(w http.ResponseWriter, r *http.Request, id string) ([]message.Message, string, bool) {
	ctx := r.Context()
	msgs, err := s.source.GetConversation(ctx, id, s.pageSize)
	if err != nil {
		s.upstreamError(w, r, err)
		return nil, "", false
	}
	if len(msgs) == 0 {
		writeError(w, r, http.StatusNotFound, "CONVERSATION_NOT_FOUND", fmt.Errorf("conversation %s has no audited messages", id))
		return nil, "", false
	}

	snapshotID, err := s.persist(ctx, id, msgs)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "STORE_ERROR", err)
		return nil, "", false
	}
	return msgs, snapshotID, true
}

func (s *Server) persist(ctx context.Context, conversationID string, msgs []message.Message) (string, error) {
	if s.store == nil {
		return "", nil
	}
	res, err := s.store.SaveSnapshot(ctx, conversationID, s.sourceName, msgs)
	if err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	s.metrics.snapshotsSaved.WithLabelValues(strconv.FormatBool(res.Inserted)).Inc()
	return res.SnapshotID, nil
}

func (s *Server) upstreamError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		// Client went away; nothing useful to send.
		return
	}

	var se *servicecontrol.StatusError
	switch {
	case errors.As(err, &se) && se.StatusCode == http.StatusNotFound:
		writeError(w, r, http.StatusNotFound, string(servicecontrol.HTTPErrorKind(se.StatusCode)), err)
	case errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500:
		writeError(w, r, se.StatusCode, string(servicecontrol.HTTPErrorKind(se.StatusCode)), err)
	default:
		slog.Error("upstream request failed", "request_id", RequestID(r.Context()), "error", err)
		writeError(w, r, http.StatusBadGateway, string(servicecontrol.Classify(err)), err)
	}
}

func (s *Server) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", err)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, err error) {
	writeJSON(w, status, ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		RequestID: RequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode response", "error", err)
	}
}

func intParam(r *http.Request, name string) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, v)
	}
	return n, nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean, got %q", name, v)
	}
	return b, nil
}
