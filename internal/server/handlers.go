package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/notely/assist/internal/models"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 500
	hourlyWindow      = 7 * 24 * time.Hour
	topQueryCount     = 10
)

type chatRequest struct {
	Message  string            `json:"message"`
	Channel  string            `json:"channel,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.Channel == "" {
		req.Channel = "web"
	}
	var userID *string
	if uid := r.Header.Get("X-User-ID"); uid != "" {
		userID = &uid
	}

	reply, intentLabel := s.chat.Answer(r.Context(), req.Message)

	entry, err := s.log.Append(r.Context(), userID, req.Message, reply, intentLabel, req.Channel, req.Metadata)
	if err != nil {
		// The user still gets their answer; only history is degraded.
		s.logger.Error("append to query log failed", zap.Error(err))
	} else {
		s.broadcaster.Publish(entry)
	}

	s.respondJSON(w, http.StatusOK, map[string]string{"reply": reply, "intent": intentLabel})
}

type uploadRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source,omitempty"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		s.respondError(w, http.StatusBadRequest, "title and content are required")
		return
	}
	if req.Source == "" {
		req.Source = "upload"
	}

	doc, chunks, err := s.knowledge.Add(r.Context(), req.Title, req.Source, req.Content)
	if err != nil {
		s.logger.Error("upload failed", zap.String("title", req.Title), zap.Error(err))
		s.respondError(w, statusFor(err), err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]any{"doc": doc, "chunks": chunks})
}

func (s *Server) handleListDocs(w http.ResponseWriter, r *http.Request) {
	docs, err := s.knowledge.ListDocuments(r.Context())
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if docs == nil {
		docs = []*models.Document{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"docs": docs})
}

func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := s.knowledge.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusNotFound, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

// parseLogFilter reads the shared analytics filter parameters. Timestamps
// are RFC 3339.
func parseLogFilter(r *http.Request) (models.LogFilter, error) {
	var filter models.LogFilter
	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("start must be RFC 3339")
		}
		filter.Start = &t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("end must be RFC 3339")
		}
		filter.End = &t
	}
	filter.Intent = q.Get("intent")
	filter.Channel = q.Get("channel")
	filter.Search = q.Get("search")
	return filter, nil
}

func parsePositiveInt(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New("must be a non-negative integer")
	}
	return n, nil
}

func (s *Server) handleAnalyticsQuery(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLogFilter(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), defaultQueryLimit)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "limit "+err.Error())
		return
	}
	if limit == 0 || limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	offset, err := parsePositiveInt(r.URL.Query().Get("offset"), 0)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "offset "+err.Error())
		return
	}

	entries, total, err := s.log.Query(r.Context(), filter, limit, offset)
	if err != nil {
		s.logger.Error("analytics query failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []*models.QueryLogEntry{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"total": total, "results": entries})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLogFilter(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="query_log.csv"`)
	w.WriteHeader(http.StatusOK)

	if _, err := s.exporter.Stream(r.Context(), w, filter); err != nil {
		// Headers are gone; all we can do is cut the stream and log.
		s.logger.Error("export aborted", zap.Error(err))
	}
}

func (s *Server) handleTopQueries(w http.ResponseWriter, r *http.Request) {
	top, err := s.log.TopQueries(r.Context(), topQueryCount)
	if err != nil {
		s.logger.Error("top queries failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if top == nil {
		top = []models.QueryCount{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"top": top})
}

func (s *Server) handleIntents(w http.ResponseWriter, r *http.Request) {
	intents, err := s.log.IntentBreakdown(r.Context())
	if err != nil {
		s.logger.Error("intent breakdown failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if intents == nil {
		intents = []models.IntentCount{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"intents": intents})
}

func (s *Server) handleHourly(w http.ResponseWriter, r *http.Request) {
	hourly, err := s.log.HourlyBuckets(r.Context(), hourlyWindow)
	if err != nil {
		s.logger.Error("hourly buckets failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"hourly": hourly})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	docs, chunks, err := s.knowledge.Stats(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"documents":   docs,
		"chunks":      chunks,
		"subscribers": s.broadcaster.Count(),
	})
}

func statusFor(err error) int {
	if errors.Is(err, models.ErrInvalidParameters) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
