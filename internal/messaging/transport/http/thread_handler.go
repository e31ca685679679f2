package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tesla254/textly-core/internal/messaging/app"
	"github.com/tesla254/textly-core/internal/messaging/repository"
)

const defaultPageSize = 50

// ThreadHandler exposes the conversation list and per-thread
// operations.
type ThreadHandler struct {
	aggregator *app.ThreadAggregator
	threads    repository.ThreadRepository
	messages   repository.MessageRepository
	logger     *slog.Logger
}

// NewThreadHandler creates a ThreadHandler.
func NewThreadHandler(
	aggregator *app.ThreadAggregator,
	threads repository.ThreadRepository,
	messages repository.MessageRepository,
	logger *slog.Logger,
) *ThreadHandler {
	return &ThreadHandler{
		aggregator: aggregator,
		threads:    threads,
		messages:   messages,
		logger:     logger.With("handler", "threads"),
	}
}

// List handles GET /api/v1/threads: pinned first, then by recency.
func (h *ThreadHandler) List(w http.ResponseWriter, r *http.Request) {
	threads, err := h.threads.List(r.Context())
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, threads)
}

// Get handles GET /api/v1/threads/{id}.
func (h *ThreadHandler) Get(w http.ResponseWriter, r *http.Request) {
	th, err := h.threads.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, th)
}

// Messages handles GET /api/v1/threads/{id}/messages?limit=&offset=,
// newest first.
func (h *ThreadHandler) Messages(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultPageSize)
	offset := queryInt(r, "offset", 0)

	msgs, err := h.messages.ListByThread(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}

// MarkRead handles POST /api/v1/threads/{id}/read.
func (h *ThreadHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.aggregator.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/v1/threads/{id}, cascading to messages
// and attachments.
func (h *ThreadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.aggregator.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateFlags handles PATCH /api/v1/threads/{id} for archived/pinned.
func (h *ThreadHandler) UpdateFlags(w http.ResponseWriter, r *http.Request) {
	var req ThreadFlagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.threads.UpdateFlags(r.Context(), chi.URLParam(r, "id"), req.Archived, req.Pinned); err != nil {
		respondError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /api/v1/threads/search?q=.
func (h *ThreadHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "query parameter q is required", http.StatusBadRequest)
		return
	}
	threads, err := h.threads.Search(r.Context(), query)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, threads)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return fallback
	}
	return val
}
