package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tesla254/textly-core/internal/messaging/app"
	"github.com/tesla254/textly-core/internal/messaging/repository"
)

// MessageHandler exposes send, retry and search to the UI layer.
type MessageHandler struct {
	dispatch    *app.DispatchService
	messages    repository.MessageRepository
	attachments repository.AttachmentRepository
	logger      *slog.Logger
	validate    *validator.Validate
}

// NewMessageHandler creates a MessageHandler.
func NewMessageHandler(
	dispatch *app.DispatchService,
	messages repository.MessageRepository,
	attachments repository.AttachmentRepository,
	logger *slog.Logger,
	validate *validator.Validate,
) *MessageHandler {
	return &MessageHandler{
		dispatch:    dispatch,
		messages:    messages,
		attachments: attachments,
		logger:      logger.With("handler", "messages"),
		validate:    validate,
	}
}

// SendSMS handles POST /api/v1/messages/sms. It returns 202 with the
// message id as soon as the pending record is stored and the transmit
// call issued; delivery outcomes arrive via the event stream, never
// here.
func (h *MessageHandler) SendSMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SendSMSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	id, err := h.dispatch.SendSMS(ctx, app.SendSMSRequest{
		Address:        req.Address,
		Body:           req.Body,
		SimSlot:        req.SimSlot,
		DeliveryReport: req.DeliveryReport,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusAccepted, SendResponse{MessageID: id})
}

// SendMMS handles POST /api/v1/messages/mms.
func (h *MessageHandler) SendMMS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SendMMSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	attachments := make([]app.AttachmentInput, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, app.AttachmentInput{
			ContentType:   a.ContentType,
			Name:          a.Name,
			Size:          a.Size,
			Path:          a.Path,
			ThumbnailPath: a.ThumbnailPath,
		})
	}

	id, err := h.dispatch.SendMMS(ctx, app.SendMMSRequest{
		Addresses:   req.Addresses,
		Body:        req.Body,
		Subject:     req.Subject,
		Attachments: attachments,
		SimSlot:     req.SimSlot,
	})
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusAccepted, SendResponse{MessageID: id})
}

// Get handles GET /api/v1/messages/{id}.
func (h *MessageHandler) Get(w http.ResponseWriter, r *http.Request) {
	msg, err := h.messages.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, msg)
}

// Retry handles POST /api/v1/messages/{id}/retry. A retry is a brand
// new send under a new id; the failed record stays behind.
func (h *MessageHandler) Retry(w http.ResponseWriter, r *http.Request) {
	id, err := h.dispatch.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusAccepted, SendResponse{MessageID: id})
}

// Attachments handles GET /api/v1/messages/{id}/attachments.
func (h *MessageHandler) Attachments(w http.ResponseWriter, r *http.Request) {
	atts, err := h.attachments.ListByMessage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, atts)
}

// Search handles GET /api/v1/messages/search?q=.
func (h *MessageHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "query parameter q is required", http.StatusBadRequest)
		return
	}
	msgs, err := h.messages.Search(r.Context(), query)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, msgs)
}
