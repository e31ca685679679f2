package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tesla254/textly-core/internal/messaging/domain"
	"github.com/tesla254/textly-core/internal/messaging/repository"
)

// SettingsHandler exposes the flat settings map and the contact cache
// import.
type SettingsHandler struct {
	settings repository.SettingsRepository
	contacts repository.ContactRepository
	logger   *slog.Logger
	validate *validator.Validate
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(
	settings repository.SettingsRepository,
	contacts repository.ContactRepository,
	logger *slog.Logger,
	validate *validator.Validate,
) *SettingsHandler {
	return &SettingsHandler{
		settings: settings,
		contacts: contacts,
		logger:   logger.With("handler", "settings"),
		validate: validate,
	}
}

// Get handles GET /api/v1/settings/{key}.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := h.settings.Get(r.Context(), key)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, SettingResponse{Key: key, Value: value})
}

// Put handles PUT /api/v1/settings/{key}.
func (h *SettingsHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "key")

	var req SettingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.settings.Set(ctx, key, req.Value); err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, SettingResponse{Key: key, Value: req.Value})
}

// SyncContacts handles POST /api/v1/contacts/sync: a bulk upsert of the
// device contact cache used for name lookups.
func (h *SettingsHandler) SyncContacts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ContactsSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.StructCtx(ctx, req); err != nil {
		http.Error(w, "validation failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	for _, c := range req.Contacts {
		contact := &domain.Contact{
			ID:           c.ID,
			Name:         c.Name,
			PhoneNumbers: c.PhoneNumbers,
			Avatar:       c.Avatar,
		}
		if err := h.contacts.Upsert(ctx, contact); err != nil {
			respondError(w, h.logger, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]int{"synced": len(req.Contacts)})
}
