package quota

import (
	"log/slog"
	"net/http"

	"github.com/quillpad/quillpad/internal/api"
	"github.com/quillpad/quillpad/internal/auth"
	"github.com/quillpad/quillpad/internal/governance"
)

type Handler struct {
	guard *Guard
}

func NewHandler(guard *Guard) *Handler {
	return &Handler{guard: guard}
}

// GetQuota handles GET /api/v1/quota.
func (h *Handler) GetQuota(w http.ResponseWriter, r *http.Request) {
	subscriberID, ok := auth.SubscriberID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	st, err := h.guard.Status(r.Context(), subscriberID)
	if err != nil {
		slog.Error("quota: status", "error", err, "subscriber_id", subscriberID)
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, st)
}

// AuthorizeExport handles POST /api/v1/exports/authorize.
func (h *Handler) AuthorizeExport(w http.ResponseWriter, r *http.Request) {
	subscriberID, ok := auth.SubscriberID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	if err := h.guard.ConsumeExport(r.Context(), subscriberID); err != nil {
		if governance.CodeOf(err) == "" {
			slog.Error("quota: authorize export", "error", err, "subscriber_id", subscriberID)
		}
		api.HandleError(w, err)
		return
	}

	st, err := h.guard.Status(r.Context(), subscriberID)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, st)
}
