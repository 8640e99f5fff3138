package audit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/quillpad/quillpad/internal/api"
	"github.com/quillpad/quillpad/internal/auth"
	"github.com/quillpad/quillpad/internal/subscribers"
)

// Lister is the read side of Repository used by the handler.
type Lister interface {
	List(ctx context.Context, params ListParams) ([]AuditLog, int64, error)
}

// Handler serves the admin audit log endpoint.
type Handler struct {
	logs   Lister
	actors subscribers.Reader
}

// NewHandler creates a new audit Handler.
func NewHandler(logs Lister, actors subscribers.Reader) *Handler {
	return &Handler{logs: logs, actors: actors}
}

// List returns paginated audit logs. Admin only.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actorID, ok := auth.SubscriberID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}
	if err := subscribers.RequireAdmin(r.Context(), h.actors, actorID); err != nil {
		api.HandleError(w, err)
		return
	}

	params := parseAuditParams(r)

	logs, total, err := h.logs.List(r.Context(), params)
	if err != nil {
		slog.Error("audit: listing logs", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, logs, total, params.Page, params.PageSize)
}

func parseAuditParams(r *http.Request) ListParams {
	params := DefaultListParams()
	q := r.URL.Query()

	if sid := q.Get("subscriber_id"); sid != "" {
		if id, err := uuid.Parse(sid); err == nil {
			params.SubscriberID = &id
		}
	}
	if et := q.Get("event_type"); et != "" {
		params.EventType = et
	}
	if sev := q.Get("severity"); sev != "" {
		params.Severity = sev
	}
	if p := q.Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := q.Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			params.From = &t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			params.To = &t
		}
	}

	return params
}
