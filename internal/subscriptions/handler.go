package subscriptions

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/quillpad/quillpad/internal/api"
	"github.com/quillpad/quillpad/internal/auth"
)

type Handler struct {
	lifecycle *Lifecycle
}

func NewHandler(lifecycle *Lifecycle) *Handler {
	return &Handler{lifecycle: lifecycle}
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actorID, subscriptionID, ok := parseRequest(w, r)
	if !ok {
		return
	}

	view, err := h.lifecycle.Get(r.Context(), subscriptionID, actorID)
	if err != nil {
		slog.Error("subscriptions: get", "error", err, "subscription_id", subscriptionID)
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, view)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "activate", h.lifecycle.Activate)
}

func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "block", h.lifecycle.Block)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, name string,
	fn func(ctx context.Context, subscriptionID, actorID uuid.UUID) (*Subscription, error)) {
	actorID, subscriptionID, ok := parseRequest(w, r)
	if !ok {
		return
	}

	sub, err := fn(r.Context(), subscriptionID, actorID)
	if err != nil {
		slog.Error("subscriptions: "+name, "error", err, "subscription_id", subscriptionID, "actor_id", actorID)
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, sub)
}

func parseRequest(w http.ResponseWriter, r *http.Request) (actorID, subscriptionID uuid.UUID, ok bool) {
	actorID, ok = auth.SubscriberID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}
	subscriptionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid subscription id"))
		return uuid.Nil, uuid.Nil, false
	}
	return actorID, subscriptionID, true
}
