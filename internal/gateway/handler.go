package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/quillpad/quillpad/internal/api"
	"github.com/quillpad/quillpad/internal/auth"
	"github.com/quillpad/quillpad/internal/governance"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// Generate handles POST /api/v1/ai/generate.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	subscriberID, ok := auth.SubscriberID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	res, err := h.svc.Generate(r.Context(), subscriberID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownAction):
			api.HandleError(w, api.NewBadRequestError(err.Error()))
			return
		case governance.KindOf(err) == governance.KindPolicyDenied:
			slog.Info("gateway: request denied", "subscriber_id", subscriberID, "code", governance.CodeOf(err))
		case governance.KindOf(err) == governance.KindCanceled:
			slog.Info("gateway: request abandoned", "subscriber_id", subscriberID, "code", governance.CodeOf(err))
		default:
			slog.Error("gateway: generate", "error", err, "subscriber_id", subscriberID, "action", req.Action)
		}
		api.HandleError(w, err)
		return
	}
	api.JSON(w, http.StatusOK, res)
}
