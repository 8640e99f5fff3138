// Package gateway runs a generation request through quota enforcement and
// provider dispatch.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillpad/quillpad/internal/governance"
	inats "github.com/quillpad/quillpad/internal/nats"
	"github.com/quillpad/quillpad/internal/providers"
)

var ErrUnknownAction = errors.New("unknown action")

const outputRule = "Return only the resulting text, without commentary or code fences."

type QuotaConsumer interface {
	Consume(ctx context.Context, subscriberID uuid.UUID) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, messages []providers.Message, preferred []string) (*providers.Result, error)
}

type AuditPublisher interface {
	PublishAuditEvent(ctx context.Context, event inats.AuditEvent) error
}

type GenerateRequest struct {
	Action       Action `json:"action" validate:"required,oneof=format fix_grammar rewrite summarize expand"`
	Text         string `json:"text" validate:"required,max=50000"`
	Instructions string `json:"instructions,omitempty" validate:"max=2000"`
}

type Service struct {
	quota  QuotaConsumer
	router Dispatcher
	order  ProviderOrder
	audit  AuditPublisher
}

func NewService(quota QuotaConsumer, router Dispatcher, order ProviderOrder, audit AuditPublisher) *Service {
	return &Service{quota: quota, router: router, order: order, audit: audit}
}

// Generate consumes one unit of the subscriber's allowance and asks the
// backends for the action's output. The unit stays consumed if every
// backend fails.
func (s *Service) Generate(ctx context.Context, subscriberID uuid.UUID, req GenerateRequest) (*providers.Result, error) {
	if !req.Action.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	if err := s.quota.Consume(ctx, subscriberID); err != nil {
		return nil, err
	}

	res, err := s.router.Dispatch(ctx, buildMessages(req), s.order.For(req.Action))
	if err != nil {
		if errors.Is(err, governance.ErrProvidersUnavailable) {
			s.publishExhausted(ctx, subscriberID, req.Action, err)
		}
		return nil, err
	}

	slog.Info("gateway: generated",
		"subscriber_id", subscriberID, "action", req.Action,
		"provider", res.Provider, "chars", len(res.Text))
	return res, nil
}

func buildMessages(req GenerateRequest) []providers.Message {
	system := actions[req.Action].instruction + " " + outputRule
	user := req.Text
	if extra := strings.TrimSpace(req.Instructions); extra != "" {
		user += "\n\nAdditional instructions: " + extra
	}
	return []providers.Message{
		{Role: providers.RoleSystem, Content: system},
		{Role: providers.RoleUser, Content: user},
	}
}

func (s *Service) publishExhausted(ctx context.Context, subscriberID uuid.UUID, action Action, cause error) {
	if s.audit == nil {
		return
	}
	err := s.audit.PublishAuditEvent(ctx, inats.AuditEvent{
		SubscriberID: subscriberID,
		EventType:    inats.EventProvidersExhausted,
		Severity:     inats.SeverityError,
		ResourceType: "action",
		ResourceID:   string(action),
		Details:      cause.Error(),
		Timestamp:    time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("gateway: publishing audit event", "error", err)
	}
}
