package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"settlement/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationSettlementCompleted NotificationType = "SETTLEMENT_COMPLETED"
	NotificationSettlementFailed    NotificationType = "SETTLEMENT_FAILED"
	NotificationRatePlanChanged     NotificationType = "RATE_PLAN_CHANGED"
)

// EventPublisher delivers an encoded event under a routing key.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// Notification represents an event to be published.
type Notification struct {
	Type      NotificationType `json:"type"`
	RunID     string           `json:"run_id,omitempty"`
	Message   string           `json:"message"`
	Data      map[string]any   `json:"data,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationService logs settlement events and publishes them when a
// publisher is configured.
type NotificationService struct {
	publisher EventPublisher
	logger    *zap.Logger
}

// NewNotificationService creates a new NotificationService. Both arguments may be nil.
func NewNotificationService(publisher EventPublisher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{publisher: publisher, logger: logger}
}

// NotifySettlementCompleted announces a finished run.
func (s *NotificationService) NotifySettlementCompleted(ctx context.Context, result *domain.Settlement) error {
	return s.send(ctx, Notification{
		Type:    NotificationSettlementCompleted,
		RunID:   result.RunID,
		Message: fmt.Sprintf("settled %d records into %d daily rows, premium %d", len(result.Detail), len(result.Summary), result.TotalPremium),
		Data: map[string]any{
			"total_premium": result.TotalPremium,
			"payable_count": result.PayableCount,
			"entity_count":  result.EntityCount,
			"summary_rows":  len(result.Summary),
			"row_errors":    len(result.Errors),
			"business_day":  result.Rule,
		},
		CreatedAt: time.Now().UTC(),
	})
}

// NotifySettlementFailed announces a run that did not produce output.
func (s *NotificationService) NotifySettlementFailed(ctx context.Context, runID string, cause error) error {
	return s.send(ctx, Notification{
		Type:      NotificationSettlementFailed,
		RunID:     runID,
		Message:   cause.Error(),
		CreatedAt: time.Now().UTC(),
	})
}

// NotifyRatePlanChanged announces a rate or status change.
func (s *NotificationService) NotifyRatePlanChanged(ctx context.Context, change string, data map[string]any) error {
	return s.send(ctx, Notification{
		Type:      NotificationRatePlanChanged,
		Message:   change,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *NotificationService) send(ctx context.Context, n Notification) error {
	s.logger.Info("notification",
		zap.String("type", string(n.Type)),
		zap.String("run_id", n.RunID),
		zap.String("message", n.Message),
	)

	if s.publisher == nil {
		return nil
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := s.publisher.Publish(ctx, routingKey(n.Type), body); err != nil {
		s.logger.Error("publish notification failed",
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func routingKey(t NotificationType) string {
	switch t {
	case NotificationSettlementCompleted:
		return "settlement.completed"
	case NotificationSettlementFailed:
		return "settlement.failed"
	case NotificationRatePlanChanged:
		return "rate_plan.changed"
	default:
		return "settlement.event"
	}
}
