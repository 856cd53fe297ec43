package goAccount

import (
	"context"
	"fmt"

	internalflows "github.com/MrEthical07/goAccount/internal/flows"
	"go.uber.org/zap"
)

// dispatcher returns the Dispatch dependency for kind. Tokens are already
// committed when it runs; a failure here never rolls them back.
func (e *Engine) dispatcher(kind NotificationKind) func(context.Context, internalflows.Delivery) error {
	return func(ctx context.Context, d internalflows.Delivery) error {
		n := Notification{
			Kind:      kind,
			AccountID: d.AccountID,
			Recipient: d.Recipient,
			Username:  d.Username,
			Link:      d.Link,
			ExpiresAt: d.ExpiresAt,
		}

		if e.notifyQueue == nil {
			return e.deliver(ctx, n)
		}
		if !e.notifyQueue.Enqueue(ctx, n) {
			e.metricInc(MetricDeliveryDropped)
			err := fmt.Errorf("%w: notification queue unavailable", ErrDeliveryFailed)
			e.deliveryFailed(ctx, n, err)
			return err
		}
		return nil
	}
}

func (e *Engine) deliver(ctx context.Context, n Notification) error {
	if timeout := e.config.Notification.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := e.notifier.Notify(ctx, n); err != nil {
		e.metricInc(MetricDeliveryFailure)
		wrapped := fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
		e.deliveryFailed(ctx, n, wrapped)
		return wrapped
	}

	e.metricInc(MetricDeliverySuccess)
	return nil
}

func (e *Engine) deliveryFailed(ctx context.Context, n Notification, err error) {
	e.logger.Error("notification delivery failed",
		zap.String("account_id", n.AccountID),
		zap.String("kind", string(n.Kind)),
		zap.Error(err),
	)
	e.emitAudit(ctx, auditEventNotificationFailed, false, n.AccountID, err, func() map[string]string {
		return map[string]string{
			"kind": string(n.Kind),
		}
	})
	if e.onDeliveryFailure != nil {
		e.onDeliveryFailure(n, err)
	}
}
