package payments

import (
	"context"
	"fmt"
	"time"

	"mp3bot/m/v2/app/models"
)

// Provider creates charges and reports their status.
type Provider interface {
	Name() string
	CreateCharge(ctx context.Context, request models.ChargeRequest) (*models.Charge, error)
	GetStatus(ctx context.Context, paymentID string) (models.PaymentStatus, error)
}

// Activator grants subscription time for an approved payment.
type Activator interface {
	Activate(id string, origin models.ActivationOrigin) time.Time
}

type Counters interface {
	RecordPaymentRequested()
	RecordPaymentSucceeded()
	RecordPaymentFailed()
}

type Notifier interface {
	NotifyPayment(ctx context.Context, notification models.PaymentNotification)
}

// Reference correlates a provider charge with a subscriber.
func Reference(subscriberID string, at time.Time) string {
	return fmt.Sprintf("BOT_%s_%d", subscriberID, at.UnixMilli())
}
