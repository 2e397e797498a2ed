package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mp3bot/m/v2/app/lib"
	"mp3bot/m/v2/app/models"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

const DefaultPendingTTL = 24 * time.Hour

type CheckOutcome int

const (
	CheckNoPending CheckOutcome = iota
	CheckAlreadyApproved
	CheckApproved
	CheckPending
	CheckVerifying
	CheckFailed
	CheckOther
)

type CheckResult struct {
	Outcome   CheckOutcome
	Status    models.PaymentStatus
	PaymentID string
	ExpiresAt time.Time
	// Notification is set only when this check performed the terminal transition
	Notification *models.PaymentNotification
}

type ReconcilerConfig struct {
	Price       decimal.Decimal
	Description string
	PendingTTL  time.Duration
}

// Reconciler owns the pending payments and drives ledger activation from provider status.
type Reconciler struct {
	mu       sync.Mutex
	pending  map[string]*models.PendingPayment
	provider Provider
	ledger   Activator
	counters Counters
	notifier Notifier
	cfg      ReconcilerConfig
	dd       statsd.ClientInterface
	now      func() time.Time
}

// NewReconciler accepts a nil provider; payment requests then fail with lib.ErrConfiguration.
func NewReconciler(provider Provider, ledger Activator, counters Counters, notifier Notifier, cfg ReconcilerConfig, dd statsd.ClientInterface) *Reconciler {
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = DefaultPendingTTL
	}
	if dd == nil {
		dd = &statsd.NoOpClient{}
	}
	return &Reconciler{
		pending:  map[string]*models.PendingPayment{},
		provider: provider,
		ledger:   ledger,
		counters: counters,
		notifier: notifier,
		cfg:      cfg,
		dd:       dd,
		now:      time.Now,
	}
}

func (r *Reconciler) WithClock(now func() time.Time) *Reconciler {
	r.now = now
	return r
}

func (r *Reconciler) SetNotifier(notifier Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifier = notifier
}

func (r *Reconciler) Configured() bool {
	return r.provider != nil
}

func (r *Reconciler) Price() decimal.Decimal {
	return r.cfg.Price
}

// RequestPayment creates a charge and replaces any pending payment of the subscriber.
func (r *Reconciler) RequestPayment(ctx context.Context, subscriberID string) (*models.Charge, error) {
	if r.provider == nil {
		return nil, fmt.Errorf("RequestPayment: no payment provider: %w", lib.ErrConfiguration)
	}
	createdAt := r.now()
	reference := Reference(subscriberID, createdAt)
	charge, err := r.provider.CreateCharge(ctx, models.ChargeRequest{
		Amount:      r.cfg.Price,
		Reference:   reference,
		Description: r.cfg.Description,
	})
	if err != nil {
		r.dd.Incr("payments.request_failed", []string{"provider:" + r.provider.Name()}, 1)
		return nil, fmt.Errorf("RequestPayment: %w", err)
	}
	if charge == nil || charge.ProviderPaymentID == "" {
		r.dd.Incr("payments.request_failed", []string{"provider:" + r.provider.Name()}, 1)
		return nil, fmt.Errorf("RequestPayment: %w", lib.NewProviderError(r.provider.Name(), "CreateCharge", fmt.Errorf("response without payment id")))
	}

	r.mu.Lock()
	if previous, ok := r.pending[subscriberID]; ok {
		log.Infof("RequestPayment: replacing payment %s of %s", previous.PaymentID, subscriberID)
	}
	r.pending[subscriberID] = &models.PendingPayment{
		PaymentID: charge.ProviderPaymentID,
		Reference: reference,
		Amount:    r.cfg.Price,
		CreatedAt: createdAt,
		Status:    models.PaymentStatusPending,
	}
	r.mu.Unlock()

	r.counters.RecordPaymentRequested()
	r.dd.Incr("payments.requested", []string{"provider:" + r.provider.Name()}, 1)
	log.Infof("RequestPayment: created payment %s for %s", charge.ProviderPaymentID, subscriberID)
	return charge, nil
}

type candidate struct {
	subscriberID string
	paymentID    string
}

// PollOnce queries every young pending payment, applies approvals and rejections, then purges expired records.
func (r *Reconciler) PollOnce(ctx context.Context) {
	if r.provider == nil {
		return
	}
	r.mu.Lock()
	now := r.now()
	candidates := []candidate{}
	for id, payment := range r.pending {
		if now.Sub(payment.CreatedAt) < r.cfg.PendingTTL && payment.Status == models.PaymentStatusPending {
			candidates = append(candidates, candidate{subscriberID: id, paymentID: payment.PaymentID})
		}
	}
	r.mu.Unlock()

	notifications := []models.PaymentNotification{}
	for _, c := range candidates {
		status := r.queryStatus(ctx, c.paymentID)
		r.mu.Lock()
		notification, _ := r.applyLocked(c.subscriberID, c.paymentID, status)
		r.mu.Unlock()
		if notification != nil {
			notifications = append(notifications, *notification)
		}
	}

	r.mu.Lock()
	now = r.now()
	purged := 0
	for id, payment := range r.pending {
		if now.Sub(payment.CreatedAt) >= r.cfg.PendingTTL {
			delete(r.pending, id)
			purged++
		}
	}
	notifier := r.notifier
	r.mu.Unlock()

	if purged > 0 {
		log.Infof("PollOnce: purged %d expired payments", purged)
	}
	r.dd.Gauge("payments.pending", float64(r.PendingCount()), nil, 1)
	if notifier == nil {
		return
	}
	for _, n := range notifications {
		notifier.NotifyPayment(ctx, n)
	}
}

// CheckNow interprets the current provider status for a single subscriber without purging.
func (r *Reconciler) CheckNow(ctx context.Context, subscriberID string) (CheckResult, error) {
	r.mu.Lock()
	payment, ok := r.pending[subscriberID]
	if !ok {
		r.mu.Unlock()
		return CheckResult{Outcome: CheckNoPending}, nil
	}
	paymentID := payment.PaymentID
	stored := payment.Status
	r.mu.Unlock()

	switch stored {
	case models.PaymentStatusApproved:
		return CheckResult{Outcome: CheckAlreadyApproved, Status: stored, PaymentID: paymentID}, nil
	case models.PaymentStatusRejected, models.PaymentStatusCancelled:
		return CheckResult{Outcome: CheckFailed, Status: stored, PaymentID: paymentID}, nil
	}
	if r.provider == nil {
		return CheckResult{}, fmt.Errorf("CheckNow: no payment provider: %w", lib.ErrConfiguration)
	}

	status := r.queryStatus(ctx, paymentID)
	r.mu.Lock()
	notification, outcome := r.applyLocked(subscriberID, paymentID, status)
	r.mu.Unlock()

	result := CheckResult{Outcome: outcome, Status: status, PaymentID: paymentID, Notification: notification}
	if notification != nil {
		result.ExpiresAt = notification.ExpiresAt
	}
	return result, nil
}

func (r *Reconciler) queryStatus(ctx context.Context, paymentID string) models.PaymentStatus {
	status, err := r.provider.GetStatus(ctx, paymentID)
	if err != nil {
		log.WithError(err).Warnf("failed to get status of payment %s", paymentID)
		return models.PaymentStatusError
	}
	if status == "" {
		return models.PaymentStatusUnknown
	}
	return status
}

// applyLocked must hold r.mu. It returns a notification only for the first observed terminal transition.
func (r *Reconciler) applyLocked(subscriberID, paymentID string, status models.PaymentStatus) (*models.PaymentNotification, CheckOutcome) {
	payment, ok := r.pending[subscriberID]
	if !ok || payment.PaymentID != paymentID {
		// superseded or purged while the provider was queried
		return nil, CheckNoPending
	}
	if payment.Status == models.PaymentStatusApproved {
		return nil, CheckAlreadyApproved
	}
	if payment.Status.IsTerminal() {
		return nil, CheckFailed
	}

	now := r.now()
	tags := []string{"status:" + string(status)}
	switch status {
	case models.PaymentStatusApproved:
		payment.Status = models.PaymentStatusApproved
		payment.LastChecked = &now
		expiresAt := r.ledger.Activate(subscriberID, models.ActivatedByPayment)
		r.counters.RecordPaymentSucceeded()
		r.dd.Incr("payments.transition", tags, 1)
		log.Infof("payment %s of %s approved, subscription until %s", paymentID, subscriberID, expiresAt.Format(time.RFC3339))
		return &models.PaymentNotification{SubscriberID: subscriberID, PaymentID: paymentID, Status: status, ExpiresAt: expiresAt}, CheckApproved
	case models.PaymentStatusRejected, models.PaymentStatusCancelled:
		payment.Status = status
		payment.LastChecked = &now
		r.counters.RecordPaymentFailed()
		r.dd.Incr("payments.transition", tags, 1)
		log.Infof("payment %s of %s %s", paymentID, subscriberID, status)
		return &models.PaymentNotification{SubscriberID: subscriberID, PaymentID: paymentID, Status: status}, CheckFailed
	case models.PaymentStatusUnknown, models.PaymentStatusError:
		return nil, CheckVerifying
	case models.PaymentStatusPending:
		payment.LastChecked = &now
		return nil, CheckPending
	default:
		payment.LastChecked = &now
		log.Debugf("payment %s of %s has status %s, waiting", paymentID, subscriberID, status)
		return nil, CheckOther
	}
}

func (r *Reconciler) Pending(subscriberID string) (models.PendingPayment, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.pending[subscriberID]
	if !ok {
		return models.PendingPayment{}, false
	}
	return *payment, true
}

func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

func (r *Reconciler) Snapshot() map[string]models.PendingPayment {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make(map[string]models.PendingPayment, len(r.pending))
	for id, payment := range r.pending {
		snapshot[id] = *payment
	}
	return snapshot
}

func (r *Reconciler) Restore(payments map[string]models.PendingPayment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = make(map[string]*models.PendingPayment, len(payments))
	for id, payment := range payments {
		p := payment
		r.pending[id] = &p
	}
}
