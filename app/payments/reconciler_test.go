package payments

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"mp3bot/m/v2/app/lib"
	"mp3bot/m/v2/app/models"
	"mp3bot/m/v2/app/subscriptions"
	"mp3bot/m/v2/app/usage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeProvider struct {
	mu        sync.Mutex
	nextID    int
	statuses  map[string]models.PaymentStatus
	statusErr error
	createErr error
	requests  []models.ChargeRequest
	queries   []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{statuses: map[string]models.PaymentStatus{}, nextID: 1000}
}

func (f *fakeProvider) Name() string {
	return "fake"
}

func (f *fakeProvider) CreateCharge(ctx context.Context, request models.ChargeRequest) (*models.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.requests = append(f.requests, request)
	f.nextID++
	id := "pay-" + strconv.Itoa(f.nextID)
	f.statuses[id] = models.PaymentStatusPending
	return &models.Charge{ProviderPaymentID: id, QRCode: "00020126pix" + id, QRCodeBase64: "iVBORw0KGgo="}, nil
}

func (f *fakeProvider) GetStatus(ctx context.Context, paymentID string) (models.PaymentStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, paymentID)
	if f.statusErr != nil {
		return "", f.statusErr
	}
	return f.statuses[paymentID], nil
}

func (f *fakeProvider) set(paymentID string, status models.PaymentStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[paymentID] = status
}

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []models.PaymentNotification
}

func (n *recordingNotifier) NotifyPayment(ctx context.Context, notification models.PaymentNotification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notification)
}

type fixture struct {
	clock      *clock
	provider   *fakeProvider
	ledger     *subscriptions.Ledger
	usage      *usage.Accounting
	notifier   *recordingNotifier
	reconciler *Reconciler
}

func newFixture() *fixture {
	c := &clock{t: time.Date(2024, 7, 7, 12, 0, 0, 0, time.Local)}
	f := &fixture{
		clock:    c,
		provider: newFakeProvider(),
		ledger:   subscriptions.NewLedger(30).WithClock(c.now),
		usage:    usage.NewAccounting(5).WithClock(c.now),
		notifier: &recordingNotifier{},
	}
	f.reconciler = NewReconciler(f.provider, f.ledger, f.usage, f.notifier, ReconcilerConfig{
		Price:       decimal.NewFromInt(10),
		Description: "Assinatura Premium Bot MP3 - 30 dias",
		PendingTTL:  24 * time.Hour,
	}, nil).WithClock(c.now)
	return f
}

func TestRequestPayment(t *testing.T) {
	f := newFixture()

	charge, err := f.reconciler.RequestPayment(context.Background(), "123")

	assert.NoError(t, err)
	assert.Equal(t, "pay-1001", charge.ProviderPaymentID)
	assert.Len(t, f.provider.requests, 1)
	assert.True(t, decimal.NewFromInt(10).Equal(f.provider.requests[0].Amount))
	assert.Equal(t, Reference("123", f.clock.now()), f.provider.requests[0].Reference)
	pending, ok := f.reconciler.Pending("123")
	assert.True(t, ok)
	assert.Equal(t, models.PaymentStatusPending, pending.Status)
	assert.Equal(t, 1, f.usage.Snapshot().Payments.Total)
}

func TestRequestPaymentOverwritesPrevious(t *testing.T) {
	f := newFixture()
	_, _ = f.reconciler.RequestPayment(context.Background(), "123")
	second, err := f.reconciler.RequestPayment(context.Background(), "123")

	assert.NoError(t, err)
	pending, _ := f.reconciler.Pending("123")
	assert.Equal(t, second.ProviderPaymentID, pending.PaymentID)
	assert.Equal(t, 1, f.reconciler.PendingCount())
}

func TestRequestPaymentProviderFailure(t *testing.T) {
	f := newFixture()
	f.provider.createErr = lib.NewProviderError("fake", "CreateCharge", errors.New("401 unauthorized"))

	_, err := f.reconciler.RequestPayment(context.Background(), "123")

	assert.True(t, errors.Is(err, lib.ErrProvider))
	_, ok := f.reconciler.Pending("123")
	assert.False(t, ok)
	assert.Zero(t, f.usage.Snapshot().Payments.Total)
}

func TestRequestPaymentWithoutProvider(t *testing.T) {
	f := newFixture()
	reconciler := NewReconciler(nil, f.ledger, f.usage, f.notifier, ReconcilerConfig{}, nil)

	_, err := reconciler.RequestPayment(context.Background(), "123")

	assert.True(t, errors.Is(err, lib.ErrConfiguration))
	assert.False(t, reconciler.Configured())
}

func TestPollOnceApproved(t *testing.T) {
	f := newFixture()
	charge, _ := f.reconciler.RequestPayment(context.Background(), "123")
	f.provider.set(charge.ProviderPaymentID, models.PaymentStatusApproved)

	f.reconciler.PollOnce(context.Background())

	subscription, ok := f.ledger.Get("123")
	assert.True(t, ok)
	assert.Equal(t, f.clock.now().AddDate(0, 0, 30), subscription.ExpiresAt)
	assert.Equal(t, models.ActivatedByPayment, subscription.ActivatedBy)
	assert.Equal(t, 1, f.usage.Snapshot().Payments.Successful)
	assert.Len(t, f.notifier.notifications, 1)
	assert.Equal(t, models.PaymentStatusApproved, f.notifier.notifications[0].Status)
	assert.Equal(t, subscription.ExpiresAt, f.notifier.notifications[0].ExpiresAt)
	pending, _ := f.reconciler.Pending("123")
	assert.Equal(t, models.PaymentStatusApproved, pending.Status)
}

func TestPollOnceApprovedIsIdempotent(t *testing.T) {
	f := newFixture()
	charge, _ := f.reconciler.RequestPayment(context.Background(), "123")
	f.provider.set(charge.ProviderPaymentID, models.PaymentStatusApproved)

	f.reconciler.PollOnce(context.Background())
	before, _ := f.ledger.Get("123")
	f.clock.advance(5 * time.Minute)
	f.reconciler.PollOnce(context.Background())
	result, err := f.reconciler.CheckNow(context.Background(), "123")

	assert.NoError(t, err)
	assert.Equal(t, CheckAlreadyApproved, result.Outcome)
	assert.Nil(t, result.Notification)
	after, _ := f.ledger.Get("123")
	assert.Equal(t, before, after)
	assert.Equal(t, 1, f.usage.Snapshot().Payments.Successful)
	assert.Len(t, f.notifier.notifications, 1)
	assert.Len(t, f.provider.queries, 1, "approved records are not polled again")
}

func TestPollOnceRejected(t *testing.T) {
	f := newFixture()
	charge, _ := f.reconciler.RequestPayment(context.Background(), "123")
	f.provider.set(charge.ProviderPaymentID, models.PaymentStatusRejected)

	f.reconciler.PollOnce(context.Background())
	f.reconciler.PollOnce(context.Background())

	assert.False(t, f.ledger.IsActive("123"))
	assert.Equal(t, 1, f.usage.Snapshot().Payments.Failed)
	assert.Len(t, f.notifier.notifications, 1)
	assert.Equal(t, models.PaymentStatusRejected, f.notifier.notifications[0].Status)
	assert.Len(t, f.provider.queries, 1, "terminal records are not retried")
	pending, _ := f.reconciler.Pending("123")
	assert.Equal(t, models.PaymentStatusRejected, pending.Status)
}

func TestPollOnceTransientStatusesStayPending(t *testing.T) {
	for _, status := range []models.PaymentStatus{models.PaymentStatusUnknown, models.PaymentStatusError, ""} {
		f := newFixture()
		charge, _ := f.reconciler.RequestPayment(context.Background(), "123")
		f.provider.set(charge.ProviderPaymentID, status)

		f.reconciler.PollOnce(context.Background())

		pending, ok := f.reconciler.Pending("123")
		assert.True(t, ok)
		assert.Equal(t, models.PaymentStatusPending, pending.Status)
		assert.Nil(t, pending.LastChecked)
		assert.Empty(t, f.notifier.notifications)
		assert.Equal(t, models.PaymentCounters{Total: 1}, f.usage.Snapshot().Payments)
	}
}

func TestPollOnceProviderErrorStaysPending(t *testing.T) {
	f := newFixture()
	_, _ = f.reconciler.RequestPayment(context.Background(), "123")
	f.provider.statusErr = errors.New("timeout")

	f.reconciler.PollOnce(context.Background())

	pending, _ := f.reconciler.Pending("123")
	assert.Equal(t, models.PaymentStatusPending, pending.Status)
	assert.Empty(t, f.notifier.notifications)
}

func TestPollOnceUnrecognizedStatusRecordsLastChecked(t *testing.T) {
	f := newFixture()
	charge, _ := f.reconciler.RequestPayment(context.Background(), "123")
	f.provider.set(charge.ProviderPaymentID, "in_process")

	f.clock.advance(time.Minute)
	f.reconciler.PollOnce(context.Background())

	pending, _ := f.reconciler.Pending("123")
	assert.Equal(t, models.PaymentStatusPending, pending.Status)
	assert.NotNil(t, pending.LastChecked)
	assert.Equal(t, f.clock.now(), *pending.LastChecked)
	assert.Empty(t, f.notifier.notifications)
}

func TestPollOncePurgesExpiredRecords(t *testing.T) {
	f := newFixture()
	approved, _ := f.reconciler.RequestPayment(context.Background(), "approved")
	f.provider.set(approved.ProviderPaymentID, models.PaymentStatusApproved)
	f.reconciler.PollOnce(context.Background())
	_, _ = f.reconciler.RequestPayment(context.Background(), "stale")

	f.clock.advance(24 * time.Hour)
	_, _ = f.reconciler.RequestPayment(context.Background(), "fresh")
	f.reconciler.PollOnce(context.Background())

	_, ok := f.reconciler.Pending("approved")
	assert.False(t, ok)
	_, ok = f.reconciler.Pending("stale")
	assert.False(t, ok)
	_, ok = f.reconciler.Pending("fresh")
	assert.True(t, ok)
	assert.True(t, f.ledger.IsActive("approved"), "purging does not touch the ledger")
}

func TestPollOnceSkipsExpiredButStillPending(t *testing.T) {
	f := newFixture()
	charge, _ := f.reconciler.RequestPayment(context.Background(), "123")
	f.provider.set(charge.ProviderPaymentID, models.PaymentStatusApproved)

	f.clock.advance(25 * time.Hour)
	f.reconciler.PollOnce(context.Background())

	assert.Empty(t, f.provider.queries)
	assert.False(t, f.ledger.IsActive("123"))
	assert.Zero(t, f.reconciler.PendingCount())
}

func TestCheckNow(t *testing.T) {
	tests := []struct {
		name    string
		status  models.PaymentStatus
		outcome CheckOutcome
	}{
		{"approved", models.PaymentStatusApproved, CheckApproved},
		{"pending", models.PaymentStatusPending, CheckPending},
		{"unknown", models.PaymentStatusUnknown, CheckVerifying},
		{"rejected", models.PaymentStatusRejected, CheckFailed},
		{"cancelled", models.PaymentStatusCancelled, CheckFailed},
		{"other", "in_mediation", CheckOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			charge, _ := f.reconciler.RequestPayment(context.Background(), "123")
			f.provider.set(charge.ProviderPaymentID, tt.status)

			result, err := f.reconciler.CheckNow(context.Background(), "123")

			assert.NoError(t, err)
			assert.Equal(t, tt.outcome, result.Outcome)
			assert.Equal(t, tt.status == models.PaymentStatusApproved, f.ledger.IsActive("123"))
			assert.Empty(t, f.notifier.notifications, "manual checks reply directly")
		})
	}
}

func TestCheckNowThenPollActivatesOnce(t *testing.T) {
	f := newFixture()
	charge, _ := f.reconciler.RequestPayment(context.Background(), "123")
	f.provider.set(charge.ProviderPaymentID, models.PaymentStatusApproved)

	result, err := f.reconciler.CheckNow(context.Background(), "123")
	assert.NoError(t, err)
	assert.Equal(t, CheckApproved, result.Outcome)
	assert.NotNil(t, result.Notification)
	f.reconciler.PollOnce(context.Background())

	subscription, _ := f.ledger.Get("123")
	assert.Equal(t, f.clock.now().AddDate(0, 0, 30), subscription.ExpiresAt)
	assert.Equal(t, 1, f.usage.Snapshot().Payments.Successful)
	assert.Empty(t, f.notifier.notifications)
}

func TestConcurrentChecksActivateOnce(t *testing.T) {
	f := newFixture()
	charge, _ := f.reconciler.RequestPayment(context.Background(), "123")
	f.provider.set(charge.ProviderPaymentID, models.PaymentStatusApproved)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.reconciler.CheckNow(context.Background(), "123")
		}()
		go func() {
			defer wg.Done()
			f.reconciler.PollOnce(context.Background())
		}()
	}
	wg.Wait()

	subscription, _ := f.ledger.Get("123")
	assert.Equal(t, f.clock.now().AddDate(0, 0, 30), subscription.ExpiresAt)
	assert.Equal(t, 1, f.usage.Snapshot().Payments.Successful)
	assert.LessOrEqual(t, len(f.notifier.notifications), 1)
}

func TestCheckNowWithoutPending(t *testing.T) {
	f := newFixture()
	result, err := f.reconciler.CheckNow(context.Background(), "123")
	assert.NoError(t, err)
	assert.Equal(t, CheckNoPending, result.Outcome)
}

func TestSnapshotRestore(t *testing.T) {
	f := newFixture()
	_, _ = f.reconciler.RequestPayment(context.Background(), "123")

	restored := NewReconciler(f.provider, f.ledger, f.usage, f.notifier, ReconcilerConfig{}, nil).WithClock(f.clock.now)
	restored.Restore(f.reconciler.Snapshot())

	pending, ok := restored.Pending("123")
	assert.True(t, ok)
	assert.Equal(t, "pay-1001", pending.PaymentID)
}
