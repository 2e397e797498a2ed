package subscriptions

import (
	"sync"
	"time"

	"mp3bot/m/v2/app/models"
)

const DefaultDays = 30

// Ledger maps subscriber ids to their subscription expiry.
type Ledger struct {
	mu      sync.Mutex
	records map[string]models.Subscription
	period  int
	now     func() time.Time
}

func NewLedger(days int) *Ledger {
	if days <= 0 {
		days = DefaultDays
	}
	return &Ledger{
		records: map[string]models.Subscription{},
		period:  days,
		now:     time.Now,
	}
}

// WithClock replaces the time source, mainly for tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// IsActive reports whether id has a subscription with now <= expiresAt. Expired records are dropped.
func (l *Ledger) IsActive(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.activeLocked(id)
}

func (l *Ledger) activeLocked(id string) bool {
	record, ok := l.records[id]
	if !ok {
		return false
	}
	if !record.ActiveAt(l.now()) {
		delete(l.records, id)
		return false
	}
	return true
}

// Activate extends an active subscription from its current expiry, or starts a new one from now.
func (l *Ledger) Activate(id string, origin models.ActivationOrigin) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	base := now
	if l.activeLocked(id) {
		base = l.records[id].ExpiresAt
	}
	expiresAt := base.AddDate(0, 0, l.period)
	l.records[id] = models.Subscription{
		ExpiresAt:   expiresAt,
		ActivatedBy: origin,
		ActivatedAt: now,
	}
	return expiresAt
}

// Get returns the active subscription of id.
func (l *Ledger) Get(id string) (models.Subscription, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.activeLocked(id) {
		return models.Subscription{}, false
	}
	return l.records[id], true
}

func (l *Ledger) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for id := range l.records {
		if l.activeLocked(id) {
			count++
		}
	}
	return count
}

func (l *Ledger) Snapshot() map[string]models.Subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	snapshot := make(map[string]models.Subscription, len(l.records))
	for id, record := range l.records {
		snapshot[id] = record
	}
	return snapshot
}

func (l *Ledger) Restore(records map[string]models.Subscription) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = make(map[string]models.Subscription, len(records))
	for id, record := range records {
		l.records[id] = record
	}
}
