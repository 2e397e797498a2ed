package usage

import (
	"sort"
	"sync"
	"time"

	"mp3bot/m/v2/app/models"
)

const (
	DefaultDailyQuota = 5
	DayLayout         = "2006-01-02"
)

// Accounting tracks conversions per subscriber and per local calendar day.
type Accounting struct {
	mu    sync.Mutex
	stats models.UsageStats
	quota int
	now   func() time.Time
}

func NewAccounting(dailyQuota int) *Accounting {
	if dailyQuota <= 0 {
		dailyQuota = DefaultDailyQuota
	}
	return &Accounting{
		stats: models.NewUsageStats(),
		quota: dailyQuota,
		now:   time.Now,
	}
}

func (a *Accounting) WithClock(now func() time.Time) *Accounting {
	a.now = now
	return a
}

func (a *Accounting) today() string {
	return a.now().Format(DayLayout)
}

func (a *Accounting) DailyQuota() int {
	return a.quota
}

func (a *Accounting) RecordUser(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.UniqueUsers[id] = true
}

// RecordConversion counts a delivered file; only non-subscribers consume the daily quota.
func (a *Accounting) RecordConversion(id string, subscriber bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.TotalConversions++
	a.stats.UniqueUsers[id] = true
	a.stats.UserConversions[id]++
	if subscriber {
		return
	}
	day := a.today()
	if a.stats.DailyUsage[day] == nil {
		a.stats.DailyUsage[day] = map[string]int{}
	}
	a.stats.DailyUsage[day][id]++
}

func (a *Accounting) UsedToday(id string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats.DailyUsage[a.today()][id]
}

func (a *Accounting) RemainingFree(id string) int {
	remaining := a.quota - a.UsedToday(id)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordError keeps a count and only the most recent message.
func (a *Accounting) RecordError(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	a.stats.Errors++
	a.stats.LastError = message
	a.stats.LastErrorAt = &now
}

func (a *Accounting) RecordPaymentRequested() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.Payments.Total++
}

func (a *Accounting) RecordPaymentSucceeded() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.Payments.Successful++
}

func (a *Accounting) RecordPaymentFailed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.Payments.Failed++
}

// TopUsers returns up to n subscribers by lifetime conversions, ties broken by id.
func (a *Accounting) TopUsers(n int) []models.UserCount {
	a.mu.Lock()
	users := make([]models.UserCount, 0, len(a.stats.UserConversions))
	for id, count := range a.stats.UserConversions {
		users = append(users, models.UserCount{SubscriberID: id, Conversions: count})
	}
	a.mu.Unlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].Conversions != users[j].Conversions {
			return users[i].Conversions > users[j].Conversions
		}
		return users[i].SubscriberID < users[j].SubscriberID
	})
	if len(users) > n {
		users = users[:n]
	}
	return users
}

// PruneDailyBefore drops day buckets older than cutoff's calendar day and returns how many were removed.
func (a *Accounting) PruneDailyBefore(cutoff time.Time) int {
	cutoffDay := cutoff.Format(DayLayout)
	a.mu.Lock()
	defer a.mu.Unlock()
	pruned := 0
	for day := range a.stats.DailyUsage {
		if day < cutoffDay {
			delete(a.stats.DailyUsage, day)
			pruned++
		}
	}
	return pruned
}

func (a *Accounting) Snapshot() models.UsageStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return copyStats(a.stats)
}

func (a *Accounting) Restore(stats models.UsageStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats = copyStats(stats)
}

func copyStats(stats models.UsageStats) models.UsageStats {
	copied := stats
	copied.UniqueUsers = make(map[string]bool, len(stats.UniqueUsers))
	for id, ok := range stats.UniqueUsers {
		copied.UniqueUsers[id] = ok
	}
	copied.UserConversions = make(map[string]int, len(stats.UserConversions))
	for id, count := range stats.UserConversions {
		copied.UserConversions[id] = count
	}
	copied.DailyUsage = make(map[string]map[string]int, len(stats.DailyUsage))
	for day, users := range stats.DailyUsage {
		copied.DailyUsage[day] = make(map[string]int, len(users))
		for id, count := range users {
			copied.DailyUsage[day][id] = count
		}
	}
	if stats.LastErrorAt != nil {
		at := *stats.LastErrorAt
		copied.LastErrorAt = &at
	}
	return copied
}
