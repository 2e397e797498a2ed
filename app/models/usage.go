package models

import "time"

// UsageStats is the process wide usage aggregate persisted as the stats document.
type UsageStats struct {
	TotalConversions int                       `json:"totalConversions"`
	UniqueUsers      map[string]bool           `json:"uniqueUsers"`
	UserConversions  map[string]int            `json:"userConversions"`
	DailyUsage       map[string]map[string]int `json:"dailyUsage"`
	Errors           int                       `json:"errors"`
	LastError        string                    `json:"lastError,omitempty"`
	LastErrorAt      *time.Time                `json:"lastErrorAt,omitempty"`
	Payments         PaymentCounters           `json:"payments"`
}

func NewUsageStats() UsageStats {
	return UsageStats{
		UniqueUsers:     map[string]bool{},
		UserConversions: map[string]int{},
		DailyUsage:      map[string]map[string]int{},
	}
}

type UserCount struct {
	SubscriberID string
	Conversions  int
}
