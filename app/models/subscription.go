package models

import "time"

type ActivationOrigin string

const (
	ActivatedByPayment ActivationOrigin = "payment"
	ActivatedByAdmin   ActivationOrigin = "admin"
)

// Subscription holds the expiry of a subscriber; it is active while now <= ExpiresAt.
type Subscription struct {
	ExpiresAt   time.Time        `json:"expiresAt" bson:"expires_at"`
	ActivatedBy ActivationOrigin `json:"activatedBy" bson:"activated_by"`
	ActivatedAt time.Time        `json:"activatedAt" bson:"activated_at"`
}

func (s Subscription) ActiveAt(now time.Time) bool {
	return !now.After(s.ExpiresAt)
}
