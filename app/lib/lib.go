package lib

import (
	"context"
	"strings"
	"time"

	"mp3bot/m/v2/app/models"
)

var TIMEOUT = 2 * time.Minute

// NormalizeSubscriberID keeps digits and a leading minus sign, so chat ids from any source map to the same key.
func NormalizeSubscriberID(raw string) string {
	raw = strings.TrimSpace(raw)
	var b strings.Builder
	for i, r := range raw {
		if r == '-' && i == 0 {
			b.WriteRune(r)
			continue
		}
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.String() == "-" {
		return ""
	}
	return b.String()
}

// SetupUserContext returns a context carrying the subscriber id, bounded by timeout.
func SetupUserContext(parent context.Context, subscriberID string, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := context.WithValue(parent, models.SubscriberContext{}, subscriberID)
	if timeout <= 0 {
		timeout = TIMEOUT
	}
	return context.WithTimeout(ctx, timeout)
}

func SubscriberFromContext(ctx context.Context) string {
	id, _ := ctx.Value(models.SubscriberContext{}).(string)
	return id
}

// MaskSubscriberID shows only the last four digits.
func MaskSubscriberID(id string) string {
	if len(id) <= 4 {
		return "***" + id
	}
	return "***" + id[len(id)-4:]
}
