package status

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"mp3bot/m/v2/app/db"
	"mp3bot/m/v2/app/db/redis"
	"mp3bot/m/v2/app/payments"
	"mp3bot/m/v2/app/state"
	"mp3bot/m/v2/app/status"
	"mp3bot/m/v2/app/subscriptions"
	"mp3bot/m/v2/app/usage"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
)

type recordingAlerter struct {
	messages []string
}

func (r *recordingAlerter) Alert(ctx context.Context, message string) error {
	r.messages = append(r.messages, message)
	return nil
}

func newChecker(cache redis.Client, alerter status.Alerter, lookPath func(string) (string, error)) *Checker {
	ledger := subscriptions.NewLedger(30)
	accounting := usage.NewAccounting(5)
	st := state.New(db.NewMemoryStore(), ledger, accounting, payments.NewReconciler(nil, ledger, accounting, nil, payments.ReconcilerConfig{}, nil))
	handler := status.New(st, cache, nil, status.Binaries{YtDlp: "yt-dlp", FFMPEG: "ffmpeg"}).WithLookPath(lookPath)
	return &Checker{
		Handler:  handler,
		Cache:    cache,
		Alerter:  alerter,
		DataDog:  &statsd.NoOpClient{},
		BotName:  "mp3bot",
		Interval: time.Minute,
	}
}

func TestFetchStatusAlertsMissingTools(t *testing.T) {
	alerter := &recordingAlerter{}
	c := newChecker(nil, alerter, func(file string) (string, error) {
		return "", errors.New("not found")
	})

	raw, err := c.FetchStatus()

	assert.NoError(t, err)
	assert.Equal(t, []string{"🔥 mp3bot: yt-dlp is down 🔥", "🔥 mp3bot: ffmpeg is down 🔥"}, alerter.messages)
	var decoded status.SystemStatus
	assert.NoError(t, json.Unmarshal([]byte(raw), &decoded))
	assert.True(t, decoded.Store.Available)
	assert.False(t, decoded.YtDlp.Available)
}

func TestRunCachesStatus(t *testing.T) {
	cache := redis.NewMockRedisClient()
	alerter := &recordingAlerter{}
	c := newChecker(cache, alerter, func(file string) (string, error) {
		return "/usr/bin/" + file, nil
	})

	c.Run()
	c.Run()

	cached, err := cache.Get(context.Background(), SystemStatusKey).Result()
	assert.NoError(t, err)
	assert.Contains(t, cached, `"yt_dlp":{"available":true}`)
	assert.Empty(t, alerter.messages)
}
