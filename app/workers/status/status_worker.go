// Run regularly to check status of the system and cache it in redis
package status

import (
	"context"
	"encoding/json"
	"time"

	"mp3bot/m/v2/app/db/redis"
	"mp3bot/m/v2/app/status"
	"mp3bot/m/v2/app/workers"

	"github.com/DataDog/datadog-go/v5/statsd"
	log "github.com/sirupsen/logrus"
)

const SystemStatusKey = "system-status"

type Checker struct {
	Handler  *status.SystemStatusHandler
	Cache    redis.Client
	Alerter  status.Alerter
	DataDog  statsd.ClientInterface
	BotName  string
	Interval time.Duration
}

func New(c *Checker) *workers.Worker {
	return workers.NewWorker("status", c.Interval, c.Run)
}

func (c *Checker) Run() {
	fetch := c.FetchStatus
	if c.Cache != nil {
		fetch = redis.WrapInCache(c.Cache, SystemStatusKey, c.Interval*10, c.FetchStatus)
	}
	systemStatus, err := fetch()
	if err != nil {
		log.Errorf("failed to fetch system status: %s", err)
		return
	}
	log.Debugf("system status: %s", systemStatus)
}

func (c *Checker) FetchStatus() (string, error) {
	systemStatus := c.Handler.GetSystemStatus()
	_ = c.DataDog.Gauge("status_worker.store_available", boolToFloat64(systemStatus.Store.Available), nil, 1)
	_ = c.DataDog.Gauge("status_worker.redis_available", boolToFloat64(systemStatus.Redis.Available), nil, 1)
	_ = c.DataDog.Gauge("status_worker.ai_available", boolToFloat64(systemStatus.AI.Available), nil, 1)
	_ = c.DataDog.Gauge("status_worker.payments_available", boolToFloat64(systemStatus.Payments.Available), nil, 1)
	_ = c.DataDog.Gauge("status_worker.yt_dlp_available", boolToFloat64(systemStatus.YtDlp.Available), nil, 1)
	_ = c.DataDog.Gauge("status_worker.ffmpeg_available", boolToFloat64(systemStatus.FFMPEG.Available), nil, 1)
	_ = c.DataDog.Gauge("status_worker.total_conversions", float64(systemStatus.Usage.TotalConversions), nil, 1)
	_ = c.DataDog.Gauge("status_worker.total_users", float64(systemStatus.Usage.TotalUsers), nil, 1)
	_ = c.DataDog.Gauge("status_worker.active_subscriptions", float64(systemStatus.Usage.ActiveSubscriptions), nil, 1)
	_ = c.DataDog.Gauge("status_worker.pending_payments", float64(systemStatus.Usage.PendingPayments), nil, 1)
	_ = c.DataDog.Gauge("status_worker.errors", float64(systemStatus.Usage.Errors), nil, 1)
	if !systemStatus.Store.Available {
		c.reportUnavailableStatus("Store")
	}
	if c.Cache != nil && !systemStatus.Redis.Available {
		c.reportUnavailableStatus("Redis")
	}
	if !systemStatus.YtDlp.Available {
		c.reportUnavailableStatus("yt-dlp")
	}
	if !systemStatus.FFMPEG.Available {
		c.reportUnavailableStatus("ffmpeg")
	}
	statusBytes, _ := json.Marshal(systemStatus)
	return string(statusBytes), nil
}

func (c *Checker) reportUnavailableStatus(systemName string) {
	message := "🔥 " + c.BotName + ": " + systemName + " is down 🔥"
	log.Error(message)
	if c.Alerter == nil {
		return
	}
	if err := c.Alerter.Alert(context.Background(), message); err != nil {
		log.Errorf("Failed to send alert: %s", err)
	}
}

func boolToFloat64(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
