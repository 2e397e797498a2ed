// Run daily to drop per day usage buckets past the retention window
package clearusage

import (
	"time"

	"mp3bot/m/v2/app/usage"
	"mp3bot/m/v2/app/workers"

	"github.com/DataDog/datadog-go/v5/statsd"
	log "github.com/sirupsen/logrus"
)

func New(accounting *usage.Accounting, retentionDays int, dd statsd.ClientInterface) *workers.Worker {
	return workers.NewWorker("clearusage", 23*time.Hour, func() { Run(accounting, retentionDays, time.Now(), dd) })
}

func Run(accounting *usage.Accounting, retentionDays int, now time.Time, dd statsd.ClientInterface) int {
	cutoff := now.AddDate(0, 0, -retentionDays)
	log.Infof("clearing usage days before %s..", cutoff.Format(usage.DayLayout))
	removed := accounting.PruneDailyBefore(cutoff)
	_ = dd.Gauge("clear_usage_worker.days", float64(removed), nil, 1)
	log.Infof("cleared %d usage days", removed)
	return removed
}
