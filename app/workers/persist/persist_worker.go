// Run regularly to checkpoint the ledger, usage and pending payments
package persist

import (
	"context"
	"time"

	"mp3bot/m/v2/app/state"
	"mp3bot/m/v2/app/workers"

	"github.com/DataDog/datadog-go/v5/statsd"
	log "github.com/sirupsen/logrus"
)

func New(st *state.State, interval time.Duration, dd statsd.ClientInterface) *workers.Worker {
	return workers.NewWorker("persist", interval, func() { Run(st, dd) })
}

// Run saves once; failures are logged and retried at the next tick.
func Run(st *state.State, dd statsd.ClientInterface) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := st.Save(ctx); err != nil {
		log.Errorf("[persist] failed to save state: %v", err)
		_ = dd.Incr("persist_worker.failed", nil, 1)
		return
	}
	_ = dd.Incr("persist_worker.saved", nil, 1)
	log.Debug("[persist] state saved")
}
