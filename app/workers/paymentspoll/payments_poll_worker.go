// Run regularly to reconcile pending payments with the provider
package paymentspoll

import (
	"context"
	"time"

	"mp3bot/m/v2/app/state"
	"mp3bot/m/v2/app/workers"

	"github.com/DataDog/datadog-go/v5/statsd"
	log "github.com/sirupsen/logrus"
)

func New(st *state.State, interval time.Duration, dd statsd.ClientInterface) *workers.Worker {
	return workers.NewWorker("payments", interval, func() { Run(st, dd) })
}

func Run(st *state.State, dd statsd.ClientInterface) {
	if !st.Payments.Configured() {
		log.Debug("[payments] no payment provider configured, skipping")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	st.Payments.PollOnce(ctx)
	if err := st.Save(ctx); err != nil {
		log.Errorf("[payments] failed to save state after poll: %v", err)
		_ = dd.Incr("payments_worker.save_failed", nil, 1)
	}
}
