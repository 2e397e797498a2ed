package persist

import (
	"context"
	"testing"

	"mp3bot/m/v2/app/db"
	"mp3bot/m/v2/app/models"
	"mp3bot/m/v2/app/payments"
	"mp3bot/m/v2/app/state"
	"mp3bot/m/v2/app/subscriptions"
	"mp3bot/m/v2/app/usage"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/stretchr/testify/assert"
)

func TestRunSavesAllDocuments(t *testing.T) {
	store := db.NewMemoryStore()
	ledger := subscriptions.NewLedger(30)
	accounting := usage.NewAccounting(5)
	st := state.New(store, ledger, accounting, payments.NewReconciler(nil, ledger, accounting, nil, payments.ReconcilerConfig{}, nil))
	ledger.Activate("123", models.ActivatedByAdmin)
	accounting.RecordConversion("123", true)

	Run(st, &statsd.NoOpClient{})

	var subscriptionsDoc map[string]models.Subscription
	assert.NoError(t, store.Load(context.Background(), state.SubscriptionsDocument, &subscriptionsDoc))
	assert.Contains(t, subscriptionsDoc, "123")
	var stats models.UsageStats
	assert.NoError(t, store.Load(context.Background(), state.StatsDocument, &stats))
	assert.Equal(t, 1, stats.TotalConversions)
	var pending map[string]models.PendingPayment
	assert.NoError(t, store.Load(context.Background(), state.PaymentsDocument, &pending))
}
