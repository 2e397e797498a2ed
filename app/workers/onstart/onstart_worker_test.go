package onstart

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mp3bot/m/v2/app/db"
	"mp3bot/m/v2/app/models"
	"mp3bot/m/v2/app/payments"
	"mp3bot/m/v2/app/state"
	"mp3bot/m/v2/app/subscriptions"
	"mp3bot/m/v2/app/usage"

	"github.com/stretchr/testify/assert"
)

func TestRunLoadsStateAndCleansTempDir(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-2 * time.Hour)
	for _, name := range []string{"abc.mp3", "abc.mp3.part", "notes.txt"} {
		path := filepath.Join(dir, name)
		assert.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		assert.NoError(t, os.Chtimes(path, old, old))
	}
	assert.NoError(t, os.WriteFile(filepath.Join(dir, "fresh.mp3"), []byte("x"), 0o644))

	store := db.NewMemoryStore()
	assert.NoError(t, store.Save(context.Background(), state.SubscriptionsDocument, map[string]models.Subscription{
		"123": {ExpiresAt: time.Now().Add(time.Hour), ActivatedBy: models.ActivatedByAdmin},
	}))
	ledger := subscriptions.NewLedger(30)
	accounting := usage.NewAccounting(5)
	st := state.New(store, ledger, accounting, payments.NewReconciler(nil, ledger, accounting, nil, payments.ReconcilerConfig{}, nil))

	Run(context.Background(), st, dir)

	assert.True(t, ledger.IsActive("123"))
	entries, _ := os.ReadDir(dir)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	assert.ElementsMatch(t, []string{"fresh.mp3", "notes.txt"}, names)
}
