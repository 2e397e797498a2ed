// Package state owns the ledger, usage and payments and checkpoints them to a db.Store.
package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mp3bot/m/v2/app/db"
	"mp3bot/m/v2/app/lib"
	"mp3bot/m/v2/app/models"
	"mp3bot/m/v2/app/payments"
	"mp3bot/m/v2/app/subscriptions"
	"mp3bot/m/v2/app/usage"

	log "github.com/sirupsen/logrus"
	"gopkg.in/cenkalti/backoff.v1"
)

const (
	SubscriptionsDocument = "subscriptions"
	StatsDocument         = "stats"
	PaymentsDocument      = "payments"
)

type State struct {
	Ledger   *subscriptions.Ledger
	Usage    *usage.Accounting
	Payments *payments.Reconciler
	store    db.Store
}

func New(store db.Store, ledger *subscriptions.Ledger, accounting *usage.Accounting, reconciler *payments.Reconciler) *State {
	return &State{
		Ledger:   ledger,
		Usage:    accounting,
		Payments: reconciler,
		store:    store,
	}
}

func (s *State) Store() db.Store {
	return s.store
}

// Load restores every document found in the store; missing documents leave the component empty.
func (s *State) Load(ctx context.Context) error {
	var errs []error

	var ledger map[string]models.Subscription
	if found, err := s.load(ctx, SubscriptionsDocument, &ledger); err != nil {
		errs = append(errs, err)
	} else if found {
		s.Ledger.Restore(ledger)
	}

	var stats models.UsageStats
	if found, err := s.load(ctx, StatsDocument, &stats); err != nil {
		errs = append(errs, err)
	} else if found {
		s.Usage.Restore(stats)
	}

	var pending map[string]models.PendingPayment
	if found, err := s.load(ctx, PaymentsDocument, &pending); err != nil {
		errs = append(errs, err)
	} else if found {
		s.Payments.Restore(pending)
	}

	log.Infof("Loaded state: %d subscriptions, %d conversions, %d pending payments", len(ledger), stats.TotalConversions, len(pending))
	return errors.Join(errs...)
}

func (s *State) load(ctx context.Context, name string, v any) (bool, error) {
	err := s.store.Load(ctx, name, v)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, db.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("%w: load %s: %w", lib.ErrPersistence, name, err)
	}
}

// Save writes all three documents, attempting each regardless of earlier failures.
func (s *State) Save(ctx context.Context) error {
	var errs []error
	if err := s.store.Save(ctx, SubscriptionsDocument, s.Ledger.Snapshot()); err != nil {
		errs = append(errs, fmt.Errorf("%w: save %s: %w", lib.ErrPersistence, SubscriptionsDocument, err))
	}
	if err := s.store.Save(ctx, StatsDocument, s.Usage.Snapshot()); err != nil {
		errs = append(errs, fmt.Errorf("%w: save %s: %w", lib.ErrPersistence, StatsDocument, err))
	}
	if err := s.store.Save(ctx, PaymentsDocument, s.Payments.Snapshot()); err != nil {
		errs = append(errs, fmt.Errorf("%w: save %s: %w", lib.ErrPersistence, PaymentsDocument, err))
	}
	return errors.Join(errs...)
}

// Flush retries Save with exponential backoff until maxElapsed, used on shutdown.
func (s *State) Flush(ctx context.Context, maxElapsed time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = maxElapsed
	b.Reset()
	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := s.Save(ctx)
		if err != nil {
			log.Warnf("Flush attempt %d failed: %v", attempt, err)
		}
		return err
	}, b)
}
