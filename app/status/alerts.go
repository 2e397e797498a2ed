package status

import (
	"context"
	"errors"
)

type Alerter interface {
	Alert(ctx context.Context, message string) error
}

// Alerters fans an alert out to every non-nil alerter.
type Alerters []Alerter

func (a Alerters) Alert(ctx context.Context, message string) error {
	var errs []error
	for _, alerter := range a {
		if alerter == nil {
			continue
		}
		if err := alerter.Alert(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
