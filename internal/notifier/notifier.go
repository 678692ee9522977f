// Package notifier delivers ledger events after commit. Delivery is best
// effort: the ledger state is already durable when Publish runs.
package notifier

import (
	"context"
	"errors"
	"yieldpool/internal/config"
	"yieldpool/internal/models"

	"github.com/sirupsen/logrus"
)

var log = config.InitLogger()

type Publisher interface {
	Publish(ctx context.Context, events []models.Event) error
}

// Bus fans events out to every publisher and joins their errors.
type Bus struct {
	publishers []Publisher
}

func NewBus(publishers ...Publisher) *Bus {
	return &Bus{publishers: publishers}
}

func (b *Bus) Add(p Publisher) {
	b.publishers = append(b.publishers, p)
}

func (b *Bus) Publish(ctx context.Context, events []models.Event) error {
	var errs []error
	for _, p := range b.publishers {
		if err := p.Publish(ctx, events); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes one Info line per event.
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, events []models.Event) error {
	for _, e := range events {
		log.WithFields(logrus.Fields{
			"event":   e.Type,
			"id":      e.Id,
			"pool_id": e.PoolId,
			"account": e.Account,
			"amount":  e.Amount.String(),
		}).Info("Ledger event")
	}
	return nil
}
