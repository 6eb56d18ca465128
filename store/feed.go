package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"homecook-api/catalog"
	"homecook-api/models"

	"github.com/sirupsen/logrus"
)

// SpotFeed is the realtime cook spot collection: snapshots come from the
// database and a Notifier says when to take a new one.
type SpotFeed struct {
	spots    *SpotRepository
	notifier Notifier
	log      logrus.FieldLogger
	seq      atomic.Uint64
}

var _ catalog.Source = (*SpotFeed)(nil)

func NewSpotFeed(spots *SpotRepository, notifier Notifier, log logrus.FieldLogger) *SpotFeed {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &SpotFeed{spots: spots, notifier: notifier, log: log}
}

func (f *SpotFeed) Fetch(ctx context.Context, collection string) ([]models.CookSpot, error) {
	if collection != catalog.DefaultCollection {
		return nil, fmt.Errorf("collection %q: %w", collection, ErrUnknownCollection)
	}
	return f.spots.List(ctx)
}

// Subscribe delivers a snapshot right away and another after every change
// signal, each stamped with an increasing sequence number.
func (f *SpotFeed) Subscribe(ctx context.Context, collection string, deliver func(catalog.Delivery)) (catalog.Registration, error) {
	if collection != catalog.DefaultCollection {
		return nil, fmt.Errorf("collection %q: %w", collection, ErrUnknownCollection)
	}
	signals, stop, err := f.notifier.Listen(ctx, collection)
	if err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.push(subCtx, collection, deliver)
		for {
			select {
			case <-subCtx.Done():
				return
			case <-signals:
				f.push(subCtx, collection, deliver)
			}
		}
	}()

	var once sync.Once
	return catalog.RegistrationFunc(func() {
		once.Do(func() {
			cancel()
			stop()
			<-done
		})
	}), nil
}

func (f *SpotFeed) push(ctx context.Context, collection string, deliver func(catalog.Delivery)) {
	spots, err := f.Fetch(ctx, collection)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		f.log.WithError(err).WithField("collection", collection).Warn("Snapshot query failed")
	}
	deliver(catalog.Delivery{Seq: f.seq.Add(1), Spots: spots, Err: err})
}
