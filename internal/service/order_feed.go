package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"vapestore/internal/model"
	"vapestore/internal/repository"

	"github.com/rs/zerolog"
)

// ChangeSource yields order change notifications.
type ChangeSource interface {
	Next(ctx context.Context) (repository.ChangeNotification, error)
}

// OrderLister reads order snapshots for feed subscribers.
type OrderLister interface {
	ListByCustomer(ctx context.Context, email string) ([]model.Order, error)
	ListAll(ctx context.Context) ([]model.Order, error)
}

type subscription struct {
	email string
	ch    chan []model.Order
}

// OrderFeed pushes fresh order lists to subscribers whenever an order changes.
type OrderFeed struct {
	source  ChangeSource
	orders  OrderLister
	backoff time.Duration
	logger  zerolog.Logger

	mu   sync.Mutex
	subs map[*subscription]struct{}
}

// NewOrderFeed creates a feed. Call Run to start delivering.
func NewOrderFeed(source ChangeSource, orders OrderLister, logger zerolog.Logger) *OrderFeed {
	return &OrderFeed{
		source:  source,
		orders:  orders,
		backoff: time.Second,
		logger:  logger.With().Str("service", "order_feed").Logger(),
		subs:    make(map[*subscription]struct{}),
	}
}

// Subscribe returns a channel that first receives the current list and then
// a new list after every relevant change. An empty email subscribes to all
// orders. Slow subscribers only ever see the latest list. The returned func
// unsubscribes and closes the channel.
func (f *OrderFeed) Subscribe(ctx context.Context, email string) (<-chan []model.Order, func(), error) {
	sub := &subscription{email: email, ch: make(chan []model.Order, 1)}

	// Register before reading so no change can fall between the snapshot
	// and the first dispatch.
	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, sub)
			close(sub.ch)
			f.mu.Unlock()
		})
	}

	initial, err := f.snapshot(ctx, email)
	if err != nil {
		cancel()
		return nil, nil, err
	}

	// A list dispatched while the snapshot was read is at least as fresh.
	f.mu.Lock()
	select {
	case sub.ch <- initial:
	default:
	}
	f.mu.Unlock()

	return sub.ch, cancel, nil
}

// Subscribers returns the number of active subscriptions.
func (f *OrderFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Run delivers changes until ctx is cancelled.
func (f *OrderFeed) Run(ctx context.Context) {
	f.logger.Info().Msg("order feed started")
	defer f.logger.Info().Msg("order feed stopped")

	for {
		change, err := f.source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn().Err(err).Dur("retry_in", f.backoff).Msg("order change listener failed")
			select {
			case <-time.After(f.backoff):
				continue
			case <-ctx.Done():
				return
			}
		}
		f.dispatch(ctx, change)
	}
}

func (f *OrderFeed) dispatch(ctx context.Context, change repository.ChangeNotification) {
	f.mu.Lock()
	targets := make([]*subscription, 0, len(f.subs))
	for sub := range f.subs {
		if sub.email == "" || sub.email == change.Email {
			targets = append(targets, sub)
		}
	}
	f.mu.Unlock()

	lists := make(map[string][]model.Order)
	for _, sub := range targets {
		list, ok := lists[sub.email]
		if !ok {
			var err error
			list, err = f.snapshot(ctx, sub.email)
			if err != nil {
				f.logger.Error().Err(err).Str("order_id", change.ID).Msg("failed to refresh order list")
				continue
			}
			lists[sub.email] = list
		}
		f.deliver(sub, list)
	}
}

func (f *OrderFeed) deliver(sub *subscription, list []model.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[sub]; !ok {
		return
	}
	// Replace an undelivered list with the newer one.
	select {
	case <-sub.ch:
	default:
	}
	sub.ch <- list
}

func (f *OrderFeed) snapshot(ctx context.Context, email string) ([]model.Order, error) {
	var (
		orders []model.Order
		err    error
	)
	if email == "" {
		orders, err = f.orders.ListAll(ctx)
	} else {
		orders, err = f.orders.ListByCustomer(ctx, email)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, model.Upstream("list orders", ordersUnavailable, err)
	}
	return orders, nil
}
