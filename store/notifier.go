package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Notifier carries "this collection changed" signals between writers and
// live subscribers. Signals carry no payload; listeners refetch.
type Notifier interface {
	Notify(ctx context.Context, collection string) error
	// Listen returns a channel that receives at least one signal after
	// every Notify. Bursts may be coalesced. stop releases the listener.
	Listen(ctx context.Context, collection string) (signals <-chan struct{}, stop func(), err error)
}

// LocalNotifier fans signals out inside one process
type LocalNotifier struct {
	mu        sync.Mutex
	listeners map[string]map[chan struct{}]struct{}
}

func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{listeners: make(map[string]map[chan struct{}]struct{})}
}

func (n *LocalNotifier) Notify(_ context.Context, collection string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.listeners[collection] {
		signal(ch)
	}
	return nil
}

func (n *LocalNotifier) Listen(_ context.Context, collection string) (<-chan struct{}, func(), error) {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	if n.listeners[collection] == nil {
		n.listeners[collection] = make(map[chan struct{}]struct{})
	}
	n.listeners[collection][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.listeners[collection], ch)
			n.mu.Unlock()
		})
	}
	return ch, stop, nil
}

// RedisNotifier publishes change signals over Redis pub/sub so that every
// API replica sees writes made by the others.
type RedisNotifier struct {
	client    *redis.Client
	namespace string
	log       logrus.FieldLogger
}

func NewRedisNotifier(client *redis.Client, namespace string, log logrus.FieldLogger) *RedisNotifier {
	if namespace == "" {
		namespace = "homecook"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &RedisNotifier{client: client, namespace: namespace, log: log}
}

func (n *RedisNotifier) channel(collection string) string {
	return fmt.Sprintf("%s:%s:changed", n.namespace, collection)
}

func (n *RedisNotifier) Notify(ctx context.Context, collection string) error {
	if err := n.client.Publish(ctx, n.channel(collection), "changed").Err(); err != nil {
		return fmt.Errorf("publish %s change: %w", collection, err)
	}
	return nil
}

func (n *RedisNotifier) Listen(ctx context.Context, collection string) (<-chan struct{}, func(), error) {
	pubsub := n.client.Subscribe(ctx, n.channel(collection))
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s changes: %w", collection, err)
	}

	out := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		msgs := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				signal(out)
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			if err := pubsub.Close(); err != nil {
				n.log.WithError(err).Warn("Closing Redis subscription failed")
			}
		})
	}
	return out, stop, nil
}

// signal does a non-blocking send; a pending signal already covers this one
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
