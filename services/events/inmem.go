// Package eventsvc implements the core.EventBroker, in memory or over Redis pub/sub.
package eventsvc

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/trezcool/campus/core"
)

// subscriberBuffer is the number of events a slow subscriber may lag behind before events are dropped for it.
const subscriberBuffer = 64

type subscriber struct {
	topics []string
	ch     chan core.Event
}

// InMemBroker fans events out to the subscribers of this process.
type InMemBroker struct {
	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	dropped uint64
}

var _ core.EventBroker = (*InMemBroker)(nil)

func NewInMemBroker() *InMemBroker {
	return &InMemBroker{subs: make(map[*subscriber]struct{})}
}

// Publish never blocks: a subscriber whose buffer is full misses the event.
func (b *InMemBroker) Publish(_ context.Context, evt core.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if !evt.MatchesTopics(sub.topics) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			atomic.AddUint64(&b.dropped, 1)
		}
	}
	return nil
}

func (b *InMemBroker) Subscribe(ctx context.Context, topics ...string) (<-chan core.Event, error) {
	sub := &subscriber{topics: topics, ch: make(chan core.Event, subscriberBuffer)}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, sub)
		close(sub.ch)
		b.mu.Unlock()
	}()
	return sub.ch, nil
}

// Dropped counts the events lost by slow subscribers.
func (b *InMemBroker) Dropped() uint64 {
	return atomic.LoadUint64(&b.dropped)
}

// Subscribers counts the active subscriptions.
func (b *InMemBroker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
