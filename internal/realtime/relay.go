// Package realtime maintains the process-wide set of live view subscriptions and
// signals their holders to re-fetch when a matching change is observed.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pulse/internal/changefeed"
	"pulse/internal/models"
	"pulse/internal/observability"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("relay closed")

// Subscription is held by one viewing session. Its signal channel has room for a single
// pending signal, so bursts of changes coalesce into one re-fetch.
type Subscription struct {
	relay    *Relay
	topics   []Topic
	signals  chan struct{}
	released bool
}

// Signals delivers one value per (possibly coalesced) burst of matching changes. It is
// closed when the subscription is released.
func (s *Subscription) Signals() <-chan struct{} {
	return s.signals
}

// Topics returns the topics the subscription watches.
func (s *Subscription) Topics() []Topic {
	return s.topics
}

// Release stops signals and frees the subscription. It is safe to call more than once.
func (s *Subscription) Release() {
	s.relay.release(s)
}

type topicEntry struct {
	conds []condition
	subs  map[*Subscription]struct{}
}

// Relay is a registry of subscriptions keyed by topic and indexed by entity.
//
// The change source is started when the first subscription is taken and stopped when
// the last one is released. The source starts without mu held; subscribers arriving
// meanwhile wait on started. A Relay is also a changefeed.Publisher, so writers in the
// same process can feed it directly.
type Relay struct {
	source changefeed.Source

	mu       sync.Mutex
	started  *sync.Cond
	topics   map[string]map[Topic]*topicEntry
	active   int
	stop     context.CancelFunc
	starting bool
	closed   bool
}

// NewRelay creates a relay fed by source. source may be nil when every writer publishes
// to the relay itself.
func NewRelay(source changefeed.Source) *Relay {
	r := &Relay{
		source: source,
		topics: make(map[string]map[Topic]*topicEntry),
	}
	r.started = sync.NewCond(&r.mu)
	return r
}

// Subscribe registers a subscription that is signalled for changes matching any of topics.
func (r *Relay) Subscribe(topics ...Topic) (*Subscription, error) {
	if len(topics) == 0 {
		return nil, errors.New("subscribe needs at least one topic")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for r.starting && !r.closed {
		r.started.Wait()
	}
	if r.closed {
		return nil, ErrClosed
	}
	if r.source != nil && r.stop == nil {
		if err := r.startUnlocked(); err != nil {
			return nil, err
		}
	}

	sub := &Subscription{relay: r, topics: topics, signals: make(chan struct{}, 1)}
	for _, t := range topics {
		byTopic, ok := r.topics[t.Entity]
		if !ok {
			byTopic = make(map[Topic]*topicEntry)
			r.topics[t.Entity] = byTopic
		}
		entry, ok := byTopic[t]
		if !ok {
			entry = &topicEntry{conds: t.conditions(), subs: make(map[*Subscription]struct{})}
			byTopic[t] = entry
		}
		entry.subs[sub] = struct{}{}
	}
	r.active++
	observability.RelaySubscriptions.Inc()

	return sub, nil
}

// startUnlocked starts the source with mu released. Called and returns with mu held.
func (r *Relay) startUnlocked() error {
	r.starting = true
	r.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	err := r.source.Start(ctx, r.Dispatch)

	r.mu.Lock()
	r.starting = false
	r.started.Broadcast()

	if err != nil {
		cancel()
		return fmt.Errorf("start change source: %w", err)
	}
	if r.closed {
		cancel()
		return ErrClosed
	}
	r.stop = cancel
	observability.GlobalLogger.Info("live change relay started")
	return nil
}

func (r *Relay) stopLocked() {
	if r.stop != nil {
		r.stop()
		r.stop = nil
		observability.GlobalLogger.Info("live change relay stopped")
	}
}

func (r *Relay) release(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub.released {
		return
	}
	r.unregisterLocked(sub)

	if r.active == 0 {
		r.stopLocked()
	}
}

func (r *Relay) unregisterLocked(sub *Subscription) {
	sub.released = true
	for _, t := range sub.topics {
		byTopic := r.topics[t.Entity]
		entry, ok := byTopic[t]
		if !ok {
			continue
		}
		delete(entry.subs, sub)
		if len(entry.subs) == 0 {
			delete(byTopic, t)
		}
		if len(byTopic) == 0 {
			delete(r.topics, t.Entity)
		}
	}
	close(sub.signals)
	r.active--
	observability.RelaySubscriptions.Dec()
}

// Dispatch signals every live subscription whose topics match change.
func (r *Relay) Dispatch(change models.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()

	signalled := make(map[*Subscription]struct{})
	for _, entry := range r.topics[change.Entity] {
		if !matches(entry.conds, change) {
			continue
		}
		for sub := range entry.subs {
			if _, done := signalled[sub]; done {
				continue
			}
			signalled[sub] = struct{}{}
			select {
			case sub.signals <- struct{}{}:
				observability.RelaySignals.WithLabelValues(change.Entity).Inc()
			default:
				observability.RelayCoalesced.WithLabelValues(change.Entity).Inc()
			}
		}
	}
}

// Publish dispatches change locally.
func (r *Relay) Publish(_ context.Context, change models.Change) error {
	r.Dispatch(change)
	return nil
}

// Active returns the number of live subscriptions.
func (r *Relay) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Running reports whether the relay currently receives changes. A relay without a
// source receives them until it is closed.
func (r *Relay) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.source == nil {
		return !r.closed
	}
	return r.stop != nil
}

// Close releases every subscription and stops the source.
func (r *Relay) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.started.Broadcast()

	var subs []*Subscription
	for _, byTopic := range r.topics {
		for _, entry := range byTopic {
			for sub := range entry.subs {
				subs = append(subs, sub)
			}
		}
	}
	for _, sub := range subs {
		if !sub.released {
			r.unregisterLocked(sub)
		}
	}
	r.stopLocked()
}
