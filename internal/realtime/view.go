package realtime

import (
	"context"
	"sync"

	"pulse/internal/observability"
)

// Ticket orders the fetches of one view. Later tickets are newer.
type Ticket uint64

// View holds the latest result of a live view. Results of fetches that complete after
// the view was closed, or after a newer fetch was already applied, are discarded.
type View[T any] struct {
	mu      sync.Mutex
	issued  Ticket
	applied Ticket
	closed  bool
	value   T
	set     bool
}

// Begin issues the ticket for a new fetch.
func (v *View[T]) Begin() Ticket {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.issued++
	return v.issued
}

// Apply stores value if the view is open and no newer fetch has been applied.
func (v *View[T]) Apply(t Ticket, value T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || t <= v.applied {
		return false
	}
	v.applied = t
	v.value = value
	v.set = true
	return true
}

// Current returns the applied value, if any.
func (v *View[T]) Current() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value, v.set
}

// Close makes every later Apply a no-op.
func (v *View[T]) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
}

// Closed reports whether Close was called.
func (v *View[T]) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

// Fetcher pulls the current state of a view.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Session keeps a view fresh by fetching once and again on every refresh signal.
type Session[T any] struct {
	name    string
	view    View[T]
	fetch   Fetcher[T]
	signals <-chan struct{}
	wg      sync.WaitGroup

	// serializes Apply with onUpdate so updates are seen in ticket order
	deliver sync.Mutex
}

// NewSession creates a session that re-fetches whenever signals fires. name is used in logs.
func NewSession[T any](name string, signals <-chan struct{}, fetch Fetcher[T]) *Session[T] {
	return &Session[T]{name: name, fetch: fetch, signals: signals}
}

// Run fetches the view, then re-fetches on each signal until ctx is done or signals is
// closed. onUpdate receives every applied result. Fetches run concurrently; stale ones
// are dropped by the view.
func (s *Session[T]) Run(ctx context.Context, onUpdate func(T)) {
	defer func() {
		s.view.Close()
		s.wg.Wait()
	}()

	s.refresh(ctx, onUpdate)
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-s.signals:
			if !ok {
				return
			}
			s.refresh(ctx, onUpdate)
		}
	}
}

// Current returns the latest applied result.
func (s *Session[T]) Current() (T, bool) {
	return s.view.Current()
}

func (s *Session[T]) refresh(ctx context.Context, onUpdate func(T)) {
	ticket := s.view.Begin()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		value, err := s.fetch(ctx)
		if err != nil {
			observability.Log(ctx).WithError(err).WithField("view", s.name).Warn("view refresh failed")
			return
		}
		s.deliver.Lock()
		defer s.deliver.Unlock()
		if s.view.Apply(ticket, value) && onUpdate != nil {
			onUpdate(value)
		}
	}()
}
