package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"solana-pool-sniper/internal/chain"
)

// ErrSubscribe is returned by SubscribeProgram while FailSubscribe is set.
var ErrSubscribe = errors.New("stub: subscribe failed")

// Subscription is one live stub subscription.
type Subscription struct {
	ID      int64
	Program string
	Filter  chain.ProgramFilter
	ch      chan chain.AccountNotification
}

// Subscriber implements chain.AccountSubscriber in memory for testing.
type Subscriber struct {
	mu            sync.Mutex
	nextID        int64
	subs          map[int64]*Subscription
	closed        bool
	failSubscribe bool
	unsubscribed  []int64
}

// NewSubscriber creates a new stub subscriber.
func NewSubscriber() *Subscriber {
	return &Subscriber{
		subs: make(map[int64]*Subscription),
	}
}

// Compile-time interface check.
var _ chain.AccountSubscriber = (*Subscriber)(nil)

// SetFailSubscribe makes subsequent SubscribeProgram calls fail.
func (s *Subscriber) SetFailSubscribe(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSubscribe = fail
}

// SubscribeProgram registers a subscription and returns its channel.
func (s *Subscriber) SubscribeProgram(_ context.Context, program string, filter chain.ProgramFilter) (int64, <-chan chain.AccountNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, nil, chain.ErrConnectionClosed
	}
	if s.failSubscribe {
		return 0, nil, ErrSubscribe
	}

	s.nextID++
	sub := &Subscription{
		ID:      s.nextID,
		Program: program,
		Filter:  filter,
		ch:      make(chan chain.AccountNotification, 100),
	}
	s.subs[sub.ID] = sub
	return sub.ID, sub.ch, nil
}

// Unsubscribe removes a subscription and closes its channel.
func (s *Subscriber) Unsubscribe(_ context.Context, subID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[subID]
	if !ok {
		return fmt.Errorf("unknown subscription %d", subID)
	}
	delete(s.subs, subID)
	close(sub.ch)
	s.unsubscribed = append(s.unsubscribed, subID)
	return nil
}

// Close closes all subscriptions.
func (s *Subscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for id, sub := range s.subs {
		close(sub.ch)
		delete(s.subs, id)
	}
	return nil
}

// Closed reports whether Close was called.
func (s *Subscriber) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Active returns the live subscriptions.
func (s *Subscriber) Active() []Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, *sub)
	}
	return out
}

// Unsubscribed returns the IDs passed to Unsubscribe, in order.
func (s *Subscriber) Unsubscribed() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.unsubscribed...)
}

// Push delivers a notification to every live subscription on program whose
// filter accepts its data. Returns the number of subscriptions that received it.
func (s *Subscriber) Push(program string, n chain.AccountNotification) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	delivered := 0
	for _, sub := range s.subs {
		if sub.Program == program && sub.Filter.Matches(n.Data) {
			sub.ch <- n
			delivered++
		}
	}
	return delivered
}
