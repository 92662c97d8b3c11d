package listener

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"solana-pool-sniper/internal/discovery"
	"solana-pool-sniper/internal/domain"
)

// Topic is a typed publish/subscribe channel. Handlers run synchronously on the
// publishing goroutine, in subscription order.
type Topic[T any] struct {
	mu       sync.RWMutex
	handlers []func(T)
}

// Subscribe registers fn for every subsequent Publish.
func (t *Topic[T]) Subscribe(fn func(T)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers = append(t.handlers, fn)
}

// Publish delivers v to all handlers.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	handlers := t.handlers
	t.mu.RUnlock()

	for _, fn := range handlers {
		fn(v)
	}
}

// Bus groups the Manager's topics.
type Bus struct {
	Markets      Topic[MarketEvent]
	Pools        Topic[PoolEvent]
	Wallet       Topic[WalletEvent]
	Connected    Topic[ConnectedEvent]
	Disconnected Topic[DisconnectedEvent]
	Reconnecting Topic[ReconnectingEvent]
	Errors       Topic[ErrorEvent]
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{}
}

// MarketEvent is a tradeable OpenBook market quoted in the configured mint.
type MarketEvent struct {
	Account    solana.PublicKey
	Slot       int64
	Market     *discovery.MarketV3
	Data       []byte
	ReceivedAt time.Time
}

// PoolEvent is a tradeable pool holding the quote mint in either slot.
// Protocol is one of pool, cpmm-pool or dlmm-pool.
type PoolEvent struct {
	Protocol   domain.Protocol
	Account    solana.PublicKey
	Slot       int64
	State      discovery.AccountState
	Data       []byte
	ReceivedAt time.Time
}

// WalletEvent is a change to one of the wallet's non-quote token accounts.
type WalletEvent struct {
	Account    solana.PublicKey
	Slot       int64
	Token      *discovery.TokenAccount
	Data       []byte
	ReceivedAt time.Time
}

// ConnectedEvent is published after a full subscription set is live.
type ConnectedEvent struct {
	Subscriptions int
}

// DisconnectedEvent is published when the feed is lost or setup fails.
type DisconnectedEvent struct {
	Err error
}

// ReconnectingEvent is published when a reconnection attempt is scheduled.
type ReconnectingEvent struct {
	Attempt int
	Delay   time.Duration
}

// ErrorEvent reports a Manager error. Fatal errors end reconnection for good.
type ErrorEvent struct {
	Err   error
	Fatal bool
}
