// Package listener keeps the program-subscription feed alive and turns account
// notifications into typed events.
package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solana-pool-sniper/internal/chain"
	"solana-pool-sniper/internal/discovery"
	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/health"
	"solana-pool-sniper/internal/observability"
)

var (
	// ErrStopped is returned by operations on a stopped Manager.
	ErrStopped = errors.New("listener stopped")

	// ErrReconnectExhausted is carried by the fatal error event once the retry budget is spent.
	ErrReconnectExhausted = errors.New("reconnection attempts exhausted")

	// errSuperseded means the client was replaced while setup was running.
	errSuperseded = errors.New("connection replaced during setup")
)

// Default reconnection settings.
const (
	DefaultMaxAttempts   = 10
	DefaultBaseDelay     = 1 * time.Second
	DefaultMaxDelay      = 60 * time.Second
	DefaultStatsInterval = 1 * time.Minute
	DefaultSetupTimeout  = 30 * time.Second
)

// Config configures a Manager.
type Config struct {
	Watch discovery.WatchConfig

	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	StatsInterval time.Duration // zero disables stats logging
	SetupTimeout  time.Duration
}

// DefaultConfig returns a Config with default reconnection tuning and no watches enabled.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:   DefaultMaxAttempts,
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		StatsInterval: DefaultStatsInterval,
		SetupTimeout:  DefaultSetupTimeout,
	}
}

// Dialer opens a new subscription client. onDisconnect must be called at most
// once, when the connection is lost without Close being called.
type Dialer func(ctx context.Context, onDisconnect func(error)) (chain.AccountSubscriber, error)

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithHealth sets the shared health status.
func WithHealth(status *health.Status) Option {
	return func(m *Manager) {
		m.health = status
	}
}

// WithFatalHandler sets the hook called once when reconnection is exhausted.
// The Manager never exits the process itself.
func WithFatalHandler(fn func(error)) Option {
	return func(m *Manager) {
		m.onFatal = fn
	}
}

type activeSub struct {
	watch discovery.Watch
	id    int64
}

// Manager owns the live subscription set and its reconnection state.
// It is safe for concurrent use.
type Manager struct {
	cfg       Config
	dial      Dialer
	bus       *Bus
	logger    *zap.Logger
	metrics   *observability.Metrics
	health    *health.Status
	onFatal   func(error)
	afterFunc afterFunc
	now       func() time.Time

	stats map[domain.Protocol]*discovery.Stats

	// setupMu serializes setup so at most one attempt is in flight.
	setupMu sync.Mutex

	mu           sync.Mutex
	client       chain.AccountSubscriber
	generation   uint64
	subs         []activeSub
	attempts     int
	connected    bool
	reconnecting bool
	exhausted    bool
	started      bool
	stopped      bool
	timer        timer
	timerSeq     uint64
	statsDone    chan struct{}
}

// NewManager creates a Manager. Nothing is dialed until Start.
func NewManager(cfg Config, dial Dialer, bus *Bus, opts ...Option) *Manager {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.SetupTimeout <= 0 {
		cfg.SetupTimeout = def.SetupTimeout
	}
	if bus == nil {
		bus = NewBus()
	}

	m := &Manager{
		cfg:       cfg,
		dial:      dial,
		bus:       bus,
		logger:    zap.NewNop(),
		afterFunc: realAfterFunc,
		now:       time.Now,
		stats:     make(map[domain.Protocol]*discovery.Stats),
		statsDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("listener")

	for _, w := range discovery.Watches(cfg.Watch) {
		m.stats[w.Protocol] = &discovery.Stats{}
	}
	return m
}

// Bus returns the event bus.
func (m *Manager) Bus() *Bus {
	return m.bus
}

// Start opens every enabled subscription and starts stats reporting.
// Failures are routed into reconnection handling, never returned.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.stopped || m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	if m.cfg.StatsInterval > 0 {
		go m.statsLoop(m.cfg.StatsInterval)
	}

	if err := m.SetupSubscriptions(); err != nil {
		m.logger.Warn("initial subscription setup failed", zap.Error(err))
	}
}

// SetupSubscriptions tears down any existing subscriptions and creates one per
// enabled watch, dialing a new client if needed. On failure the error is routed
// into HandleDisconnection and also returned.
func (m *Manager) SetupSubscriptions() error {
	err := m.setup()
	if err != nil && !errors.Is(err, ErrStopped) {
		m.HandleDisconnection(err)
	}
	return err
}

func (m *Manager) setup() error {
	m.setupMu.Lock()
	defer m.setupMu.Unlock()

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	client := m.client
	old := m.subs
	m.subs = nil
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SetupTimeout)
	defer cancel()

	// The transport may already be gone, so teardown errors are ignored.
	if client != nil {
		for _, s := range old {
			if err := client.Unsubscribe(ctx, s.id); err != nil {
				m.logger.Debug("unsubscribe failed",
					zap.String("protocol", string(s.watch.Protocol)),
					zap.Int64("subscription", s.id),
					zap.Error(err))
			}
		}
	}

	if client == nil {
		m.mu.Lock()
		m.generation++
		gen := m.generation
		m.mu.Unlock()

		c, err := m.dial(ctx, m.disconnectHook(gen))
		if err != nil {
			return fmt.Errorf("dial: %w", err)
		}

		m.mu.Lock()
		if m.stopped || m.generation != gen {
			m.mu.Unlock()
			c.Close()
			if m.isStopped() {
				return ErrStopped
			}
			return errSuperseded
		}
		m.client = c
		m.mu.Unlock()
		client = c
	}

	subs := make([]activeSub, 0, len(m.stats))
	for _, w := range discovery.Watches(m.cfg.Watch) {
		id, ch, err := client.SubscribeProgram(ctx, w.Program.String(), w.Filter)
		if err != nil {
			m.unsubscribeAll(ctx, client, subs)
			m.dropClient(client)
			return fmt.Errorf("subscribe %s: %w", w.Protocol, err)
		}
		subs = append(subs, activeSub{watch: w, id: id})
		go m.consume(w, ch)
	}

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		m.unsubscribeAll(ctx, client, subs)
		return ErrStopped
	}
	if m.client != client {
		m.mu.Unlock()
		m.unsubscribeAll(ctx, client, subs)
		return errSuperseded
	}
	m.subs = subs
	m.connected = true
	m.attempts = 0
	m.reconnecting = false
	m.exhausted = false
	m.stopTimerLocked()
	m.mu.Unlock()

	m.health.SetConnected(true, 0)
	m.metrics.SetConnected(true, len(subs))
	m.logger.Info("subscriptions established", zap.Int("subscriptions", len(subs)))
	m.bus.Connected.Publish(ConnectedEvent{Subscriptions: len(subs)})
	return nil
}

// HandleDisconnection marks the Manager disconnected, publishes a
// disconnected event and schedules reconnection.
func (m *Manager) HandleDisconnection(err error) {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.connected = false
	attempts := m.attempts
	m.mu.Unlock()

	m.health.SetConnected(false, attempts)
	m.metrics.SetConnected(false, 0)
	m.logger.Warn("disconnected", zap.Error(err))
	m.bus.Disconnected.Publish(DisconnectedEvent{Err: err})
	m.ScheduleReconnection()
}

// ScheduleReconnection arms the backoff timer for the next attempt. It is a
// no-op while stopped, already reconnecting or after exhaustion. Exceeding
// MaxAttempts publishes a fatal error event and calls the fatal handler.
func (m *Manager) ScheduleReconnection() {
	m.mu.Lock()
	if m.stopped || m.reconnecting || m.exhausted {
		m.mu.Unlock()
		return
	}
	m.attempts++
	attempt := m.attempts

	if attempt > m.cfg.MaxAttempts {
		m.exhausted = true
		m.stopTimerLocked()
		m.mu.Unlock()

		err := fmt.Errorf("%w after %d attempts", ErrReconnectExhausted, m.cfg.MaxAttempts)
		m.logger.Error("giving up on reconnection", zap.Error(err))
		m.health.SetFatal(err)
		m.bus.Errors.Publish(ErrorEvent{Err: err, Fatal: true})
		if m.onFatal != nil {
			m.onFatal(err)
		}
		return
	}

	delay := Backoff(attempt, m.cfg.BaseDelay, m.cfg.MaxDelay)
	m.reconnecting = true
	m.stopTimerLocked()
	seq := m.timerSeq
	m.timer = m.afterFunc(delay, func() { m.attemptReconnection(seq) })
	m.mu.Unlock()

	m.health.SetConnected(false, attempt)
	m.metrics.RecordReconnect(attempt)
	m.logger.Info("reconnection scheduled",
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", m.cfg.MaxAttempts),
		zap.Duration("delay", delay))
	m.bus.Reconnecting.Publish(ReconnectingEvent{Attempt: attempt, Delay: delay})
}

// attemptReconnection is the timer callback. A callback whose timer was
// cancelled or replaced after it fired is a no-op.
func (m *Manager) attemptReconnection(seq uint64) {
	m.mu.Lock()
	if m.stopped || seq != m.timerSeq {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	m.timerSeq++
	m.mu.Unlock()

	err := m.setup()
	if err == nil || errors.Is(err, ErrStopped) {
		return
	}

	m.logger.Warn("reconnection attempt failed", zap.Error(err))

	m.mu.Lock()
	m.reconnecting = false
	m.connected = false
	m.mu.Unlock()

	m.bus.Errors.Publish(ErrorEvent{Err: err})
	m.ScheduleReconnection()
}

// ForceReconnect resets the attempt counter, drops the current client and
// retries immediately, bypassing backoff.
func (m *Manager) ForceReconnect() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.attempts = 0
	m.reconnecting = false
	m.exhausted = false
	m.stopTimerLocked()
	client := m.client
	m.client = nil
	m.subs = nil
	m.connected = false
	m.generation++
	m.mu.Unlock()

	m.logger.Info("forced reconnect")
	if client != nil {
		client.Close()
	}
	m.SetupSubscriptions()
}

// Stop tears down every subscription, cancels any pending timer and closes the
// client. It waits for an in-flight setup to finish. Stop is terminal and
// idempotent; all later calls on the Manager are no-ops.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.stopTimerLocked()
	close(m.statsDone)
	m.mu.Unlock()

	m.setupMu.Lock()
	defer m.setupMu.Unlock()

	m.mu.Lock()
	client := m.client
	subs := m.subs
	m.client = nil
	m.subs = nil
	m.connected = false
	m.reconnecting = false
	m.generation++
	m.stopTimerLocked()
	m.mu.Unlock()

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SetupTimeout)
		m.unsubscribeAll(ctx, client, subs)
		cancel()
		client.Close()
	}

	m.health.SetConnected(false, 0)
	m.metrics.SetConnected(false, 0)
	m.logger.Info("listener stopped")
}

// Connected reports whether a full subscription set is live.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Attempts returns the current reconnection attempt count.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Subscriptions returns the distinct protocols of the live subscription set.
func (m *Manager) Subscriptions() []domain.Protocol {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.Protocol, 0, len(m.subs))
	for _, s := range m.subs {
		if len(out) == 0 || out[len(out)-1] != s.watch.Protocol {
			out = append(out, s.watch.Protocol)
		}
	}
	return out
}

// pendingTimer reports whether a reconnection timer is armed.
func (m *Manager) pendingTimer() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.timer != nil
}

func (m *Manager) isStopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// stopTimerLocked cancels the pending timer and invalidates its callback if it
// already fired. Callers hold m.mu.
func (m *Manager) stopTimerLocked() {
	m.timerSeq++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// disconnectHook returns the transport callback for connection generation gen.
// Hooks from replaced connections are ignored.
func (m *Manager) disconnectHook(gen uint64) func(error) {
	return func(err error) {
		m.mu.Lock()
		if m.stopped || m.generation != gen {
			m.mu.Unlock()
			return
		}
		client := m.client
		m.client = nil
		m.subs = nil
		m.generation++
		m.mu.Unlock()

		if client != nil {
			client.Close()
		}
		m.HandleDisconnection(fmt.Errorf("connection lost: %w", err))
	}
}

// dropClient closes client if it is still current.
func (m *Manager) dropClient(client chain.AccountSubscriber) {
	m.mu.Lock()
	if m.client != client {
		m.mu.Unlock()
		return
	}
	m.client = nil
	m.generation++
	m.mu.Unlock()

	client.Close()
}

func (m *Manager) unsubscribeAll(ctx context.Context, client chain.AccountSubscriber, subs []activeSub) {
	for _, s := range subs {
		if err := client.Unsubscribe(ctx, s.id); err != nil {
			m.logger.Debug("unsubscribe failed",
				zap.String("protocol", string(s.watch.Protocol)),
				zap.Int64("subscription", s.id),
				zap.Error(err))
		}
	}
}

// consume handles one subscription's notifications until its channel closes.
func (m *Manager) consume(w discovery.Watch, ch <-chan chain.AccountNotification) {
	for n := range ch {
		m.handleNotification(w, n)
	}
}

func (m *Manager) handleNotification(w discovery.Watch, n chain.AccountNotification) {
	if m.isStopped() {
		return
	}

	account, err := solana.PublicKeyFromBase58(n.Pubkey)
	if err != nil {
		m.observe(w.Protocol, discovery.OutcomeDecodeError)
		m.logger.Debug("bad account key", zap.String("protocol", string(w.Protocol)), zap.String("pubkey", n.Pubkey))
		return
	}
	quote := m.cfg.Watch.QuoteMint
	receivedAt := m.now()

	if w.Protocol == domain.ProtocolWallet {
		token, outcome, err := discovery.EvaluateWallet(n.Data, quote)
		m.observe(w.Protocol, outcome)
		if outcome == discovery.OutcomeDecodeError {
			m.logDecodeError(w.Protocol, n, err)
		}
		if outcome != discovery.OutcomeEmitted {
			return
		}
		m.metrics.RecordPublished("wallet")
		m.bus.Wallet.Publish(WalletEvent{
			Account:    account,
			Slot:       n.Slot,
			Token:      token,
			Data:       n.Data,
			ReceivedAt: receivedAt,
		})
		return
	}

	state, outcome, err := discovery.Evaluate(w, n.Data, quote)
	m.observe(w.Protocol, outcome)
	switch outcome {
	case discovery.OutcomeDecodeError:
		m.logDecodeError(w.Protocol, n, err)
		return
	case discovery.OutcomeEmitted:
	default:
		return
	}

	m.health.ObserveEvent(string(w.Protocol))
	if w.Protocol.IsPool() {
		m.metrics.RecordPublished("pools")
		m.bus.Pools.Publish(PoolEvent{
			Protocol:   w.Protocol,
			Account:    account,
			Slot:       n.Slot,
			State:      state,
			Data:       n.Data,
			ReceivedAt: receivedAt,
		})
		return
	}

	market, ok := state.(*discovery.MarketV3)
	if !ok {
		return
	}
	m.metrics.RecordPublished("markets")
	m.bus.Markets.Publish(MarketEvent{
		Account:    account,
		Slot:       n.Slot,
		Market:     market,
		Data:       n.Data,
		ReceivedAt: receivedAt,
	})
}

func (m *Manager) observe(protocol domain.Protocol, outcome discovery.Outcome) {
	if s, ok := m.stats[protocol]; ok {
		s.Observe(outcome)
	}
	m.metrics.RecordNotification(string(protocol), outcome.String())
}

func (m *Manager) logDecodeError(protocol domain.Protocol, n chain.AccountNotification, err error) {
	m.logger.Debug("decode failed",
		zap.String("protocol", string(protocol)),
		zap.String("account", n.Pubkey),
		zap.Int("bytes", len(n.Data)),
		zap.Error(err))
}

func (m *Manager) statsLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.statsDone:
			return
		case <-ticker.C:
			m.reportStats()
		}
	}
}

// reportStats logs and resets the rolling per-protocol counters.
func (m *Manager) reportStats() {
	for _, p := range domain.AllProtocols() {
		s, ok := m.stats[p]
		if !ok {
			continue
		}
		c := s.Reset()
		m.logger.Info("subscription stats",
			zap.String("protocol", string(p)),
			zap.Uint64("notifications", c.Notifications),
			zap.Uint64("decode_errors", c.DecodeErrors),
			zap.Uint64("no_quote", c.NoQuote),
			zap.Uint64("not_tradeable", c.NotTradeable),
			zap.Uint64("ignored", c.Ignored),
			zap.Uint64("emitted", c.Emitted))
	}
}
