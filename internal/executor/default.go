package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/health"
	"solana-pool-sniper/internal/observability"
)

const (
	// DefaultPollInterval is the signature status polling period.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultMaxHeightFailures bounds consecutive polls without a block height.
	DefaultMaxHeightFailures = 20
)

// Option configures executors.
type Option func(*options)

type options struct {
	simulate          bool
	pollInterval      time.Duration
	maxHeightFailures int
	logger            *zap.Logger
	metrics           *observability.Metrics
	health            *health.Status
}

func defaultOptions() options {
	return options{
		simulate:          true,
		pollInterval:      DefaultPollInterval,
		maxHeightFailures: DefaultMaxHeightFailures,
		logger:            zap.NewNop(),
	}
}

// WithSimulation enables or disables simulate-before-submit.
func WithSimulation(enabled bool) Option {
	return func(o *options) { o.simulate = enabled }
}

// WithPollInterval sets the confirmation polling period.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithMaxHeightFailures sets how many consecutive polls may fail to read the
// block height before confirmation gives up, since expiry can no longer be checked.
func WithMaxHeightFailures(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxHeightFailures = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the Prometheus metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithHealth sets the shared health status.
func WithHealth(s *health.Status) Option {
	return func(o *options) { o.health = s }
}

// DefaultExecutor simulates, submits and polls one backend for confirmation.
type DefaultExecutor struct {
	name    string
	backend Backend
	opts    options
	logger  *zap.Logger
}

var _ Executor = (*DefaultExecutor)(nil)

// NewDefaultExecutor creates an executor named name on backend. Simulation is on by default.
func NewDefaultExecutor(name string, backend Backend, opts ...Option) *DefaultExecutor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &DefaultExecutor{
		name:    name,
		backend: backend,
		opts:    o,
		logger:  o.logger.Named("executor").With(zap.String("executor", name)),
	}
}

// Name implements Executor.
func (e *DefaultExecutor) Name() string {
	return e.name
}

// ExecuteAndConfirm implements Executor. A simulation error returns without submitting.
func (e *DefaultExecutor) ExecuteAndConfirm(ctx context.Context, tx *solana.Transaction, signer solana.PublicKey, blockhash domain.BlockhashWithExpiry) Result {
	start := time.Now()
	res := e.execute(ctx, tx, signer, blockhash)

	e.opts.metrics.RecordExecution(e.name, res.Confirmed, time.Since(start).Seconds())
	e.opts.health.ObserveExecution(e.name, res.Confirmed, res.Err)
	if res.Confirmed {
		e.logger.Info("transaction confirmed",
			zap.String("signature", res.Signature),
			zap.Duration("elapsed", time.Since(start)))
	} else {
		e.logger.Warn("transaction not confirmed",
			zap.String("signature", res.Signature),
			zap.Error(res.Err))
	}
	return res
}

func (e *DefaultExecutor) execute(ctx context.Context, tx *solana.Transaction, signer solana.PublicKey, blockhash domain.BlockhashWithExpiry) Result {
	if tx == nil || len(tx.Message.AccountKeys) == 0 {
		return Result{Err: fmt.Errorf("empty transaction")}
	}
	if !tx.Message.IsSigner(signer) {
		return Result{Err: fmt.Errorf("%w: %s is not a required signer", ErrSignerMismatch, signer)}
	}
	if payer := tx.Message.AccountKeys[0]; !payer.Equals(signer) {
		e.logger.Warn("fee payer differs from signer",
			zap.String("payer", payer.String()),
			zap.String("signer", signer.String()))
	}
	expected := firstSignature(tx)
	if expected == "" {
		return Result{Err: ErrUnsigned}
	}

	if e.opts.simulate {
		sim, err := e.backend.Simulate(ctx, tx)
		if err != nil {
			return Result{Err: fmt.Errorf("simulate: %w", err)}
		}
		if sim.Err != nil {
			return Result{Err: simulationError(sim.Err, sim.Logs)}
		}
	}

	sig, err := e.backend.Send(ctx, tx)
	if err != nil {
		return Result{Err: fmt.Errorf("send: %w", err)}
	}
	if sig == "" {
		sig = expected
	}
	e.logger.Debug("transaction sent", zap.String("signature", sig))

	if err := e.confirm(ctx, sig, blockhash.LastValidBlockHeight); err != nil {
		return Result{Signature: sig, Err: err}
	}
	return Result{Confirmed: true, Signature: sig}
}

// confirm polls until sig is confirmed, fails, the blockhash expires, or the
// block height stays unreadable for maxHeightFailures polls.
func (e *DefaultExecutor) confirm(ctx context.Context, sig string, lastValidBlockHeight uint64) error {
	ticker := time.NewTicker(e.opts.pollInterval)
	defer ticker.Stop()

	heightFailures := 0
	for {
		status, err := e.backend.SignatureStatus(ctx, sig)
		switch {
		case err != nil:
			e.logger.Debug("signature status failed", zap.String("signature", sig), zap.Error(err))
		case status != nil && status.Err != nil:
			return fmt.Errorf("%w: %v", ErrTransactionError, status.Err)
		case status.Confirmed():
			return nil
		}

		height, err := e.backend.BlockHeight(ctx)
		if err != nil {
			heightFailures++
			e.logger.Debug("block height failed", zap.Int("failures", heightFailures), zap.Error(err))
			if heightFailures >= e.opts.maxHeightFailures {
				return fmt.Errorf("%w: block height unavailable %d times: %v", ErrExpiryUnknown, heightFailures, err)
			}
		} else {
			heightFailures = 0
			if height > lastValidBlockHeight {
				return fmt.Errorf("%w: height %d > %d", ErrBlockhashExpired, height, lastValidBlockHeight)
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("confirm %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

// simulationError describes a failed simulation with its last program log.
func simulationError(simErr interface{}, logs []string) error {
	var last string
	for i := len(logs) - 1; i >= 0; i-- {
		if strings.TrimSpace(logs[i]) != "" {
			last = logs[i]
			break
		}
	}
	if last == "" {
		return fmt.Errorf("%w: %v", ErrSimulationFailed, simErr)
	}
	return fmt.Errorf("%w: %v (%s)", ErrSimulationFailed, simErr, last)
}
