package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"solana-pool-sniper/internal/domain"
	"solana-pool-sniper/internal/health"
	"solana-pool-sniper/internal/observability"
)

// ChainError is returned when both legs of a FallbackExecutor fail.
type ChainError struct {
	Primary     string
	PrimaryErr  error
	Fallback    string
	FallbackErr error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("primary executor %s failed: %v; fallback executor %s failed: %v",
		e.Primary, errString(e.PrimaryErr), e.Fallback, errString(e.FallbackErr))
}

// Unwrap lets errors.Is match either leg.
func (e *ChainError) Unwrap() []error {
	var errs []error
	if e.PrimaryErr != nil {
		errs = append(errs, e.PrimaryErr)
	}
	if e.FallbackErr != nil {
		errs = append(errs, e.FallbackErr)
	}
	return errs
}

func errString(err error) string {
	if err == nil {
		return "not confirmed"
	}
	return err.Error()
}

// FallbackExecutor tries primary, then fallback with the same transaction and
// blockhash. Either leg may itself be a FallbackExecutor.
type FallbackExecutor struct {
	primary  Executor
	fallback Executor
	logger   *zap.Logger
	metrics  *observability.Metrics
	health   *health.Status
}

var _ Executor = (*FallbackExecutor)(nil)

// NewFallbackExecutor composes primary and fallback.
// Only the logger, metrics and health options apply.
func NewFallbackExecutor(primary, fallback Executor, opts ...Option) *FallbackExecutor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	f := &FallbackExecutor{
		primary:  primary,
		fallback: fallback,
		metrics:  o.metrics,
		health:   o.health,
	}
	f.logger = o.logger.Named("executor").With(zap.String("executor", f.Name()))
	return f
}

// Chain folds executors into nested fallbacks, tried in order.
func Chain(executors []Executor, opts ...Option) (Executor, error) {
	if len(executors) == 0 {
		return nil, errors.New("executor chain is empty")
	}
	out := executors[0]
	for _, next := range executors[1:] {
		out = NewFallbackExecutor(out, next, opts...)
	}
	return out, nil
}

// Name implements Executor.
func (f *FallbackExecutor) Name() string {
	return f.primary.Name() + ">" + f.fallback.Name()
}

// ExecuteAndConfirm implements Executor. A fallback failure saying the
// transaction was already processed counts as confirmation of the primary send.
func (f *FallbackExecutor) ExecuteAndConfirm(ctx context.Context, tx *solana.Transaction, signer solana.PublicKey, blockhash domain.BlockhashWithExpiry) Result {
	start := time.Now()
	res := f.execute(ctx, tx, signer, blockhash)
	f.metrics.RecordExecution(f.Name(), res.Confirmed, time.Since(start).Seconds())
	f.health.ObserveExecution(f.Name(), res.Confirmed, res.Err)
	return res
}

func (f *FallbackExecutor) execute(ctx context.Context, tx *solana.Transaction, signer solana.PublicKey, blockhash domain.BlockhashWithExpiry) Result {
	p := f.primary.ExecuteAndConfirm(ctx, tx, signer, blockhash)
	if p.Confirmed {
		return p
	}

	f.logger.Warn("primary failed, trying fallback",
		zap.String("primary", f.primary.Name()),
		zap.String("fallback", f.fallback.Name()),
		zap.Error(p.Err))

	fb := f.fallback.ExecuteAndConfirm(ctx, tx, signer, blockhash)
	if fb.Confirmed {
		return fb
	}

	if IsAlreadyProcessed(fb.Err) {
		sig := firstNonEmpty(fb.Signature, p.Signature, firstSignature(tx))
		f.logger.Info("fallback reports already processed, treating as confirmed", zap.String("signature", sig))
		return Result{Confirmed: true, Signature: sig}
	}

	return Result{
		Signature: firstNonEmpty(fb.Signature, p.Signature),
		Err: &ChainError{
			Primary:     f.primary.Name(),
			PrimaryErr:  p.Err,
			Fallback:    f.fallback.Name(),
			FallbackErr: fb.Err,
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
