package repositories

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/retry"
	"github.com/otakuparshva/ai-recruitment/internal/store"
)

const (
	defaultOperationTimeout = 30 * time.Second
	defaultListLimit        = 100
	maxListLimit            = 1000
)

// EngineOptions configure how every repository operation is executed.
type EngineOptions struct {
	// Policy retries transient failures; its classifier is always store.Classify.
	Policy retry.Policy
	// OperationTimeout bounds each attempt; zero disables the per-attempt deadline.
	OperationTimeout time.Duration
	DefaultLimit     int64
	MaxLimit         int64
	// Now is the clock used for timestamps.
	Now func() time.Time
}

// DefaultEngineOptions: three attempts, exponential backoff from 2s capped at 10s.
func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Policy: retry.Policy{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
			Strategy:    retry.Exponential,
		},
		OperationTimeout: defaultOperationTimeout,
		DefaultLimit:     defaultListLimit,
		MaxLimit:         maxListLimit,
	}
}

// Engine runs store operations: connection check, per-attempt deadline, retry and error classification.
// It is shared by every repository.
type Engine struct {
	conn         store.Connector
	policy       retry.Policy
	opTimeout    time.Duration
	defaultLimit int64
	maxLimit     int64
	now          func() time.Time
	logger       *zap.Logger
	metrics      *store.Metrics
}

// NewEngine creates an engine. metrics may be nil.
func NewEngine(conn store.Connector, opts EngineOptions, logger *zap.Logger, metrics *store.Metrics) *Engine {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = defaultListLimit
	}
	if opts.MaxLimit <= 0 {
		opts.MaxLimit = maxListLimit
	}
	if opts.DefaultLimit > opts.MaxLimit {
		opts.DefaultLimit = opts.MaxLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	policy := opts.Policy
	policy.Classify = store.Classify
	if policy.Logger == nil {
		policy.Logger = logger
	}

	return &Engine{
		conn:         conn,
		policy:       policy,
		opTimeout:    opts.OperationTimeout,
		defaultLimit: opts.DefaultLimit,
		maxLimit:     opts.MaxLimit,
		now:          opts.Now,
		logger:       logger,
		metrics:      metrics,
	}
}

// Now returns the engine clock truncated to the store's millisecond precision.
func (e *Engine) Now() time.Time {
	return e.now().UTC().Truncate(time.Millisecond)
}

// run executes fn against collection. A transient failure anywhere in the attempt,
// including the connection check, restarts the whole attempt.
func (e *Engine) run(ctx context.Context, op, collection string, fn func(ctx context.Context, c store.Collection) error) error {
	start := time.Now()

	policy := e.policy
	policy.Name = collection + "." + op
	policy.OnRetry = func(int, time.Duration, error) {
		e.metrics.ObserveRetry(collection, op)
	}

	err := policy.Do(ctx, func(ctx context.Context) error {
		db, err := e.conn.EnsureConnection(ctx)
		if err != nil {
			return err
		}

		actx, cancel := e.attemptContext(ctx)
		defer cancel()
		return fn(actx, db.Collection(collection))
	})

	err = wrapError(op, collection, err)
	e.metrics.ObserveOp(collection, op, outcome(err), time.Since(start).Seconds())
	if err != nil {
		e.logger.Debug("store operation failed",
			zap.String("collection", collection),
			zap.String("op", op),
			zap.Stringer("kind", domain.KindOf(err)),
			zap.Error(err),
		)
	}
	return err
}

func (e *Engine) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.opTimeout)
}

// wrapError maps driver and retry errors to the domain taxonomy.
func wrapError(op, collection string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case store.IsDuplicateKey(err):
		return domain.NewError(domain.KindConflict, op, collection, err)
	case retry.IsExhausted(err):
		return domain.NewError(domain.KindTransient, op, collection, err)
	default:
		return domain.NewError(domain.KindStore, op, collection, err)
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return domain.KindOf(err).String()
}
