package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
	"github.com/otakuparshva/ai-recruitment/internal/retry"
)

const (
	defaultPingTimeout       = 5 * time.Second
	defaultDisconnectTimeout = 5 * time.Second
)

// ErrClosed is returned once the manager has been closed.
var ErrClosed = errors.New("connection manager closed")

// Options configure the connection manager. They are fixed at construction.
type Options struct {
	Dial        DialOptions
	Database    string
	PingTimeout time.Duration
	// Connect governs establishment attempts; every failure is retried until the budget is spent.
	Connect retry.Policy
}

// DefaultOptions mirror the production deployment: five attempts, 2s linear steps.
func DefaultOptions(uri, database string) Options {
	return Options{
		Dial: DialOptions{
			URI:                    uri,
			AppName:                "recruitment-system",
			ConnectTimeout:         5 * time.Second,
			SocketTimeout:          30 * time.Second,
			ServerSelectionTimeout: 5 * time.Second,
			HeartbeatInterval:      10 * time.Second,
		},
		Database:    database,
		PingTimeout: defaultPingTimeout,
		Connect: retry.Policy{
			MaxAttempts: 5,
			BaseDelay:   2 * time.Second,
			Strategy:    retry.Linear,
		},
	}
}

type conn struct {
	client Client
	db     Database
}

// Manager owns the single shared connection of the process.
//
// Steady-state callers read the live handle without locking. Establishing or replacing
// the handle happens under mu, and concurrent reconnect triggers are collapsed into one.
type Manager struct {
	dialer  Dialer
	opts    Options
	logger  *zap.Logger
	metrics *Metrics

	current atomic.Pointer[conn]
	mu      sync.Mutex
	group   singleflight.Group
	closed  atomic.Bool

	// life is cancelled by Close and bounds reconnects shared between callers.
	life     context.Context
	stopLife context.CancelFunc

	failures   atomic.Int64
	reconnects atomic.Int64
	health     atomic.Value // domain.HealthStatus
}

// NewManager creates a manager. No connection is made until Connect or the first EnsureConnection.
func NewManager(dialer Dialer, opts Options, logger *zap.Logger, metrics *Metrics) *Manager {
	if opts.PingTimeout <= 0 {
		opts.PingTimeout = defaultPingTimeout
	}
	if opts.Connect.Name == "" {
		opts.Connect.Name = "connect"
	}
	if opts.Connect.Logger == nil {
		opts.Connect.Logger = logger
	}
	opts.Connect.Classify = retry.AlwaysTransient

	life, stop := context.WithCancel(context.Background())
	m := &Manager{
		dialer:   dialer,
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		life:     life,
		stopLife: stop,
	}
	m.health.Store(domain.HealthStatus{LastCheck: time.Now()})
	return m
}

// Connect establishes the connection, retrying per the connect policy.
// A spent budget yields a domain error of KindConnectionFatal.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx)
}

func (m *Manager) connectLocked(ctx context.Context) error {
	if m.closed.Load() {
		return domain.NewError(domain.KindStore, "connect", "", ErrClosed)
	}

	attempt := 0
	err := m.opts.Connect.Do(ctx, func(ctx context.Context) error {
		attempt++
		m.logger.Info("connecting to document store",
			zap.Int("attempt", attempt),
			zap.String("database", m.opts.Database),
		)

		c, err := m.dial(ctx)
		if err != nil {
			m.metrics.connectAttempt(false)
			m.failures.Add(1)
			m.setHealth(false, err)
			return err
		}

		m.metrics.connectAttempt(true)
		if old := m.current.Swap(c); old != nil {
			m.disconnect(old)
		}
		m.failures.Store(0)
		m.setHealth(true, nil)
		m.logger.Info("connected to document store",
			zap.Int("attempt", attempt),
			zap.String("database", m.opts.Database),
		)
		return nil
	})
	if err == nil {
		return nil
	}

	if retry.IsExhausted(err) {
		m.logger.Error("document store unreachable", zap.Int("attempts", attempt), zap.Error(err))
		return domain.NewError(domain.KindConnectionFatal, "connect", "", err)
	}
	return fmt.Errorf("connect: %w", err)
}

// dial opens a client and verifies it with a ping before it is published.
func (m *Manager) dial(ctx context.Context) (*conn, error) {
	dctx, cancel := withTimeout(ctx, m.opts.Dial.ConnectTimeout)
	defer cancel()

	client, err := m.dialer.Dial(dctx, m.opts.Dial)
	if err != nil {
		return nil, err
	}

	pctx, cancelPing := withTimeout(ctx, m.opts.PingTimeout)
	defer cancelPing()
	if err := client.Ping(pctx); err != nil {
		m.disconnect(&conn{client: client})
		return nil, fmt.Errorf("liveness ping: %w", err)
	}

	return &conn{client: client, db: client.Database(m.opts.Database)}, nil
}

// EnsureConnection returns a live database handle, reconnecting when the ping fails.
//
// Concurrent callers share one reconnect. It runs detached from any single caller's
// cancellation, bounded by the connect policy and by Close; each caller stops waiting
// when its own context ends.
func (m *Manager) EnsureConnection(ctx context.Context) (Database, error) {
	if m.closed.Load() {
		return nil, domain.NewError(domain.KindStore, "ensure connection", "", ErrClosed)
	}

	c := m.current.Load()
	if c != nil {
		err := m.ping(ctx, c)
		if err == nil {
			return c.db, nil
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ensure connection: %w", ctx.Err())
		}
		m.logger.Warn("liveness ping failed, reconnecting", zap.Error(err))
	}

	ch := m.group.DoChan("reconnect", func() (any, error) {
		rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		defer cancel()
		stop := context.AfterFunc(m.life, cancel)
		defer stop()
		return m.reconnect(rctx, c)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("ensure connection: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*conn).db, nil
	}
}

// reconnect replaces stale unless another caller already published a live handle.
func (m *Manager) reconnect(ctx context.Context, stale *conn) (*conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return nil, domain.NewError(domain.KindStore, "ensure connection", "", ErrClosed)
	}
	if cur := m.current.Load(); cur != nil && cur != stale {
		if m.ping(ctx, cur) == nil {
			return cur, nil
		}
	}
	if stale != nil {
		m.reconnects.Add(1)
		m.metrics.reconnected()
	}
	if err := m.connectLocked(ctx); err != nil {
		if m.closed.Load() {
			return nil, domain.NewError(domain.KindStore, "ensure connection", "", ErrClosed)
		}
		return nil, err
	}
	return m.current.Load(), nil
}

// CheckConnection pings the current handle without reconnecting.
func (m *Manager) CheckConnection(ctx context.Context) error {
	if m.closed.Load() {
		return domain.NewError(domain.KindStore, "check connection", "", ErrClosed)
	}
	c := m.current.Load()
	if c == nil {
		err := errors.New("not connected")
		m.setHealth(false, err)
		return domain.NewError(domain.KindTransient, "check connection", "", err)
	}
	if err := m.ping(ctx, c); err != nil {
		return domain.NewError(domain.KindTransient, "check connection", "", err)
	}
	return nil
}

func (m *Manager) ping(ctx context.Context, c *conn) error {
	pctx, cancel := withTimeout(ctx, m.opts.PingTimeout)
	defer cancel()

	if err := c.client.Ping(pctx); err != nil {
		m.failures.Add(1)
		m.setHealth(false, err)
		return err
	}
	m.failures.Store(0)
	m.setHealth(true, nil)
	return nil
}

// Close releases the connection. Calling it again is a no-op.
func (m *Manager) Close(ctx context.Context) error {
	m.closed.Store(true)
	m.stopLife()

	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.current.Swap(nil)
	if c == nil {
		return nil
	}

	m.setHealth(false, ErrClosed)
	if err := c.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	m.logger.Info("document store connection closed")
	return nil
}

// Health returns the last recorded status without touching the network.
func (m *Manager) Health() domain.HealthStatus {
	status, _ := m.health.Load().(domain.HealthStatus)
	return status
}

// Database is the configured database name.
func (m *Manager) Database() string {
	return m.opts.Database
}

func (m *Manager) setHealth(healthy bool, err error) {
	status := domain.HealthStatus{
		Healthy:             healthy,
		LastCheck:           time.Now(),
		ConsecutiveFailures: m.failures.Load(),
		Reconnects:          m.reconnects.Load(),
	}
	if err != nil {
		status.LastError = err.Error()
	}
	m.health.Store(status)
	m.metrics.setUp(healthy)
}

func (m *Manager) disconnect(c *conn) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultDisconnectTimeout)
	defer cancel()
	if err := c.client.Disconnect(ctx); err != nil {
		m.logger.Debug("disconnect of replaced client failed", zap.Error(err))
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
