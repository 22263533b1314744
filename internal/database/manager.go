package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// State mirrors the driver-agnostic connection states reported by /health.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateConnecting
	StateDisconnecting
)

var stateNames = [...]string{"Disconnected", "Connected", "Connecting", "Disconnecting"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "Unknown"
}

// ErrClosed is returned by Acquire after Close.
var ErrClosed = errors.New("connection manager closed")

// Conn is one established database connection.
type Conn interface {
	Ping(ctx context.Context) error
	Database(name string) *mongo.Database
	State() State
	Disconnect(ctx context.Context) error
}

// Hooks receive asynchronous lifecycle events for a single connection.
type Hooks struct {
	OnError        func(err error)
	OnDisconnected func()
}

// Options bound the resources a connection may hold.
type Options struct {
	URI                    string
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
	MaxPoolSize            uint64
	// RetireGrace delays disconnecting a replaced connection so queries that
	// already hold it can finish. Zero means defaultRetireGrace.
	RetireGrace time.Duration
}

const (
	defaultRetireGrace = 30 * time.Second
	defaultDialTimeout = 30 * time.Second
)

// Dialer opens connections. MongoDialer is the production implementation.
type Dialer interface {
	Dial(ctx context.Context, opts Options, hooks Hooks) (Conn, error)
}

// Manager caches a single connection and reuses it across requests. The
// cache is dropped only by the connection's own error/disconnect events (or
// Close); the next Acquire then dials again.
type Manager struct {
	dialer Dialer
	opts   Options
	dbName string
	logger *zap.Logger

	group singleflight.Group

	mu         sync.RWMutex
	conn       Conn
	generation uint64
	closed     bool
	retiring   map[Conn]*time.Timer
}

func NewManager(dialer Dialer, opts Options, dbName string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RetireGrace <= 0 {
		opts.RetireGrace = defaultRetireGrace
	}
	return &Manager{
		dialer:   dialer,
		opts:     opts,
		dbName:   dbName,
		logger:   logger.With(zap.String("module", "database")),
		retiring: make(map[Conn]*time.Timer),
	}
}

type acquired struct {
	conn   Conn
	cached bool
}

// Acquire returns the cached connection when it is ready, otherwise dials a
// new one. cached reports whether the cache was warm for this call.
// Concurrent cold calls share a single dial. The dial is detached from the
// caller's cancellation, so one caller giving up does not fail the others;
// it is bounded by the server selection timeout instead.
func (m *Manager) Acquire(ctx context.Context) (Conn, bool, error) {
	if conn, ok := m.ready(); ok {
		m.logger.Debug("Using cached database connection")
		return conn, true, nil
	}

	ch := m.group.DoChan("connect", func() (interface{}, error) {
		dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.dialTimeout())
		defer cancel()
		return m.connect(dialCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		a := res.Val.(acquired)
		return a.conn, a.cached, nil
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

func (m *Manager) dialTimeout() time.Duration {
	if m.opts.ServerSelectionTimeout > 0 {
		// Connect and the initial ping each select a server.
		return 2*m.opts.ServerSelectionTimeout + time.Second
	}
	return defaultDialTimeout
}

// Database resolves the configured database on a ready connection.
func (m *Manager) Database(ctx context.Context) (*mongo.Database, error) {
	conn, _, err := m.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn.Database(m.dbName), nil
}

// State reports the state of the cached connection, Disconnected when none.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn == nil {
		return StateDisconnected
	}
	return m.conn.State()
}

// Close disconnects the cached connection and any connection still inside
// its retire grace period. Later Acquire calls fail.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.generation++
	m.closed = true
	retiring := m.retiring
	m.retiring = make(map[Conn]*time.Timer)
	m.mu.Unlock()

	var errs []error
	for old, timer := range retiring {
		if timer.Stop() {
			errs = append(errs, old.Disconnect(ctx))
		}
	}
	if conn != nil {
		errs = append(errs, conn.Disconnect(ctx))
	}
	return errors.Join(errs...)
}

func (m *Manager) ready() (Conn, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.conn != nil && m.conn.State() == StateConnected {
		return m.conn, true
	}
	return nil, false
}

func (m *Manager) connect(ctx context.Context) (acquired, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return acquired{}, ErrClosed
	}
	// Another caller may have finished connecting between ready() and Do.
	if m.conn != nil && m.conn.State() == StateConnected {
		conn := m.conn
		m.mu.Unlock()
		return acquired{conn: conn, cached: true}, nil
	}
	stale := m.conn
	m.conn = nil
	m.generation++
	gen := m.generation
	m.mu.Unlock()

	if stale != nil {
		m.retire(stale)
	}

	m.logger.Info("Creating new database connection")
	conn, err := m.dialer.Dial(ctx, m.opts, m.hooksFor(gen))
	if err != nil {
		m.logger.Error("MongoDB connection error", zap.Error(err))
		return acquired{}, fmt.Errorf("connect to mongodb: %w", err)
	}

	m.mu.Lock()
	if m.generation != gen {
		// Closed while dialing.
		m.mu.Unlock()
		m.retire(conn)
		return acquired{}, ErrClosed
	}
	m.conn = conn
	m.mu.Unlock()

	m.logger.Info("Connected to MongoDB")
	return acquired{conn: conn}, nil
}

func (m *Manager) hooksFor(gen uint64) Hooks {
	return Hooks{
		OnError: func(err error) {
			m.logger.Error("MongoDB connection error", zap.Error(err))
			m.invalidate(gen)
		},
		OnDisconnected: func() {
			m.logger.Warn("MongoDB disconnected")
			m.invalidate(gen)
		},
	}
}

// invalidate drops the cache if it still holds the connection of generation gen.
func (m *Manager) invalidate(gen uint64) {
	m.mu.Lock()
	if m.generation != gen || m.conn == nil {
		m.mu.Unlock()
		return
	}
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()

	m.retire(conn)
}

// retire disconnects a connection that is no longer cached once its grace
// period has passed. Requests that resolved a *mongo.Database from it before
// the swap keep working until then. Never blocks the caller, which may be a
// driver monitor goroutine.
func (m *Manager) retire(conn Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		go m.disconnect(conn)
		return
	}
	if _, ok := m.retiring[conn]; ok {
		return
	}
	m.retiring[conn] = time.AfterFunc(m.opts.RetireGrace, func() {
		m.mu.Lock()
		delete(m.retiring, conn)
		m.mu.Unlock()
		m.disconnect(conn)
	})
}

func (m *Manager) disconnect(conn Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.Disconnect(ctx); err != nil {
		m.logger.Debug("retiring stale connection", zap.Error(err))
	}
}
