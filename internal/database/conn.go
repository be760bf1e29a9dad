package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// handleDrainDelay is how long a handle replaced by a reconnect stays open
// for queries that already hold it.
var handleDrainDelay = 30 * time.Second

// ErrUnavailable is returned when no usable connection could be established.
var ErrUnavailable = errors.New("database unavailable")

// ErrClosed is returned by Connect after Close.
var ErrClosed = errors.New("database connection closed")

// State is the lifecycle state of a Conn.
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Options configures a Conn.
type Options struct {
	Path           string
	ReconnectDelay time.Duration
}

// Conn owns the process-wide database handle and its reconnect policy.
// It is safe for concurrent use.
type Conn struct {
	opts  Options
	state atomic.Int32

	mu      sync.Mutex // guards db, retired, timer and closed
	db      *sql.DB
	retired map[*sql.DB]*time.Timer
	timer   *time.Timer
	closed  bool
}

// NewConn creates a Conn in the Disconnected state.
func NewConn(opts Options) *Conn {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	return &Conn{opts: opts}
}

// Open creates a Conn and connects it eagerly.
func Open(ctx context.Context, opts Options) (*Conn, error) {
	c := NewConn(opts)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Connect establishes the handle if it is not already connected.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.State() == Connected {
		return nil
	}

	c.state.Store(int32(Connecting))
	db, err := openDB(ctx, c.opts.Path)
	if err != nil {
		c.state.Store(int32(Disconnected))
		return fmt.Errorf("connect to %s: %w", c.opts.Path, err)
	}

	if c.db != nil {
		c.retireLocked(c.db)
	}
	c.db = db
	c.state.Store(int32(Connected))
	log.Info().Str("path", c.opts.Path).Msg("Database connected")
	return nil
}

// retireLocked closes old once in-flight callers have had time to finish.
func (c *Conn) retireLocked(old *sql.DB) {
	if c.retired == nil {
		c.retired = make(map[*sql.DB]*time.Timer)
	}
	c.retired[old] = time.AfterFunc(handleDrainDelay, func() {
		c.mu.Lock()
		delete(c.retired, old)
		c.mu.Unlock()
		old.Close()
	})
}

// DB returns a connected handle. When the connection is down it makes one
// synchronous reconnect attempt and fails with ErrUnavailable if that fails too.
func (c *Conn) DB(ctx context.Context) (*sql.DB, error) {
	if c.State() != Connected {
		if err := c.Connect(ctx); err != nil {
			log.Error().Err(err).Msg("Database reconnect failed")
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.db == nil {
		return nil, ErrUnavailable
	}
	return c.db, nil
}

// MarkDisconnected moves a connected Conn to Disconnected and schedules a
// reconnect after the configured delay.
func (c *Conn) MarkDisconnected(cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.State() != Connected {
		return
	}
	c.state.Store(int32(Disconnected))
	log.Warn().Err(cause).Dur("retry_in", c.opts.ReconnectDelay).Msg("Database disconnected")
	c.scheduleReconnectLocked()
}

func (c *Conn) scheduleReconnectLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.opts.ReconnectDelay, c.reconnect)
}

func (c *Conn) reconnect() {
	if c.State() == Connected {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := c.Connect(ctx); err != nil {
		if errors.Is(err, ErrClosed) {
			return
		}
		log.Error().Err(err).Msg("Scheduled database reconnect failed")
		c.mu.Lock()
		if !c.closed && c.State() != Connected {
			c.scheduleReconnectLocked()
		}
		c.mu.Unlock()
	}
}

// Ping reads the schema version from the live handle and marks the Conn
// disconnected on failure. A plain driver ping does not touch the file, so
// it succeeds against an unreadable store.
func (c *Conn) Ping(ctx context.Context) error {
	if c.State() != Connected {
		return ErrUnavailable
	}
	c.mu.Lock()
	db := c.db
	c.mu.Unlock()
	if db == nil {
		return ErrUnavailable
	}

	var version int
	if err := db.QueryRowContext(ctx, "PRAGMA schema_version").Scan(&version); err != nil {
		c.MarkDisconnected(err)
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// Observe inspects a query error. When the error means the store itself is
// gone it marks the Conn disconnected and returns err wrapped with
// ErrUnavailable; otherwise err is returned unchanged.
func (c *Conn) Observe(err error) error {
	if !IsConnectionError(err) {
		return err
	}
	c.MarkDisconnected(err)
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// IsConnectionError reports whether err indicates a lost or unusable store.
func IsConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_IOERR, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
		return true
	}
	return false
}

// Close releases the handle and cancels any pending reconnect.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.state.Store(int32(Disconnected))
	for old, t := range c.retired {
		t.Stop()
		old.Close()
	}
	c.retired = nil
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
