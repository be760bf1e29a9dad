package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/isdelr/ender-auth/internal/database"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Pinger is the part of database.Conn the monitor needs.
type Pinger interface {
	Ping(ctx context.Context) error
	State() database.State
}

// HealthMonitor checks the database connection on a cron schedule so that a
// lost connection is noticed, and a reconnect scheduled, between requests.
type HealthMonitor struct {
	conn    Pinger
	spec    string
	timeout time.Duration
	cron    *cron.Cron
}

// NewHealthMonitor creates a monitor for conn. spec is a cron expression or
// descriptor such as "@every 30s".
func NewHealthMonitor(conn Pinger, spec string) *HealthMonitor {
	return &HealthMonitor{
		conn:    conn,
		spec:    spec,
		timeout: 5 * time.Second,
		cron:    cron.New(),
	}
}

// Start registers the check and starts the cron runner in its own goroutine.
func (m *HealthMonitor) Start() error {
	if _, err := m.cron.AddFunc(m.spec, m.check); err != nil {
		return fmt.Errorf("invalid health check schedule %q: %w", m.spec, err)
	}
	log.Info().Str("schedule", m.spec).Msg("Starting database health monitor...")
	m.cron.Start()
	return nil
}

// Stop halts the monitor and waits for a running check to finish.
func (m *HealthMonitor) Stop() {
	<-m.cron.Stop().Done()
	log.Info().Msg("Stopping database health monitor.")
}

// check pings a connected handle. Reconnecting is the Conn's job; the check
// only surfaces the failure.
func (m *HealthMonitor) check() {
	if state := m.conn.State(); state != database.Connected {
		log.Debug().Str("state", state.String()).Msg("Health check skipped")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.conn.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Database health check failed")
	}
}
