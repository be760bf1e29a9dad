package monitoring

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/isdelr/ender-auth/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	state database.State
	err   error
	pings int
}

func (f *fakePinger) Ping(context.Context) error {
	f.pings++
	return f.err
}

func (f *fakePinger) State() database.State { return f.state }

func TestHealthMonitor_CheckPingsWhenConnected(t *testing.T) {
	p := &fakePinger{state: database.Connected}
	m := NewHealthMonitor(p, "@every 30s")

	m.check()
	p.err = errors.New("gone")
	m.check()

	assert.Equal(t, 2, p.pings)
}

func TestHealthMonitor_CheckSkipsWhenDisconnected(t *testing.T) {
	p := &fakePinger{state: database.Disconnected}
	NewHealthMonitor(p, "@every 30s").check()

	assert.Zero(t, p.pings)
}

func TestHealthMonitor_InvalidSchedule(t *testing.T) {
	m := NewHealthMonitor(&fakePinger{}, "every now and then")
	require.Error(t, m.Start())
}

func TestHealthMonitor_StartStop(t *testing.T) {
	conn, err := database.Open(context.Background(), database.Options{
		Path:           filepath.Join(t.TempDir(), "auth.db"),
		ReconnectDelay: time.Hour,
	})
	require.NoError(t, err)
	defer conn.Close()

	m := NewHealthMonitor(conn, "@every 1m")
	require.NoError(t, m.Start())
	m.check()
	m.Stop()

	assert.Equal(t, database.Connected, conn.State())
}

func TestHealthMonitor_CheckDetectsUnreadableStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.db")
	conn, err := database.Open(context.Background(), database.Options{Path: path, ReconnectDelay: time.Hour})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("junkjunk"), 1024), 0o644))
	NewHealthMonitor(conn, "@every 30s").check()

	assert.Equal(t, database.Disconnected, conn.State())
}
