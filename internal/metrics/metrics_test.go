package metrics

import (
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	lines  []string
	err    error
	closed bool
}

func (f *fakeSender) Gauge(name string, value float64, tags []string, rate float64) error {
	f.lines = append(f.lines, name+":g:"+strings.Join(tags, ","))
	return f.err
}

func (f *fakeSender) Incr(name string, tags []string, rate float64) error {
	f.lines = append(f.lines, name+":c:"+strings.Join(tags, ","))
	return f.err
}

func (f *fakeSender) Close() error {
	f.closed = true
	return f.err
}

func TestDisabled(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)
	assert.Nil(t, r)

	// nil reporters are usable
	r.Gauge("keba.user_current_ma", 6000)
	r.Count("keba.session_restart")
	r.Close()
}

func TestReporter(t *testing.T) {
	f := &fakeSender{}
	r := &Reporter{client: f, tags: []string{"station:garage"}}
	r.Gauge("keba.user_current_ma", 6000)
	r.Count("keba.session_restart")
	r.Close()
	assert.Equal(t, []string{
		"keba.user_current_ma:g:station:garage",
		"keba.session_restart:c:station:garage",
	}, f.lines)
	assert.True(t, f.closed)

	// send errors are only logged
	f.err = errors.New("buffer full")
	r.Gauge("keba.station_enabled", 1)
}

func TestStatsdWire(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	r, err := New(conn.LocalAddr().String())
	require.NoError(t, err)
	r.Gauge("keba.user_current_ma", 16000)
	r.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1024)
	n, _, err := conn.ReadFrom(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), "keba.user_current_ma:16000|g")
}
