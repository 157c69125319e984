package keba

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records every register access and wait into a shared event log.
type fakeConn struct {
	events   *[]string
	state    []uint16
	readErr  error
	writeErr map[string]error // keyed by "addr=value"
	closed   int
}

func (f *fakeConn) WriteRegister(addr uint16, value uint16) error {
	ev := fmt.Sprintf("write %d=%d", addr, value)
	*f.events = append(*f.events, ev)
	return f.writeErr[fmt.Sprintf("%d=%d", addr, value)]
}

func (f *fakeConn) ReadRegisters(addr uint16, quantity uint16) ([]uint16, error) {
	*f.events = append(*f.events, fmt.Sprintf("read %d/%d", addr, quantity))
	return f.state, f.readErr
}

func (f *fakeConn) Close() error {
	f.closed++
	*f.events = append(*f.events, "close")
	return nil
}

type fakeRecorder struct {
	gauges map[string]float64
	counts map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{gauges: map[string]float64{}, counts: map[string]int{}}
}

func (r *fakeRecorder) Gauge(name string, v float64) { r.gauges[name] = v }
func (r *fakeRecorder) Count(name string)            { r.counts[name]++ }

func newTestStation(conn *fakeConn, waitErr error) (*Station, *bytes.Buffer, *[]time.Duration) {
	var out bytes.Buffer
	var waits []time.Duration
	s := &Station{
		Addr: "wallbox:502",
		Dial: func(ctx context.Context) (Registers, error) {
			*conn.events = append(*conn.events, "dial")
			return conn, nil
		},
		Wait: func(ctx context.Context, d time.Duration) error {
			waits = append(waits, d)
			*conn.events = append(*conn.events, fmt.Sprintf("wait %s", d))
			return waitErr
		},
		Out: &out,
	}
	return s, &out, &waits
}

func TestSetCurrentCharging(t *testing.T) {
	var events []string
	conn := &fakeConn{events: &events, state: []uint16{0, 3}}
	s, out, waits := newTestStation(conn, nil)
	rec := newFakeRecorder()
	s.Recorder = rec

	require.NoError(t, s.SetCurrent(context.Background(), 6000))

	assert.Equal(t, []string{
		"dial",
		"write 5004=6000",
		"read 1000/2",
		"write 5014=0",
		"wait 30s",
		"write 5014=1",
		"close",
	}, events)
	assert.Equal(t, []time.Duration{SessionRestartDelay}, *waits)
	assert.Equal(t, 1, conn.closed)
	assert.Contains(t, out.String(), "Set Charging User current (A) : 6\n")
	assert.Contains(t, out.String(), "Charging process is active")
	assert.Contains(t, out.String(), "Enabled charging station.")
	assert.Contains(t, out.String(), "Done...")
	assert.Equal(t, 6000.0, rec.gauges["keba.user_current_ma"])
	assert.Equal(t, 3.0, rec.gauges["keba.charging_state"])
	assert.Equal(t, 1, rec.counts["keba.session_restart"])
}

func TestSetCurrentNotCharging(t *testing.T) {
	for _, state := range []uint16{0, 1, 2, 4, 5, 7, 0xFFFF} {
		t.Run(fmt.Sprint(state), func(t *testing.T) {
			var events []string
			conn := &fakeConn{events: &events, state: []uint16{3, state}}
			s, _, waits := newTestStation(conn, nil)

			require.NoError(t, s.SetCurrent(context.Background(), 16000))

			assert.Equal(t, []string{"dial", "write 5004=16000", "read 1000/2", "close"}, events)
			assert.Empty(t, *waits)
		})
	}
}

func TestSetCurrentDialError(t *testing.T) {
	var out bytes.Buffer
	dialErr := errors.New("connection refused")
	s := &Station{
		Addr: "wallbox:502",
		Dial: func(ctx context.Context) (Registers, error) { return nil, dialErr },
		Out:  &out,
	}
	err := s.SetCurrent(context.Background(), 6000)
	assert.ErrorIs(t, err, dialErr)
	assert.Contains(t, err.Error(), "wallbox:502")
	assert.NotContains(t, out.String(), "Set Charging")
}

func TestSetCurrentErrorsClose(t *testing.T) {
	tests := []struct {
		name     string
		conn     fakeConn
		waitErr  error
		events   []string
		disabled bool
	}{
		{
			name:   "user current write",
			conn:   fakeConn{writeErr: map[string]error{"5004=6000": errors.New("illegal data value")}},
			events: []string{"dial", "write 5004=6000", "close"},
		},
		{
			name:   "state read",
			conn:   fakeConn{readErr: errors.New("request timed out")},
			events: []string{"dial", "write 5004=6000", "read 1000/2", "close"},
		},
		{
			name:   "short read",
			conn:   fakeConn{state: []uint16{3}},
			events: []string{"dial", "write 5004=6000", "read 1000/2", "close"},
		},
		{
			name:   "disable write",
			conn:   fakeConn{state: []uint16{0, 3}, writeErr: map[string]error{"5014=0": errors.New("server device busy")}},
			events: []string{"dial", "write 5004=6000", "read 1000/2", "write 5014=0", "close"},
		},
		{
			name:     "wait cancelled",
			conn:     fakeConn{state: []uint16{0, 3}},
			waitErr:  context.Canceled,
			events:   []string{"dial", "write 5004=6000", "read 1000/2", "write 5014=0", "wait 30s", "close"},
			disabled: true,
		},
		{
			name:     "enable write",
			conn:     fakeConn{state: []uint16{0, 3}, writeErr: map[string]error{"5014=1": errors.New("broken pipe")}},
			events:   []string{"dial", "write 5004=6000", "read 1000/2", "write 5014=0", "wait 30s", "write 5014=1", "close"},
			disabled: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var events []string
			conn := tt.conn
			conn.events = &events
			s, out, _ := newTestStation(&conn, tt.waitErr)

			err := s.SetCurrent(context.Background(), 6000)
			require.Error(t, err)
			assert.Equal(t, tt.events, events)
			assert.Equal(t, 1, conn.closed)
			assert.Equal(t, tt.disabled, errors.Is(err, ErrLeftDisabled))
			assert.NotContains(t, out.String(), "Done...")
		})
	}
}

func TestSetEnabled(t *testing.T) {
	tests := []struct {
		enable bool
		want   string
	}{
		{true, "write 5014=1"},
		{false, "write 5014=0"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.enable), func(t *testing.T) {
			var events []string
			conn := &fakeConn{events: &events}
			s, _, waits := newTestStation(conn, nil)
			rec := newFakeRecorder()
			s.Recorder = rec

			require.NoError(t, s.SetEnabled(context.Background(), tt.enable))
			assert.Equal(t, []string{"dial", tt.want, "close"}, events)
			assert.Empty(t, *waits)
			assert.Contains(t, rec.gauges, "keba.station_enabled")
		})
	}
}

func TestSetEnabledWriteError(t *testing.T) {
	var events []string
	conn := &fakeConn{events: &events, writeErr: map[string]error{"5014=1": errors.New("illegal data address")}}
	s, _, _ := newTestStation(conn, nil)

	assert.Error(t, s.SetEnabled(context.Background(), true))
	assert.Equal(t, 1, conn.closed)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestChargingState(t *testing.T) {
	assert.True(t, Snapshot{0, 3}.Charging())
	assert.False(t, Snapshot{3, 2}.Charging())
	assert.Equal(t, "charging", StateCharging.String())
	assert.Equal(t, "unknown (9)", ChargingState(9).String())
}
