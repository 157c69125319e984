package keba

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"
)

// SessionRestartDelay is how long the station stays disabled so that the
// vehicle notices the end of the charging session.
const SessionRestartDelay = 30 * time.Second

// ErrLeftDisabled is wrapped into errors that occur after the station was
// disabled but before it was enabled again.
var ErrLeftDisabled = errors.New("charging station left disabled, run /enable")

// Registers is an open Modbus connection to the station.
type Registers interface {
	WriteRegister(addr uint16, value uint16) error
	ReadRegisters(addr uint16, quantity uint16) ([]uint16, error)
	Close() error
}

// DialFunc opens a new connection to the station.
type DialFunc func(ctx context.Context) (Registers, error)

// WaitFunc blocks for d or until ctx is done.
type WaitFunc func(ctx context.Context, d time.Duration) error

// Recorder receives station metrics.
type Recorder interface {
	Gauge(name string, value float64)
	Count(name string)
}

// Station runs register sequences against one charging station. Each
// operation opens its own connection and closes it before returning.
type Station struct {
	Addr     string    // Shown in progress output
	Dial     DialFunc  // Opens the Modbus connection
	Wait     WaitFunc  // Session restart delay, defaults to Sleep
	Out      io.Writer // Progress output, defaults to io.Discard
	Recorder Recorder  // Optional
}

// Sleep waits for d, returning early with the context error if ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SetCurrent writes the user current limit and, when a charging session is
// active, restarts the session so that the vehicle picks up the new limit.
func (s *Station) SetCurrent(ctx context.Context, milliamps uint16) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer s.close(conn)

	s.printf("Set Charging User current (A) : %d\n", milliamps/1000)
	if err := conn.WriteRegister(RegUserCurrent, milliamps); err != nil {
		return fmt.Errorf("set user current: %w", err)
	}
	s.gauge("keba.user_current_ma", float64(milliamps))

	snap, err := readSnapshot(conn)
	if err != nil {
		return err
	}
	s.printf("Charging state : %s\n", snap.State())
	s.gauge("keba.charging_state", float64(snap.State()))
	if snap.Charging() {
		s.printf("Charging process is active will re-initiate charging session\n")
		if err := s.restartSession(ctx, conn); err != nil {
			return err
		}
	}
	s.printf("Done...\n")
	return nil
}

// SetEnabled enables or disables the station. The result is not read back.
func (s *Station) SetEnabled(ctx context.Context, enable bool) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}
	defer s.close(conn)

	v := Disable
	if enable {
		v = Enable
		s.printf("Enable charging station\n")
	} else {
		s.printf("Disable charging station\n")
	}
	if err := conn.WriteRegister(RegEnableStation, v); err != nil {
		return fmt.Errorf("write station state: %w", err)
	}
	s.gauge("keba.station_enabled", float64(v))
	s.printf("Done...\n")
	return nil
}

// restartSession disables the station, waits SessionRestartDelay and
// enables it again. Nothing else is written in between.
func (s *Station) restartSession(ctx context.Context, conn Registers) error {
	if err := conn.WriteRegister(RegEnableStation, Disable); err != nil {
		return fmt.Errorf("disable station: %w", err)
	}
	s.printf("Disabled charging station\n")
	s.printf("Wait %dsec ... so that the car can detect the stop of the charging session\n",
		int(SessionRestartDelay/time.Second))
	wait := s.Wait
	if wait == nil {
		wait = Sleep
	}
	if err := wait(ctx, SessionRestartDelay); err != nil {
		return fmt.Errorf("session restart wait: %w: %w", err, ErrLeftDisabled)
	}
	if err := conn.WriteRegister(RegEnableStation, Enable); err != nil {
		return fmt.Errorf("enable station: %w: %w", err, ErrLeftDisabled)
	}
	s.printf("Enabled charging station. Charging session should resume now.\n")
	if s.Recorder != nil {
		s.Recorder.Count("keba.session_restart")
	}
	return nil
}

func (s *Station) connect(ctx context.Context) (Registers, error) {
	s.printf("Connect KebaP30c at %s\n", s.Addr)
	conn, err := s.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", s.Addr, err)
	}
	s.printf("Connected : True\n")
	return conn, nil
}

func (s *Station) close(conn Registers) {
	if err := conn.Close(); err != nil {
		log.Printf("%s: close: %v", s.Addr, err)
	}
}

func readSnapshot(conn Registers) (Snapshot, error) {
	var snap Snapshot
	regs, err := conn.ReadRegisters(RegChargingState, chargingStateCount)
	if err != nil {
		return snap, fmt.Errorf("read charging state: %w", err)
	}
	if len(regs) < len(snap) {
		return snap, fmt.Errorf("read charging state: got %d registers, want %d", len(regs), len(snap))
	}
	copy(snap[:], regs)
	return snap, nil
}

func (s *Station) printf(format string, args ...interface{}) {
	if s.Out == nil {
		return
	}
	fmt.Fprintf(s.Out, format, args...)
}

func (s *Station) gauge(name string, v float64) {
	if s.Recorder != nil {
		s.Recorder.Gauge(name, v)
	}
}
