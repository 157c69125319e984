// Package kebasim simulates the network interfaces of a KEBA P30 station:
// the Modbus-TCP holding registers and the UDP report port.
package kebasim

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/simonvetter/modbus"

	"KebaP30c-Client/internal/keba"
)

// Write is a register write received by the simulator.
type Write struct {
	Addr  uint16
	Value uint16
}

func (w Write) String() string {
	return fmt.Sprintf("%d=%d", w.Addr, w.Value)
}

// Station is a simulated charging station.
type Station struct {
	mu          sync.Mutex
	state       keba.ChargingState
	session     bool // a vehicle is charging, or would be if enabled
	enabled     bool
	userCurrent uint16
	maxCurrent  uint16
	writes      []Write
	reports     []string
	serial      string

	server *modbus.ModbusServer
	udp    *net.UDPConn
	wg     sync.WaitGroup
}

// New creates an enabled, idle station.
func New() *Station {
	return &Station{
		state:       keba.StateReady,
		enabled:     true,
		userCurrent: 32000,
		maxCurrent:  32000,
		serial:      "16102658",
	}
}

// StartCharging puts the station into an active charging session.
func (s *Station) StartCharging() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = true
	s.updateState()
}

// SetState forces the reported charging state.
func (s *Station) SetState(st keba.ChargingState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
	s.session = st == keba.StateCharging
}

// State returns the current charging state.
func (s *Station) State() keba.ChargingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Enabled reports whether the station is enabled.
func (s *Station) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// UserCurrent returns the last user current written, in milliamps.
func (s *Station) UserCurrent() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userCurrent
}

// Writes returns all register writes in the order received.
func (s *Station) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Write(nil), s.writes...)
}

// Reports returns the UDP commands received.
func (s *Station) Reports() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.reports...)
}

func (s *Station) updateState() {
	switch {
	case s.session && s.enabled:
		s.state = keba.StateCharging
	case !s.enabled:
		s.state = keba.StateNotReady
	default:
		s.state = keba.StateReady
	}
}

// ListenModbus starts the Modbus-TCP server on host (port 0 picks a free
// port) and returns the address it listens on.
func (s *Station) ListenModbus(addr string) (string, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "", err
	}
	if port == "0" {
		// The modbus server needs a concrete port.
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return "", err
		}
		port = fmt.Sprint(l.Addr().(*net.TCPAddr).Port)
		l.Close()
	}
	addr = net.JoinHostPort(host, port)
	server, err := modbus.NewServer(&modbus.ServerConfiguration{
		URL:        "tcp://" + addr,
		Timeout:    30 * time.Second,
		MaxClients: 2,
	}, &handler{s: s})
	if err != nil {
		return "", err
	}
	if err := server.Start(); err != nil {
		return "", err
	}
	s.server = server
	return addr, nil
}

// ListenReport starts the UDP report responder and returns its address.
func (s *Station) ListenReport(addr string) (string, error) {
	laddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return "", err
	}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return "", err
	}
	s.udp = conn
	s.wg.Add(1)
	go s.serveReports(conn)
	return conn.LocalAddr().String(), nil
}

// Close stops both listeners.
func (s *Station) Close() {
	if s.server != nil {
		s.server.Stop()
	}
	if s.udp != nil {
		s.udp.Close()
		s.wg.Wait()
	}
}

func (s *Station) serveReports(conn *net.UDPConn) {
	defer s.wg.Done()
	buf := make([]byte, 512)
	for {
		n, raddr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		cmd := strings.TrimSpace(string(buf[:n]))
		s.mu.Lock()
		s.reports = append(s.reports, cmd)
		reply := s.reply(cmd)
		s.mu.Unlock()
		if _, err := conn.WriteToUDP(reply, raddr); err != nil {
			log.Printf("kebasim: reply to %s: %v", raddr, err)
		}
	}
}

// reply must be called with s.mu held.
func (s *Station) reply(cmd string) []byte {
	var r map[string]interface{}
	switch cmd {
	case "report 1":
		r = map[string]interface{}{
			"ID":         "1",
			"Product":    "KC-P30-EC240422-E00",
			"Serial":     s.serial,
			"Firmware":   "P30 v 3.10.16 (200807-061328)",
			"COM-module": 1,
			"Sec":        0,
		}
	case "report 2":
		enable := 0
		if s.enabled {
			enable = 1
		}
		plug := 5
		if s.session {
			plug = 7
		}
		r = map[string]interface{}{
			"ID":          "2",
			"State":       int(s.state),
			"Error1":      0,
			"Error2":      0,
			"Plug":        plug,
			"AuthON":      0,
			"Authreq":     0,
			"Enable sys":  enable,
			"Enable user": enable,
			"Max curr":    int(s.userCurrent),
			"Max curr %":  1000,
			"Curr HW":     int(s.maxCurrent),
			"Curr user":   int(s.userCurrent),
			"Curr FS":     0,
			"Tmo FS":      0,
			"Curr timer":  0,
			"Tmo CT":      0,
			"Setenergy":   0,
			"Output":      0,
			"Input":       0,
			"Serial":      s.serial,
			"Sec":         0,
		}
	default:
		return []byte("TCH-ERR\n")
	}
	b, err := json.Marshal(r)
	if err != nil {
		return []byte("TCH-ERR\n")
	}
	return b
}

type handler struct {
	s *Station
}

func (h *handler) HandleCoils(req *modbus.CoilsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *handler) HandleDiscreteInputs(req *modbus.DiscreteInputsRequest) ([]bool, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *handler) HandleInputRegisters(req *modbus.InputRegistersRequest) ([]uint16, error) {
	return nil, modbus.ErrIllegalFunction
}

func (h *handler) HandleHoldingRegisters(req *modbus.HoldingRegistersRequest) ([]uint16, error) {
	s := h.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if !req.IsWrite {
		if req.Addr != keba.RegChargingState || req.Quantity != 2 {
			return nil, modbus.ErrIllegalDataAddress
		}
		return []uint16{0, uint16(s.state)}, nil
	}
	if req.Quantity != 1 || len(req.Args) != 1 {
		return nil, modbus.ErrIllegalDataAddress
	}
	v := req.Args[0]
	switch req.Addr {
	case keba.RegUserCurrent:
		if v < 6000 || v > 63000 {
			return nil, modbus.ErrIllegalDataValue
		}
		s.userCurrent = v
	case keba.RegEnableStation:
		if v != keba.Disable && v != keba.Enable {
			return nil, modbus.ErrIllegalDataValue
		}
		s.enabled = v == keba.Enable
		s.updateState()
	default:
		return nil, modbus.ErrIllegalDataAddress
	}
	s.writes = append(s.writes, Write{Addr: req.Addr, Value: v})
	return nil, nil
}
