// Package keba drives a KEBA P30 charging station through its Modbus-TCP
// register interface.
package keba

import "fmt"

// Holding register addresses.
const (
	RegChargingState uint16 = 1000 // 2 registers, read
	RegUserCurrent   uint16 = 5004 // milliamps, write
	RegEnableStation uint16 = 5014 // 1 enable, 0 disable, write

	chargingStateCount uint16 = 2
)

// Values written to RegEnableStation.
const (
	Disable uint16 = 0
	Enable  uint16 = 1
)

// ChargingState is the station state reported in the low word of
// RegChargingState.
type ChargingState uint16

const (
	StateStarting     ChargingState = 0
	StateNotReady     ChargingState = 1
	StateReady        ChargingState = 2
	StateCharging     ChargingState = 3
	StateError        ChargingState = 4
	StateAuthRejected ChargingState = 5
)

var stateNames = map[ChargingState]string{
	StateStarting:     "starting",
	StateNotReady:     "not ready for charging",
	StateReady:        "ready for charging",
	StateCharging:     "charging",
	StateError:        "error",
	StateAuthRejected: "authorization rejected",
}

func (s ChargingState) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("unknown (%d)", uint16(s))
}

// Snapshot holds the two registers read from RegChargingState.
type Snapshot [2]uint16

// State returns the charging state. Only StateCharging influences behaviour.
func (s Snapshot) State() ChargingState {
	return ChargingState(s[1])
}

// Charging reports whether a charging session is active.
func (s Snapshot) Charging() bool {
	return s.State() == StateCharging
}
