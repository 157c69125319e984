// Package modbusconn provides Modbus-TCP connections to the charging
// station, backed by one of the supported client libraries.
package modbusconn

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"KebaP30c-Client/internal/keba"
)

const (
	DriverSimonvetter = "simonvetter"
	DriverAldas       = "aldas"
)

var ErrUnknownDriver = errors.New("unknown modbus driver")

// Config describes a Modbus-TCP endpoint.
type Config struct {
	Addr    string        // host:port
	UnitID  uint8         // unit (slave) id
	Timeout time.Duration // per request
	Logger  *log.Logger   // optional, used by the simonvetter client
}

// NewDialer returns a keba.DialFunc using the named driver.
func NewDialer(driver string, conf Config) (keba.DialFunc, error) {
	if conf.Addr == "" {
		return nil, errors.New("missing device address")
	}
	switch driver {
	case DriverSimonvetter, "":
		return func(ctx context.Context) (keba.Registers, error) {
			conn, err := dialSimonvetter(ctx, conf)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}, nil
	case DriverAldas:
		return func(ctx context.Context) (keba.Registers, error) {
			conn, err := dialAldas(ctx, conf)
			if err != nil {
				return nil, err
			}
			return conn, nil
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
}
