package modbusconn

import (
	"context"
	"fmt"

	"github.com/simonvetter/modbus"
)

type simonvetterConn struct {
	client *modbus.ModbusClient
}

func dialSimonvetter(ctx context.Context, conf Config) (*simonvetterConn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s", conf.Addr),
		Timeout: conf.Timeout,
		Logger:  conf.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating client: %w", err)
	}
	if err := client.SetUnitId(conf.UnitID); err != nil {
		return nil, fmt.Errorf("error setting unit ID: %w", err)
	}
	if err := client.Open(); err != nil {
		return nil, err
	}
	return &simonvetterConn{client: client}, nil
}

func (c *simonvetterConn) WriteRegister(addr uint16, value uint16) error {
	return c.client.WriteRegister(addr, value)
}

func (c *simonvetterConn) ReadRegisters(addr uint16, quantity uint16) ([]uint16, error) {
	return c.client.ReadRegisters(addr, quantity, modbus.HOLDING_REGISTER)
}

func (c *simonvetterConn) Close() error {
	return c.client.Close()
}
