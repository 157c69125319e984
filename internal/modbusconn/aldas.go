package modbusconn

import (
	"context"
	"encoding/binary"
	"fmt"

	aldas "github.com/aldas/go-modbus-client"
	"github.com/aldas/go-modbus-client/packet"
)

type aldasConn struct {
	client *aldas.Client
	conf   Config
}

func dialAldas(ctx context.Context, conf Config) (*aldasConn, error) {
	client := aldas.NewTCPClient()
	cctx, cancel := withTimeout(ctx, conf)
	defer cancel()
	if err := client.Connect(cctx, "tcp://"+conf.Addr); err != nil {
		return nil, err
	}
	return &aldasConn{client: client, conf: conf}, nil
}

func withTimeout(ctx context.Context, conf Config) (context.Context, context.CancelFunc) {
	if conf.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, conf.Timeout)
}

func (c *aldasConn) WriteRegister(addr uint16, value uint16) error {
	data := make([]byte, 2)
	binary.BigEndian.PutUint16(data, value)
	req, err := packet.NewWriteSingleRegisterRequestTCP(c.conf.UnitID, addr, data)
	if err != nil {
		return err
	}
	ctx, cancel := withTimeout(context.Background(), c.conf)
	defer cancel()
	_, err = c.client.Do(ctx, req)
	return err
}

func (c *aldasConn) ReadRegisters(addr uint16, quantity uint16) ([]uint16, error) {
	req, err := packet.NewReadHoldingRegistersRequestTCP(c.conf.UnitID, addr, quantity)
	if err != nil {
		return nil, err
	}
	ctx, cancel := withTimeout(context.Background(), c.conf)
	defer cancel()
	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	r, ok := resp.(*packet.ReadHoldingRegistersResponseTCP)
	if !ok {
		return nil, fmt.Errorf("unexpected response type %T", resp)
	}
	if len(r.Data) < 2*int(quantity) {
		return nil, fmt.Errorf("short response: %d bytes for %d registers", len(r.Data), quantity)
	}
	values := make([]uint16, quantity)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(r.Data[2*i:])
	}
	return values, nil
}

func (c *aldasConn) Close() error {
	return c.client.Close()
}
