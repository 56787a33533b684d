// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"github.com/d2r2/go-i2c"
	"github.com/d2r2/go-logger"
)

// d2r2Conn is the subset of *i2c.I2C used by D2R2Bus.
type d2r2Conn interface {
	WriteBytes(buf []byte) (int, error)
	ReadBytes(buf []byte) (int, error)
	Close() error
}

// D2R2Bus adapts a github.com/d2r2/go-i2c connection, which is bound to a
// single slave address, to the driver's Bus.
type D2R2Bus struct {
	addr uint16
	conn d2r2Conn
}

// OpenD2R2 opens /dev/i2c-<bus> for addr.
func OpenD2R2(addr uint16, bus int) (*D2R2Bus, error) {
	logger.ChangePackageLogLevel("i2c", logger.InfoLevel)
	c, err := i2c.NewI2C(uint8(addr), bus)
	if err != nil {
		return nil, fmt.Errorf("d2r2 open bus %d addr 0x%02X: %w", bus, addr, err)
	}
	return &D2R2Bus{addr: addr, conn: c}, nil
}

// Tx writes w then reads len(r) bytes, as two separate transfers.
func (b *D2R2Bus) Tx(addr uint16, w, r []byte) error {
	if addr != b.addr {
		return fmt.Errorf("d2r2: bus bound to 0x%02X, got 0x%02X", b.addr, addr)
	}
	if len(w) != 0 {
		n, err := b.conn.WriteBytes(w)
		if err != nil {
			return err
		}
		if n != len(w) {
			return fmt.Errorf("d2r2: short write %d/%d", n, len(w))
		}
	}
	if len(r) != 0 {
		n, err := b.conn.ReadBytes(r)
		if err != nil {
			return err
		}
		if n != len(r) {
			return fmt.Errorf("d2r2: short read %d/%d", n, len(r))
		}
	}
	return nil
}

func (b *D2R2Bus) Close() error {
	return b.conn.Close()
}

func (b *D2R2Bus) String() string {
	return fmt.Sprintf("d2r2(0x%02X)", b.addr)
}
