// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/relabs-tech/pressure_computer/internal/config"
	"github.com/relabs-tech/pressure_computer/internal/ms5803"
	"github.com/relabs-tech/pressure_computer/internal/ms5803/ms5803test"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Mock device contents: 20.00°C and 1013.2mbar.
var (
	MockPROM = [8]uint16{0x4000, 46372, 43981, 29059, 27842, 31553, 28165, 12}
	MockD2   = uint32(8077636)
	MockD1   = uint32(4436254)
)

var (
	hostOnce    sync.Once
	hostInitErr error
)

// initHost runs periph's host.Init once per process.
func initHost() error {
	hostOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			hostInitErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	return hostInitErr
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenBus opens the transport selected by MS5803_I2C_DRIVER.
func OpenBus(cfg *config.Config) (ms5803.Bus, io.Closer, error) {
	switch cfg.MS5803I2CDriver {
	case config.DriverPeriph, "":
		if err := initHost(); err != nil {
			return nil, nil, err
		}
		b, err := i2creg.Open(cfg.MS5803I2CBus)
		if err != nil {
			return nil, nil, fmt.Errorf("I2C open %q: %w", cfg.MS5803I2CBus, err)
		}
		return b, b, nil
	case config.DriverD2R2:
		n := 1
		if cfg.MS5803I2CBus != "" {
			var err error
			if n, err = strconv.Atoi(cfg.MS5803I2CBus); err != nil {
				return nil, nil, fmt.Errorf("d2r2 bus %q: %w", cfg.MS5803I2CBus, err)
			}
		}
		b, err := OpenD2R2(cfg.MS5803I2CAddr, n)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case config.DriverMock:
		return NewMockBus(cfg.MS5803I2CAddr), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown I2C driver %q", cfg.MS5803I2CDriver)
	}
}

// NewMockBus returns a simulated MS5803 answering at addr.
func NewMockBus(addr uint16) *ms5803test.Sim {
	return &ms5803test.Sim{Addr: addr, PROM: MockPROM, D2: MockD2, D1: MockD1}
}
