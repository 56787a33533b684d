// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	"github.com/relabs-tech/pressure_computer/internal/config"
	"github.com/relabs-tech/pressure_computer/internal/sensors"
)

// RunMockConsole drives the full driver stack against the simulated sensor
// and prints each sample. No broker and no hardware are needed.
func RunMockConsole(n int) error {
	cfg := config.Defaults()
	cfg.MS5803I2CDriver = config.DriverMock
	cfg.MS5803Name = "mock"

	src, err := sensors.NewEnvSource(cfg)
	if err != nil {
		return err
	}
	defer src.Close()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for i := 0; n <= 0 || i < n; i++ {
		<-ticker.C
		s, err := src.ReadEnv()
		if err != nil {
			return err
		}
		fmt.Println(formatSample(s))
	}
	return nil
}
