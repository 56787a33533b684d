// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"

	"github.com/relabs-tech/pressure_computer/internal/app"
	"github.com/relabs-tech/pressure_computer/internal/config"
	"github.com/relabs-tech/pressure_computer/internal/sensors"
)

func main() {
	log.Println("starting MS5803 PROM/ADC debug tool (standalone)")

	if err := config.InitGlobal("pressure_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	log.Println("Initializing MS5803...")
	src, err := sensors.NewEnvSource(cfg)
	if err != nil {
		log.Fatalf("sensor init: %v", err)
	}
	defer src.Close()

	log.Printf("Open http://localhost:%d in your browser", cfg.DebugServerPort)
	if err := app.RunPROMDebug(src.Dev(), cfg.DebugServerPort); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
