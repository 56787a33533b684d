// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"log"

	"github.com/relabs-tech/pressure_computer/internal/app"
	"github.com/relabs-tech/pressure_computer/internal/config"
)

func main() {
	log.Println("starting pressure-computer OLED display (MQTT subscriber)")

	if err := config.InitGlobal("pressure_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunDisplay(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
