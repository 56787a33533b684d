// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/pressure_computer/internal/app"
)

func main() {
	n := flag.Int("n", 0, "number of samples, 0 runs forever")
	flag.Parse()

	log.Println("starting pressure-computer (mock console)")

	if err := app.RunMockConsole(*n); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
