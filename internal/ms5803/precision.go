// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ms5803

import (
	"fmt"
	"time"
)

// Precision selects the ADC oversampling ratio (OSR) of a conversion.
type Precision uint8

const (
	OSR256 Precision = iota
	OSR512
	OSR1024
	OSR2048
	OSR4096
)

// tiers is indexed by Precision.
var tiers = [...]struct {
	osr    int
	offset byte
	delay  time.Duration
}{
	OSR256:  {osr: 256, offset: 0x00, delay: 1 * time.Millisecond},
	OSR512:  {osr: 512, offset: 0x02, delay: 3 * time.Millisecond},
	OSR1024: {osr: 1024, offset: 0x04, delay: 4 * time.Millisecond},
	OSR2048: {osr: 2048, offset: 0x06, delay: 6 * time.Millisecond},
	OSR4096: {osr: 4096, offset: 0x08, delay: 10 * time.Millisecond},
}

// ParsePrecision maps an oversampling ratio (256, 512, 1024, 2048 or 4096)
// to its Precision.
func ParsePrecision(osr int) (Precision, error) {
	for p, t := range tiers {
		if t.osr == osr {
			return Precision(p), nil
		}
	}
	return 0, fmt.Errorf("%w: OSR %d", ErrInvalidPrecision, osr)
}

func (p Precision) valid() bool {
	return int(p) < len(tiers)
}

// Oversampling returns the oversampling ratio, e.g. 4096.
func (p Precision) Oversampling() int {
	if !p.valid() {
		return 0
	}
	return tiers[p].osr
}

// Offset is added to the conversion command byte.
func (p Precision) Offset() byte {
	if !p.valid() {
		return 0
	}
	return tiers[p].offset
}

// Delay is the datasheet wait of this tier alone.
func (p Precision) Delay() time.Duration {
	if !p.valid() {
		return 0
	}
	return tiers[p].delay
}

// ConversionDelay is the wait applied after the 1ms settle of a conversion:
// the sum of the tier delays at and below p. Vendor sample code accumulates
// in the reverse order (24ms at OSR256, 10ms at OSR4096).
func (p Precision) ConversionDelay() time.Duration {
	var d time.Duration
	for q := OSR256; q <= p && q.valid(); q++ {
		d += tiers[q].delay
	}
	return d
}

func (p Precision) String() string {
	if !p.valid() {
		return fmt.Sprintf("Precision(%d)", uint8(p))
	}
	return fmt.Sprintf("OSR%d", tiers[p].osr)
}

// Measurement selects the analog channel converted by the ADC.
type Measurement uint8

const (
	// Temperature is the D2 channel.
	Temperature Measurement = iota
	// Pressure is the D1 channel.
	Pressure
)

// Offset is added to the conversion command byte.
func (m Measurement) Offset() byte {
	if m == Temperature {
		return 0x10
	}
	return 0x00
}

func (m Measurement) valid() bool {
	return m == Temperature || m == Pressure
}

func (m Measurement) String() string {
	switch m {
	case Temperature:
		return "temperature"
	case Pressure:
		return "pressure"
	default:
		return fmt.Sprintf("Measurement(%d)", uint8(m))
	}
}
