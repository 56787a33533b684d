// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ms5803

import (
	"errors"
	"math"

	"periph.io/x/conn/v3/i2c"
	"tinygo.org/x/drivers"
)

// Bus is the two-wire transport. w is transmitted, then len(r) bytes are
// received; the driver never sets both. periph's i2c.Bus and tinygo's
// drivers.I2C both satisfy it.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

var (
	_ Bus = i2c.Bus(nil)
	_ Bus = drivers.I2C(nil)
)

// Update implements drivers.Sensor. Temperature and Pressure are converted
// together, at the configured precision, whichever of the two is requested.
func (d *Dev) Update(which drivers.Measurement) error {
	if which&(drivers.Temperature|drivers.Pressure) == 0 {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.calibrated() {
		return ErrNotCalibrated
	}
	d2, errT := d.convert(Temperature, d.opts.Precision)
	d1, errP := d.convert(Pressure, d.opts.Precision)
	if err := errors.Join(errT, errP); err != nil {
		return err
	}
	d.last = d.cal.Compensate(d2, d1)
	return nil
}

// Temperature returns the temperature of the last Update in milli °C.
func (d *Dev) Temperature() int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last.TEMP * 10
}

// Pressure returns the pressure of the last Update in milli Pascal,
// saturated to the int32 range (about ±2147 hPa).
func (d *Dev) Pressure() int32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	mpa := d.last.P * 10000
	switch {
	case mpa > math.MaxInt32:
		return math.MaxInt32
	case mpa < math.MinInt32:
		return math.MinInt32
	}
	return int32(mpa)
}

var _ drivers.Sensor = &Dev{}
