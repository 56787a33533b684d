// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ms5803 controls a TE MS5803 pressure/temperature sensor over I²C.
//
// The device has no ready signal, so every command is followed by an open
// loop wait taken from the datasheet worst case. Those waits are part of the
// protocol and are never shortened.
//
// Typical use:
//
//	dev, err := ms5803.NewI2C(bus, &ms5803.DefaultOpts) // reset + PROM
//	v, err := dev.Values(ms5803.OSR4096)
//
// Dev implements physic.SenseEnv.
package ms5803

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
)

const (
	// DefaultAddress is the address with CSB pulled high.
	DefaultAddress uint16 = 0x76
	// AltAddress is the address with CSB pulled low.
	AltAddress uint16 = 0x77

	// DefaultTimeout bounds a single transmit or receive.
	DefaultTimeout = 1000 * time.Millisecond
)

// Command bytes.
const (
	cmdReset   byte = 0x1E
	cmdPROM    byte = 0xA0 // word 0; C1 is at 0xA2
	cmdConvert byte = 0x40
	cmdADCRead byte = 0x00
)

// Fixed waits.
const (
	resetSettle     = 3 * time.Millisecond
	convertSettle   = 1 * time.Millisecond
	readTurnaround  = 2 * time.Millisecond
	coefficientBase = cmdPROM + 2
)

var (
	ErrTimeout          = errors.New("ms5803: bus timeout")
	ErrNotCalibrated    = errors.New("ms5803: calibration table not populated")
	ErrInvalidIndex     = errors.New("ms5803: coefficient index out of range")
	ErrInvalidPrecision = errors.New("ms5803: invalid precision")
	ErrCRC              = errors.New("ms5803: PROM CRC mismatch")
	ErrAlreadyRunning   = errors.New("ms5803: SenseContinuous already running")
)

// Opts holds the configuration options.
type Opts struct {
	// Addr defaults to DefaultAddress if zero.
	Addr uint16
	// Precision is used by Sense and SenseContinuous.
	Precision Precision
	// Timeout bounds each transmit or receive. Zero means DefaultTimeout,
	// negative disables the bound.
	Timeout time.Duration
	// VerifyPROM makes Init read all eight PROM words and check the CRC.
	VerifyPROM bool
	// Sleep blocks for the protocol waits. Defaults to time.Sleep.
	Sleep func(time.Duration)
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Addr:       DefaultAddress,
	Precision:  OSR4096,
	Timeout:    DefaultTimeout,
	VerifyPROM: true,
}

// Values is one calibrated reading.
type Values struct {
	Temperature float64 `json:"temp_c"`        // °C
	Pressure    float64 `json:"pressure_mbar"` // mbar

	RawTemperature uint32 `json:"d2"`
	RawPressure    uint32 `json:"d1"`
}

// Dev is a handle to an MS5803.
type Dev struct {
	bus  Bus
	opts Opts

	mu     sync.Mutex
	cal    Calibration
	loaded uint8 // bit i set once coefficient i was read cleanly
	last   Compensation
	stop   chan struct{}
	wg     sync.WaitGroup

	// pending receives the result of a transfer abandoned on timeout. No
	// transfer starts until it has finished.
	pending chan error
}

// New returns a handle without touching the bus. Call Init, or Reset and
// ReadCalibration, before measuring.
func New(bus Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	o := *opts
	if o.Addr == 0 {
		o.Addr = DefaultAddress
	}
	if o.Addr != DefaultAddress && o.Addr != AltAddress {
		return nil, fmt.Errorf("ms5803: invalid address 0x%02X", o.Addr)
	}
	if !o.Precision.valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPrecision, o.Precision)
	}
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
	return &Dev{bus: bus, opts: o}, nil
}

// NewI2C returns a handle that has been reset and has its calibration loaded.
func NewI2C(bus Bus, opts *Opts) (*Dev, error) {
	d, err := New(bus, opts)
	if err != nil {
		return nil, err
	}
	if err := d.Init(); err != nil {
		return nil, err
	}
	return d, nil
}

// Init resets the device and loads the calibration table.
func (d *Dev) Init() error {
	if err := d.Reset(); err != nil {
		return err
	}
	if !d.opts.VerifyPROM {
		_, err := d.ReadCalibration()
		return err
	}
	prom, err := d.ReadPROM()
	if err != nil {
		return err
	}
	if !CheckCRC(prom) {
		return fmt.Errorf("%w: stored 0x%X, computed 0x%X", ErrCRC, prom[7]&0x0F, CRC4(prom))
	}
	d.SetCalibration(CalibrationFromPROM(prom))
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("ms5803{addr: 0x%02X}", d.opts.Addr)
}

// Addr returns the bus address in use.
func (d *Dev) Addr() uint16 {
	return d.opts.Addr
}

// Reset sends the reset command and waits 3ms for the device to reload its
// PROM. The wait happens even when the write fails.
func (d *Dev) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.write(cmdReset)
	d.opts.Sleep(resetSettle)
	if err != nil {
		return fmt.Errorf("ms5803: reset: %w", err)
	}
	return nil
}

// ReadCoefficient reads calibration coefficient i (0..5, i.e. C1..C6) and
// stores it in the handle's table.
func (d *Dev) ReadCoefficient(i int) (uint16, error) {
	if i < 0 || i >= len(d.cal) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidIndex, i)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readWord(coefficientBase + byte(i<<1))
	d.cal[i] = v
	if err != nil {
		d.loaded &^= 1 << i
		return v, fmt.Errorf("ms5803: coefficient C%d: %w", i+1, err)
	}
	d.loaded |= 1 << i
	return v, nil
}

// ReadCalibration reads the six coefficients in order. It stops at the first
// failure.
func (d *Dev) ReadCalibration() (Calibration, error) {
	for i := range d.cal {
		if _, err := d.ReadCoefficient(i); err != nil {
			return d.Calibration(), err
		}
	}
	return d.Calibration(), nil
}

// ReadPROM reads all eight PROM words, including the manufacturer word and
// the CRC word.
func (d *Dev) ReadPROM() ([8]uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var prom [8]uint16
	for i := range prom {
		v, err := d.readWord(cmdPROM + byte(i<<1))
		if err != nil {
			return prom, fmt.Errorf("ms5803: PROM word %d: %w", i, err)
		}
		prom[i] = v
	}
	return prom, nil
}

// SetCalibration installs a known table, e.g. one read earlier.
func (d *Dev) SetCalibration(c Calibration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cal = c
	d.loaded = 1<<len(c) - 1
}

// Calibration returns a copy of the table.
func (d *Dev) Calibration() Calibration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cal
}

// Calibrated reports whether all six coefficients have been read.
func (d *Dev) Calibrated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calibrated()
}

func (d *Dev) calibrated() bool {
	return d.loaded == 1<<len(d.cal)-1
}

// Convert runs one ADC conversion and returns the 24 bit raw sample. The
// whole write/wait/read sequence always runs; step failures are joined into
// the returned error and the sample is then meaningless.
func (d *Dev) Convert(m Measurement, p Precision) (uint32, error) {
	if !m.valid() {
		return 0, fmt.Errorf("ms5803: invalid measurement %s", m)
	}
	if !p.valid() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidPrecision, p)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.convert(m, p)
}

// Values converts temperature then pressure and compensates them. Both
// values are always returned; err carries any bus failure of either
// conversion.
func (d *Dev) Values(p Precision) (Values, error) {
	if !p.valid() {
		return Values{}, fmt.Errorf("%w: %s", ErrInvalidPrecision, p)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.calibrated() {
		return Values{}, ErrNotCalibrated
	}
	d2, errT := d.convert(Temperature, p)
	d1, errP := d.convert(Pressure, p)
	c := d.cal.Compensate(d2, d1)
	v := Values{
		Temperature:    c.Celsius(),
		Pressure:       c.Millibar(),
		RawTemperature: d2,
		RawPressure:    d1,
	}
	return v, errors.Join(errT, errP)
}

// Sense implements physic.SenseEnv. Humidity is not modified.
func (d *Dev) Sense(e *physic.Env) error {
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
	c := d.cal.Compensate(d2, d1)
	e.Temperature = physic.Temperature(c.TEMP)*10*physic.MilliCelsius + physic.ZeroCelsius
	e.Pressure = physic.Pressure(c.P) * 10 * physic.Pascal
	return nil
}

// SenseContinuous implements physic.SenseEnv. Failed readings are skipped.
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if min := d.cycle(); interval < min {
		return nil, fmt.Errorf("ms5803: interval %s shorter than a %s measurement cycle", interval, min)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return nil, ErrAlreadyRunning
	}
	stop := make(chan struct{})
	d.stop = stop
	ch := make(chan physic.Env, 16)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(ch)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				var e physic.Env
				if err := d.Sense(&e); err != nil {
					continue
				}
				select {
				case ch <- e:
				case <-stop:
					return
				}
			}
		}
	}()
	return ch, nil
}

// Precision implements physic.SenseEnv: 0.01°C and 0.1mbar.
func (d *Dev) Precision(e *physic.Env) {
	e.Temperature = 10 * physic.MilliKelvin
	e.Pressure = 10 * physic.Pascal
}

// Halt stops a running SenseContinuous. It implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	stop := d.stop
	d.stop = nil
	d.mu.Unlock()
	if stop != nil {
		close(stop)
		d.wg.Wait()
	}
	return nil
}

// cycle is the nominal duration of one Sense.
func (d *Dev) cycle() time.Duration {
	return 2 * (convertSettle + d.opts.Precision.ConversionDelay() + readTurnaround)
}

// convert must be called with d.mu held.
func (d *Dev) convert(m Measurement, p Precision) (uint32, error) {
	var errs []error
	if err := d.write(cmdConvert + m.Offset() + p.Offset()); err != nil {
		errs = append(errs, fmt.Errorf("ms5803: start %s conversion: %w", m, err))
	}
	d.opts.Sleep(convertSettle)
	d.opts.Sleep(p.ConversionDelay())
	if err := d.write(cmdADCRead); err != nil {
		errs = append(errs, fmt.Errorf("ms5803: request %s ADC read: %w", m, err))
	}
	d.opts.Sleep(readTurnaround)
	var b [3]byte
	if err := d.read(b[:]); err != nil {
		errs = append(errs, fmt.Errorf("ms5803: read %s ADC: %w", m, err))
	}
	raw := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
	return raw, errors.Join(errs...)
}

// readWord requests a PROM word, waits and reads it big-endian. The write
// error wins over the read error.
func (d *Dev) readWord(cmd byte) (uint16, error) {
	werr := d.write(cmd)
	d.opts.Sleep(readTurnaround)
	var b [2]byte
	rerr := d.read(b[:])
	v := uint16(b[0])<<8 | uint16(b[1])
	if werr != nil {
		return v, werr
	}
	return v, rerr
}

func (d *Dev) write(cmd byte) error {
	return d.tx([]byte{cmd}, nil)
}

func (d *Dev) read(b []byte) error {
	return d.tx(nil, b)
}

// tx runs one transfer bounded by opts.Timeout. A transfer that times out
// keeps running in the background on its own buffer, and the next tx waits
// for it within its own bound before touching the bus. Callers hold d.mu.
func (d *Dev) tx(w, r []byte) error {
	if d.opts.Timeout < 0 {
		return d.bus.Tx(d.opts.Addr, w, r)
	}
	t := time.NewTimer(d.opts.Timeout)
	defer t.Stop()
	if d.pending != nil {
		select {
		case <-d.pending:
			d.pending = nil
		case <-t.C:
			return fmt.Errorf("%w: previous transfer still running", ErrTimeout)
		}
	}
	buf := make([]byte, len(r))
	done := make(chan error, 1)
	go func() {
		done <- d.bus.Tx(d.opts.Addr, w, buf)
	}()
	select {
	case err := <-done:
		if err == nil {
			copy(r, buf)
		}
		return err
	case <-t.C:
		d.pending = done
		return ErrTimeout
	}
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
