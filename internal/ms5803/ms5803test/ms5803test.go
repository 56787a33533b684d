// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package ms5803test is meant to be used to test drivers and tools built on
// top of the ms5803 driver without hardware.
package ms5803test

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// ErrNACK is returned when nothing answers at the addressed slave.
var ErrNACK = errors.New("ms5803test: address not acknowledged")

// pending is what the next receive returns.
type pending int

const (
	pendingNone pending = iota
	pendingPROM
	pendingADC
)

// Sim simulates an MS5803 at the command level. It implements periph's
// i2c.Bus, so it can back the driver directly, be wrapped in an
// i2ctest.Record or be returned by a bus opener.
//
// The zero value answers at no address; set Addr.
type Sim struct {
	Addr uint16
	// PROM holds the eight 16 bit PROM words. Words 1..6 are C1..C6.
	PROM [8]uint16
	// D1 and D2 are returned by pressure and temperature conversions.
	D1, D2 uint32
	// WriteErrs fails the write of a command byte.
	WriteErrs map[byte]error
	// ReadErr fails every receive.
	ReadErr error
	// Hang blocks every transfer until closed.
	Hang chan struct{}

	mu      sync.Mutex
	cmds    []byte
	next    pending
	word    uint16
	adc     uint32
	resets  int
	convert int
}

// Tx implements the driver's Bus.
func (s *Sim) Tx(addr uint16, w, r []byte) error {
	if s.Hang != nil {
		<-s.Hang
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr != s.Addr {
		return fmt.Errorf("%w: 0x%02X", ErrNACK, addr)
	}
	if len(w) != 0 {
		if err := s.command(w); err != nil {
			return err
		}
	}
	if len(r) != 0 {
		return s.receive(r)
	}
	return nil
}

func (s *Sim) command(w []byte) error {
	if len(w) != 1 {
		return fmt.Errorf("ms5803test: unexpected %d byte write", len(w))
	}
	cmd := w[0]
	s.cmds = append(s.cmds, cmd)
	if err := s.WriteErrs[cmd]; err != nil {
		return err
	}
	switch {
	case cmd == 0x1E:
		s.resets++
		s.next = pendingNone
		s.adc = 0
	case cmd >= 0xA0 && cmd <= 0xAE && cmd&1 == 0:
		s.next = pendingPROM
		s.word = s.PROM[(cmd-0xA0)>>1]
	case cmd >= 0x40 && cmd <= 0x58 && cmd&1 == 0 && cmd&0x0F <= 0x08:
		s.convert++
		if cmd&0x10 != 0 {
			s.adc = s.D2 & 0xFFFFFF
		} else {
			s.adc = s.D1 & 0xFFFFFF
		}
	case cmd == 0x00:
		s.next = pendingADC
	default:
		return fmt.Errorf("ms5803test: unknown command 0x%02X", cmd)
	}
	return nil
}

func (s *Sim) receive(r []byte) error {
	if s.ReadErr != nil {
		return s.ReadErr
	}
	for i := range r {
		r[i] = 0
	}
	switch s.next {
	case pendingPROM:
		if len(r) >= 2 {
			r[0] = byte(s.word >> 8)
			r[1] = byte(s.word)
		}
	case pendingADC:
		if len(r) >= 3 {
			r[0] = byte(s.adc >> 16)
			r[1] = byte(s.adc >> 8)
			r[2] = byte(s.adc)
		}
		// A read without a fresh conversion returns 0.
		s.adc = 0
	}
	s.next = pendingNone
	return nil
}

// SetSpeed implements i2c.Bus.
func (s *Sim) SetSpeed(f physic.Frequency) error {
	return nil
}

// Cmds returns the command bytes written so far.
func (s *Sim) Cmds() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.cmds...)
}

// Resets returns the number of reset commands received.
func (s *Sim) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}

// Conversions returns the number of conversion commands received.
func (s *Sim) Conversions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.convert
}

func (s *Sim) String() string {
	return fmt.Sprintf("ms5803test.Sim{addr: 0x%02X}", s.Addr)
}

// Sleeper records the waits instead of blocking. Use its Sleep method as the
// driver's Opts.Sleep.
type Sleeper struct {
	mu    sync.Mutex
	calls []time.Duration
}

// Sleep records d.
func (s *Sleeper) Sleep(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
}

// Calls returns the recorded waits in order.
func (s *Sleeper) Calls() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.calls...)
}

// Total returns the sum of the recorded waits.
func (s *Sleeper) Total() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t time.Duration
	for _, d := range s.calls {
		t += d
	}
	return t
}

// Reset forgets the recorded waits.
func (s *Sleeper) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

var _ i2c.Bus = &Sim{}
