// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ms5803test

import (
	"errors"
	"testing"
	"time"
)

func TestSim_PROM(t *testing.T) {
	s := &Sim{Addr: 0x76, PROM: [8]uint16{0x4000, 0x1234, 2, 3, 4, 5, 6, 0xABCD}}
	for i, want := range s.PROM {
		if err := s.Tx(0x76, []byte{0xA0 + byte(i<<1)}, nil); err != nil {
			t.Fatal(err)
		}
		var b [2]byte
		if err := s.Tx(0x76, nil, b[:]); err != nil {
			t.Fatal(err)
		}
		if got := uint16(b[0])<<8 | uint16(b[1]); got != want {
			t.Fatalf("word %d: got 0x%04X, want 0x%04X", i, got, want)
		}
	}
}

func TestSim_Convert(t *testing.T) {
	s := &Sim{Addr: 0x76, D1: 0x123456, D2: 0xABCDEF}
	data := []struct {
		cmd  byte
		want uint32
	}{
		{0x48, 0x123456},
		{0x58, 0xABCDEF},
		{0x40, 0x123456},
		{0x56, 0xABCDEF},
	}
	for _, line := range data {
		if err := s.Tx(0x76, []byte{line.cmd}, nil); err != nil {
			t.Fatal(err)
		}
		if err := s.Tx(0x76, []byte{0x00}, nil); err != nil {
			t.Fatal(err)
		}
		var b [3]byte
		if err := s.Tx(0x76, nil, b[:]); err != nil {
			t.Fatal(err)
		}
		if got := uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]); got != line.want {
			t.Fatalf("0x%02X: got 0x%06X, want 0x%06X", line.cmd, got, line.want)
		}
	}
	if s.Conversions() != 4 {
		t.Fatalf("conversions = %d", s.Conversions())
	}
}

func TestSim_ReadWithoutConversion(t *testing.T) {
	s := &Sim{Addr: 0x76, D1: 1, D2: 2}
	b := []byte{0xFF, 0xFF, 0xFF}
	if err := s.Tx(0x76, []byte{0x00}, b); err != nil {
		t.Fatal(err)
	}
	if b[0]|b[1]|b[2] != 0 {
		t.Fatalf("got %v", b)
	}
}

func TestSim_Errors(t *testing.T) {
	boom := errors.New("boom")
	s := &Sim{Addr: 0x76, WriteErrs: map[byte]error{0x1E: boom}}
	if err := s.Tx(0x77, []byte{0x1E}, nil); !errors.Is(err, ErrNACK) {
		t.Fatalf("wrong address: %v", err)
	}
	if err := s.Tx(0x76, []byte{0x1E}, nil); err != boom {
		t.Fatalf("reset: %v", err)
	}
	if err := s.Tx(0x76, []byte{0x4A}, nil); err == nil {
		t.Fatal("expected unknown command error")
	}
	s.ReadErr = boom
	if err := s.Tx(0x76, nil, make([]byte, 2)); err != boom {
		t.Fatalf("read: %v", err)
	}
	if got := s.Cmds(); len(got) != 2 || got[0] != 0x1E || got[1] != 0x4A {
		t.Fatalf("cmds = %#v", got)
	}
}

func TestSleeper(t *testing.T) {
	var s Sleeper
	s.Sleep(3 * time.Millisecond)
	s.Sleep(2 * time.Millisecond)
	if got := s.Calls(); len(got) != 2 || got[0] != 3*time.Millisecond {
		t.Fatalf("calls = %v", got)
	}
	if s.Total() != 5*time.Millisecond {
		t.Fatalf("total = %s", s.Total())
	}
	s.Reset()
	if len(s.Calls()) != 0 {
		t.Fatal("expected no calls after Reset")
	}
}
