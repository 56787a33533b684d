// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"bytes"
	"errors"
	"testing"
)

type fakeConn struct {
	written [][]byte
	reply   []byte
	short   bool
	err     error
}

func (f *fakeConn) WriteBytes(buf []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.written = append(f.written, append([]byte(nil), buf...))
	return len(buf), nil
}

func (f *fakeConn) ReadBytes(buf []byte) (int, error) {
	n := copy(buf, f.reply)
	if f.short {
		n--
	}
	return n, nil
}

func (f *fakeConn) Close() error { return nil }

func TestD2R2Bus(t *testing.T) {
	c := &fakeConn{reply: []byte{0xAB, 0xCD, 0xEF}}
	b := &D2R2Bus{addr: 0x76, conn: c}

	if err := b.Tx(0x76, []byte{0x48}, nil); err != nil {
		t.Fatal(err)
	}
	r := make([]byte, 3)
	if err := b.Tx(0x76, nil, r); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(r, c.reply) {
		t.Fatalf("read %#v", r)
	}
	if len(c.written) != 1 || c.written[0][0] != 0x48 {
		t.Fatalf("written %#v", c.written)
	}
	if err := b.Tx(0x77, []byte{0x1E}, nil); err == nil {
		t.Fatal("expected address mismatch")
	}
	c.short = true
	if err := b.Tx(0x76, nil, r); err == nil {
		t.Fatal("expected short read")
	}
	boom := errors.New("remote I/O error")
	c.err = boom
	if err := b.Tx(0x76, []byte{0x1E}, nil); !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}
