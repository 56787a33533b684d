// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ms5803

import "testing"

func TestCompensate(t *testing.T) {
	data := []struct {
		name   string
		cal    Calibration
		d2, d1 uint32
		want   Compensation
		temp   float64
		press  float64
	}{
		{
			name: "small coefficients",
			cal:  Calibration{1, 2, 3, 4, 5, 6},
			d2:   1000000, d1: 2000000,
			want: Compensation{DT: 998720, TEMP: 2000, OFF: 162282, SENS: 44471, P: -3},
			temp: 20.0, press: -0.3,
		},
		{
			name: "datasheet",
			cal:  Calibration{40127, 36924, 23317, 23282, 33464, 28312},
			d2:   8569150, d1: 9085466,
			want: Compensation{DT: 2366, TEMP: 2007, OFF: 2420281617, SENS: 1315097036, P: 100009},
			temp: 20.07, press: 10000.9,
		},
		{
			name: "negative dT",
			cal:  Calibration{46372, 43981, 29059, 27842, 31553, 28165},
			d2:   7000000, d1: 4311550,
			want: Compensation{DT: -1077568, TEMP: -1617, OFF: 2647950939, SENS: 1397201101, P: 6853},
			temp: -16.17, press: 685.3,
		},
		{
			name: "room temperature",
			cal:  Calibration{46372, 43981, 29059, 27842, 31553, 28165},
			d2:   8077636, d1: 4311550,
			want: Compensation{DT: 68, TEMP: 2000, OFF: 2882353607, SENS: 1519525414, P: 7374},
			temp: 20.0, press: 737.4,
		},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			got := line.cal.Compensate(line.d2, line.d1)
			if got != line.want {
				t.Fatalf("got %+v, want %+v", got, line.want)
			}
			if got.Celsius() != line.temp {
				t.Fatalf("Celsius() = %v, want %v", got.Celsius(), line.temp)
			}
			if got.Millibar() != line.press {
				t.Fatalf("Millibar() = %v, want %v", got.Millibar(), line.press)
			}
			if again := line.cal.Compensate(line.d2, line.d1); again != got {
				t.Fatalf("not deterministic: %+v != %+v", again, got)
			}
		})
	}
}

func TestCRC4(t *testing.T) {
	prom := [8]uint16{0x4000, 46372, 43981, 29059, 27842, 31553, 28165, 0}
	if got := CRC4(prom); got != 12 {
		t.Fatalf("CRC4() = %d, want 12", got)
	}
	if CheckCRC(prom) {
		t.Fatal("CheckCRC() accepted a zero CRC nibble")
	}
	prom[7] = 12
	if !CheckCRC(prom) {
		t.Fatal("CheckCRC() rejected a valid PROM")
	}
	prom[3] ^= 0x0100
	if CheckCRC(prom) {
		t.Fatal("CheckCRC() accepted a corrupted PROM")
	}
}

func TestCalibrationFromPROM(t *testing.T) {
	prom := [8]uint16{0x4000, 1, 2, 3, 4, 5, 6, 0xC}
	if got := CalibrationFromPROM(prom); got != (Calibration{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("got %v", got)
	}
}
