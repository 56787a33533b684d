// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package ms5803

// Calibration holds the factory coefficients C1..C6 read from PROM words 1..6.
//
//	[0] C1 pressure sensitivity        SENS_T1
//	[1] C2 pressure offset             OFF_T1
//	[2] C3 temp. coeff. of sensitivity TCS
//	[3] C4 temp. coeff. of offset      TCO
//	[4] C5 reference temperature       T_REF
//	[5] C6 temp. coeff. of temperature TEMPSENS
type Calibration [6]uint16

// Compensation holds the integer intermediates of the first order
// compensation. TEMP is in 0.01°C and P in 0.1mbar.
type Compensation struct {
	DT   int32
	TEMP int32
	OFF  int64
	SENS int64
	P    int64
}

// Compensate applies the datasheet formula to a raw temperature (D2) and a
// raw pressure (D1) sample. All divisions truncate toward zero.
func (c Calibration) Compensate(d2, d1 uint32) Compensation {
	dT := int32(d2) - int32(c[4])*256
	// The product needs more than 32 bits for large dT.
	temp := 2000 + int32(int64(dT)*int64(c[5])/8388608)

	off := int64(c[1])*65536 + int64(c[3])*int64(dT)/128
	sens := int64(c[0])*32768 + int64(c[2])*int64(dT)/256
	p := (int64(d1)*sens/2097152 - off) / 32768

	return Compensation{DT: dT, TEMP: temp, OFF: off, SENS: sens, P: p}
}

// Celsius returns the temperature in °C.
func (c Compensation) Celsius() float64 {
	return float64(c.TEMP) / 100.0
}

// Millibar returns the pressure in mbar.
func (c Compensation) Millibar() float64 {
	return float64(c.P) / 10.0
}

// CRC4 computes the 4 bit PROM checksum (application note AN520). The CRC
// nibble itself lives in the low 4 bits of word 7 and is excluded.
func CRC4(prom [8]uint16) uint8 {
	prom[7] &= 0xFF00
	var rem uint16
	for cnt := 0; cnt < 16; cnt++ {
		if cnt%2 == 1 {
			rem ^= prom[cnt>>1] & 0x00FF
		} else {
			rem ^= prom[cnt>>1] >> 8
		}
		for bit := 8; bit > 0; bit-- {
			if rem&0x8000 != 0 {
				rem = (rem << 1) ^ 0x3000
			} else {
				rem <<= 1
			}
		}
	}
	return uint8(rem>>12) & 0x0F
}

// CheckCRC reports whether the CRC stored in word 7 matches the content.
func CheckCRC(prom [8]uint16) bool {
	return CRC4(prom) == uint8(prom[7]&0x000F)
}

// CalibrationFromPROM extracts C1..C6 from a full PROM dump.
func CalibrationFromPROM(prom [8]uint16) Calibration {
	var c Calibration
	copy(c[:], prom[1:7])
	return c
}
