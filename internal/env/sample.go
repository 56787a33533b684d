package env

import "time"

// Sample represents a single environmental measurement (MS5803).
type Sample struct {
	Source string    `json:"source"` // MS5803_NAME
	Time   time.Time `json:"time"`

	Temperature  float64 `json:"temp_c"`        // °C
	Pressure     float64 `json:"pressure_pa"`   // Pa
	PressureMbar float64 `json:"pressure_mbar"` // mbar (= hPa)

	// Raw 24 bit ADC samples the values were compensated from.
	RawTemperature uint32 `json:"d2"`
	RawPressure    uint32 `json:"d1"`
}

// Status is published by the producer whenever the sensor state changes.
type Status struct {
	Source      string    `json:"source"`
	Time        time.Time `json:"time"`
	OK          bool      `json:"ok"`
	Error       string    `json:"error,omitempty"`
	Precision   string    `json:"precision"`
	Calibration [6]uint16 `json:"calibration"`
}
