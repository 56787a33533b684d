// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/relabs-tech/pressure_computer/internal/env"
)

// sensorMetrics exports the latest MS5803 reading.
type sensorMetrics struct {
	temperature prometheus.Gauge
	pressure    prometheus.Gauge
	raw         *prometheus.GaugeVec
	reads       *prometheus.CounterVec
}

func newSensorMetrics(source string) *sensorMetrics {
	labels := prometheus.Labels{"source": source}
	return &sensorMetrics{
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ms5803_temperature_celsius",
			Help:        "Compensated temperature.",
			ConstLabels: labels,
		}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "ms5803_pressure_mbar",
			Help:        "Compensated pressure.",
			ConstLabels: labels,
		}),
		raw: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "ms5803_adc_raw",
				Help:        "Last raw 24 bit ADC sample.",
				ConstLabels: labels,
			},
			[]string{"channel"},
		),
		reads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name:        "ms5803_reads_total",
				Help:        "Sensor reads by result.",
				ConstLabels: labels,
			},
			[]string{"result"},
		),
	}
}

func (m *sensorMetrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.temperature, m.pressure, m.raw, m.reads} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// observe records one read. Values of a failed read are not exported.
func (m *sensorMetrics) observe(s env.Sample, err error) {
	if err != nil {
		m.reads.With(prometheus.Labels{"result": "error"}).Inc()
		return
	}
	m.reads.With(prometheus.Labels{"result": "ok"}).Inc()
	m.temperature.Set(s.Temperature)
	m.pressure.Set(s.PressureMbar)
	m.raw.With(prometheus.Labels{"channel": "d1"}).Set(float64(s.RawPressure))
	m.raw.With(prometheus.Labels{"channel": "d2"}).Set(float64(s.RawTemperature))
}
