package sensors

import (
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/relabs-tech/pressure_computer/internal/config"
	"github.com/relabs-tech/pressure_computer/internal/env"
	"github.com/relabs-tech/pressure_computer/internal/ms5803"
	"periph.io/x/conn/v3/physic"
)

// EnvReader defines the interface for reading environment samples.
type EnvReader interface {
	ReadEnv() (env.Sample, error)
}

// EnvSource reads one MS5803.
type EnvSource struct {
	name      string
	dev       *ms5803.Dev
	precision ms5803.Precision
	closer    io.Closer
}

var (
	envSource  *EnvSource
	envOnce    sync.Once
	envInitErr error
)

// initEnv initializes the configured sensor once
func initEnv() {
	envOnce.Do(func() {
		envSource, envInitErr = NewEnvSource(config.Get())
	})
}

// ReadEnv reads the configured MS5803 (temp + pressure).
func ReadEnv() (env.Sample, error) {
	initEnv()
	if envInitErr != nil {
		return env.Sample{}, envInitErr
	}
	return envSource.ReadEnv()
}

// NewEnvSource opens the configured bus, resets the sensor and loads its
// calibration.
func NewEnvSource(cfg *config.Config) (*EnvSource, error) {
	bus, closer, err := OpenBus(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.MS5803Name, err)
	}
	s, err := newEnvSource(cfg, bus, closer)
	if err != nil {
		closer.Close()
		return nil, err
	}
	return s, nil
}

func newEnvSource(cfg *config.Config, bus ms5803.Bus, closer io.Closer) (*EnvSource, error) {
	name := cfg.MS5803Name
	p, err := ms5803.ParsePrecision(cfg.MS5803Precision)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	opts := ms5803.DefaultOpts
	opts.Addr = cfg.MS5803I2CAddr
	opts.Precision = p
	opts.VerifyPROM = cfg.MS5803VerifyPROM
	if cfg.MS5803BusTimeoutMS > 0 {
		opts.Timeout = time.Duration(cfg.MS5803BusTimeoutMS) * time.Millisecond
	}

	dev, err := ms5803.NewI2C(bus, &opts)
	if err != nil {
		return nil, fmt.Errorf("%s: initialization: %w", name, err)
	}
	log.Printf("%s: MS5803 initialized at 0x%02X (%s), calibration %v", name, dev.Addr(), p, dev.Calibration())

	return &EnvSource{name: name, dev: dev, precision: p, closer: closer}, nil
}

// ReadEnv converts temperature then pressure and returns the calibrated
// sample. On a bus error the sample still carries the computed values.
func (s *EnvSource) ReadEnv() (env.Sample, error) {
	v, err := s.dev.Values(s.precision)
	sample := env.Sample{
		Source:         s.name,
		Time:           time.Now(),
		Temperature:    v.Temperature,
		Pressure:       v.Pressure * 100, // 1 mbar = 100 Pa
		PressureMbar:   v.Pressure,
		RawTemperature: v.RawTemperature,
		RawPressure:    v.RawPressure,
	}
	if err != nil {
		return sample, fmt.Errorf("%s: read: %w", s.name, err)
	}
	return sample, nil
}

// Sense reads through periph's physic.SenseEnv.
func (s *EnvSource) Sense(e *physic.Env) error {
	return s.dev.Sense(e)
}

// Status describes the sensor, with err being the last read error.
func (s *EnvSource) Status(err error) env.Status {
	st := env.Status{
		Source:      s.name,
		Time:        time.Now(),
		OK:          err == nil,
		Precision:   s.precision.String(),
		Calibration: s.dev.Calibration(),
	}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}

// Name returns the MS5803_NAME label.
func (s *EnvSource) Name() string {
	return s.name
}

// Dev returns the underlying driver.
func (s *EnvSource) Dev() *ms5803.Dev {
	return s.dev
}

// Close halts the driver and releases the bus.
func (s *EnvSource) Close() error {
	if err := s.dev.Halt(); err != nil {
		return err
	}
	return s.closer.Close()
}
