package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
)

// I2C transports accepted by MS5803_I2C_DRIVER.
const (
	DriverPeriph = "periph" // periph.io i2creg
	DriverD2R2   = "d2r2"   // github.com/d2r2/go-i2c on /dev/i2c-N
	DriverMock   = "mock"   // simulated device, no hardware
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDWeb      string
	MQTTClientIDDisplay  string

	// Topics
	TopicEnv    string
	TopicStatus string

	// MS5803 Hardware
	MS5803Name      string
	MS5803I2CDriver string
	MS5803I2CBus    string // periph bus name, or bus number for d2r2
	MS5803I2CAddr   uint16

	// MS5803 Measurement
	// Oversampling ratio: 256, 512, 1024, 2048 or 4096
	MS5803Precision    int
	MS5803BusTimeoutMS int
	MS5803VerifyPROM   bool

	// Timing
	MS5803SampleInterval int // milliseconds

	// Web Server
	WebServerPort   int
	DebugServerPort int
	MetricsPort     int    // producer /metrics, 0 disables
	WebHistoryDB    string // SQLite file for /api/history, empty disables

	// Display
	DisplayI2CBus         string
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot modify it without locking.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock for initialization,
//     read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Defaults returns a Config with every optional key set to its default.
func Defaults() *Config {
	return &Config{
		MQTTClientIDProducer:  "pressure-producer",
		MQTTClientIDConsole:   "pressure-console",
		MQTTClientIDWeb:       "pressure-web",
		MQTTClientIDDisplay:   "pressure-display",
		TopicEnv:              "pressure/env",
		TopicStatus:           "pressure/status",
		MS5803Name:            "ms5803",
		MS5803I2CDriver:       DriverPeriph,
		MS5803I2CAddr:         0x76,
		MS5803Precision:       4096,
		MS5803BusTimeoutMS:    1000,
		MS5803VerifyPROM:      true,
		WebServerPort:         8080,
		DebugServerPort:       8081,
		MetricsPort:           9100,
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 500,
	}
}

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()
	return Parse(file)
}

// Parse reads KEY=VALUE lines on top of Defaults and validates the result.
func Parse(r io.Reader) (*Config, error) {
	cfg := Defaults()
	scanner := bufio.NewScanner(r)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_ENV":
		c.TopicEnv = value
	case "TOPIC_STATUS":
		c.TopicStatus = value

	// MS5803 Hardware
	case "MS5803_NAME":
		c.MS5803Name = value
	case "MS5803_I2C_DRIVER":
		switch value {
		case DriverPeriph, DriverD2R2, DriverMock:
			c.MS5803I2CDriver = value
		default:
			return fmt.Errorf("MS5803_I2C_DRIVER must be %s, %s or %s, got %q", DriverPeriph, DriverD2R2, DriverMock, value)
		}
	case "MS5803_I2C_BUS":
		c.MS5803I2CBus = value
	case "MS5803_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid MS5803_I2C_ADDR %q: %w", value, err)
		}
		if addr != 0x76 && addr != 0x77 {
			return fmt.Errorf("MS5803_I2C_ADDR must be 0x76 or 0x77, got 0x%02X", addr)
		}
		c.MS5803I2CAddr = uint16(addr)

	// MS5803 Measurement
	case "MS5803_PRECISION":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MS5803_PRECISION %q: %w", value, err)
		}
		switch val {
		case 256, 512, 1024, 2048, 4096:
		default:
			return fmt.Errorf("MS5803_PRECISION must be 256, 512, 1024, 2048 or 4096, got %d", val)
		}
		c.MS5803Precision = val
	case "MS5803_BUS_TIMEOUT_MS":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MS5803_BUS_TIMEOUT_MS %q: %w", value, err)
		}
		c.MS5803BusTimeoutMS = val
	case "MS5803_VERIFY_PROM":
		val, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid MS5803_VERIFY_PROM %q: %w", value, err)
		}
		c.MS5803VerifyPROM = val

	// Timing
	case "MS5803_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid MS5803_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.MS5803SampleInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port
	case "DEBUG_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DEBUG_SERVER_PORT %q: %w", value, err)
		}
		c.DebugServerPort = port
	case "METRICS_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid METRICS_PORT %q: %w", value, err)
		}
		c.MetricsPort = port
	case "WEB_HISTORY_DB":
		c.WebHistoryDB = value

	// Display
	case "DISPLAY_I2C_BUS":
		c.DisplayI2CBus = value
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.MS5803SampleInterval <= 0 {
		return fmt.Errorf("MS5803_SAMPLE_INTERVAL is required")
	}
	if c.MS5803I2CDriver == DriverD2R2 && c.MS5803I2CBus != "" {
		if _, err := strconv.Atoi(c.MS5803I2CBus); err != nil {
			return fmt.Errorf("MS5803_I2C_BUS must be a bus number with the d2r2 driver, got %q", c.MS5803I2CBus)
		}
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
// This is the only function that can set globalConfig.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
