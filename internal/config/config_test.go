package config

import (
	"strings"
	"testing"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
# minimal
MQTT_BROKER=tcp://localhost:1883
MS5803_SAMPLE_INTERVAL=250
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MQTTBroker != "tcp://localhost:1883" || cfg.MS5803SampleInterval != 250 {
		t.Fatalf("unexpected %+v", cfg)
	}
	if cfg.MS5803I2CAddr != 0x76 || cfg.MS5803Precision != 4096 || cfg.MS5803BusTimeoutMS != 1000 {
		t.Fatalf("wrong MS5803 defaults %+v", cfg)
	}
	if !cfg.MS5803VerifyPROM || cfg.MS5803I2CDriver != DriverPeriph {
		t.Fatalf("wrong MS5803 defaults %+v", cfg)
	}
	if cfg.TopicEnv != "pressure/env" || cfg.TopicStatus != "pressure/status" {
		t.Fatalf("wrong topics %+v", cfg)
	}
}

func TestParse_Values(t *testing.T) {
	cfg, err := Parse(strings.NewReader(`
MQTT_BROKER=tcp://broker:1883
MS5803_NAME=tank
MS5803_I2C_DRIVER=d2r2
MS5803_I2C_BUS=1
MS5803_I2C_ADDR=0x77
MS5803_PRECISION=512
MS5803_BUS_TIMEOUT_MS=50
MS5803_VERIFY_PROM=false
MS5803_SAMPLE_INTERVAL=1000
DISPLAY_I2C_ADDR=0x3D
WEB_HISTORY_DB=/var/lib/pressure/history.db
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MS5803Name != "tank" || cfg.MS5803I2CDriver != DriverD2R2 || cfg.MS5803I2CBus != "1" {
		t.Fatalf("unexpected %+v", cfg)
	}
	if cfg.MS5803I2CAddr != 0x77 || cfg.MS5803Precision != 512 || cfg.MS5803BusTimeoutMS != 50 || cfg.MS5803VerifyPROM {
		t.Fatalf("unexpected %+v", cfg)
	}
	if cfg.DisplayI2CAddr != 0x3D {
		t.Fatalf("DisplayI2CAddr = 0x%02X", cfg.DisplayI2CAddr)
	}
	if cfg.WebHistoryDB != "/var/lib/pressure/history.db" {
		t.Fatalf("WebHistoryDB = %q", cfg.WebHistoryDB)
	}
}

func TestParse_Errors(t *testing.T) {
	data := []struct {
		name  string
		input string
		want  string
	}{
		{"missing broker", "MS5803_SAMPLE_INTERVAL=1", "MQTT_BROKER is required"},
		{"missing interval", "MQTT_BROKER=x", "MS5803_SAMPLE_INTERVAL is required"},
		{"no equals", "MQTT_BROKER", "invalid config line 1"},
		{"unknown key", "FOO=1", "unknown config key"},
		{"bad precision", "MS5803_PRECISION=300", "MS5803_PRECISION must be"},
		{"bad address", "MS5803_I2C_ADDR=0x40", "MS5803_I2C_ADDR must be"},
		{"bad driver", "MS5803_I2C_DRIVER=spi", "MS5803_I2C_DRIVER must be"},
		{"d2r2 bus name", "MQTT_BROKER=x\nMS5803_SAMPLE_INTERVAL=1\nMS5803_I2C_DRIVER=d2r2\nMS5803_I2C_BUS=I2C1", "bus number"},
	}
	for _, line := range data {
		t.Run(line.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(line.input))
			if err == nil || !strings.Contains(err.Error(), line.want) {
				t.Fatalf("got %v, want %q", err, line.want)
			}
		})
	}
}
