package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/pressure_computer/internal/config"
	"github.com/relabs-tech/pressure_computer/internal/env"
	"github.com/relabs-tech/pressure_computer/internal/sensors"
)

// publisher is the part of mqtt.Client the producer needs.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// envSource is implemented by *sensors.EnvSource.
type envSource interface {
	sensors.EnvReader
	Status(err error) env.Status
}

type producer struct {
	src         envSource
	pub         publisher
	topicEnv    string
	topicStatus string
	metrics     *sensorMetrics

	published bool // a status has been sent
	lastOK    bool
}

// tick reads the sensor once and publishes the sample, and the status when
// it changed.
func (p *producer) tick() (env.Sample, error) {
	sample, err := p.src.ReadEnv()
	p.metrics.observe(sample, err)

	if !p.published || p.lastOK != (err == nil) {
		if perr := publishJSON(p.pub, p.topicStatus, p.src.Status(err)); perr != nil {
			log.Printf("producer: status: %v", perr)
		} else {
			p.published = true
			p.lastOK = err == nil
		}
	}
	if err != nil {
		return sample, err
	}
	if err := publishJSON(p.pub, p.topicEnv, sample); err != nil {
		return sample, err
	}
	return sample, nil
}

func publishJSON(pub publisher, topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal error (%s): %w", topic, err)
	}
	if token := pub.Publish(topic, 0, true, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT publish error (%s): %w", topic, token.Error())
	}
	return nil
}

func RunProducer() error {
	log.Println("starting pressure-computer MS5803 producer")

	cfg := config.Get()

	// --- Initialize sensor ---
	src, err := sensors.NewEnvSource(cfg)
	if err != nil {
		return fmt.Errorf("producer: %w", err)
	}
	defer src.Close()

	metrics := newSensorMetrics(src.Name())
	if err := metrics.register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("producer: metrics: %w", err)
	}
	if cfg.MetricsPort > 0 {
		http.Handle("/metrics", promhttp.Handler())
		go func() {
			addr := fmt.Sprintf(":%d", cfg.MetricsPort)
			log.Printf("producer: metrics listening on %s", addr)
			if err := http.ListenAndServe(addr, nil); err != nil {
				log.Printf("producer: metrics server: %v", err)
			}
		}()
	}

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect error: %w", token.Error())
	}
	defer client.Disconnect(250)

	log.Println("producer: connected to MQTT, starting publish loop")

	p := &producer{
		src:         src,
		pub:         client,
		topicEnv:    cfg.TopicEnv,
		topicStatus: cfg.TopicStatus,
		metrics:     metrics,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// main tick
	ticker := time.NewTicker(time.Duration(cfg.MS5803SampleInterval) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			log.Println("producer: shutting down")
			return nil
		case t := <-ticker.C:
			s, err := p.tick()
			if err != nil {
				log.Printf("producer: %v", err)
				continue
			}
			log.Printf("%s tick: %s T=%.2f°C P=%.1fmbar (D2=%d D1=%d)",
				t.Format(time.RFC3339), s.Source, s.Temperature, s.PressureMbar, s.RawTemperature, s.RawPressure)
		}
	}
}
