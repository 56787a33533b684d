package app

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/pressure_computer/internal/config"
	"github.com/relabs-tech/pressure_computer/internal/env"
)

func formatSample(s env.Sample) string {
	return fmt.Sprintf(
		"[ENV ]  %-8s T=%7.2f°C  P=%7.1fmbar  D2=%10s D1=%10s",
		s.Source, s.Temperature, s.PressureMbar,
		humanize.Comma(int64(s.RawTemperature)), humanize.Comma(int64(s.RawPressure)),
	)
}

func formatStatus(s env.Status) string {
	if !s.OK {
		return fmt.Sprintf("[STAT]  %-8s ERROR %s", s.Source, s.Error)
	}
	return fmt.Sprintf("[STAT]  %-8s OK %s C=%v", s.Source, s.Precision, s.Calibration)
}

func RunConsoleMQTT() error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	// Subscribe to samples
	envToken := client.Subscribe(cfg.TopicEnv, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s env.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: env unmarshal error: %v", err)
			return
		}
		fmt.Println(formatSample(s))
	})
	envToken.Wait()
	if envToken.Error() != nil {
		return envToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicEnv)

	// Subscribe to sensor status
	statusToken := client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s env.Status
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("console: status unmarshal error: %v", err)
			return
		}
		fmt.Println(formatStatus(s))
	})
	statusToken.Wait()
	if statusToken.Error() != nil {
		return statusToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicStatus)

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
