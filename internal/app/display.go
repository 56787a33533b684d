package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/pressure_computer/internal/config"
	"github.com/relabs-tech/pressure_computer/internal/env"
)

// ssd1306DefaultAddr is the address ssd1306.NewI2C talks to.
const ssd1306DefaultAddr = 0x3C

// DisplayData holds the latest data for display
type DisplayData struct {
	mu sync.RWMutex

	sample     env.Sample
	haveSample bool
	status     env.Status
	haveStatus bool
}

// remapBus redirects the fixed ssd1306 address to the configured one.
type remapBus struct {
	i2c.Bus
	addr uint16
}

func (b *remapBus) Tx(addr uint16, w, r []byte) error {
	if addr == ssd1306DefaultAddr {
		addr = b.addr
	}
	return b.Bus.Tx(addr, w, r)
}

func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open(cfg.DisplayI2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	var dbus i2c.Bus = bus
	if cfg.DisplayI2CAddr != ssd1306DefaultAddr {
		dbus = &remapBus{Bus: bus, addr: cfg.DisplayI2CAddr}
	}
	dev, err := ssd1306.NewI2C(dbus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	// Data storage
	data := &DisplayData{}

	// Connect to MQTT
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDDisplay)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTTBroker)

	if err := subscribeDisplay(client, data, cfg); err != nil {
		return fmt.Errorf("failed to subscribe for display: %w", err)
	}

	// Display update loop
	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		data.mu.RLock()
		sample, haveSample := data.sample, data.haveSample
		status, haveStatus := data.status, data.haveStatus
		data.mu.RUnlock()

		img := renderEnv(sample, haveSample, status, haveStatus)
		if err := dev.Draw(dev.Bounds(), img, image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}

	return nil
}

func subscribeDisplay(client mqtt.Client, data *DisplayData, cfg *config.Config) error {
	token := client.Subscribe(cfg.TopicEnv, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s env.Sample
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("display: env unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.sample = s
		data.haveSample = true
		data.mu.Unlock()
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}

	token = client.Subscribe(cfg.TopicStatus, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s env.Status
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("display: status unmarshal error: %v", err)
			return
		}
		data.mu.Lock()
		data.status = s
		data.haveStatus = true
		data.mu.Unlock()
	})
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("display: subscribed to %s and %s", cfg.TopicEnv, cfg.TopicStatus)
	return nil
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// renderEnv draws the latest reading, or a waiting/error screen.
func renderEnv(s env.Sample, haveSample bool, st env.Status, haveStatus bool) *image1bit.VerticalLSB {
	img, drawer := newFrame()

	switch {
	case haveStatus && !st.OK:
		drawer.Dot = fixed.P(0, 13)
		drawer.DrawString(st.Source + " ERROR")
		msg := st.Error
		for y := 26; y <= 52 && msg != ""; y += 13 {
			n := len(msg)
			if n > 18 {
				n = 18
			}
			drawer.Dot = fixed.P(0, y)
			drawer.DrawString(msg[:n])
			msg = msg[n:]
		}
	case !haveSample:
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString("MS5803")
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString("Waiting...")
	default:
		drawer.Dot = fixed.P(0, 13)
		drawer.DrawString(s.Source)
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString(fmt.Sprintf("T: %7.2f C", s.Temperature))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString(fmt.Sprintf("P: %7.1f mbar", s.PressureMbar))
		drawer.Dot = fixed.P(0, 52)
		drawer.DrawString(s.Time.Format("15:04:05"))
	}
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newFrame()
	drawer.Dot = fixed.P(10, 26)
	drawer.DrawString("Pressure")
	drawer.Dot = fixed.P(10, 43)
	drawer.DrawString("Computer")
	return img
}
