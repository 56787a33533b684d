package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/pressure_computer/internal/config"
	"github.com/relabs-tech/pressure_computer/internal/env"
	"github.com/relabs-tech/pressure_computer/internal/history"
)

const (
	defaultHistoryLen = 100
	maxHistoryLen     = 10000
)

// webState holds the latest sample and status received over MQTT.
type webState struct {
	mu         sync.RWMutex
	lastSample env.Sample
	haveSample bool
	lastStatus env.Status
	haveStatus bool

	metrics *sensorMetrics
	history *history.Store // nil when WEB_HISTORY_DB is empty
}

func (s *webState) handleEnv(_ mqtt.Client, msg mqtt.Message) {
	var sample env.Sample
	if err := json.Unmarshal(msg.Payload(), &sample); err != nil {
		log.Printf("web: env unmarshal error: %v", err)
		return
	}
	s.mu.Lock()
	s.lastSample = sample
	s.haveSample = true
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.observe(sample, nil)
	}
	if s.history != nil {
		if err := s.history.Insert(sample); err != nil {
			log.Printf("web: %v", err)
		}
	}
}

func (s *webState) handleStatus(_ mqtt.Client, msg mqtt.Message) {
	var st env.Status
	if err := json.Unmarshal(msg.Payload(), &st); err != nil {
		log.Printf("web: status unmarshal error: %v", err)
		return
	}
	s.mu.Lock()
	s.lastStatus = st
	s.haveStatus = true
	s.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// newWebMux wires the JSON API, the metrics endpoint and the static files.
func newWebMux(s *webState, g prometheus.Gatherer, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	// JSON API endpoint: latest sample
	mux.HandleFunc("/api/env", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if !s.haveSample {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, s.lastSample)
	})

	// JSON API endpoint: sensor status
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if !s.haveStatus {
			http.Error(w, "no data yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, s.lastStatus)
	})

	// JSON API endpoint: stored samples, newest first
	mux.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		if s.history == nil {
			http.Error(w, "history disabled", http.StatusNotFound)
			return
		}
		n := defaultHistoryLen
		if v := r.URL.Query().Get("n"); v != "" {
			var err error
			n, err = strconv.Atoi(v)
			if err != nil || n <= 0 || n > maxHistoryLen {
				http.Error(w, "invalid n", http.StatusBadRequest)
				return
			}
		}
		samples, err := s.history.Latest(n)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if samples == nil {
			samples = []env.Sample{}
		}
		writeJSON(w, samples)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))

	// Static files as the root
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	return mux
}

func RunWeb() error {
	cfg := config.Get()

	reg := prometheus.NewRegistry()
	state := &webState{metrics: newSensorMetrics(cfg.MS5803Name)}
	if err := state.metrics.register(reg); err != nil {
		return err
	}
	if cfg.WebHistoryDB != "" {
		store, err := history.Open(cfg.WebHistoryDB)
		if err != nil {
			return err
		}
		defer store.Close()
		state.history = store
		log.Printf("web: recording samples to %s", cfg.WebHistoryDB)
	}

	// 1) Connect to MQTT broker
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	// 2) Subscribe to samples and status
	if token := client.Subscribe(cfg.TopicEnv, 0, state.handleEnv); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	if token := client.Subscribe(cfg.TopicStatus, 0, state.handleStatus); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s and %s", cfg.TopicEnv, cfg.TopicStatus)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, newWebMux(state, reg, "web"))
}
