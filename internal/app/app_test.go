package app

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/relabs-tech/pressure_computer/internal/env"
)

type fakeToken struct{ err error }

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return &fakeToken{err: p.err}
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 0 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 0 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

// fakeSource returns sample, or err when set.
type fakeSource struct {
	sample env.Sample
	err    error
}

func (f *fakeSource) ReadEnv() (env.Sample, error) { return f.sample, f.err }

func (f *fakeSource) Status(err error) env.Status {
	st := env.Status{Source: f.sample.Source, OK: err == nil, Precision: "OSR4096"}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}

var testSample = env.Sample{
	Source:         "ms5803",
	Temperature:    20.0,
	Pressure:       101320,
	PressureMbar:   1013.2,
	RawTemperature: 8077636,
	RawPressure:    4436254,
}

func TestProducerTick(t *testing.T) {
	src := &fakeSource{sample: testSample}
	pub := &fakePublisher{}
	m := newSensorMetrics("ms5803")
	if err := m.register(prometheus.NewRegistry()); err != nil {
		t.Fatal(err)
	}
	p := &producer{src: src, pub: pub, topicEnv: "pressure/env", topicStatus: "pressure/status", metrics: m}

	if _, err := p.tick(); err != nil {
		t.Fatal(err)
	}
	if _, err := p.tick(); err != nil {
		t.Fatal(err)
	}
	// status once, then one sample per tick
	if len(pub.msgs) != 3 || pub.msgs[0].topic != "pressure/status" || pub.msgs[1].topic != "pressure/env" || pub.msgs[2].topic != "pressure/env" {
		t.Fatalf("published %+v", pub.msgs)
	}
	var got env.Sample
	if err := json.Unmarshal(pub.msgs[1].payload, &got); err != nil {
		t.Fatal(err)
	}
	if got != testSample || !pub.msgs[1].retained {
		t.Fatalf("got %+v", got)
	}
	if v := testutil.ToFloat64(m.pressure); v != 1013.2 {
		t.Fatalf("pressure gauge %v", v)
	}
	if v := testutil.ToFloat64(m.reads.WithLabelValues("ok")); v != 2 {
		t.Fatalf("ok reads %v", v)
	}

	src.err = errors.New("ms5803: bus timeout")
	if _, err := p.tick(); err == nil {
		t.Fatal("expected read error")
	}
	if len(pub.msgs) != 4 || pub.msgs[3].topic != "pressure/status" {
		t.Fatalf("published %+v", pub.msgs)
	}
	var st env.Status
	if err := json.Unmarshal(pub.msgs[3].payload, &st); err != nil {
		t.Fatal(err)
	}
	if st.OK || st.Error != "ms5803: bus timeout" {
		t.Fatalf("status %+v", st)
	}
	if v := testutil.ToFloat64(m.reads.WithLabelValues("error")); v != 1 {
		t.Fatalf("error reads %v", v)
	}
	if v := testutil.ToFloat64(m.pressure); v != 1013.2 {
		t.Fatalf("failed read changed gauge to %v", v)
	}
}

func TestProducerTick_PublishError(t *testing.T) {
	pub := &fakePublisher{err: errors.New("not connected")}
	p := &producer{src: &fakeSource{sample: testSample}, pub: pub, topicEnv: "e", topicStatus: "s", metrics: newSensorMetrics("x")}
	if _, err := p.tick(); err == nil || !strings.Contains(err.Error(), "MQTT publish error (e)") {
		t.Fatalf("got %v", err)
	}
	if p.published {
		t.Fatal("status marked as sent after a failed publish")
	}
}

func TestFormat(t *testing.T) {
	if got := formatSample(testSample); !strings.Contains(got, "T=  20.00°C") || !strings.Contains(got, "P= 1013.2mbar") ||
		!strings.Contains(got, "D2= 8,077,636 D1= 4,436,254") {
		t.Fatalf("formatSample() = %q", got)
	}
	if got := formatStatus(env.Status{Source: "ms5803", Error: "nack"}); !strings.Contains(got, "ERROR nack") {
		t.Fatalf("formatStatus() = %q", got)
	}
	if got := formatStatus(env.Status{Source: "ms5803", OK: true, Precision: "OSR256"}); !strings.Contains(got, "OK OSR256") {
		t.Fatalf("formatStatus() = %q", got)
	}
}
