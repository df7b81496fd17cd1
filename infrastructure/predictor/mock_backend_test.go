package predictor

import (
	"context"
	"sync"
	"time"
)

type step struct {
	resp Response
	err  error
}

// scriptedBackend replays steps in order, repeating the last one.
type scriptedBackend struct {
	mu    sync.Mutex
	model string
	steps []step
	calls int
	reqs  []Request
	block bool
}

func newScriptedBackend(steps ...step) *scriptedBackend {
	return &scriptedBackend{model: "scripted", steps: steps}
}

func (s *scriptedBackend) Generate(ctx context.Context, req Request) (Response, error) {
	s.mu.Lock()
	s.calls++
	s.reqs = append(s.reqs, req)
	i := min(s.calls-1, len(s.steps)-1)
	block := s.block
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return Response{}, ctx.Err()
	}
	if i < 0 {
		return Response{Text: "ok"}, nil
	}
	return s.steps[i].resp, s.steps[i].err
}

func (s *scriptedBackend) Model() string { return s.model }

func (s *scriptedBackend) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordedMetric struct {
	kind   string
	name   string
	value  float64
	labels map[string]string
}

type recordingCollector struct {
	mu      sync.Mutex
	metrics []recordedMetric
}

func (c *recordingCollector) add(kind, name string, v float64, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = append(c.metrics, recordedMetric{kind: kind, name: name, value: v, labels: labels})
}

func (c *recordingCollector) RecordLatency(op string, d time.Duration, labels map[string]string) {
	c.add("latency", op, d.Seconds(), labels)
}

func (c *recordingCollector) RecordCounter(name string, v float64, labels map[string]string) {
	c.add("counter", name, v, labels)
}

func (c *recordingCollector) RecordGauge(name string, v float64, labels map[string]string) {
	c.add("gauge", name, v, labels)
}

func (c *recordingCollector) RecordHistogram(name string, v float64, labels map[string]string) {
	c.add("histogram", name, v, labels)
}

func (c *recordingCollector) named(name string) []recordedMetric {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []recordedMetric
	for _, m := range c.metrics {
		if m.name == name {
			out = append(out, m)
		}
	}
	return out
}
