package health

import (
	"context"
	"sync"
	"time"
)

type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type Result struct {
	Name       string `json:"name"`
	Healthy    bool   `json:"healthy"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// ProbeRunner runs readiness probes concurrently under one timeout.
type ProbeRunner struct {
	timeout time.Duration
	probes  []Probe
}

func NewProbeRunner(timeout time.Duration, probes ...Probe) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{timeout: timeout, probes: probes}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []Result) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	results := make([]Result, len(p.probes))
	var wg sync.WaitGroup
	for i, probe := range p.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := probe.Check(ctx)
			results[i] = Result{Name: probe.Name, Healthy: err == nil, DurationMS: time.Since(start).Milliseconds()}
			if err != nil {
				results[i].Error = err.Error()
			}
		}()
	}
	wg.Wait()

	ready := true
	for _, r := range results {
		ready = ready && r.Healthy
	}
	return ready, results
}
