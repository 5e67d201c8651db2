package ai

import (
	"context"
	"sync"
	"time"
)

// pingTimeout is the maximum time to wait for one collaborator to answer a ping.
const pingTimeout = 5 * time.Second

// Component names reported by CheckHealth.
const (
	ComponentStore       = "store"
	ComponentEmbedder    = "embedder"
	ComponentLLM         = "llm"
	ComponentTranscriber = "transcriber"
)

// Pinger is anything whose connectivity can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ComponentStatus is the outcome of probing one collaborator.
type ComponentStatus struct {
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Required bool   `json:"required"`
	Error    string `json:"error,omitempty"`
	Latency  string `json:"latency"`
}

// HealthReport lists component statuses in a stable order.
type HealthReport struct {
	Components []ComponentStatus `json:"components"`
}

// Healthy reports whether every required component answered.
func (h HealthReport) Healthy() bool {
	for _, c := range h.Components {
		if c.Required && !c.OK {
			return false
		}
	}
	return true
}

// Status returns "ok" or "degraded".
func (h HealthReport) Status() string {
	if h.Healthy() {
		return "ok"
	}
	return "degraded"
}

type probe struct {
	name     string
	required bool
	pinger   Pinger
}

// CheckHealth pings every collaborator concurrently, each bounded by
// pingTimeout. The transcriber is optional: text ingestion and questions
// work without it.
func (r *Runtime) CheckHealth(ctx context.Context) HealthReport {
	probes := []probe{
		{name: ComponentStore, required: true, pinger: r.Store},
		{name: ComponentEmbedder, required: true, pinger: r.Embedder},
		{name: ComponentLLM, required: true, pinger: r.LLM},
	}
	if r.Transcriber != nil {
		probes = append(probes, probe{name: ComponentTranscriber, pinger: r.Transcriber})
	}
	return checkAll(ctx, probes)
}

func checkAll(ctx context.Context, probes []probe) HealthReport {
	report := HealthReport{Components: make([]ComponentStatus, len(probes))}

	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func(i int, p probe) {
			defer wg.Done()
			report.Components[i] = ping(ctx, p)
		}(i, p)
	}
	wg.Wait()
	return report
}

func ping(ctx context.Context, p probe) ComponentStatus {
	status := ComponentStatus{Name: p.name, Required: p.required}
	if p.pinger == nil {
		status.Error = "not configured"
		status.Latency = "0s"
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	err := p.pinger.Ping(ctx)
	status.Latency = time.Since(start).Round(time.Millisecond).String()
	if err != nil {
		status.Error = err.Error()
		return status
	}
	status.OK = true
	return status
}
