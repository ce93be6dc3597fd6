// AngelaMos | 2026
// handler.go

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
)

type Checker interface {
	Ping(ctx context.Context) error
}

// Probe is one readiness dependency. An Optional probe is reported but
// never fails readiness.
type Probe struct {
	Name     string
	Check    func(ctx context.Context) error
	Optional bool
}

// Ping adapts a Checker into a probe.
func Ping(name string, c Checker) Probe {
	p := Probe{Name: name}
	if c != nil {
		p.Check = c.Ping
	}
	return p
}

type Handler struct {
	probes   []Probe
	timeout  time.Duration
	ready    atomic.Bool
	shutdown atomic.Bool
}

func NewHandler(probes ...Probe) *Handler {
	return &Handler{
		probes:  probes,
		timeout: 5 * time.Second,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", h.Liveness)
	r.Get("/livez", h.Liveness)
	r.Get("/readyz", h.Readiness)
}

func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	if h.shutdown.Load() {
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: "shutting_down"})
		return
	}

	h.writeStatus(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	switch {
	case h.shutdown.Load():
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: "shutting_down"})
		return
	case !h.ready.Load():
		h.writeStatus(w, http.StatusServiceUnavailable, StatusResponse{Status: "not_ready"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := h.run(ctx)

	status, code := "ok", http.StatusOK
	for i, check := range checks {
		if check.Healthy {
			continue
		}
		if h.probes[i].Optional {
			if status == "ok" {
				status = "warn"
			}
			continue
		}
		status, code = "degraded", http.StatusServiceUnavailable
		break
	}

	h.writeStatus(w, code, ReadinessResponse{
		Status: status,
		Checks: checks,
	})
}

func (h *Handler) run(ctx context.Context) []HealthCheck {
	checks := make([]HealthCheck, len(h.probes))

	var wg sync.WaitGroup
	for i, p := range h.probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			checks[i] = runProbe(ctx, p)
		}()
	}
	wg.Wait()

	return checks
}

func runProbe(ctx context.Context, p Probe) HealthCheck {
	check := HealthCheck{Name: p.Name, Healthy: true, Optional: p.Optional}

	if p.Check == nil {
		check.Healthy = false
		check.Message = p.Name + " checker not configured"
		return check
	}

	start := time.Now()
	err := p.Check(ctx)
	check.Latency = time.Since(start).String()

	if err != nil {
		check.Healthy = false
		check.Message = "check failed"
	}

	return check
}

// SetReady opens readiness once startup wiring is complete. Handlers
// start not ready.
func (h *Handler) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Handler) SetShutdown(shutdown bool) {
	h.shutdown.Store(shutdown)
}

func (h *Handler) writeStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response
	_ = json.NewEncoder(w).Encode(data)
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ReadinessResponse struct {
	Status string        `json:"status"`
	Checks []HealthCheck `json:"checks"`
}

type HealthCheck struct {
	Name     string `json:"name"`
	Healthy  bool   `json:"healthy"`
	Optional bool   `json:"optional,omitempty"`
	Latency  string `json:"latency,omitempty"`
	Message  string `json:"message,omitempty"`
}
