// Package health implements liveness and readiness probes with
// Kubernetes-style thresholds. A check flips to unhealthy only after
// FailureThreshold consecutive failures and recovers after
// SuccessThreshold consecutive passes, which keeps a single slow database
// ping from taking the service out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one component. It returns nil when the component is
// healthy.
type CheckFunc func(ctx context.Context) error

const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 1
)

// probe carries one check and its threshold state. The fail/ok counters
// are touched only by the scheduler goroutine; healthy and lastErr are
// shared with HTTP handlers and use atomics.
type probe struct {
	name    string
	timeout time.Duration
	check   CheckFunc

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func newProbe(name string, timeout time.Duration, check CheckFunc) *probe {
	p := &probe{name: name, timeout: timeout, check: check}
	p.healthy.Store(true)
	return p
}

func (p *probe) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(checkCtx)
	p.lastErr.Store(&err)

	if err != nil {
		p.oks = 0
		p.fails++
		if p.fails >= defaultFailureThreshold {
			p.healthy.Store(false)
		}
		return
	}
	p.fails = 0
	p.oks++
	if p.oks >= defaultSuccessThreshold {
		p.healthy.Store(true)
	}
}

func (p *probe) failure() (string, bool) {
	if p.healthy.Load() {
		return "", false
	}
	if errp := p.lastErr.Load(); errp != nil && *errp != nil {
		return (*errp).Error(), true
	}
	return "check is unhealthy", true
}

// Tracker owns the registered probes and answers /livez and /readyz.
// Register all checks before calling Start; the tracker starts not-ready
// and stays so until SetReady(true).
type Tracker struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

func New() *Tracker {
	return &Tracker{}
}

// AddLiveness registers a liveness probe, for conditions where the process
// itself is broken and should be restarted.
func (t *Tracker) AddLiveness(name string, timeout time.Duration, check CheckFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.liveness = append(t.liveness, newProbe(name, timeout, check))
}

// AddReadiness registers a readiness probe, for dependencies that must be
// reachable before the service should receive traffic.
func (t *Tracker) AddReadiness(name string, timeout time.Duration, check CheckFunc) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readiness = append(t.readiness, newProbe(name, timeout, check))
}

// Start launches a single scheduler goroutine that runs every registered
// probe once per interval, beginning immediately.
func (t *Tracker) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.cancel = cancel
	probes := make([]*probe, 0, len(t.liveness)+len(t.readiness))
	probes = append(probes, t.liveness...)
	probes = append(probes, t.readiness...)
	t.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for _, p := range probes {
			p.run(ctx)
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, p := range probes {
					p.run(ctx)
				}
			}
		}
	}()
}

// Stop cancels the scheduler goroutine. Safe to call more than once.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// SetReady marks the service ready or not. Call with true after startup
// finishes and with false when graceful shutdown begins.
func (t *Tracker) SetReady(ready bool) {
	t.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// probe is passing.
func (t *Tracker) IsReady() bool {
	if !t.ready.Load() {
		return false
	}

	t.mu.RLock()
	probes := t.readiness
	t.mu.RUnlock()

	for _, p := range probes {
		if _, failed := p.failure(); failed {
			return false
		}
	}
	return true
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves the /livez probe.
func (t *Tracker) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	t.mu.RLock()
	probes := make([]*probe, len(t.liveness))
	copy(probes, t.liveness)
	t.mu.RUnlock()

	writeStatus(w, collectFailures(probes))
}

// ReadyEndpoint serves the /readyz probe. A service that was never marked
// ready reports a synthetic "_readiness" failure.
func (t *Tracker) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	ready := t.ready.Load()

	t.mu.RLock()
	probes := make([]*probe, len(t.readiness))
	copy(probes, t.readiness)
	t.mu.RUnlock()

	failures := collectFailures(probes)
	if !ready {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

func collectFailures(probes []*probe) map[string]string {
	failures := make(map[string]string)
	for _, p := range probes {
		if msg, failed := p.failure(); failed {
			failures[p.name] = msg
		}
	}
	return failures
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
