// Package health serves the /livez and /readyz endpoints of the API server.
//
// Every check runs on its own ticker. A check turns unhealthy only after
// failureThreshold consecutive failures and healthy again after
// successThreshold consecutive passes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CheckFunc returns nil while the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Kind tells liveness checks from readiness checks.
type Kind uint8

const (
	// Liveness checks whether the process itself works.
	Liveness Kind = iota
	// Readiness checks whether the server can take traffic.
	Readiness
)

func (k Kind) String() string {
	if k == Liveness {
		return "liveness"
	}
	return "readiness"
}

// monitor is one registered check. run is only ever called from the monitor's
// own goroutine, so the streak counters are unsynchronized; healthy and
// lastErr are read by HTTP handlers.
type monitor struct {
	name      string
	kind      Kind
	timeout   time.Duration
	fn        CheckFunc
	failAfter int
	okAfter   int
	lg        *zap.Logger

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func (m *monitor) isHealthy() bool { return m.healthy.Load() }

func (m *monitor) err() error {
	if e := m.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

func (m *monitor) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.fn(ctx)
	m.lastErr.Store(&err)

	if err != nil {
		m.oks = 0
		m.fails++
		if m.fails >= m.failAfter && m.healthy.Swap(false) {
			m.lg.Warn("Health check failing",
				zap.String("check", m.name),
				zap.Stringer("kind", m.kind),
				zap.Int("failures", m.fails),
				zap.Error(err),
			)
		}
		return
	}
	m.fails = 0
	m.oks++
	if m.oks >= m.okAfter && !m.healthy.Swap(true) {
		m.lg.Info("Health check recovered", zap.String("check", m.name), zap.Stringer("kind", m.kind))
	}
}

func (m *monitor) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.run(ctx)
		}
	}
}

// Option configures Health.
type Option func(*Health)

// WithLogger logs check state transitions to lg.
func WithLogger(lg *zap.Logger) Option {
	return func(h *Health) {
		if lg != nil {
			h.lg = lg
		}
	}
}

// CheckOption tunes a single check.
type CheckOption func(*monitor)

// WithFailureThreshold sets how many consecutive failures mark a check
// unhealthy. Default is 3.
func WithFailureThreshold(n int) CheckOption {
	return func(m *monitor) {
		if n > 0 {
			m.failAfter = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes mark a check
// healthy again. Default is 1.
func WithSuccessThreshold(n int) CheckOption {
	return func(m *monitor) {
		if n > 0 {
			m.okAfter = n
		}
	}
}

// Health holds the registered checks and the manual readiness switch.
type Health struct {
	ready atomic.Bool
	lg    *zap.Logger

	mu       sync.RWMutex
	monitors []*monitor
	cancel   context.CancelFunc
}

// New creates a Health that is not ready until SetReady(true).
func New(opts ...Option) *Health {
	h := &Health{lg: zap.NewNop()}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Health) add(kind Kind, name string, timeout time.Duration, fn CheckFunc, opts []CheckOption) {
	m := &monitor{
		name:      name,
		kind:      kind,
		timeout:   timeout,
		fn:        fn,
		failAfter: 3,
		okAfter:   1,
		lg:        h.lg,
	}
	for _, o := range opts {
		o(m)
	}
	m.healthy.Store(true)

	h.mu.Lock()
	h.monitors = append(h.monitors, m)
	h.mu.Unlock()
}

// AddLivenessCheck registers a check of the process itself, such as
// goroutine leaks or GC pauses.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc, opts ...CheckOption) {
	h.add(Liveness, name, timeout, check, opts)
}

// AddReadinessCheck registers a check of a dependency the server needs to
// serve requests, such as the database.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc, opts ...CheckOption) {
	h.add(Readiness, name, timeout, check, opts)
}

// checks returns the registered monitors of kind.
func (h *Health) checks(kind Kind) []*monitor {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*monitor
	for _, m := range h.monitors {
		if m.kind == kind {
			out = append(out, m)
		}
	}
	return out
}

// Start runs every registered check every interval until Stop is called or
// ctx is cancelled. Register checks before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	monitors := append([]*monitor(nil), h.monitors...)
	h.mu.Unlock()

	for _, m := range monitors {
		go m.loop(ctx, interval)
	}
}

// Stop halts the check goroutines. Calling it again is a no-op.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness switch: true once wiring is done,
// false when shutdown starts draining.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the switch is on and every readiness check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	for _, m := range h.checks(Readiness) {
		if !m.isHealthy() {
			return false
		}
	}
	return true
}

// Routes mounts the health endpoints on r.
func (h *Health) Routes(r chi.Router) {
	r.Get("/livez", h.LiveEndpoint)
	r.Get("/readyz", h.ReadyEndpoint)
}

// LiveEndpoint answers 200 {"status":"ok"} while all liveness checks pass
// and 503 with the failing checks otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeReport(w, failures(h.checks(Liveness)))
}

// ReadyEndpoint answers 200 only while IsReady would return true.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := failures(h.checks(Readiness))
	if !h.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeReport(w, failed)
}

// failures maps each unhealthy monitor to its last error.
func failures(monitors []*monitor) map[string]string {
	out := make(map[string]string)
	for _, m := range monitors {
		if m.isHealthy() {
			continue
		}
		if err := m.err(); err != nil {
			out[m.name] = err.Error()
		} else {
			out[m.name] = "check is unhealthy"
		}
	}
	return out
}

type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func writeReport(w http.ResponseWriter, failed map[string]string) {
	rep := report{Status: "ok"}
	code := http.StatusOK
	if len(failed) > 0 {
		rep = report{Status: "unhealthy", Checks: failed}
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(rep)
}
