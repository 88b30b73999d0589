// Package health serves /livez and /readyz for the API server.
//
// Every probe runs on its own ticker. A probe turns unhealthy only after
// FailureThreshold consecutive failures and healthy again after
// SuccessThreshold consecutive passes, so a single slow database ping does
// not take the pod out of rotation.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"github.com/jonboulle/clockwork"
)

// CheckFunc returns nil when the checked dependency is healthy.
type CheckFunc func(ctx context.Context) error

// Thresholds tune when a probe flips state.
type Thresholds struct {
	Failure int
	Success int
}

var defaultThresholds = Thresholds{Failure: 3, Success: 1}

// probe holds the state of one check. The counters are touched only by the
// goroutine calling run; healthy and lastErr are read by HTTP handlers.
type probe struct {
	name       string
	timeout    time.Duration
	check      CheckFunc
	thresholds Thresholds

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func newProbe(name string, timeout time.Duration, check CheckFunc, th Thresholds) *probe {
	p := &probe{name: name, timeout: timeout, check: check, thresholds: th}
	p.healthy.Store(true)
	return p
}

func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(ctx)
	p.lastErr.Store(&err)
	if err != nil {
		p.oks = 0
		p.fails++
		if p.fails >= p.thresholds.Failure {
			p.healthy.Store(false)
		}
		return
	}
	p.fails = 0
	p.oks++
	if p.oks >= p.thresholds.Success {
		p.healthy.Store(true)
	}
}

// failure describes the probe when unhealthy.
func (p *probe) failure() (string, bool) {
	if p.healthy.Load() {
		return "", false
	}
	if errp := p.lastErr.Load(); errp != nil && *errp != nil {
		return (*errp).Error(), true
	}
	return "check is unhealthy", true
}

// Health tracks liveness and readiness probes of a service.
type Health struct {
	clock      clockwork.Clock
	thresholds Thresholds
	ready      atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
	cancel    context.CancelFunc
}

// Option configures Health.
type Option func(h *Health)

// WithClock sets the clock driving probe tickers.
func WithClock(c clockwork.Clock) Option {
	return func(h *Health) { h.clock = c }
}

// WithThresholds overrides the default 3 failures / 1 success thresholds.
func WithThresholds(th Thresholds) Option {
	return func(h *Health) {
		if th.Failure > 0 {
			h.thresholds.Failure = th.Failure
		}
		if th.Success > 0 {
			h.thresholds.Success = th.Success
		}
	}
}

// New returns a Health that is not ready yet.
func New(opts ...Option) *Health {
	h := &Health{
		clock:      clockwork.NewRealClock(),
		thresholds: defaultThresholds,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// AddLivenessCheck registers a check that decides whether the process should
// be restarted.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newProbe(name, timeout, check, h.thresholds))
}

// AddReadinessCheck registers a check that decides whether the service
// receives traffic, e.g. a database ping.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newProbe(name, timeout, check, h.thresholds))
}

// Start runs every registered probe once and then every interval until Stop
// or ctx cancellation.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	if h.cancel != nil {
		h.cancel()
	}
	h.cancel = cancel
	probes := slices.Concat(h.liveness, h.readiness)
	h.mu.Unlock()

	for _, p := range probes {
		ticker := h.clock.NewTicker(interval)
		go func() {
			defer ticker.Stop()
			p.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.Chan():
					p.run(ctx)
				}
			}
		}()
	}
}

// Stop cancels the probe goroutines. It is safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness switch: true after startup, false on
// shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// probe passes.
func (h *Health) IsReady() bool {
	return h.ready.Load() && len(failures(h.snapshot(false))) == 0
}

func (h *Health) snapshot(live bool) []*probe {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if live {
		return slices.Clone(h.liveness)
	}
	return slices.Clone(h.readiness)
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(h.snapshot(true)))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	f := failures(h.snapshot(false))
	if !h.ready.Load() {
		f = append(f, [2]string{"_readiness", "service is not ready"})
	}
	writeStatus(w, f)
}

// failures lists name/message pairs of unhealthy probes in registration
// order.
func failures(probes []*probe) [][2]string {
	var out [][2]string
	for _, p := range probes {
		if msg, failed := p.failure(); failed {
			out = append(out, [2]string{p.name, msg})
		}
	}
	return out
}

// writeStatus writes {"status":"ok"} or {"status":"unhealthy","checks":{}}.
func writeStatus(w http.ResponseWriter, failed [][2]string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	status := http.StatusOK
	e.ObjStart()
	e.FieldStart("status")
	if len(failed) == 0 {
		e.Str("ok")
	} else {
		status = http.StatusServiceUnavailable
		e.Str("unhealthy")
		e.FieldStart("checks")
		e.ObjStart()
		for _, f := range failed {
			e.FieldStart(f[0])
			e.Str(f[1])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}
