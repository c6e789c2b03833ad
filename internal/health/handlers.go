package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/noah-isme/chowpati-api/internal/common"
)

var ready atomic.Bool

func init() { ready.Store(true) }

// SetReady toggles readiness, e.g. while the server drains on shutdown.
func SetReady(v bool) { ready.Store(v) }

// Probe checks one dependency.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(ctx context.Context) error
}

// Handler exposes HTTP handlers for health endpoints. Only configured
// dependencies are probed; the in-memory mode has none.
type Handler struct {
	Probes []Probe
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on dependency probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		common.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting down"})
		return
	}
	status := map[string]string{"status": "ok"}
	code := http.StatusOK
	for _, p := range h.Probes {
		if err := p.run(r.Context()); err != nil {
			status[p.Name] = err.Error()
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		status[p.Name] = "ok"
	}
	common.JSON(w, code, status)
}

func (p Probe) run(ctx context.Context) error {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Check(ctx)
}
