package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Component names the server wiring reports under. The catalog, the
// node liveness loop and the front door gate readiness; the sweep
// loops only show up in the full health report.
const (
	ComponentCatalog    = "catalog"
	ComponentLiveness   = "liveness"
	ComponentFrontDoor  = "front_door"
	ComponentReconciler = "reconciler"
	ComponentAccountant = "accountant"
)

var readinessGate = []string{ComponentCatalog, ComponentLiveness, ComponentFrontDoor}

// componentState is the last report from one component.
type componentState struct {
	healthy bool
	detail  string
	updated time.Time
}

// healthBoard collects component reports for the process endpoints.
type healthBoard struct {
	mu      sync.RWMutex
	states  map[string]componentState
	started time.Time
	version string
}

var board = &healthBoard{
	states:  make(map[string]componentState),
	started: time.Now(),
}

// SetVersion records the build version included in health reports.
func SetVersion(v string) {
	board.mu.Lock()
	board.version = v
	board.mu.Unlock()
}

// ReportComponent records a component's state. Components report once
// on startup and again whenever their state changes.
func ReportComponent(name string, healthy bool, detail string) {
	board.mu.Lock()
	board.states[name] = componentState{
		healthy: healthy,
		detail:  detail,
		updated: time.Now(),
	}
	board.mu.Unlock()
}

// healthReport is the /healthz and /ready response body.
type healthReport struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime"`
	Components map[string]string `json:"components"`
}

func (b *healthBoard) health() (healthReport, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	report := healthReport{
		Status:     "healthy",
		Version:    b.version,
		Uptime:     time.Since(b.started).String(),
		Components: make(map[string]string, len(b.states)),
	}
	ok := true
	for name, st := range b.states {
		if st.healthy {
			report.Components[name] = "ok"
			continue
		}
		ok = false
		report.Status = "unhealthy"
		report.Components[name] = "down: " + st.detail
	}
	return report, ok
}

func (b *healthBoard) readiness() (healthReport, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	report := healthReport{
		Status:     "ready",
		Version:    b.version,
		Uptime:     time.Since(b.started).String(),
		Components: make(map[string]string, len(readinessGate)),
	}
	ready := true
	for _, name := range readinessGate {
		st, reported := b.states[name]
		switch {
		case !reported:
			ready = false
			report.Components[name] = "waiting"
		case !st.healthy:
			ready = false
			report.Components[name] = "down: " + st.detail
		default:
			report.Components[name] = "ok"
		}
	}
	if !ready {
		report.Status = "not_ready"
	}
	return report, ready
}

// HealthHandler reports every registered component, answering 503 as
// soon as any of them is down.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, ok := board.health()
		writeReport(w, report, ok)
	}
}

// ReadyHandler answers 503 until the catalog, the liveness loop and
// the front door have all reported healthy.
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, ready := board.readiness()
		writeReport(w, report, ready)
	}
}

// LivenessHandler answers 200 whenever the process can still serve.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "alive",
			"uptime": time.Since(board.started).String(),
		})
	}
}

func writeReport(w http.ResponseWriter, report healthReport, ok bool) {
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(report)
}
