package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetHealthBoard() {
	board = &healthBoard{
		states:  make(map[string]componentState),
		started: time.Now(),
	}
}

func serveReport(t *testing.T, h http.HandlerFunc, path string) (int, healthReport) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h(w, req)

	var report healthReport
	require.NoError(t, json.NewDecoder(w.Body).Decode(&report))
	return w.Code, report
}

func TestReportComponent_LatestReportWins(t *testing.T) {
	resetHealthBoard()

	ReportComponent(ComponentCatalog, true, "")
	ReportComponent(ComponentCatalog, false, "db file locked")

	st := board.states[ComponentCatalog]
	assert.False(t, st.healthy)
	assert.Equal(t, "db file locked", st.detail)
	assert.False(t, st.updated.IsZero())
}

func TestHealthHandler_AllComponentsUp(t *testing.T) {
	resetHealthBoard()
	SetVersion("1.2.3")

	ReportComponent(ComponentCatalog, true, "")
	ReportComponent(ComponentReconciler, true, "")

	code, report := serveReport(t, HealthHandler(), "/healthz")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", report.Status)
	assert.Equal(t, "1.2.3", report.Version)
	assert.Equal(t, "ok", report.Components[ComponentCatalog])
	assert.Equal(t, "ok", report.Components[ComponentReconciler])
	assert.NotEmpty(t, report.Uptime)
}

func TestHealthHandler_DownComponent(t *testing.T) {
	resetHealthBoard()

	ReportComponent(ComponentCatalog, true, "")
	ReportComponent(ComponentAccountant, false, "sweep failed")

	code, report := serveReport(t, HealthHandler(), "/healthz")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", report.Status)
	assert.Equal(t, "down: sweep failed", report.Components[ComponentAccountant])
	assert.Equal(t, "ok", report.Components[ComponentCatalog])
}

func TestReadyHandler_WaitsForCoreComponents(t *testing.T) {
	resetHealthBoard()

	ReportComponent(ComponentFrontDoor, true, "")
	// catalog and liveness have not reported yet

	code, report := serveReport(t, ReadyHandler(), "/ready")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", report.Status)
	assert.Equal(t, "waiting", report.Components[ComponentCatalog])
	assert.Equal(t, "waiting", report.Components[ComponentLiveness])
	assert.Equal(t, "ok", report.Components[ComponentFrontDoor])
}

func TestReadyHandler_ReadyOnceCoreReports(t *testing.T) {
	resetHealthBoard()

	ReportComponent(ComponentCatalog, true, "")
	ReportComponent(ComponentLiveness, true, "")
	ReportComponent(ComponentFrontDoor, true, "")

	code, report := serveReport(t, ReadyHandler(), "/ready")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", report.Status)
}

func TestReadyHandler_DownCoreComponent(t *testing.T) {
	resetHealthBoard()

	ReportComponent(ComponentCatalog, false, "db file locked")
	ReportComponent(ComponentLiveness, true, "")
	ReportComponent(ComponentFrontDoor, true, "")

	code, report := serveReport(t, ReadyHandler(), "/ready")

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", report.Status)
	assert.Equal(t, "down: db file locked", report.Components[ComponentCatalog])
}

func TestReadyHandler_IgnoresSweepLoops(t *testing.T) {
	resetHealthBoard()

	ReportComponent(ComponentCatalog, true, "")
	ReportComponent(ComponentLiveness, true, "")
	ReportComponent(ComponentFrontDoor, true, "")
	ReportComponent(ComponentReconciler, false, "node gone")

	code, report := serveReport(t, ReadyHandler(), "/ready")

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", report.Status)
	assert.NotContains(t, report.Components, ComponentReconciler)
}

func TestLivenessHandler(t *testing.T) {
	resetHealthBoard()

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	w := httptest.NewRecorder()
	LivenessHandler()(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "alive", body["status"])
	assert.NotEmpty(t, body["uptime"])
}
