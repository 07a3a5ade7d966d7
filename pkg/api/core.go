package api

import (
	"net/http"
	"time"

	"github.com/uwscloud/fabric/pkg/billing"
	"github.com/uwscloud/fabric/pkg/types"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.json(w, http.StatusOK, map[string]any{
		"name":    "Fabric Control Plane",
		"version": Version,
		"status":  "running",
		"health":  "/health",
		"metrics": "/metrics",
	})
}

// handleHealth summarises node and container counts. The endpoint
// itself answers 200 as long as the catalog is readable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	timestamp := time.Now().UTC().Format(time.RFC3339)

	nodes, err := s.store.ListNodes()
	if err != nil {
		s.json(w, http.StatusOK, map[string]any{
			"status":    "unhealthy",
			"timestamp": timestamp,
			"error":     err.Error(),
		})
		return
	}
	containers, err := s.store.ListContainers()
	if err != nil {
		s.json(w, http.StatusOK, map[string]any{
			"status":    "unhealthy",
			"timestamp": timestamp,
			"error":     err.Error(),
		})
		return
	}

	healthyNodes := 0
	for _, node := range nodes {
		if node.Healthy {
			healthyNodes++
		}
	}
	runningContainers := 0
	for _, ctr := range containers {
		if ctr.Status == types.ContainerStatusRunning {
			runningContainers++
		}
	}

	s.json(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": timestamp,
		"nodes": map[string]int{
			"total":   len(nodes),
			"healthy": healthyNodes,
		},
		"containers": map[string]int{
			"total":   len(containers),
			"running": runningContainers,
		},
	})
}

func (s *Server) handleBillingUsage(w http.ResponseWriter, r *http.Request) {
	summary, err := s.billing.UsageSummary()
	if err != nil {
		s.fail(w, err, "")
		return
	}
	s.json(w, http.StatusOK, summary)
}

func (s *Server) handleBillingInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.billing.Invoices()
	if err != nil {
		s.fail(w, err, "")
		return
	}
	s.json(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (s *Server) handleBillingRates(w http.ResponseWriter, r *http.Request) {
	rates := map[string]map[string]any{}
	for serviceType, rate := range billing.Rates() {
		rates[serviceType] = map[string]any{
			"rate": rate.Amount,
			"unit": rate.Unit,
		}
	}
	s.json(w, http.StatusOK, map[string]any{"rates": rates})
}
