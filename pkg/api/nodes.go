package api

import (
	"net"
	"net/http"
)

func (s *Server) handleRegisterNode(w http.ResponseWriter, r *http.Request) {
	nodeID := r.PathValue("node_id")
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		s.error(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	peerIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peerIP = r.RemoteAddr
	}

	node, err := s.registry.Register(nodeID, rawURL, peerIP, r.Header.Get("X-Forwarded-For"))
	if err != nil {
		s.error(w, http.StatusBadRequest, err.Error())
		return
	}

	s.json(w, http.StatusOK, map[string]any{
		"status":  "success",
		"node_id": node.ID,
		"url":     node.URL,
	})
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.store.ListNodes()
	if err != nil {
		s.fail(w, err, "")
		return
	}
	s.json(w, http.StatusOK, map[string]any{"nodes": nodes})
}

func (s *Server) handleProbeNode(w http.ResponseWriter, r *http.Request) {
	nodeID := r.PathValue("node_id")

	healthy, err := s.registry.Probe(r.Context(), nodeID)
	if err != nil {
		s.fail(w, err, "Node not found")
		return
	}

	s.json(w, http.StatusOK, map[string]any{
		"node_id": nodeID,
		"healthy": healthy,
	})
}
