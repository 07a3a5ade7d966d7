package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/uwscloud/fabric/pkg/types"
)

func (s *Server) handleLaunchContainer(w http.ResponseWriter, r *http.Request) {
	var req types.LaunchRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Image == "" {
		s.error(w, http.StatusBadRequest, "image is required")
		return
	}

	container, resp, err := s.dispatcher.Launch(r.Context(), &req)
	if err != nil {
		s.fail(w, err, "")
		return
	}

	// The node's own response, with the catalog's container id on top.
	if resp == nil {
		resp = map[string]any{}
	}
	resp["container_id"] = container.ID
	s.json(w, http.StatusOK, resp)
}

func (s *Server) handleListContainers(w http.ResponseWriter, r *http.Request) {
	list, err := s.containers.ListAll()
	if err != nil {
		s.fail(w, err, "")
		return
	}
	s.json(w, http.StatusOK, list)
}

func (s *Server) handleUserContainers(w http.ResponseWriter, r *http.Request) {
	list, err := s.containers.ListByUser(r.PathValue("user_id"))
	if err != nil {
		s.fail(w, err, "")
		return
	}
	s.json(w, http.StatusOK, map[string]any{"containers": list})
}

func (s *Server) handleContainerStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := s.containers.Status(r.Context(), r.PathValue("container_id"))
	if err != nil {
		s.fail(w, err, "Container not found")
		return
	}
	s.json(w, http.StatusOK, resp)
}

func (s *Server) handleContainerPorts(w http.ResponseWriter, r *http.Request) {
	resp, err := s.containers.Ports(r.Context(), r.PathValue("container_id"))
	if err != nil {
		s.fail(w, err, "Container not found")
		return
	}
	s.json(w, http.StatusOK, resp)
}

func (s *Server) handleContainerStart(w http.ResponseWriter, r *http.Request) {
	s.containerLifecycle(w, r, "started", s.containers.Start)
}

func (s *Server) handleContainerStop(w http.ResponseWriter, r *http.Request) {
	s.containerLifecycle(w, r, "stopped", s.containers.Stop)
}

func (s *Server) handleContainerRestart(w http.ResponseWriter, r *http.Request) {
	s.containerLifecycle(w, r, "restarted", s.containers.Restart)
}

func (s *Server) containerLifecycle(w http.ResponseWriter, r *http.Request, verb string, op func(ctx context.Context, id string) error) {
	containerID := r.PathValue("container_id")
	if err := op(r.Context(), containerID); err != nil {
		s.fail(w, err, "Container not found")
		return
	}
	s.json(w, http.StatusOK, map[string]any{
		"container_id": containerID,
		"message":      fmt.Sprintf("Container %s %s successfully", containerID, verb),
	})
}

func (s *Server) handleContainerDelete(w http.ResponseWriter, r *http.Request) {
	containerID := r.PathValue("container_id")
	if err := s.containers.Delete(r.Context(), containerID); err != nil {
		s.fail(w, err, "Container not found")
		return
	}
	s.json(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Container %s deleted successfully", containerID),
	})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	resp, err := s.containers.Templates(r.Context())
	if err != nil {
		s.fail(w, err, "")
		return
	}
	s.json(w, http.StatusOK, resp)
}
