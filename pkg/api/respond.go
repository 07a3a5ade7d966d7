package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/uwscloud/fabric/pkg/containers"
	"github.com/uwscloud/fabric/pkg/launcher"
	"github.com/uwscloud/fabric/pkg/nodeclient"
	"github.com/uwscloud/fabric/pkg/router"
	"github.com/uwscloud/fabric/pkg/scheduler"
	"github.com/uwscloud/fabric/pkg/storage"
)

// errorBody is the error envelope, a single detail string.
type errorBody struct {
	Detail string `json:"detail"`
}

func (s *Server) json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) error(w http.ResponseWriter, status int, detail string) {
	s.json(w, status, errorBody{Detail: detail})
}

// fail translates component errors into HTTP statuses. notFoundDetail
// replaces the generic message on catalog misses; pass "" where the
// error carries its own (router lookups do).
func (s *Server) fail(w http.ResponseWriter, err error, notFoundDetail string) {
	var statusErr *nodeclient.StatusError
	var notReady *launcher.NotReadyError
	var notHealthy *router.NotHealthyError

	switch {
	case errors.As(err, &statusErr):
		// Upstream already picked a status; pass it through.
		s.error(w, statusErr.StatusCode, statusErr.Body)
	case errors.Is(err, scheduler.ErrNoCapacity),
		errors.Is(err, containers.ErrNodeUnavailable):
		s.error(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &notHealthy):
		s.error(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		detail := err.Error()
		if notFoundDetail != "" {
			detail = notFoundDetail
		}
		s.error(w, http.StatusNotFound, detail)
	case errors.As(err, &notReady):
		s.error(w, http.StatusInternalServerError, err.Error())
	default:
		s.error(w, http.StatusInternalServerError, err.Error())
	}
}

// decode reads a JSON request body. An empty body decodes into the
// zero value so optional payloads stay optional.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	s.error(w, http.StatusBadRequest, "Invalid request body")
	return false
}
