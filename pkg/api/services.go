package api

import (
	"net/http"
	"strconv"

	"github.com/uwscloud/fabric/pkg/router"
	"github.com/uwscloud/fabric/pkg/types"
)

// launchService returns the launch handler for one service kind.
func (s *Server) launchService(kind types.ServiceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.ServiceLaunchRequest
		if !s.decode(w, r, &req) {
			return
		}

		result, err := s.launcher.Launch(r.Context(), kind, &req)
		if err != nil {
			s.fail(w, err, "")
			return
		}
		s.json(w, http.StatusOK, result)
	}
}

func (s *Server) listServices(kind types.ServiceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, err := s.router.List(kind)
		if err != nil {
			s.fail(w, err, "")
			return
		}
		s.json(w, http.StatusOK, map[string]any{"services": services})
	}
}

func (s *Server) getService(kind types.ServiceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc, err := s.router.Get(kind, r.PathValue("service_id"))
		if err != nil {
			s.fail(w, err, "")
			return
		}
		s.json(w, http.StatusOK, svc)
	}
}

func (s *Server) serviceHealth(kind types.ServiceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.router.CheckHealth(r.Context(), kind, r.PathValue("service_id"))
		if err != nil {
			s.fail(w, err, "")
			return
		}
		s.json(w, http.StatusOK, resp)
	}
}

func (s *Server) removeService(kind types.ServiceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := s.router.Remove(r.Context(), kind, r.PathValue("service_id"))
		if err != nil {
			s.fail(w, err, "")
			return
		}
		s.json(w, http.StatusOK, resp)
	}
}

// forwarded wraps the common pattern of the data-plane handlers: call
// the router, translate the error or write the envelope.
func (s *Server) forwarded(w http.ResponseWriter, resp map[string]any, err error) {
	if err != nil {
		s.fail(w, err, "")
		return
	}
	s.json(w, http.StatusOK, resp)
}

// Bucket

func (s *Server) handleBucketFiles(w http.ResponseWriter, r *http.Request) {
	resp, err := s.router.BucketFiles(r.Context(), r.PathValue("service_id"))
	s.forwarded(w, resp, err)
}

func (s *Server) handleBucketUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		s.error(w, http.StatusBadRequest, "file form field is required")
		return
	}
	defer file.Close()

	resp, err := s.router.BucketUpload(
		r.Context(), r.PathValue("service_id"),
		header.Filename, header.Header.Get("Content-Type"), file,
	)
	s.forwarded(w, resp, err)
}

func (s *Server) handleBucketDownload(w http.ResponseWriter, r *http.Request) {
	download, err := s.router.BucketDownload(r.Context(), r.PathValue("service_id"), r.PathValue("filename"))
	if err != nil {
		s.fail(w, err, "")
		return
	}

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+download.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(download.Content); err != nil {
		s.logger.Error().Err(err).Msg("failed to write download body")
	}
}

func (s *Server) handleBucketDeleteFile(w http.ResponseWriter, r *http.Request) {
	resp, err := s.router.BucketDeleteFile(r.Context(), r.PathValue("service_id"), r.PathValue("filename"))
	s.forwarded(w, resp, err)
}

// SQL

func (s *Server) handleSQLQuery(w http.ResponseWriter, r *http.Request) {
	var query map[string]any
	if !s.decode(w, r, &query) {
		return
	}
	resp, err := s.router.SQLQuery(r.Context(), r.PathValue("service_id"), query)
	s.forwarded(w, resp, err)
}

func (s *Server) handleSQLTables(w http.ResponseWriter, r *http.Request) {
	resp, err := s.router.SQLTables(r.Context(), r.PathValue("service_id"))
	s.forwarded(w, resp, err)
}

func (s *Server) handleSQLSchema(w http.ResponseWriter, r *http.Request) {
	resp, err := s.router.SQLSchema(r.Context(), r.PathValue("service_id"), r.PathValue("table"))
	s.forwarded(w, resp, err)
}

func (s *Server) handleSQLUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var update router.SQLConfigUpdate
	if !s.decode(w, r, &update) {
		return
	}
	resp, err := s.router.SQLUpdateConfig(r.Context(), r.PathValue("service_id"), &update)
	s.forwarded(w, resp, err)
}

func (s *Server) handleSQLStats(w http.ResponseWriter, r *http.Request) {
	resp, err := s.router.SQLStats(r.Context(), r.PathValue("service_id"))
	s.forwarded(w, resp, err)
}

// NoSQL

func (s *Server) handleNoSQLCollections(w http.ResponseWriter, r *http.Request) {
	resp, err := s.router.NoSQLCollections(r.Context(), r.PathValue("service_id"))
	s.forwarded(w, resp, err)
}

func (s *Server) handleNoSQLCreateCollection(w http.ResponseWriter, r *http.Request) {
	resp, err := s.router.NoSQLCreateCollection(r.Context(), r.PathValue("service_id"), r.PathValue("collection"))
	s.forwarded(w, resp, err)
}

func (s *Server) handleNoSQLSave(w http.ResponseWriter, r *http.Request) {
	var entity map[string]any
	if !s.decode(w, r, &entity) {
		return
	}
	resp, err := s.router.NoSQLSave(r.Context(), r.PathValue("service_id"), r.PathValue("collection"), entity)
	s.forwarded(w, resp, err)
}

func (s *Server) handleNoSQLQuery(w http.ResponseWriter, r *http.Request) {
	field := r.URL.Query().Get("field")
	value := r.URL.Query().Get("value")
	if field == "" {
		s.error(w, http.StatusBadRequest, "field query parameter is required")
		return
	}
	resp, err := s.router.NoSQLQuery(r.Context(), r.PathValue("service_id"), r.PathValue("collection"), field, value)
	s.forwarded(w, resp, err)
}

func (s *Server) handleNoSQLScan(w http.ResponseWriter, r *http.Request) {
	resp, err := s.router.NoSQLScan(r.Context(), r.PathValue("service_id"), r.PathValue("collection"))
	s.forwarded(w, resp, err)
}

func (s *Server) handleNoSQLGet(w http.ResponseWriter, r *http.Request) {
	resp, err := s.router.NoSQLGet(r.Context(), r.PathValue("service_id"), r.PathValue("collection"), r.PathValue("entity_id"))
	s.forwarded(w, resp, err)
}

func (s *Server) handleNoSQLUpdate(w http.ResponseWriter, r *http.Request) {
	var update map[string]any
	if !s.decode(w, r, &update) {
		return
	}
	resp, err := s.router.NoSQLUpdate(r.Context(), r.PathValue("service_id"), r.PathValue("collection"), r.PathValue("entity_id"), update)
	s.forwarded(w, resp, err)
}

func (s *Server) handleNoSQLDelete(w http.ResponseWriter, r *http.Request) {
	resp, err := s.router.NoSQLDelete(r.Context(), r.PathValue("service_id"), r.PathValue("collection"), r.PathValue("entity_id"))
	s.forwarded(w, resp, err)
}

// Queue

func (s *Server) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var message map[string]any
	if !s.decode(w, r, &message) {
		return
	}
	resp, err := s.router.QueueAdd(r.Context(), r.PathValue("service_id"), message)
	s.forwarded(w, resp, err)
}

func (s *Server) handleQueueRead(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.error(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}
	resp, err := s.router.QueueRead(r.Context(), r.PathValue("service_id"), limit)
	s.forwarded(w, resp, err)
}

func (s *Server) handleQueueDeleteMessage(w http.ResponseWriter, r *http.Request) {
	resp, err := s.router.QueueDeleteMessage(r.Context(), r.PathValue("service_id"), r.PathValue("message_id"))
	s.forwarded(w, resp, err)
}

// Secrets

func (s *Server) handleSecretCreate(w http.ResponseWriter, r *http.Request) {
	var secret map[string]any
	if !s.decode(w, r, &secret) {
		return
	}
	resp, err := s.router.SecretCreate(r.Context(), r.PathValue("service_id"), secret)
	s.forwarded(w, resp, err)
}

func (s *Server) handleSecretList(w http.ResponseWriter, r *http.Request) {
	resp, err := s.router.SecretList(r.Context(), r.PathValue("service_id"))
	s.forwarded(w, resp, err)
}

func (s *Server) handleSecretGet(w http.ResponseWriter, r *http.Request) {
	resp, err := s.router.SecretGet(r.Context(), r.PathValue("service_id"), r.PathValue("name"))
	s.forwarded(w, resp, err)
}

func (s *Server) handleSecretDelete(w http.ResponseWriter, r *http.Request) {
	resp, err := s.router.SecretDelete(r.Context(), r.PathValue("service_id"), r.PathValue("name"))
	s.forwarded(w, resp, err)
}
