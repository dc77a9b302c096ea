package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/slok/bua/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := s.cfg.Tasks.Submit(r.Context(), req.toModel())
	if err != nil {
		if errors.Is(err, model.ErrNotValid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Errorf("Could not submit task: %v", err)
		writeError(w, http.StatusInternalServerError, "could not submit task")
		return
	}

	writeJSON(w, http.StatusOK, newTaskResponse(t))
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t, err := s.cfg.Tasks.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		s.logger.Errorf("Could not get task: %v", err)
		writeError(w, http.StatusInternalServerError, "could not get task")
		return
	}

	writeJSON(w, http.StatusOK, newTaskResultView(t))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.cfg.Tasks.List(r.Context())
	if err != nil {
		s.logger.Errorf("Could not list tasks: %v", err)
		writeError(w, http.StatusInternalServerError, "could not list tasks")
		return
	}

	views := make([]taskResultView, 0, len(tasks))
	for i := range tasks {
		views = append(views, newTaskResultView(&tasks[i]))
	}

	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGenerateKey(w http.ResponseWriter, r *http.Request) {
	var req generateKeyRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	credential, err := s.cfg.Keys.Generate(r.Context(), req.ExpiresInDays)
	if err != nil {
		s.logger.Errorf("Could not generate API key: %v", err)
		writeError(w, http.StatusInternalServerError, "could not generate API key")
		return
	}

	writeJSON(w, http.StatusOK, newKeyResponse(credential))
}

func (s *Server) handleRotateKey(w http.ResponseWriter, r *http.Request) {
	// The presented credential is the one rotated.
	credential, err := s.cfg.Keys.Rotate(r.Context(), r.Header.Get(APIKeyHeader))
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredential) {
			writeError(w, http.StatusBadRequest, "Invalid or expired API key")
			return
		}
		s.logger.Errorf("Could not rotate API key: %v", err)
		writeError(w, http.StatusInternalServerError, "could not rotate API key")
		return
	}

	writeJSON(w, http.StatusOK, newKeyResponse(credential))
}

func (s *Server) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.Keys.Revoke(r.Context(), r.Header.Get(APIKeyHeader)) {
		writeError(w, http.StatusBadRequest, "could not revoke API key")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (s *Server) handleListActiveKeys(w http.ResponseWriter, r *http.Request) {
	active, err := s.cfg.Keys.ListActive(r.Context())
	if err != nil {
		s.logger.Errorf("Could not list API keys: %v", err)
		writeError(w, http.StatusInternalServerError, "could not list API keys")
		return
	}

	views := map[string]keyInfoView{}
	for token, credential := range active {
		c := credential
		views[token] = newKeyInfoView(&c)
	}

	writeJSON(w, http.StatusOK, views)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
