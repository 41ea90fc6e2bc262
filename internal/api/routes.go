package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/reelcut/reelcut-agent/internal/project"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Get("/health", healthHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))

		r.Get("/projects", listProjectsHandler(cfg))
		r.Post("/projects", createProjectHandler(cfg))
		r.Get("/projects/{id}", getProjectHandler(cfg))
		r.Patch("/projects/{id}", renameProjectHandler(cfg))
		r.Delete("/projects/{id}", deleteProjectHandler(cfg))

		r.Post("/projects/{id}/session", openSessionHandler(cfg))
		r.Delete("/projects/{id}/session", closeSessionHandler(cfg))
		r.Post("/projects/{id}/session/save", saveSessionHandler(cfg))

		r.Get("/projects/{id}/timeline", timelineHandler(cfg))
		r.Get("/projects/{id}/layout", layoutHandler(cfg))
		r.Get("/projects/{id}/export/edl", exportEDLHandler(cfg))
		r.Get("/projects/{id}/media", mediaHandler(cfg))

		r.Post("/projects/{id}/clips", addClipHandler(cfg))
		r.Patch("/projects/{id}/clips/{clipID}", updateClipHandler(cfg))
		r.Delete("/projects/{id}/clips/{clipID}", removeClipHandler(cfg))
		r.Post("/projects/{id}/clips/{clipID}/move", moveClipHandler(cfg))
		r.Post("/projects/{id}/clips/{clipID}/split", splitClipHandler(cfg))

		r.Post("/projects/{id}/overlays", addOverlayHandler(cfg))
		r.Patch("/projects/{id}/overlays/{overlayID}", updateOverlayHandler(cfg))
		r.Delete("/projects/{id}/overlays/{overlayID}", removeOverlayHandler(cfg))

		r.Post("/projects/{id}/seek", seekHandler(cfg))
		r.Post("/projects/{id}/play", playHandler(cfg))
		r.Post("/projects/{id}/pause", pauseHandler(cfg))
		r.Post("/projects/{id}/select", selectHandler(cfg))
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  "0.1.0",
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, _ := cfg.Projects.ListProjects(r.Context())
		WriteJSON(w, http.StatusOK, StatusResponse{
			SessionsOpen:  cfg.Projects.SessionCount(),
			Playing:       cfg.Projects.AnyPlaying(),
			ProjectsCount: len(projects),
		})
	}
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Projects.ListProjects(r.Context())
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list projects", "INTERNAL_ERROR")
			return
		}

		resp := ProjectsResponse{Projects: make([]ProjectResponse, len(projects))}
		for i, p := range projects {
			resp.Projects[i] = ProjectToResponse(p)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func createProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		p, err := cfg.Projects.CreateProject(r.Context(), req.Name, req.FrameRate)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
			return
		}

		WriteJSON(w, http.StatusCreated, ProjectToResponse(p))
	}
}

func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cfg.Projects.GetProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, ProjectToResponse(p))
	}
}

func renameProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RenameProjectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Name == "" {
			WriteError(w, http.StatusBadRequest, "name is required", "BAD_REQUEST")
			return
		}

		if err := cfg.Projects.RenameProject(r.Context(), chi.URLParam(r, "id"), req.Name); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Projects.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func openSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := cfg.Projects.OpenSession(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, sessionToResponse(sess))
	}
}

func closeSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Projects.CloseSession(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func saveSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Projects.SaveSession(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func timelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, sessionToResponse(sess))
	}
}

func sessionToResponse(sess *project.Session) TimelineResponse {
	resp := TimelineResponse{
		ProjectID: sess.ProjectID,
		Playback:  sess.Sync.State().String(),
		State:     sess.Store.Snapshot(),
	}
	if err := sess.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	return resp
}

// requireSession resolves the session for the project in the URL, writing the
// error response itself when there is none.
func requireSession(cfg ServerConfig, w http.ResponseWriter, r *http.Request) (*project.Session, bool) {
	sess, err := cfg.Projects.Session(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return sess, true
}

// writeDomainError maps domain sentinels onto the HTTP error envelope.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, timeline.ErrOverlap):
		WriteError(w, http.StatusConflict, err.Error(), "OVERLAP")
	case errors.Is(err, timeline.ErrNoSplitPoint):
		WriteError(w, http.StatusUnprocessableEntity, err.Error(), "NO_SPLIT_POINT")
	case errors.Is(err, timeline.ErrNotFound), errors.Is(err, project.ErrNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "NOT_FOUND")
	case errors.Is(err, timeline.ErrInvalidClip):
		WriteError(w, http.StatusBadRequest, err.Error(), "INVALID_CLIP")
	case errors.Is(err, project.ErrNoSession):
		WriteError(w, http.StatusConflict, err.Error(), "NO_SESSION")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
