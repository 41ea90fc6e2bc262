package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/reelcut/reelcut-agent/internal/export"
	"github.com/reelcut/reelcut-agent/internal/render"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

func addClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}

		var req AddClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.SourceURI == "" {
			WriteError(w, http.StatusBadRequest, "source_uri is required", "BAD_REQUEST")
			return
		}

		duration := req.DurationMs
		if duration <= 0 {
			if cfg.Prober == nil {
				WriteError(w, http.StatusBadRequest, "duration_ms is required", "BAD_REQUEST")
				return
			}
			probed, err := cfg.Prober.Probe(r.Context(), req.SourceURI)
			if err != nil {
				WriteError(w, http.StatusUnprocessableEntity, "cannot probe source: "+err.Error(), "PROBE_FAILED")
				return
			}
			duration = probed.DurationMs - req.SourceOffset
			if duration <= 0 {
				WriteError(w, http.StatusUnprocessableEntity, "source offset beyond source duration", "PROBE_FAILED")
				return
			}
		}

		volume := timeline.DefaultVolume
		if req.Volume != nil {
			volume = *req.Volume
		}

		clip := timeline.Clip{
			ID:           timeline.NewID(),
			SourceURI:    req.SourceURI,
			Name:         req.Name,
			Position:     req.PositionMs,
			Duration:     duration,
			SourceOffset: req.SourceOffset,
			Volume:       volume,
		}

		if err := sess.Store.AddClip(clip); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, clip)
	}
}

func updateClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}

		var patch timeline.ClipPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := sess.Store.UpdateClip(chi.URLParam(r, "clipID"), patch); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func removeClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}
		if err := sess.Store.RemoveClip(chi.URLParam(r, "clipID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func moveClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}

		var req MoveClipRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := sess.Store.MoveClip(chi.URLParam(r, "clipID"), req.PositionMs); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func splitClipHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}

		var req SplitClipRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
				return
			}
		}

		t := sess.Store.Snapshot().CurrentTime
		if req.TimeMs != nil {
			t = *req.TimeMs
		}

		left, right, err := sess.Store.SplitClip(chi.URLParam(r, "clipID"), t)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SplitResponse{Left: left, Right: right})
	}
}

func addOverlayHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}

		var req AddOverlayRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}
		if req.Text == "" {
			WriteError(w, http.StatusBadRequest, "text is required", "BAD_REQUEST")
			return
		}

		overlay := timeline.TextOverlay{
			ID:       timeline.NewID(),
			Text:     req.Text,
			Position: req.PositionMs,
			Duration: req.DurationMs,
		}
		if req.Style != nil {
			overlay.Style = *req.Style
		}

		if err := sess.Store.AddTextOverlay(overlay); err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, overlay)
	}
}

func updateOverlayHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}

		var patch timeline.OverlayPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := sess.Store.UpdateTextOverlay(chi.URLParam(r, "overlayID"), patch); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func removeOverlayHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}
		if err := sess.Store.RemoveTextOverlay(chi.URLParam(r, "overlayID")); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}

		var req SeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		sess.Store.Seek(req.TimeMs)
		WriteJSON(w, http.StatusOK, sessionToResponse(sess))
	}
}

func playHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}
		sess.Store.SetPlaying(true)
		WriteJSON(w, http.StatusOK, sessionToResponse(sess))
	}
}

func pauseHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}
		sess.Store.SetPlaying(false)
		WriteJSON(w, http.StatusOK, sessionToResponse(sess))
	}
}

// selectHandler records UI focus. The body carries a clip or overlay id; an
// empty id clears the selection. Overlay ids are tried when no clip matches.
func selectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}

		var req SelectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
			return
		}

		if err := sess.Store.SelectClip(req.ID); err != nil {
			if err := sess.Store.SelectOverlay(req.ID); err != nil {
				writeDomainError(w, err)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func layoutHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}

		pps := 100.0
		if raw := r.URL.Query().Get("pps"); raw != "" {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil || parsed <= 0 {
				WriteError(w, http.StatusBadRequest, "pps must be a positive number", "BAD_REQUEST")
				return
			}
			pps = parsed
		}

		WriteJSON(w, http.StatusOK, render.Compute(sess.Store.Snapshot(), pps))
	}
}

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := cfg.Projects.GetProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}

		edl := export.GenerateEDL(sess.Store.Snapshot(), p.Name, p.FrameRate)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition",
			`attachment; filename="`+export.SanitizeName(p.Name, 70)+`.edl"`)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(edl))
	}
}

func mediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := requireSession(cfg, w, r)
		if !ok {
			return
		}

		clipID := r.URL.Query().Get("clip_id")
		if clipID == "" {
			WriteError(w, http.StatusBadRequest, "clip_id is required", "BAD_REQUEST")
			return
		}

		var uri string
		for _, c := range sess.Store.Snapshot().Clips {
			if c.ID == clipID {
				uri = c.SourceURI
				break
			}
		}
		if uri == "" {
			WriteError(w, http.StatusNotFound, "clip not found", "NOT_FOUND")
			return
		}

		if err := cfg.Media.ServeSource(w, r, uri); err != nil {
			cfg.Logger.Error("media serving error", "error", err, "clip_id", clipID)
		}
	}
}
