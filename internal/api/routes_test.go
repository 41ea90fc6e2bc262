package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reelcut/reelcut-agent/internal/db"
	"github.com/reelcut/reelcut-agent/internal/media"
	"github.com/reelcut/reelcut-agent/internal/playback"
	"github.com/reelcut/reelcut-agent/internal/project"
)

const testToken = "test-token"

type testServer struct {
	router   http.Handler
	projects *project.Service
	repo     project.Repository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	database, err := db.New(filepath.Join(t.TempDir(), "test.db"), nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	repo := project.NewRepository(database.Conn())
	if err := repo.SetConfig(context.Background(), "auth_token", testToken); err != nil {
		t.Fatalf("failed to store auth token: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := project.NewService(repo, func() playback.Player {
		return playback.NewStubPlayer(nil)
	}, 0, logger)

	router := NewRouter(ServerConfig{
		Projects:   svc,
		Repository: repo,
		Media:      media.NewServer(logger),
		Prober:     &media.StubProber{DurationMs: 4000},
		Logger:     logger,
		StartTime:  time.Now(),
		DeviceID:   "test-device",
	})

	return &testServer{router: router, projects: svc, repo: repo}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) openProject(t *testing.T) string {
	t.Helper()

	rr := ts.do(t, http.MethodPost, "/projects", CreateProjectRequest{Name: "Test", FrameRate: 30})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create project status = %d, body %s", rr.Code, rr.Body.String())
	}
	var p ProjectResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("failed to decode project: %v", err)
	}

	rr = ts.do(t, http.MethodPost, "/projects/"+p.ID+"/session", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("open session status = %d, body %s", rr.Code, rr.Body.String())
	}
	return p.ID
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return body
}

func TestHealthHandler_NoAuth(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if body["device_id"] != "test-device" {
		t.Errorf("device_id = %v, want test-device", body["device_id"])
	}
}

func TestAuthMiddleware_RejectsBadTokens(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"wrong token", "Bearer wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			ts.router.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rr.Code)
			}
		})
	}
}

func TestProjectLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/projects", CreateProjectRequest{Name: "Cut One", FrameRate: 24})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	var p ProjectResponse
	json.Unmarshal(rr.Body.Bytes(), &p)
	if p.Name != "Cut One" || p.FrameRate != 24 {
		t.Errorf("created project = %+v", p)
	}

	rr = ts.do(t, http.MethodGet, "/projects", nil)
	var list ProjectsResponse
	json.Unmarshal(rr.Body.Bytes(), &list)
	if len(list.Projects) != 1 {
		t.Fatalf("listed %d projects, want 1", len(list.Projects))
	}

	rr = ts.do(t, http.MethodPatch, "/projects/"+p.ID, RenameProjectRequest{Name: "Cut Two"})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("rename status = %d", rr.Code)
	}

	rr = ts.do(t, http.MethodGet, "/projects/"+p.ID, nil)
	json.Unmarshal(rr.Body.Bytes(), &p)
	if p.Name != "Cut Two" {
		t.Errorf("name after rename = %q", p.Name)
	}

	rr = ts.do(t, http.MethodDelete, "/projects/"+p.ID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rr.Code)
	}
	rr = ts.do(t, http.MethodGet, "/projects/"+p.ID, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rr.Code)
	}
}

func TestTimelineRequiresSession(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(t, http.MethodPost, "/projects", CreateProjectRequest{Name: "Closed"})
	var p ProjectResponse
	json.Unmarshal(rr.Body.Bytes(), &p)

	rr = ts.do(t, http.MethodGet, "/projects/"+p.ID+"/timeline", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "NO_SESSION" {
		t.Errorf("code = %v, want NO_SESSION", body["code"])
	}
}

func TestAddClip_Overlap(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openProject(t)

	rr := ts.do(t, http.MethodPost, "/projects/"+id+"/clips", AddClipRequest{
		SourceURI: "file:///a.mp4", PositionMs: 0, DurationMs: 2000,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("first add status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = ts.do(t, http.MethodPost, "/projects/"+id+"/clips", AddClipRequest{
		SourceURI: "file:///b.mp4", PositionMs: 1999, DurationMs: 1000,
	})
	if rr.Code != http.StatusConflict {
		t.Fatalf("overlapping add status = %d, want 409", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if body["code"] != "OVERLAP" {
		t.Errorf("code = %v, want OVERLAP", body["code"])
	}

	// Adjacent at the boundary is allowed (half-open intervals).
	rr = ts.do(t, http.MethodPost, "/projects/"+id+"/clips", AddClipRequest{
		SourceURI: "file:///b.mp4", PositionMs: 2000, DurationMs: 1000,
	})
	if rr.Code != http.StatusCreated {
		t.Errorf("adjacent add status = %d, want 201", rr.Code)
	}
}

func TestAddClip_ProbedDuration(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openProject(t)

	rr := ts.do(t, http.MethodPost, "/projects/"+id+"/clips", AddClipRequest{
		SourceURI: "file:///a.mp4", PositionMs: 0, SourceOffset: 1000,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := decodeJSONBody(t, rr)
	// Stub prober reports 4000ms; offset 1000 leaves 3000.
	if got := body["duration_ms"].(float64); got != 3000 {
		t.Errorf("probed duration = %v, want 3000", got)
	}
}

func TestSplitClip(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openProject(t)

	rr := ts.do(t, http.MethodPost, "/projects/"+id+"/clips", AddClipRequest{
		SourceURI: "file:///a.mp4", Name: "take", PositionMs: 0, DurationMs: 2000,
	})
	body := decodeJSONBody(t, rr)
	clipID := body["id"].(string)

	splitAt := int64(700)
	rr = ts.do(t, http.MethodPost, fmt.Sprintf("/projects/%s/clips/%s/split", id, clipID),
		SplitClipRequest{TimeMs: &splitAt})
	if rr.Code != http.StatusOK {
		t.Fatalf("split status = %d, body %s", rr.Code, rr.Body.String())
	}

	var split SplitResponse
	json.Unmarshal(rr.Body.Bytes(), &split)
	if split.Left.Duration != 700 || split.Right.Position != 700 || split.Right.Duration != 1300 {
		t.Errorf("split halves = %+v / %+v", split.Left, split.Right)
	}
	if split.Right.Name != "take (cont.)" {
		t.Errorf("right name = %q", split.Right.Name)
	}

	// Boundary is not an interior point.
	boundary := int64(0)
	rr = ts.do(t, http.MethodPost, fmt.Sprintf("/projects/%s/clips/%s/split", id, split.Left.ID),
		SplitClipRequest{TimeMs: &boundary})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("boundary split status = %d, want 422", rr.Code)
	}
	if got := decodeJSONBody(t, rr)["code"]; got != "NO_SPLIT_POINT" {
		t.Errorf("code = %v, want NO_SPLIT_POINT", got)
	}
}

func TestUpdateClip_NotFound(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openProject(t)

	rr := ts.do(t, http.MethodPatch, "/projects/"+id+"/clips/missing",
		map[string]interface{}{"position_ms": 500})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if got := decodeJSONBody(t, rr)["code"]; got != "NOT_FOUND" {
		t.Errorf("code = %v, want NOT_FOUND", got)
	}
}

func TestTransportEndpoints(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openProject(t)

	ts.do(t, http.MethodPost, "/projects/"+id+"/clips", AddClipRequest{
		SourceURI: "file:///a.mp4", PositionMs: 0, DurationMs: 2000,
	})

	rr := ts.do(t, http.MethodPost, "/projects/"+id+"/seek", SeekRequest{TimeMs: 500})
	if rr.Code != http.StatusOK {
		t.Fatalf("seek status = %d", rr.Code)
	}
	var tl TimelineResponse
	json.Unmarshal(rr.Body.Bytes(), &tl)
	if tl.State.CurrentTime != 500 {
		t.Errorf("playhead after seek = %d, want 500", tl.State.CurrentTime)
	}

	rr = ts.do(t, http.MethodPost, "/projects/"+id+"/play", nil)
	json.Unmarshal(rr.Body.Bytes(), &tl)
	if !tl.State.IsPlaying {
		t.Error("IsPlaying = false after play")
	}

	rr = ts.do(t, http.MethodPost, "/projects/"+id+"/pause", nil)
	json.Unmarshal(rr.Body.Bytes(), &tl)
	if tl.State.IsPlaying {
		t.Error("IsPlaying = true after pause")
	}

	rr = ts.do(t, http.MethodGet, "/projects/"+id+"/timeline", nil)
	json.Unmarshal(rr.Body.Bytes(), &tl)
	if len(tl.State.Clips) != 1 || tl.Playback == "" {
		t.Errorf("timeline response = %+v", tl)
	}
}

func TestOverlayEndpoints(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openProject(t)

	rr := ts.do(t, http.MethodPost, "/projects/"+id+"/overlays", AddOverlayRequest{
		Text: "lower third", PositionMs: 100, DurationMs: 900,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("add overlay status = %d, body %s", rr.Code, rr.Body.String())
	}
	overlayID := decodeJSONBody(t, rr)["id"].(string)

	rr = ts.do(t, http.MethodPatch, "/projects/"+id+"/overlays/"+overlayID,
		map[string]interface{}{"text": "upper third"})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("update overlay status = %d", rr.Code)
	}

	rr = ts.do(t, http.MethodGet, "/projects/"+id+"/timeline", nil)
	var tl TimelineResponse
	json.Unmarshal(rr.Body.Bytes(), &tl)
	if len(tl.State.TextClips) != 1 || tl.State.TextClips[0].Text != "upper third" {
		t.Errorf("overlays = %+v", tl.State.TextClips)
	}

	rr = ts.do(t, http.MethodDelete, "/projects/"+id+"/overlays/"+overlayID, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete overlay status = %d", rr.Code)
	}
}

func TestLayoutHandler(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openProject(t)

	ts.do(t, http.MethodPost, "/projects/"+id+"/clips", AddClipRequest{
		SourceURI: "file:///a.mp4", PositionMs: 1000, DurationMs: 2000,
	})
	ts.do(t, http.MethodPost, "/projects/"+id+"/seek", SeekRequest{TimeMs: 1500})

	rr := ts.do(t, http.MethodGet, "/projects/"+id+"/layout?pps=10", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("layout status = %d", rr.Code)
	}
	body := decodeJSONBody(t, rr)
	if got := body["playhead_x"].(float64); got != 15 {
		t.Errorf("playhead_x = %v, want 15", got)
	}
	rects := body["clip_rects"].([]interface{})
	rect := rects[0].(map[string]interface{})
	if rect["left"].(float64) != 10 || rect["width"].(float64) != 20 {
		t.Errorf("clip rect = %v, want left 10 width 20", rect)
	}

	rr = ts.do(t, http.MethodGet, "/projects/"+id+"/layout?pps=-1", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("negative pps status = %d, want 400", rr.Code)
	}
}

func TestExportEDLHandler(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openProject(t)

	ts.do(t, http.MethodPost, "/projects/"+id+"/clips", AddClipRequest{
		SourceURI: "file:///a.mp4", Name: "Intro", PositionMs: 0, DurationMs: 2000,
	})

	rr := ts.do(t, http.MethodGet, "/projects/"+id+"/export/edl", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export status = %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("TITLE: Test")) {
		t.Errorf("EDL missing title: %s", rr.Body.String())
	}
}

func TestMediaHandler(t *testing.T) {
	ts := newTestServer(t)
	id := ts.openProject(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("0123456789"), 0644); err != nil {
		t.Fatal(err)
	}

	rr := ts.do(t, http.MethodPost, "/projects/"+id+"/clips", AddClipRequest{
		SourceURI: path, PositionMs: 0, DurationMs: 1000,
	})
	clipID := decodeJSONBody(t, rr)["id"].(string)

	req := httptest.NewRequest(http.MethodGet, "/projects/"+id+"/media?clip_id="+clipID, nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Range", "bytes=2-5")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusPartialContent || rec.Body.String() != "2345" {
		t.Errorf("status %d body %q, want 206 %q", rec.Code, rec.Body.String(), "2345")
	}

	rr = ts.do(t, http.MethodGet, "/projects/"+id+"/media?clip_id=missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown clip status = %d, want 404", rr.Code)
	}
}
