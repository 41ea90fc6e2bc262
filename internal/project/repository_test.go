package project

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/reelcut/reelcut-agent/internal/db"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

func setupTestDB(t *testing.T) (*db.DB, Repository) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := db.New(dbPath, nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	repo := NewRepository(database.Conn())
	return database, repo
}

func createTestProject(t *testing.T, repo Repository, name string) *Project {
	t.Helper()
	now := time.Now()
	p := &Project{ID: timeline.NewID(), Name: name, FrameRate: 30.0, CreatedAt: now, UpdatedAt: now}
	if err := repo.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject() error = %v", err)
	}
	return p
}

func TestRepository_ProjectCRUD(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	p := createTestProject(t, repo, "My Cut")

	got, err := repo.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject() error = %v", err)
	}
	if got == nil || got.Name != "My Cut" || got.FrameRate != 30.0 {
		t.Errorf("GetProject() = %+v, want name My Cut at 30fps", got)
	}

	if err := repo.RenameProject(ctx, p.ID, "Final Cut"); err != nil {
		t.Fatalf("RenameProject() error = %v", err)
	}
	got, _ = repo.GetProject(ctx, p.ID)
	if got.Name != "Final Cut" {
		t.Errorf("name after rename = %q, want Final Cut", got.Name)
	}

	list, err := repo.ListProjects(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListProjects() = %v projects, err %v, want 1", len(list), err)
	}

	if err := repo.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}
	got, err = repo.GetProject(ctx, p.ID)
	if err != nil || got != nil {
		t.Errorf("GetProject() after delete = %v, %v, want nil, nil", got, err)
	}
}

func TestRepository_SaveLoadState(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	p := createTestProject(t, repo, "Roundtrip")

	st := timeline.State{
		Clips: []timeline.Clip{
			{ID: "c1", SourceURI: "file:///a.mp4", Name: "A", Position: 0, Duration: 2000, Volume: 100},
			{ID: "c2", SourceURI: "file:///b.mp4", Name: "B", Position: 2000, Duration: 3000, SourceOffset: 500, Volume: 150},
		},
		TextClips: []timeline.TextOverlay{
			{ID: "t1", Text: "hello", Position: 100, Duration: 900,
				Style: timeline.OverlayStyle{X: 0.25, Y: 0.75, FontSize: 32, Color: "#ff0000"}},
		},
		CurrentTime: 1500,
		IsPlaying:   true,
	}

	if err := repo.SaveState(ctx, p.ID, st); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	loaded, err := repo.LoadState(ctx, p.ID)
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}

	if !reflect.DeepEqual(loaded.Clips, st.Clips) {
		t.Errorf("clips roundtrip mismatch:\n got %+v\nwant %+v", loaded.Clips, st.Clips)
	}
	if !reflect.DeepEqual(loaded.TextClips, st.TextClips) {
		t.Errorf("overlays roundtrip mismatch:\n got %+v\nwant %+v", loaded.TextClips, st.TextClips)
	}
	if loaded.CurrentTime != 1500 {
		t.Errorf("CurrentTime = %d, want 1500", loaded.CurrentTime)
	}
	if loaded.IsPlaying {
		t.Error("IsPlaying should not be persisted")
	}
}

func TestRepository_SaveStateReplaces(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	p := createTestProject(t, repo, "Replace")

	first := timeline.State{Clips: []timeline.Clip{
		{ID: "old", SourceURI: "s", Position: 0, Duration: 1000, Volume: 100},
	}}
	if err := repo.SaveState(ctx, p.ID, first); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	second := timeline.State{Clips: []timeline.Clip{
		{ID: "new", SourceURI: "s", Position: 500, Duration: 1000, Volume: 100},
	}}
	if err := repo.SaveState(ctx, p.ID, second); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	loaded, err := repo.LoadState(ctx, p.ID)
	if err != nil {
		t.Fatalf("LoadState() error = %v", err)
	}
	if len(loaded.Clips) != 1 || loaded.Clips[0].ID != "new" {
		t.Errorf("clips after re-save = %+v, want single clip new", loaded.Clips)
	}
}

func TestRepository_StateUnknownProject(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	if _, err := repo.LoadState(ctx, "missing"); err != ErrNotFound {
		t.Errorf("LoadState() error = %v, want ErrNotFound", err)
	}
	if err := repo.SaveState(ctx, "missing", timeline.State{}); err != ErrNotFound {
		t.Errorf("SaveState() error = %v, want ErrNotFound", err)
	}
}

func TestRepository_DeleteCascadesTimeline(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	p := createTestProject(t, repo, "Cascade")
	st := timeline.State{
		Clips:     []timeline.Clip{{ID: "c", SourceURI: "s", Position: 0, Duration: 1000, Volume: 100}},
		TextClips: []timeline.TextOverlay{{ID: "t", Text: "x", Position: 0, Duration: 500}},
	}
	if err := repo.SaveState(ctx, p.ID, st); err != nil {
		t.Fatalf("SaveState() error = %v", err)
	}

	if err := repo.DeleteProject(ctx, p.ID); err != nil {
		t.Fatalf("DeleteProject() error = %v", err)
	}

	var count int
	if err := database.Conn().QueryRow("SELECT COUNT(*) FROM clips").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("clips remaining after project delete = %d, want 0", count)
	}
	if err := database.Conn().QueryRow("SELECT COUNT(*) FROM text_overlays").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("overlays remaining after project delete = %d, want 0", count)
	}
}

func TestRepository_Config(t *testing.T) {
	database, repo := setupTestDB(t)
	defer database.Close()
	ctx := context.Background()

	got, err := repo.GetConfig(ctx, "device_id")
	if err != nil || got != "" {
		t.Fatalf("GetConfig() on empty = %q, %v, want empty, nil", got, err)
	}

	if err := repo.SetConfig(ctx, "device_id", "abc"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	if err := repo.SetConfig(ctx, "device_id", "def"); err != nil {
		t.Fatalf("SetConfig() upsert error = %v", err)
	}

	got, err = repo.GetConfig(ctx, "device_id")
	if err != nil || got != "def" {
		t.Errorf("GetConfig() = %q, %v, want def", got, err)
	}
}
