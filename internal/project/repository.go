package project

import (
	"context"
	"database/sql"
	"time"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	RenameProject(ctx context.Context, id, name string) error
	DeleteProject(ctx context.Context, id string) error

	LoadState(ctx context.Context, projectID string) (timeline.State, error)
	SaveState(ctx context.Context, projectID string, st timeline.State) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, name, frame_rate, current_time_ms, created_at, updated_at)
		VALUES (?, ?, ?, 0, ?, ?)
	`, p.ID, p.Name, p.FrameRate, p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, frame_rate, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)
	return r.scanProject(row)
}

func (r *SQLiteRepository) scanProject(row *sql.Row) (*Project, error) {
	var p Project
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &p.FrameRate, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, frame_rate, created_at, updated_at
		FROM projects ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &p.FrameRate, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) RenameProject(ctx context.Context, id, name string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET name = ?, updated_at = datetime('now') WHERE id = ?
	`, name, id)
	return err
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

// LoadState rehydrates a project's timeline. Playback flags are transient and
// always come back false; only the playhead position survives a restart.
func (r *SQLiteRepository) LoadState(ctx context.Context, projectID string) (timeline.State, error) {
	var st timeline.State

	err := r.db.QueryRowContext(ctx,
		"SELECT current_time_ms FROM projects WHERE id = ?", projectID).Scan(&st.CurrentTime)
	if err == sql.ErrNoRows {
		return st, ErrNotFound
	}
	if err != nil {
		return st, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, source_uri, name, position_ms, duration_ms, source_offset_ms, volume
		FROM clips WHERE project_id = ? ORDER BY position_ms
	`, projectID)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var c timeline.Clip
		if err := rows.Scan(&c.ID, &c.SourceURI, &c.Name, &c.Position, &c.Duration, &c.SourceOffset, &c.Volume); err != nil {
			return st, err
		}
		st.Clips = append(st.Clips, c)
	}
	if err := rows.Err(); err != nil {
		return st, err
	}

	orows, err := r.db.QueryContext(ctx, `
		SELECT id, text, position_ms, duration_ms, x, y, font_size, color
		FROM text_overlays WHERE project_id = ? ORDER BY position_ms
	`, projectID)
	if err != nil {
		return st, err
	}
	defer orows.Close()

	for orows.Next() {
		var o timeline.TextOverlay
		if err := orows.Scan(&o.ID, &o.Text, &o.Position, &o.Duration,
			&o.Style.X, &o.Style.Y, &o.Style.FontSize, &o.Style.Color); err != nil {
			return st, err
		}
		st.TextClips = append(st.TextClips, o)
	}
	return st, orows.Err()
}

// SaveState replaces a project's persisted timeline with st in one
// transaction.
func (r *SQLiteRepository) SaveState(ctx context.Context, projectID string, st timeline.State) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE projects SET current_time_ms = ?, updated_at = datetime('now') WHERE id = ?
	`, st.CurrentTime, projectID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM clips WHERE project_id = ?", projectID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM text_overlays WHERE project_id = ?", projectID); err != nil {
		return err
	}

	for _, c := range st.Clips {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO clips (id, project_id, source_uri, name, position_ms, duration_ms, source_offset_ms, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, projectID, c.SourceURI, c.Name, c.Position, c.Duration, c.SourceOffset, c.Volume); err != nil {
			return err
		}
	}

	for _, o := range st.TextClips {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO text_overlays (id, project_id, text, position_ms, duration_ms, x, y, font_size, color)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, o.ID, projectID, o.Text, o.Position, o.Duration,
			o.Style.X, o.Style.Y, o.Style.FontSize, o.Style.Color); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}
