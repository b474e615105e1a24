package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"reviewgate/internal/config"
	"reviewgate/internal/domain"
	"reviewgate/internal/events"
	"reviewgate/internal/repo"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Now:    time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// InitProject creates a project and seeds its default threshold settings.
func (e Engine) InitProject(ctx context.Context, projectID, name, description, actorID string) (domain.Project, error) {
	if projectID == "" {
		return domain.Project{}, errors.New("project id is required")
	}
	if name == "" {
		name = projectID
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	p := domain.Project{
		ID:          projectID,
		Name:        name,
		Status:      "active",
		Description: description,
		CreatedAt:   e.now().UTC().Format(time.RFC3339),
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO projects(id,name,status,description,created_at) VALUES (?,?,?,?,?)`,
		p.ID, p.Name, p.Status, nullable(p.Description), p.CreatedAt); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	if err := e.Repo.UpsertSettingsTx(ctx, tx, p.ID, config.Default(p.ID)); err != nil {
		return domain.Project{}, fmt.Errorf("seed settings: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "project.init", p.ID, events.KindProject, p.ID, actorID, events.EventPayload{"status": p.Status}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// settingsOrDefault resolves stored settings, falling back to a complete
// default object. Reading never persists anything.
func (e Engine) settingsOrDefault(ctx context.Context, projectID string) (*config.Settings, error) {
	s, err := e.Repo.GetSettings(ctx, projectID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return config.Default(projectID), nil
		}
		return nil, err
	}
	return s, nil
}

// --- helpers ---

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
