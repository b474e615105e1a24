package engine

import (
	"context"
	"fmt"

	"reviewgate/internal/config"
	"reviewgate/internal/events"
)

// GetProjectSettings returns stored settings or a complete default object
// when none exist. Reading never persists the defaults.
func (e Engine) GetProjectSettings(ctx context.Context, projectID string) (*config.Settings, error) {
	return e.settingsOrDefault(ctx, projectID)
}

// UpdateProjectSettings merges the patch onto current-or-default settings,
// validates the result and upserts it. A validation failure rejects the
// whole write; a missing project is a not-found error.
func (e Engine) UpdateProjectSettings(ctx context.Context, projectID string, patch config.Patch, actorID string) (*config.Settings, error) {
	if _, err := e.Repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	current, err := e.settingsOrDefault(ctx, projectID)
	if err != nil {
		return nil, err
	}
	patch.Apply(current)
	if err := current.Validate(); err != nil {
		return nil, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertSettingsTx(ctx, tx, projectID, current); err != nil {
		return nil, fmt.Errorf("upsert settings: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "settings.updated", projectID, events.KindSettings, projectID, actorID, events.EventPayload{
		"thresholds": []int{current.LowRiskThreshold, current.MediumRiskThreshold, current.HighRiskThreshold},
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return current, nil
}

// ImportProjectSettings replaces settings wholesale from a parsed YAML
// document, keeping the same validation gate as patch updates.
func (e Engine) ImportProjectSettings(ctx context.Context, projectID string, s *config.Settings, actorID string) (*config.Settings, error) {
	if _, err := e.Repo.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	s.ProjectID = projectID
	if err := s.Validate(); err != nil {
		return nil, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpsertSettingsTx(ctx, tx, projectID, s); err != nil {
		return nil, fmt.Errorf("upsert settings: %w", err)
	}
	if err := e.Events.Append(ctx, tx, "settings.imported", projectID, events.KindSettings, projectID, actorID, nil); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s, nil
}
