package app

import (
	"context"
	"fmt"

	"tasktrail/internal/config"
	"tasktrail/internal/db"
	"tasktrail/internal/migrate"
	"tasktrail/internal/tracker"
)

// ResolveConfig loads tasktrail.yml from the workspace, falling back to
// built-in defaults when the file does not exist. A present but invalid
// file is an error, not a fallback.
func ResolveConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default()
	}
	return cfg, nil
}

// Open prepares a workspace end to end: database, schema, config, tracker,
// initial view build. The caller owns tracker.DB and closes it when done.
func Open(ctx context.Context, workspace string) (*tracker.Tracker, error) {
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	cfg, err := ResolveConfig(workspace)
	if err != nil {
		conn.Close()
		return nil, err
	}
	tr := tracker.New(conn, cfg)
	if err := tr.Rebuild(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tr, nil
}
