// Package settings persists the runtime configuration the popup-less
// daemon is steered by: action gates, API credentials, and the
// automation switch. Backed by SQLite; changes made by any writer are
// pushed to the running scheduler via the data_version watcher.
package settings

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Schema for the settings table. A single constrained row keeps reads
// and writes trivially atomic.
const Schema = `
CREATE TABLE IF NOT EXISTS settings (
	id                  INTEGER PRIMARY KEY CHECK (id = 1),
	api_key             TEXT NOT NULL DEFAULT '',
	model_id            TEXT NOT NULL DEFAULT 'gpt-4o-mini',
	enable_liking       INTEGER NOT NULL DEFAULT 1,
	enable_commenting   INTEGER NOT NULL DEFAULT 1,
	automation_enabled  INTEGER NOT NULL DEFAULT 0,
	mode                TEXT NOT NULL DEFAULT 'slow',
	comment_probability REAL NOT NULL DEFAULT 0.3,
	updated_at          INTEGER NOT NULL DEFAULT 0
);
INSERT OR IGNORE INTO settings (id, updated_at) VALUES (1, 0);
`

// Settings is the persisted configuration snapshot.
type Settings struct {
	// APIKey authorizes generation requests. Empty routes all comment
	// flows to fallback phrases.
	APIKey string `json:"api_key"`
	// ModelID selects the generation model.
	ModelID string `json:"model_id"`

	EnableLiking      bool `json:"enable_liking"`
	EnableCommenting  bool `json:"enable_commenting"`
	AutomationEnabled bool `json:"automation_enabled"`

	// Mode is "fast" or "slow".
	Mode string `json:"mode"`
	// CommentProbability is the Bernoulli comment gate.
	CommentProbability float64 `json:"comment_probability"`
}

// Store reads and writes the settings row.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// Init creates the schema and seeds the default row.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("settings: init schema: %w", err)
	}
	return nil
}

// Load reads the current settings.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	var st Settings
	var liking, commenting, enabled int
	err := s.db.QueryRowContext(ctx, `
		SELECT api_key, model_id, enable_liking, enable_commenting,
		       automation_enabled, mode, comment_probability
		FROM settings WHERE id = 1`).
		Scan(&st.APIKey, &st.ModelID, &liking, &commenting, &enabled,
			&st.Mode, &st.CommentProbability)
	if err != nil {
		return Settings{}, fmt.Errorf("settings: load: %w", err)
	}
	st.EnableLiking = liking != 0
	st.EnableCommenting = commenting != 0
	st.AutomationEnabled = enabled != 0
	return st, nil
}

// Save writes the settings row.
func (s *Store) Save(ctx context.Context, st Settings) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE settings SET
			api_key = ?, model_id = ?, enable_liking = ?,
			enable_commenting = ?, automation_enabled = ?,
			mode = ?, comment_probability = ?,
			updated_at = unixepoch()
		WHERE id = 1`,
		st.APIKey, st.ModelID, boolInt(st.EnableLiking),
		boolInt(st.EnableCommenting), boolInt(st.AutomationEnabled),
		st.Mode, st.CommentProbability)
	if err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
