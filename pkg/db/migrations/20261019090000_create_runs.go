package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/db"
)

// Migration20261019090000CreateRuns creates the runs table.
func Migration20261019090000CreateRuns() db.Migration {
	return db.Migration{
		Version:     20261019090000,
		Description: "Create runs table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					kind TEXT NOT NULL,
					name TEXT NOT NULL,
					status TEXT NOT NULL,
					provider TEXT NOT NULL DEFAULT '',
					model TEXT NOT NULL DEFAULT '',
					input_chars INTEGER NOT NULL DEFAULT 0,
					output_chars INTEGER NOT NULL DEFAULT 0,
					duration_ms INTEGER NOT NULL DEFAULT 0,
					error TEXT NOT NULL DEFAULT '',
					started_at DATETIME NOT NULL
				)
			`)
			return errors.Wrap(err, "failed to create runs table")
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS runs")
			return errors.Wrap(err, "failed to drop runs table")
		},
	}
}
