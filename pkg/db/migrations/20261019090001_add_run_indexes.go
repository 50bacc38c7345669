package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillet/pkg/db"
)

// Migration20261019090001AddRunIndexes indexes runs for the history listing.
func Migration20261019090001AddRunIndexes() db.Migration {
	return db.Migration{
		Version:     20261019090001,
		Description: "Add run history indexes",
		Up: func(tx *sql.Tx) error {
			for _, idx := range []string{
				"CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC)",
				"CREATE INDEX IF NOT EXISTS idx_runs_name ON runs(kind, name)",
			} {
				if _, err := tx.Exec(idx); err != nil {
					return errors.Wrap(err, "failed to create index")
				}
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			for _, drop := range []string{
				"DROP INDEX IF EXISTS idx_runs_name",
				"DROP INDEX IF EXISTS idx_runs_started_at",
			} {
				if _, err := tx.Exec(drop); err != nil {
					return errors.Wrap(err, "failed to drop index")
				}
			}
			return nil
		},
	}
}
