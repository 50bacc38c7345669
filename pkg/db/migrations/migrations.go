// Package migrations contains the run history schema.
package migrations

import (
	"github.com/jingkaihe/skillet/pkg/db"
)

// All returns all registered migrations in the correct order.
// New migrations should be added to this list.
func All() []db.Migration {
	return []db.Migration{
		Migration20261019090000CreateRuns(),
		Migration20261019090001AddRunIndexes(),
	}
}
