package workflow

import (
	"sync"

	"github.com/jingkaihe/skillet/pkg/schema"
)

var (
	schemaOnce sync.Once
	compiled   *schema.Compiled
	schemaErr  error
)

// Schema returns the workflow file JSON schema.
func Schema() ([]byte, error) {
	loadSchema()
	if schemaErr != nil {
		return nil, schemaErr
	}
	return compiled.JSON, nil
}

func loadSchema() {
	schemaOnce.Do(func() {
		compiled, schemaErr = schema.For[Definition]()
	})
}
