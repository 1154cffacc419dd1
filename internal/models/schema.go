// internal/models/schema.go
package models

import (
	_ "embed"
	"sync"

	"cre-workers/internal/common/validation"
)

// DealSchemaJSON is the JSON Schema every input document must satisfy.
//
//go:embed deal.schema.json
var DealSchemaJSON []byte

var (
	dealSchemaOnce sync.Once
	dealSchema     *validation.Schema
)

// DealSchema returns the compiled input schema.
func DealSchema() *validation.Schema {
	dealSchemaOnce.Do(func() {
		dealSchema = validation.MustCompileSchema(DealSchemaJSON)
	})
	return dealSchema
}
