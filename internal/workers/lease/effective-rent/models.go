// internal/workers/lease/effective-rent/models.go
package effectiverent

import (
	"encoding/json"

	"cre-workers/internal/models"
)

// Input carries the deal document exactly as the process supplied it.
type Input struct {
	Deal json.RawMessage `json:"deal"`
}

type Output struct {
	Analysis *models.AnalysisDocument `json:"analysis"`
	Cached   bool                     `json:"analysisCached"`
}
