// internal/workers/lease/breakeven-rates/validation.go
package breakevenrates

import (
	"encoding/json"

	"cre-workers/internal/common/errors"
	"cre-workers/internal/common/validation"
)

const inputSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["investment", "area_sf", "discount_rate"],
  "properties": {
    "area_sf": {"type": "number", "exclusiveMinimum": 0},
    "discount_rate": {"type": "number"},
    "investment": {
      "type": "object",
      "required": [
        "acquisition_cost", "ltv", "amortization_years", "interest_rate",
        "dividend_yield", "building_allocation", "depreciation_years"
      ],
      "properties": {
        "acquisition_cost": {"type": "number"},
        "ltv": {"type": "number", "minimum": 0, "maximum": 1},
        "amortization_years": {"type": "number"},
        "interest_rate": {"type": "number"},
        "dividend_yield": {"type": "number", "minimum": 0},
        "building_allocation": {"type": "number", "minimum": 0, "maximum": 1},
        "depreciation_years": {"type": "number"}
      }
    }
  }
}`

var inputSchema = validation.MustCompileSchema([]byte(inputSchemaJSON))

// parseVariables validates the job variables and decodes them. Extra process
// variables are ignored.
func parseVariables(variables string) (*Input, error) {
	result, err := inputSchema.ValidateDocument([]byte(variables))
	if err != nil {
		return nil, errors.NewParseError(err)
	}
	if !result.Valid {
		first := result.Errors[0]
		stdErr := errors.NewInvalidInputError(first.Field, first.Message)
		stdErr.Metadata = map[string]interface{}{"errors": result.GetErrorMessages()}
		return nil, stdErr
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewParseError(err)
	}
	return &input, nil
}
