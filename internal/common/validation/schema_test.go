// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "terms"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "rate": {"type": "number", "exclusiveMinimum": 0},
    "basis": {"type": "string", "enum": ["net", "gross"]},
    "terms": {
      "type": "object",
      "required": ["months"],
      "properties": {"months": {"type": "integer", "minimum": 1}}
    }
  }
}`

func TestValidateDocument(t *testing.T) {
	schema := MustCompileSchema([]byte(testSchema))

	tests := []struct {
		name      string
		doc       string
		valid     bool
		wantField string
		wantCode  string
	}{
		{
			name:  "valid document",
			doc:   `{"name":"deal","rate":0.1,"basis":"net","terms":{"months":12}}`,
			valid: true,
		},
		{
			name:      "missing top-level field",
			doc:       `{"name":"deal"}`,
			wantField: "terms",
			wantCode:  "REQUIRED_FIELD_MISSING",
		},
		{
			name:      "missing nested field",
			doc:       `{"name":"deal","terms":{}}`,
			wantField: "terms.months",
			wantCode:  "REQUIRED_FIELD_MISSING",
		},
		{
			name:      "wrong type",
			doc:       `{"name":"deal","rate":"ten","terms":{"months":12}}`,
			wantField: "rate",
			wantCode:  "INVALID_TYPE",
		},
		{
			name:      "enum violation",
			doc:       `{"name":"deal","basis":"modified","terms":{"months":12}}`,
			wantField: "basis",
			wantCode:  "INVALID_ENUM_VALUE",
		},
		{
			name:      "extra field",
			doc:       `{"name":"deal","terms":{"months":12},"colour":"red"}`,
			wantField: "(root)",
			wantCode:  "EXTRA_FIELD",
		},
		{
			name:      "below minimum",
			doc:       `{"name":"deal","terms":{"months":0}}`,
			wantField: "terms.months",
			wantCode:  "MINIMUM_VIOLATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := schema.ValidateDocument([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.valid, result.Valid)
			if tt.valid {
				assert.Empty(t, result.Errors)
				return
			}
			require.NotEmpty(t, result.Errors)
			assert.True(t, result.HasErrors(tt.wantField), "errors: %v", result.GetErrorMessages())
			assert.Equal(t, tt.wantCode, result.GetErrorsForField(tt.wantField)[0].Code)
		})
	}
}

func TestValidateDocument_NotJSON(t *testing.T) {
	schema := MustCompileSchema([]byte(testSchema))
	_, err := schema.ValidateDocument([]byte(`{"name":`))
	require.Error(t, err)
}

func TestValidateValue(t *testing.T) {
	schema := MustCompileSchema([]byte(testSchema))
	result, err := schema.ValidateValue(map[string]interface{}{
		"name":  "deal",
		"terms": map[string]interface{}{"months": 24},
	})
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestCompileSchema_Invalid(t *testing.T) {
	_, err := CompileSchema([]byte(`{"type": 12}`))
	require.Error(t, err)
}

func TestGetErrorsForField_IncludesChildren(t *testing.T) {
	vr := &ValidationResult{Errors: []ValidationError{
		{Field: "terms.months", Message: "a"},
		{Field: "termsheet", Message: "b"},
		{Field: "terms", Message: "c"},
	}}
	assert.Len(t, vr.GetErrorsForField("terms"), 2)
	assert.Equal(t, []string{"terms.months: a", "termsheet: b", "terms: c"}, vr.GetErrorMessages())
}
