package schemas

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedSchemasCompile(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			raw, err := Raw(name)
			require.NoError(t, err)

			var doc map[string]any
			require.NoError(t, json.Unmarshal(raw, &doc))
			assert.Contains(t, doc, "$schema")

			_, err = load(name)
			require.NoError(t, err)
		})
	}
}

func TestValidate_AIContent(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{"valid", `{"feedback": "Lead with outcomes.", "suggestions": ["Add a metric to line 3"]}`, false},
		{"with rewrite", `{"feedback": "ok", "suggestions": [], "rewrite": "Cut costs by 20%"}`, false},
		{"missing feedback", `{"suggestions": ["x"]}`, true},
		{"empty feedback", `{"feedback": "", "suggestions": []}`, true},
		{"suggestions not array", `{"feedback": "ok", "suggestions": "x"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(AIContent, []byte(tt.doc))
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.NotEmpty(t, vErr.Errors)
			assert.Contains(t, err.Error(), "ai_content validation failed")
		})
	}
}

func TestValidate_AnalysisResult(t *testing.T) {
	valid := `{
		"id": "3f7c",
		"fingerprint": "` + fp + `",
		"rule_version": "1",
		"overall_score": {"score": 75.5, "percentage": 75.5, "grade": "B+"},
		"section_analyses": {
			"summary": {"section_name": "summary", "score": 7.5, "max_score": 10, "rationale": "ok",
				"findings": [{"rule_id": "summary.present", "message": "found", "severity": "positive",
					"evidence_span": {"line": 1, "offset": 0, "length": 7, "text": "SUMMARY"}}]}
		},
		"timestamp": "2024-05-01T10:00:00Z",
		"degraded": false
	}`
	require.NoError(t, Validate(AnalysisResult, []byte(valid)))

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(valid), &doc))
	doc["overall_score"].(map[string]any)["grade"] = "E"
	doc["section_analyses"].(map[string]any)["cover_letter"] = doc["section_analyses"].(map[string]any)["summary"]
	bad, err := json.Marshal(doc)
	require.NoError(t, err)

	err = Validate(AnalysisResult, bad)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.GreaterOrEqual(t, len(vErr.Errors), 2)
}

const fp = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestValidate_UnknownSchema(t *testing.T) {
	err := Validate("resume_plan", []byte(`{}`))
	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestValidateJSONString(t *testing.T) {
	schema := `{"type": "object", "required": ["score"], "properties": {"score": {"type": "number"}}}`
	assert.NoError(t, ValidateJSONString(schema, `{"score": 7}`))
	assert.Error(t, ValidateJSONString(schema, `{"score": "seven"}`))
	assert.Error(t, ValidateJSONString(`{"type": 12}`, `{}`))
}
