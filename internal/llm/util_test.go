package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"json fence", "```json\n{\"feedback\": \"ok\"}\n```", `{"feedback": "ok"}`},
		{"bare fence", "```\n{\"feedback\": \"ok\"}\n```", `{"feedback": "ok"}`},
		{"other language tag", "```javascript\n{\"feedback\": \"ok\"}\n```", `{"feedback": "ok"}`},
		{"plain", `{"feedback": "ok"}`, `{"feedback": "ok"}`},
		{"preamble", "Here is the review:\n{\"feedback\": \"tighten it\"}", `{"feedback": "tighten it"}`},
		{"trailing prose", "{\"suggestions\": [\"a\"]}\n\nHope this helps!", `{"suggestions": ["a"]}`},
		{"array", "Items:\n[\"one\", \"two\"]", `["one", "two"]`},
		{"braces in strings", `{"rewrite": "Led {3} teams }"}`, `{"rewrite": "Led {3} teams }"}`},
		{"escaped quotes", `Result: {"feedback": "say \"led\" not \"helped\""}`, `{"feedback": "say \"led\" not \"helped\""}`},
		{"no json", "no suggestions today", "no suggestions today"},
		{"unbalanced", `{"feedback": "cut off`, `{"feedback": "cut off`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSONBlock(tt.input))
		})
	}
}

func TestExtractBalanced(t *testing.T) {
	assert.Equal(t, `{"a": {"b": 1}}`, extractJSONObject(`{"a": {"b": 1}} tail`))
	assert.Equal(t, `[[1], [2]]`, extractJSONArray(`[[1], [2]] tail`))
	assert.Empty(t, extractJSONObject(""))
	assert.Empty(t, extractJSONObject("x{}"))
	assert.Empty(t, extractJSONArray("{}"))
}

func TestBuildStructuredPrompt(t *testing.T) {
	prompt := BuildStructuredPrompt(SectionFeedbackSchema("Review the summary."), "Engineer with 5 years.")

	assert.Contains(t, prompt, "Review the summary.")
	assert.Contains(t, prompt, `"feedback": "string" (required)`)
	assert.Contains(t, prompt, `"suggestions": ["string"] (required)`)
	assert.Contains(t, prompt, `"rewrite": "string" //`)
	assert.Contains(t, prompt, "Engineer with 5 years.")
}
