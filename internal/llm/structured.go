package llm

import (
	"fmt"
	"strings"
)

// ReplySchema describes the JSON object a structured prompt asks for.
type ReplySchema struct {
	Name        string
	Description string // instruction preamble
	Fields      []ReplyField
}

// ReplyField is one member of the requested JSON object.
type ReplyField struct {
	Name        string
	Type        string // type hint shown to the model, e.g. "string" or "[\"string\"]"
	Description string
	Required    bool
}

// BuildStructuredPrompt renders schema and input into a prompt asking for a
// single JSON object.
func BuildStructuredPrompt(schema ReplySchema, input string) string {
	var sb strings.Builder

	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "\"string\""
		}
		required := ""
		if field.Required {
			required = " (required)"
		}
		fmt.Fprintf(&sb, "  %q: %s%s", field.Name, typeHint, required)
		if field.Description != "" {
			fmt.Fprintf(&sb, " // %s", field.Description)
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Base every statement on the resume text and findings below; do not invent experience.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	sb.WriteString("Input:\n\"\"\"\n")
	sb.WriteString(input)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// SectionFeedbackSchema is the reply shape for section augmentation.
// instructions is the section-specific preamble.
func SectionFeedbackSchema(instructions string) ReplySchema {
	return ReplySchema{
		Name:        "SectionFeedback",
		Description: instructions,
		Fields: []ReplyField{
			{
				Name:        "feedback",
				Type:        "\"string\"",
				Description: "two to four sentences on what holds this section back",
				Required:    true,
			},
			{
				Name:        "suggestions",
				Type:        "[\"string\"]",
				Description: "up to five concrete edits, each one sentence",
				Required:    true,
			},
			{
				Name:        "rewrite",
				Type:        "\"string\"",
				Description: "an improved version of one weak line, if one applies",
				Required:    false,
			},
		},
	}
}
