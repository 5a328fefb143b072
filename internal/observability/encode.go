package observability

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/ats-checker/internal/schemas"
	"github.com/jonathan/ats-checker/internal/types"
)

// Format selects how a result is written.
type Format string

const (
	FormatHuman Format = "human"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(name); f {
	case FormatHuman, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatHuman, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want human, json or yaml)", name)
	}
}

// EncodeJSON renders result as indented JSON after checking it against the
// analysis_result schema.
func EncodeJSON(result *types.AnalysisResult) ([]byte, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	if err := schemas.Validate(schemas.AnalysisResult, data); err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Write renders result to w in format.
func Write(w io.Writer, format Format, result *types.AnalysisResult) error {
	switch format {
	case FormatJSON:
		data, err := EncodeJSON(result)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		return enc.Close()
	default:
		NewPrinter(w).PrintResult(result)
		return nil
	}
}
