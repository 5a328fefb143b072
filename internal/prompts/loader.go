// Package prompts holds the embedded prompt templates for section
// augmentation.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jonathan/ats-checker/internal/sections"
)

//go:embed *.json
var promptFiles embed.FS

// AugmentFile holds the per-section augmentation prompts.
const AugmentFile = "augment.json"

var (
	cache   = make(map[string]map[string]string)
	cacheMu sync.RWMutex
)

// Get returns the prompt stored under key in filename.
func Get(filename, key string) (string, error) {
	prompts, err := loadFile(filename)
	if err != nil {
		return "", err
	}

	prompt, exists := prompts[key]
	if !exists {
		return "", fmt.Errorf("prompt key %q not found in %s", key, filename)
	}
	return prompt, nil
}

// MustGet is Get for prompts required at startup.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return prompt
}

// Format replaces {{.Key}} placeholders with values from data.
func Format(template string, data map[string]string) string {
	result := template
	for key, value := range data {
		result = strings.ReplaceAll(result, "{{."+key+"}}", value)
	}
	return result
}

// Section builds the instruction text for augmenting kind. A dialect
// specific variant (key "<kind>_<dialect>") wins over the generic one.
func Section(kind sections.Kind, dialect string, score float64) (string, error) {
	preamble, err := Get(AugmentFile, "preamble")
	if err != nil {
		return "", err
	}

	body, err := Get(AugmentFile, string(kind)+"_"+dialect)
	if err != nil {
		body, err = Get(AugmentFile, string(kind))
		if err != nil {
			return "", err
		}
	}

	data := map[string]string{
		"Title":   kind.Title(),
		"Score":   fmt.Sprintf("%.1f", score),
		"Dialect": DialectName(dialect),
	}
	return Format(preamble, data) + "\n\n" + Format(body, data), nil
}

// DialectName returns the display name of a configured dialect.
func DialectName(dialect string) string {
	switch dialect {
	case "indian":
		return "Indian"
	default:
		return "British"
	}
}

func loadFile(filename string) (map[string]string, error) {
	cacheMu.RLock()
	if prompts, exists := cache[filename]; exists {
		cacheMu.RUnlock()
		return prompts, nil
	}
	cacheMu.RUnlock()

	data, err := promptFiles.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", filename, err)
	}

	var prompts map[string]string
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", filename, err)
	}

	cacheMu.Lock()
	cache[filename] = prompts
	cacheMu.Unlock()

	return prompts, nil
}

// ClearCache drops parsed files.
func ClearCache() {
	cacheMu.Lock()
	cache = make(map[string]map[string]string)
	cacheMu.Unlock()
}

// List returns the keys in filename, sorted.
func List(filename string) ([]string, error) {
	prompts, err := loadFile(filename)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(prompts))
	for key := range prompts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}
