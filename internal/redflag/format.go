package redflag

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

var codePattern = regexp.MustCompile(`(?:def |class |func |function |const |let |var |import |from |package )`)

// checkFormat returns nil when text conforms to format.
func checkFormat(text string, format Format, requiredFields []string) error {
	switch format {
	case FormatNone:
		return nil
	case FormatJSON:
		return checkJSON(text, requiredFields)
	case FormatYAML:
		return checkYAML(text, requiredFields)
	case FormatCode:
		if strings.Contains(text, "```") || codePattern.MatchString(text) {
			return nil
		}
		return errors.New("expected code but found no code markers")
	case FormatSingleLine:
		if strings.Contains(strings.TrimSpace(text), "\n") {
			return errors.New("expected a single line")
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func checkJSON(text string, requiredFields []string) error {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return errors.New("expected json object or array")
	}
	if !gjson.Valid(trimmed) {
		return errors.New("invalid json")
	}
	root := gjson.Parse(trimmed)
	if len(requiredFields) == 0 || !root.IsObject() {
		return nil
	}
	fields := root.Map()
	var missing []string
	for _, f := range requiredFields {
		if _, ok := fields[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

func checkYAML(text string, requiredFields []string) error {
	var doc any
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return fmt.Errorf("invalid yaml: %v", err)
	}
	switch v := doc.(type) {
	case map[string]any:
		var missing []string
		for _, f := range requiredFields {
			if _, ok := v[f]; !ok {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
		}
		return nil
	case map[any]any:
		var missing []string
		for _, f := range requiredFields {
			if _, ok := v[f]; !ok {
				missing = append(missing, f)
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
		}
		return nil
	case []any:
		return nil
	default:
		return errors.New("expected yaml mapping or sequence")
	}
}
