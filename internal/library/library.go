// Package library loads the control palette seed and turns palette entries into controls.
package library

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"

	"github.com/formr/engine/internal/models"
)

//go:embed seed/controls.yaml
var seedYAML []byte

const (
	defaultWidth  = 200
	defaultHeight = 40
	maxIconLength = 50
)

type seedFile struct {
	Controls []seedEntry `yaml:"controls"`
}

type seedEntry struct {
	Type         string         `yaml:"type"`
	Category     string         `yaml:"category"`
	Icon         string         `yaml:"icon"`
	ConfigSchema map[string]any `yaml:"config_schema"`
	DefaultProps map[string]any `yaml:"default_props"`
}

// Load returns the embedded palette in seed order.
func Load() ([]models.ControlLibraryEntry, error) {
	return Parse(seedYAML)
}

// Parse decodes a palette document and checks every entry, including that
// each config schema compiles.
func Parse(data []byte) ([]models.ControlLibraryEntry, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode control library: %w", err)
	}

	out := make([]models.ControlLibraryEntry, 0, len(f.Controls))
	seen := make(map[models.ControlType]bool, len(f.Controls))
	for i, e := range f.Controls {
		ct := models.ControlType(e.Type)
		if !ct.IsValid() {
			return nil, fmt.Errorf("control library entry %d: unknown type %q", i, e.Type)
		}
		if seen[ct] {
			return nil, fmt.Errorf("control library entry %d: duplicate type %q", i, e.Type)
		}
		seen[ct] = true

		cat, err := models.ParseControlCategory(e.Category)
		if err != nil {
			return nil, fmt.Errorf("control library entry %s: %w", e.Type, err)
		}
		if e.Icon == "" || utf8.RuneCountInString(e.Icon) > maxIconLength {
			return nil, fmt.Errorf("control library entry %s: icon must be 1 to %d characters", e.Type, maxIconLength)
		}

		schema, err := json.Marshal(orEmpty(e.ConfigSchema))
		if err != nil {
			return nil, fmt.Errorf("control library entry %s: encode config schema: %w", e.Type, err)
		}
		if err := compileSchema(e.Type, schema); err != nil {
			return nil, err
		}
		props, err := json.Marshal(orEmpty(e.DefaultProps))
		if err != nil {
			return nil, fmt.Errorf("control library entry %s: encode default props: %w", e.Type, err)
		}

		out = append(out, models.ControlLibraryEntry{
			Type:         ct,
			Category:     cat,
			Icon:         e.Icon,
			ConfigSchema: datatypes.JSON(schema),
			DefaultProps: datatypes.JSON(props),
		})
	}
	return out, nil
}

func compileSchema(name string, raw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("control library entry %s: config schema: %w", name, err)
	}
	url := name + ".schema.json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return fmt.Errorf("control library entry %s: config schema: %w", name, err)
	}
	if _, err := c.Compile(url); err != nil {
		return fmt.Errorf("control library entry %s: config schema does not compile: %w", name, err)
	}
	return nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

// Instantiate builds an unsaved control of the entry's type at (x, y).
// width and height come from the entry's default props; the remaining
// default props become the control's properties.
func Instantiate(entry models.ControlLibraryEntry, x, y float64) (models.FormControl, error) {
	props := map[string]any{}
	if len(entry.DefaultProps) > 0 {
		if err := json.Unmarshal(entry.DefaultProps, &props); err != nil {
			return models.FormControl{}, fmt.Errorf("decode default props for %s: %w", entry.Type, err)
		}
	}

	pos := models.Position{X: x, Y: y, Width: defaultWidth, Height: defaultHeight}
	if w, ok := props["width"].(float64); ok {
		pos.Width = w
	}
	if h, ok := props["height"].(float64); ok {
		pos.Height = h
	}
	delete(props, "width")
	delete(props, "height")

	b, err := json.Marshal(props)
	if err != nil {
		return models.FormControl{}, fmt.Errorf("encode properties for %s: %w", entry.Type, err)
	}
	return models.FormControl{
		Type:       entry.Type,
		Label:      DisplayName(entry.Type),
		Position:   pos.JSON(),
		Properties: datatypes.JSON(b),
	}, nil
}

// DisplayName splits a control type into words: "DateRangePicker" becomes "Date Range Picker".
func DisplayName(ct models.ControlType) string {
	var sb strings.Builder
	runes := []rune(string(ct))
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]) {
			sb.WriteRune(' ')
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
