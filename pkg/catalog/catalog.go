// Package catalog provides menu providers for order resolution.
//
// Menus are authored as YAML files and can be imported into a SQLite database.
// Both sources produce an order.MapCatalog snapshot, which is what the
// pipeline consults while merging.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-voiceorder/pkg/order"
)

var (
	// ErrNotFound is returned when an item does not exist.
	ErrNotFound = errors.New("catalog: item not found")

	// ErrInvalidItem is returned for items that fail validation.
	ErrInvalidItem = errors.New("catalog: invalid item")
)

// File is the YAML menu document.
type File struct {
	Items []order.ItemDefinition `yaml:"items"`
}

// LoadYAML reads and validates a YAML menu file.
func LoadYAML(path string) ([]order.ItemDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes and validates a YAML menu document.
func ParseYAML(data []byte) ([]order.ItemDefinition, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	for _, item := range f.Items {
		if err := Validate(item); err != nil {
			return nil, err
		}
	}
	return f.Items, nil
}

// Validate checks a single item definition.
func Validate(item order.ItemDefinition) error {
	if item.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidItem)
	}
	if item.BasePrice < 0 {
		return fmt.Errorf("%w: %s: negative base price", ErrInvalidItem, item.Name)
	}
	for cat, opts := range item.Options {
		if !order.IsKnownCategory(cat) {
			return fmt.Errorf("%w: %s: unknown category %q", ErrInvalidItem, item.Name, cat)
		}
		seen := make(map[string]bool, len(opts))
		for _, opt := range opts {
			if opt.Label == "" {
				return fmt.Errorf("%w: %s: empty %s label", ErrInvalidItem, item.Name, cat)
			}
			if seen[opt.Label] {
				return fmt.Errorf("%w: %s: duplicate %s label %q", ErrInvalidItem, item.Name, cat, opt.Label)
			}
			seen[opt.Label] = true
		}
	}
	return nil
}
