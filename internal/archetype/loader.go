package archetype

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Parse decodes an archetype document and validates it. Unknown fields are
// rejected so a typo in a layout document cannot silently drop a section.
func Parse(data []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode archetype document: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid archetype %q: %w", cfg.Archetype, err)
	}
	return cfg, nil
}

// Load reads and parses an archetype document from disk.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read archetype document: %w", err)
	}
	return Parse(data)
}
