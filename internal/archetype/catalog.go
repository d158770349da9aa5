package archetype

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ErrUnknownArchetype is returned by Get for names outside the catalog.
// Callers branch on it with errors.Is to map the condition to their own
// surface (the HTTP layer answers 400).
var ErrUnknownArchetype = errors.New("unknown archetype")

// Catalog holds every archetype document found in a directory, validated at
// load time. Lookups after that are cheap map reads, so the catalog can be
// shared across concurrent renders.
type Catalog struct {
	configs map[string]Config
}

// LoadCatalog reads and validates every .yaml document in dir. A single
// invalid document fails the whole load; a half-usable catalog would let a
// bad layout slip through until a client picks it.
func LoadCatalog(dir string, logger *zap.Logger) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read archetype directory: %w", err)
	}

	configs := make(map[string]Config)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		cfg, err := Load(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("archetype %q: %w", name, err)
		}
		configs[name] = cfg
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("no archetype documents in %s", dir)
	}

	logger.Info("Archetype catalog loaded",
		zap.String("dir", dir),
		zap.Int("archetypes", len(configs)))
	return &Catalog{configs: configs}, nil
}

// Get returns the named archetype.
func (c *Catalog) Get(name string) (Config, error) {
	cfg, ok := c.configs[name]
	if !ok {
		return Config{}, fmt.Errorf("%w %q", ErrUnknownArchetype, name)
	}
	return cfg, nil
}

// Names lists the available archetypes in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.configs))
	for name := range c.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
