package memory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is the YAML shape a seed graph loads from, the same
// fixture-file idiom `analysis/schema.go`'s `LoadSchema` uses for
// `.scaf-schema.yaml`: a small declarative document read once at startup.
type Fixture struct {
	Nodes []FixtureNode `yaml:"nodes"`
	Rels  []FixtureRel  `yaml:"rels"`
}

// FixtureNode is one seed node. Name is a fixture-local handle used only
// by FixtureRel.Start/End to reference it; it is never stored as a
// property or label.
type FixtureNode struct {
	Name       string         `yaml:"name"`
	Labels     []string       `yaml:"labels,omitempty"`
	Properties map[string]any `yaml:"properties,omitempty"`
}

// FixtureRel is one seed relationship, referencing its endpoints by their
// FixtureNode.Name.
type FixtureRel struct {
	Type       string         `yaml:"type"`
	Start      string         `yaml:"start"`
	End        string         `yaml:"end"`
	Properties map[string]any `yaml:"properties,omitempty"`
}

// LoadFixture reads a YAML fixture file and populates a fresh Backend with
// it, returning the backend and a name->id lookup for tests/tools that
// need to refer back to a seeded node by its fixture name.
func LoadFixture(ctx context.Context, path string) (*Backend, map[string]int64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, nil, fmt.Errorf("memory: parsing fixture %s: %w", path, err)
	}
	b := New()
	ids, err := PopulateFixture(ctx, b, &fx)
	if err != nil {
		return nil, nil, err
	}
	return b, ids, nil
}

// PopulateFixture writes fx's nodes and relationships into an existing
// backend, returning the fixture-name -> node-id lookup.
func PopulateFixture(ctx context.Context, b *Backend, fx *Fixture) (map[string]int64, error) {
	ids := make(map[string]int64, len(fx.Nodes))
	for _, n := range fx.Nodes {
		id, err := b.CreateNode(ctx, n.Labels, n.Properties)
		if err != nil {
			return nil, fmt.Errorf("memory: creating fixture node %q: %w", n.Name, err)
		}
		ids[n.Name] = id
	}
	for _, r := range fx.Rels {
		start, ok := ids[r.Start]
		if !ok {
			return nil, fmt.Errorf("memory: fixture rel %s references unknown start node %q", r.Type, r.Start)
		}
		end, ok := ids[r.End]
		if !ok {
			return nil, fmt.Errorf("memory: fixture rel %s references unknown end node %q", r.Type, r.End)
		}
		if _, err := b.CreateRel(ctx, start, end, r.Type, r.Properties); err != nil {
			return nil, fmt.Errorf("memory: creating fixture rel %s: %w", r.Type, err)
		}
	}
	return ids, nil
}
