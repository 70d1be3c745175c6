package repository

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"unifiedinbox/internal/categorize"
)

type ruleSeedFile struct {
	Rules []categorize.Rule `yaml:"rules"`
}

// LoadRuleSeed reads an ordered rule table from a YAML file. Every rule must
// validate; the file order becomes the evaluation order.
func LoadRuleSeed(path string) ([]categorize.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule seed: %w", err)
	}

	var f ruleSeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode rule seed: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Rules))
	for i, r := range f.Rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rule seed entry %d: id is required", i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("rule seed entry %d: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = struct{}{}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("rule seed entry %d (%s): %w", i, r.ID, err)
		}
	}
	return f.Rules, nil
}
