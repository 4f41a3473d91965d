package scenario

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Write writes a scenario to a YAML file
func Write(sc *Scenario, path string) error {
	data, err := yaml.Marshal(sc)
	if err != nil {
		return fmt.Errorf("marshal scenario: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// Read reads a scenario from a YAML file
func Read(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if sc.Version == "" {
		return nil, fmt.Errorf("parse scenario %s: missing version", path)
	}

	return &sc, nil
}
