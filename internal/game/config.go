package game

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML rules file. Keys missing from the file keep their
// DefaultConfig values.
func LoadConfig(path string) (GameConfig, error) {
	config := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return config, fmt.Errorf("%s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Validate checks that every field is within its allowed range.
func (c GameConfig) Validate() error {
	if c.WoodDensity < 0 || c.WoodDensity > 1 {
		return fmt.Errorf("wood_density %.2f outside [0,1]", c.WoodDensity)
	}
	if c.PowerUpChance < 0 || c.PowerUpChance > 1 {
		return fmt.Errorf("powerup_chance %.2f outside [0,1]", c.PowerUpChance)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", c.MaxSteps)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("tick_rate must be positive, got %d", c.TickRate)
	}
	if c.DecisionTimeout <= 0 {
		return fmt.Errorf("decision_timeout must be positive, got %s", c.DecisionTimeout)
	}
	if len(c.Agents) > AgentCount {
		return fmt.Errorf("%d agents configured, at most %d allowed", len(c.Agents), AgentCount)
	}
	return nil
}
