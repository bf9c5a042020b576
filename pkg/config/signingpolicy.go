package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SigningPolicy restricts which keyids may sign callbacks for which
// components, loaded from an operator-maintained YAML file rather than
// compiled into the binary.
type SigningPolicy struct {
	// Components maps a component name to the keyids allowed to sign
	// receipts for it. A component absent from this map is unrestricted.
	Components map[string][]string `yaml:"components"`
}

// LoadSigningPolicy reads and parses a SigningPolicy YAML document.
func LoadSigningPolicy(path string) (*SigningPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading signing policy %q: %w", path, err)
	}
	var policy SigningPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("config: parsing signing policy %q: %w", path, err)
	}
	return &policy, nil
}

// Allows reports whether keyID may sign receipts for component. A component
// with no entry in Components is unrestricted.
func (p *SigningPolicy) Allows(component, keyID string) bool {
	if p == nil {
		return true
	}
	allowed, restricted := p.Components[component]
	if !restricted {
		return true
	}
	for _, k := range allowed {
		if k == keyID {
			return true
		}
	}
	return false
}
