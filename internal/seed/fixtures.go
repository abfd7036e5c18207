package seed

import (
	_ "embed"
	"fmt"
	"os"

	"techatlas/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed fixtures/uganda.yml
var defaultFixtures []byte

// Fixtures are curated accounts and listings loaded before generated data.
type Fixtures struct {
	Users []FixtureUser `yaml:"users"`
	// Listings maps a kind path segment to create bodies.
	Listings map[string][]map[string]any `yaml:"listings"`
}

type FixtureUser struct {
	Username    string      `yaml:"username"`
	Email       string      `yaml:"email"`
	DisplayName string      `yaml:"display_name"`
	Role        models.Role `yaml:"role"`
}

// DefaultFixtures returns the built-in Uganda fixtures.
func DefaultFixtures() (*Fixtures, error) {
	return ParseFixtures(defaultFixtures)
}

// LoadFixtures reads fixtures from a YAML file.
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return ParseFixtures(data)
}

// ParseFixtures decodes YAML fixtures and checks kinds and roles.
func ParseFixtures(data []byte) (*Fixtures, error) {
	var fx Fixtures
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixtures: %w", err)
	}
	for kind := range fx.Listings {
		if _, ok := models.LookupKind(kind); !ok {
			return nil, fmt.Errorf("fixtures: unknown kind %q", kind)
		}
	}
	for _, u := range fx.Users {
		if !u.Role.Valid() {
			return nil, fmt.Errorf("fixtures: user %q has unknown role %q", u.Username, u.Role)
		}
	}
	return &fx, nil
}
