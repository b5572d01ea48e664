package roster

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type fileUser struct {
	User  `yaml:",inline"`
	Cargo string `yaml:"cargo"`
}

type fileRoster struct {
	Users []fileUser   `yaml:"users"`
	Crew  []CrewMember `yaml:"crew"`
}

// LoadFile reads a YAML roster once at startup.
func LoadFile(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML roster and checks identifiers are unique.
func Parse(data []byte) (*Directory, error) {
	var f fileRoster
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode roster: %w", err)
	}

	seen := make(map[string]bool, len(f.Users))
	users := make([]User, 0, len(f.Users))
	for _, fu := range f.Users {
		u := fu.User
		if strings.TrimSpace(u.RUT) == "" {
			return nil, fmt.Errorf("roster user %q has no rut", u.Name)
		}
		if seen[u.RUT] {
			return nil, fmt.Errorf("duplicate rut %s in roster", u.RUT)
		}
		seen[u.RUT] = true
		u.Role = ParseRole(fu.Cargo)
		users = append(users, u)
	}

	ids := make(map[int]bool, len(f.Crew))
	for _, m := range f.Crew {
		if ids[m.ID] {
			return nil, fmt.Errorf("duplicate crew id %d in roster", m.ID)
		}
		ids[m.ID] = true
	}
	return NewDirectory(users, f.Crew), nil
}
