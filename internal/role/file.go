package role

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/persona-memory/internal/model"
)

// File is the on-disk shape of a roles file.
type File struct {
	Roles []FileRole `yaml:"roles"`
}

// FileRole is a role plus the custom trigger patterns to register with it.
type FileRole struct {
	model.Role `yaml:",inline"`
	Triggers   []string `yaml:"triggers"`
}

// LoadFile reads roles from a YAML file and validates each one.
func LoadFile(path string) ([]FileRole, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roles file: %w", err)
	}
	return ParseFile(b)
}

// ParseFile decodes and validates YAML role definitions. Trigger patterns
// are checked when the roles are loaded into the advisor.
func ParseFile(b []byte) ([]FileRole, error) {
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse roles file: %w", err)
	}
	seen := make(map[string]bool, len(f.Roles))
	for i := range f.Roles {
		f.Roles[i].Role = normalize(f.Roles[i].Role)
		if err := Validate(f.Roles[i].Role); err != nil {
			return nil, err
		}
		if seen[f.Roles[i].ID] {
			return nil, fmt.Errorf("role %q defined twice: %w", f.Roles[i].ID, model.ErrConflict)
		}
		seen[f.Roles[i].ID] = true
	}
	return f.Roles, nil
}
