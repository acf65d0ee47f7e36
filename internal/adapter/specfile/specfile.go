// Package specfile loads API specification documents from YAML files.
package specfile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Strob0t/ScriptForge/internal/domain/apispec"
)

// Load reads and validates the API specification at path. A document that
// fails validation is never returned.
func Load(path string) (*apispec.Spec, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from trusted config
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals and validates one specification document.
func Parse(data []byte) (*apispec.Spec, error) {
	var spec apispec.Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("validate spec: %w", err)
	}
	return &spec, nil
}
