package conformance

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/candb-tools/candb-go/pkg/candb"
)

// ParseCase parses a case from YAML bytes.
func ParseCase(data []byte) (*Case, error) {
	var c Case
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, &LoadError{
			Message: "failed to parse YAML",
			Cause:   err,
		}
	}

	if c.ID == "" {
		return nil, &LoadError{
			Message: "case ID is required",
		}
	}

	if len(c.Sources) == 0 {
		return nil, &LoadError{
			Message: "case must have at least one source",
		}
	}
	for name := range c.Sources {
		if _, err := candb.ParseDialect(name); err != nil {
			return nil, &LoadError{
				Message: "invalid source dialect",
				Cause:   err,
			}
		}
	}

	return &c, nil
}

// LoadCase loads a case from a file.
func LoadCase(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{
			File:    path,
			Message: "failed to read file",
			Cause:   err,
		}
	}

	c, err := ParseCase(data)
	if err != nil {
		if le, ok := err.(*LoadError); ok {
			le.File = path
			return nil, le
		}
		return nil, &LoadError{
			File:    path,
			Message: err.Error(),
		}
	}

	return c, nil
}

// LoadDirectory loads all cases from a directory, in file name order.
// Only files with .yaml or .yml extensions are loaded.
func LoadDirectory(dir string) ([]*Case, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &LoadError{
			File:    dir,
			Message: "failed to read directory",
			Cause:   err,
		}
	}

	var cases []*Case
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		c, err := LoadCase(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}

	return cases, nil
}
