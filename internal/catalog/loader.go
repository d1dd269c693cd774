package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"

	m "sunset.dev/pkg/sunset/internal/model"
)

// catalogFile mirrors the on-disk YAML schema. Type entries stay as raw
// nodes so validation errors can point at their lines.
type catalogFile struct {
	Protected  []string            `yaml:"protected"`
	Namespaces []m.NamespaceRename `yaml:"namespaces"`
	Types      []yaml.Node         `yaml:"types"`
}

// LoadFile reads, parses and validates a catalog file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return cat, nil
}

// Parse decodes and validates catalog YAML. All entry-level problems are
// reported together rather than one at a time.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing: %w", err)
	}

	var errs []error
	entries := make([]m.Mapping, 0, len(file.Types))
	seen := make(map[string]bool)
	for i := range file.Types {
		node := &file.Types[i]
		var e m.Mapping
		if err := node.Decode(&e); err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", node.Line, err))
			continue
		}
		if err := validateEntry(e); err != nil {
			errs = append(errs, fmt.Errorf("line %d: %s: %w", node.Line, e.Name, err))
			continue
		}
		if seen[e.OldFQN()] {
			errs = append(errs, fmt.Errorf("line %d: duplicate entry for %s", node.Line, e.OldFQN()))
			continue
		}
		seen[e.OldFQN()] = true
		entries = append(entries, e)
	}

	for _, r := range file.Namespaces {
		if err := module.CheckImportPath(r.Old); err != nil {
			errs = append(errs, fmt.Errorf("namespace rename: old path %q: %w", r.Old, err))
		}
		if err := module.CheckImportPath(r.New); err != nil {
			errs = append(errs, fmt.Errorf("namespace rename: new path %q: %w", r.New, err))
		}
	}
	for _, fqn := range file.Protected {
		if !strings.Contains(fqn, ".") {
			errs = append(errs, fmt.Errorf("protected entry %q is not a qualified name", fqn))
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return New(entries, file.Namespaces, file.Protected), nil
}

func validateEntry(e m.Mapping) error {
	if e.Name == "" {
		return errors.New("missing name")
	}
	if e.Namespace == "" {
		return errors.New("missing namespace")
	}
	if err := module.CheckImportPath(e.Namespace); err != nil {
		return fmt.Errorf("namespace: %w", err)
	}
	switch e.Category {
	case m.CategoryRenamed:
		if e.Replacement == nil {
			return errors.New("renamed entry needs a replacement")
		}
		if e.Replacement.Name == "" || e.Replacement.Namespace == "" {
			return errors.New("replacement needs both name and namespace")
		}
		if err := module.CheckImportPath(e.Replacement.Namespace); err != nil {
			return fmt.Errorf("replacement namespace: %w", err)
		}
	case m.CategoryNoEquivalent, m.CategoryManualConversion:
		if e.Note == "" {
			return fmt.Errorf("%s entry needs a note", e.Category)
		}
		if e.Replacement != nil {
			return fmt.Errorf("%s entry cannot carry a replacement", e.Category)
		}
	default:
		return fmt.Errorf("unknown category %q", e.Category)
	}
	for _, k := range e.FileKinds {
		if k != m.KindSource && k != m.KindTest {
			return fmt.Errorf("unknown file kind %q", k)
		}
	}
	return nil
}
