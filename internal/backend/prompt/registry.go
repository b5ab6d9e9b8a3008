// Package prompt holds the named, versioned instruction texts sent to the model.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed templates.yaml
var builtinTemplates []byte

// DefaultName is the template used when configuration does not name one
const DefaultName = "medical-imaging-analysis"

var ErrPromptNotFound = errors.New("prompt template not found")

// Template is one immutable revision of a prompt
type Template struct {
	Name        string   `yaml:"name"`
	Version     int      `yaml:"version"`
	Description string   `yaml:"description"`
	Headings    []string `yaml:"headings"`
	Text        string   `yaml:"text"`
}

// ID identifies the revision, e.g. "medical-imaging-analysis@v1"
func (t Template) ID() string {
	return fmt.Sprintf("%s@v%d", t.Name, t.Version)
}

type templateFile struct {
	Templates []Template `yaml:"templates"`
}

// Registry indexes templates by name and version
type Registry struct {
	templates map[string]map[int]Template
}

// NewRegistry parses a YAML document of templates; duplicate name/version pairs are rejected
func NewRegistry(data []byte) (*Registry, error) {
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse prompt templates: %w", err)
	}

	registry := &Registry{templates: make(map[string]map[int]Template)}
	for i, tmpl := range file.Templates {
		if tmpl.Name == "" {
			return nil, fmt.Errorf("prompt template at index %d has empty name", i)
		}
		if tmpl.Version <= 0 {
			return nil, fmt.Errorf("prompt template %s has invalid version %d", tmpl.Name, tmpl.Version)
		}
		if strings.TrimSpace(tmpl.Text) == "" {
			return nil, fmt.Errorf("prompt template %s has empty text", tmpl.ID())
		}
		versions, ok := registry.templates[tmpl.Name]
		if !ok {
			versions = make(map[int]Template)
			registry.templates[tmpl.Name] = versions
		}
		if _, exists := versions[tmpl.Version]; exists {
			return nil, fmt.Errorf("duplicate prompt template %s", tmpl.ID())
		}
		versions[tmpl.Version] = tmpl
	}
	return registry, nil
}

// NewBuiltinRegistry loads the templates compiled into the binary
func NewBuiltinRegistry() (*Registry, error) {
	return NewRegistry(builtinTemplates)
}

// Get returns a specific revision; version 0 means the latest one
func (r *Registry) Get(name string, version int) (Template, error) {
	if version == 0 {
		return r.Latest(name)
	}
	tmpl, ok := r.templates[name][version]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s@v%d", ErrPromptNotFound, name, version)
	}
	return tmpl, nil
}

// Latest returns the highest version registered under name
func (r *Registry) Latest(name string) (Template, error) {
	versions := r.Versions(name)
	if len(versions) == 0 {
		return Template{}, fmt.Errorf("%w: %s", ErrPromptNotFound, name)
	}
	return r.templates[name][versions[len(versions)-1]], nil
}

// Versions lists the registered versions of name in ascending order
func (r *Registry) Versions(name string) []int {
	versions := make([]int, 0, len(r.templates[name]))
	for v := range r.templates[name] {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	return versions
}
