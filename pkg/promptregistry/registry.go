// Package promptregistry loads the versioned prompt templates the LLM
// collaborator is addressed by (taxonomy.extract,
// taxonomy.verify_single_token, taxonomy.disambiguate,
// taxonomy.validate_entailment, and their *_repair variants), and
// renders them against call-site variables. Prompt authoring itself is
// out of scope; this package only resolves active
// versions and performs template substitution.
package promptregistry

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"gopkg.in/yaml.v3"
)

// PromptVersion is one addressable revision of a prompt template.
type PromptVersion struct {
	Template   string `yaml:"template"`
	SchemaFile string `yaml:"schema_file,omitempty"`
}

// PromptEntry groups every known version of a prompt key plus which one is active.
type PromptEntry struct {
	Active   string                   `yaml:"active"`
	Versions map[string]PromptVersion `yaml:"versions"`
}

// registryFile mirrors the on-disk YAML shape at <registry.file>.
type registryFile struct {
	Prompts map[string]PromptEntry `yaml:"prompts"`
}

// Registry resolves prompt keys to their active template and schema.
type Registry struct {
	templatesRoot string
	schemaRoot    string
	prompts       map[string]PromptEntry
	compiled      map[string]*template.Template
}

// Load reads and parses the registry file. Templates stored as "file:"
// references are read from disk on first Render, not here.
func Load(registryFilePath, templatesRoot, schemaRoot string) (*Registry, error) {
	data, err := os.ReadFile(registryFilePath)
	if err != nil {
		return nil, fmt.Errorf("promptregistry: read %s: %w", registryFilePath, err)
	}
	var raw registryFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("promptregistry: parse %s: %w", registryFilePath, err)
	}
	return &Registry{
		templatesRoot: templatesRoot,
		schemaRoot:    schemaRoot,
		prompts:       raw.Prompts,
		compiled:      map[string]*template.Template{},
	}, nil
}

// ActiveVersion returns the version string currently active for key.
func (r *Registry) ActiveVersion(key string) (string, error) {
	entry, ok := r.prompts[key]
	if !ok {
		return "", fmt.Errorf("promptregistry: unknown prompt key %q", key)
	}
	return entry.Active, nil
}

// Keys returns every registered prompt key, for manifest collection.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.prompts))
	for k := range r.prompts {
		keys = append(keys, k)
	}
	return keys
}

// Render substitutes vars into the active template for key.
func (r *Registry) Render(key string, vars map[string]any) (string, error) {
	entry, ok := r.prompts[key]
	if !ok {
		return "", fmt.Errorf("promptregistry: unknown prompt key %q", key)
	}
	version, ok := entry.Versions[entry.Active]
	if !ok {
		return "", fmt.Errorf("promptregistry: active version %q missing for key %q", entry.Active, key)
	}

	cacheKey := key + "@" + entry.Active
	tmpl, ok := r.compiled[cacheKey]
	if !ok {
		source := version.Template
		if source == "" && entry.Active != "" {
			source = version.Template
		}
		parsed, err := template.New(cacheKey).Parse(templateSource(r.templatesRoot, version))
		if err != nil {
			return "", fmt.Errorf("promptregistry: parse template %s: %w", cacheKey, err)
		}
		tmpl = parsed
		r.compiled[cacheKey] = tmpl
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("promptregistry: render %s: %w", cacheKey, err)
	}
	return buf.String(), nil
}

// templateSource returns the inline template text, loading it from disk
// under templatesRoot if the entry stores a file reference instead of
// inline text (a leading "file:" prefix names a path relative to root).
func templateSource(templatesRoot string, version PromptVersion) string {
	const filePrefix = "file:"
	if len(version.Template) > len(filePrefix) && version.Template[:len(filePrefix)] == filePrefix {
		path := filepath.Join(templatesRoot, version.Template[len(filePrefix):])
		data, err := os.ReadFile(path)
		if err != nil {
			return ""
		}
		return string(data)
	}
	return version.Template
}

// SchemaPath returns the path to the JSON schema backing key's active
// version (its schema_file joined under the schema root), if one is
// configured.
func (r *Registry) SchemaPath(key string) (string, bool) {
	entry, ok := r.prompts[key]
	if !ok {
		return "", false
	}
	version, ok := entry.Versions[entry.Active]
	if !ok || version.SchemaFile == "" {
		return "", false
	}
	return filepath.Join(r.schemaRoot, version.SchemaFile), true
}
