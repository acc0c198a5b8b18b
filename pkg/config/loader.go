package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Load builds a ready-to-use Settings by layering, in order:
//  1. built-in defaults (Defaults() plus a baseline environment/paths)
//  2. <configDir>/<environment>.yaml, if present
//  3. environment variables using the TAXONOMY_SETTINGS__ and
//     TAXONOMY_POLICY__ prefixes with "__" as the path separator
//  4. in-process dotted "key=value" overrides, applied last
//
// Settings validation runs after every layer has been applied and
// fails fast on missing required fields.
func Load(ctx context.Context, configDir string, environment Environment, overrides []string) (*Settings, error) {
	log := slog.With("config_dir", configDir, "environment", environment)
	log.Info("loading configuration")

	if !environment.Valid() {
		environment = EnvironmentDevelopment
	}

	doc, err := toMap(baselineSettings(environment))
	if err != nil {
		return nil, fmt.Errorf("building baseline settings: %w", err)
	}

	envFile := filepath.Join(configDir, string(environment)+".yaml")
	if data, err := os.ReadFile(envFile); err == nil {
		var overlay map[string]any
		expanded := ExpandEnv(data)
		if err := yaml.Unmarshal(expanded, &overlay); err != nil {
			return nil, NewLoadError(envFile, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
		}
		// Merge the environment overlay onto the built-in defaults,
		// overlay values taking precedence.
		if err := mergo.Merge(&doc, overlay, mergo.WithOverride); err != nil {
			return nil, NewLoadError(envFile, fmt.Errorf("merging overlay: %w", err))
		}
	} else if !os.IsNotExist(err) {
		return nil, NewLoadError(envFile, err)
	}

	applyEnvVarOverrides(doc)

	for _, override := range overrides {
		key, value, ok := strings.Cut(override, "=")
		if !ok {
			return nil, fmt.Errorf("%w: override %q must be key=value", ErrInvalidValue, override)
		}
		setDotted(doc, strings.Split(key, "."), parseOverrideValue(value))
	}

	settings, err := fromMap(doc)
	if err != nil {
		return nil, fmt.Errorf("assembling settings: %w", err)
	}

	if err := ValidateAll(settings); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	log.Info("configuration loaded", "policy_version", settings.Policies.PolicyVersion)
	return settings, nil
}

// baselineSettings returns the built-in default Settings for environment,
// with paths rooted under ./data, ./output, ./.cache, ./logs, ./metadata.
func baselineSettings(environment Environment) *Settings {
	return &Settings{
		Environment: environment,
		Paths: Paths{
			Data:     "data",
			Output:   "output",
			Cache:    ".cache",
			Logs:     "logs",
			Metadata: "metadata",
		},
		RandomSeed: 12345,
		Policies:   Defaults(),
	}
}

func toMap(settings *Settings) (map[string]any, error) {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func fromMap(doc map[string]any) (*Settings, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, NewLoadError("merged configuration", fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}
	return &settings, nil
}

// applyEnvVarOverrides scans the process environment for
// TAXONOMY_SETTINGS__ and TAXONOMY_POLICY__ prefixed variables and
// applies them onto doc using "__" as the nested-path separator.
// TAXONOMY_POLICY__ variables are rooted under the "policies" key.
func applyEnvVarOverrides(doc map[string]any) {
	const settingsPrefix = "TAXONOMY_SETTINGS__"
	const policyPrefix = "TAXONOMY_POLICY__"

	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(key, settingsPrefix):
			path := strings.Split(strings.ToLower(key[len(settingsPrefix):]), "__")
			setDotted(doc, path, parseOverrideValue(value))
		case strings.HasPrefix(key, policyPrefix):
			path := append([]string{"policies"}, strings.Split(strings.ToLower(key[len(policyPrefix):]), "__")...)
			setDotted(doc, path, parseOverrideValue(value))
		}
	}
}
