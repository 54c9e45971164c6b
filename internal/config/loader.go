package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envExpr matches ${VAR} and ${VAR:-default} placeholders in the raw
// YAML, e.g. ${DREMIO_PAT} or ${DMC_BIND:-127.0.0.1:8080}. A default may
// embed "}" or "\" by escaping it with a backslash.
var envExpr = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\]|\\.)*))?\}`)

// Load reads a dmc.yaml file, substitutes environment placeholders, and
// decodes the result. Module sections are kept as raw yaml.Node values;
// each module decodes its own section during Configure.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}

// expandEnv substitutes every placeholder with the variable's value,
// falling back to the inline default when the variable is unset.
// Placeholders with neither are collected into one error naming every
// unresolved variable, so a broken file fails with the full list.
func expandEnv(raw []byte) ([]byte, error) {
	var unresolved []error

	out := envExpr.ReplaceAllFunc(raw, func(match []byte) []byte {
		groups := envExpr.FindSubmatch(match)
		name := string(groups[1])

		if value, ok := os.LookupEnv(name); ok {
			return []byte(value)
		}
		if def := groups[2]; def != nil {
			return []byte(unescapeDefault(string(def)))
		}

		unresolved = append(unresolved, fmt.Errorf("unresolved variable: %s", name))
		return match
	})

	return out, errors.Join(unresolved...)
}

// unescapeDefault strips the backslash escapes a default value uses to
// embed "}" or "\" literally.
func unescapeDefault(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(r)
	}
	if escaped {
		b.WriteRune('\\')
	}
	return b.String()
}
