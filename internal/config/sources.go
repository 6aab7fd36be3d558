package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/huh"
)

// Source supplies configuration values. Sources are consulted in priority
// order; the first non-empty answer wins.
type Source interface {
	// Name identifies the source in error messages.
	Name() string
	// Lookup returns the value for the field, whether the source had an
	// answer, and any error encountered while obtaining it.
	Lookup(field Field) (string, bool, error)
}

// ValuesSource answers from a fixed map keyed by field key. The CLI builds one
// from the flags the operator explicitly set.
type ValuesSource struct {
	// Label names the source in errors (e.g. "flags").
	Label string
	// Values maps field keys to supplied values.
	Values map[string]string
}

// Name implements Source.
func (s ValuesSource) Name() string { return s.Label }

// Lookup implements Source.
func (s ValuesSource) Lookup(field Field) (string, bool, error) {
	v, ok := s.Values[field.Key]
	return v, ok, nil
}

// envValues mirrors the DRIFTBOX_* environment variables. Tags must agree
// with the EnvVar column in Fields.
type envValues struct {
	Domain        string `env:"DRIFTBOX_DOMAIN"`
	AcmeEmail     string `env:"DRIFTBOX_ACME_EMAIL"`
	AIAPIKey      string `env:"DRIFTBOX_AI_API_KEY"`
	AIBaseURL     string `env:"DRIFTBOX_AI_BASE_URL"`
	EncryptionKey string `env:"DRIFTBOX_ENCRYPTION_KEY"`
	DBPassword    string `env:"DRIFTBOX_DB_PASSWORD"`
	InstallDir    string `env:"DRIFTBOX_INSTALL_DIR"`
	ServiceUser   string `env:"DRIFTBOX_SERVICE_USER"`
}

// EnvSource answers from an environment map, defaulting to the process
// environment. Passing a synthetic map keeps resolution testable without
// touching real process state.
type EnvSource struct {
	values map[string]string
}

// NewEnvSource parses the given environment into a source. A nil environ
// reads the process environment.
func NewEnvSource(environ map[string]string) (*EnvSource, error) {
	if environ == nil {
		environ = env.ToMap(os.Environ())
	}

	var parsed envValues
	if err := env.ParseWithOptions(&parsed, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	return &EnvSource{values: map[string]string{
		"domain":         parsed.Domain,
		"acme-email":     parsed.AcmeEmail,
		"ai-api-key":     parsed.AIAPIKey,
		"ai-base-url":    parsed.AIBaseURL,
		"encryption-key": parsed.EncryptionKey,
		"db-password":    parsed.DBPassword,
		"install-dir":    parsed.InstallDir,
		"service-user":   parsed.ServiceUser,
	}}, nil
}

// Name implements Source.
func (s *EnvSource) Name() string { return "environment" }

// Lookup implements Source.
func (s *EnvSource) Lookup(field Field) (string, bool, error) {
	v, ok := s.values[field.Key]
	return v, ok && v != "", nil
}

// PromptSource asks the operator for required values that remained empty
// after the flag and environment sources. Only required fields are prompted:
// optional fields keep their defaults and the constrained secrets are
// generated instead, so the prompt never has to hide input.
type PromptSource struct{}

// Name implements Source.
func (PromptSource) Name() string { return "prompt" }

// Lookup implements Source.
func (PromptSource) Lookup(field Field) (string, bool, error) {
	if !field.Required {
		return "", false, nil
	}

	var value string
	input := huh.NewInput().
		Title(field.Prompt).
		Value(&value)

	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", false, fmt.Errorf("prompt for %s: %w", field.Key, err)
	}

	value = strings.TrimSpace(value)
	return value, value != "", nil
}
