// Package config resolves the provisioning configuration from an ordered list
// of sources: command-line flags, environment variables, and interactive
// prompts, in that priority. A value supplied by a higher-priority source is
// never overwritten by a lower one.
package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	// DefaultInstallDir is the installation root when none is supplied.
	DefaultInstallDir = "/opt/driftbox"
	// DefaultAIBaseURL is the upstream AI provider endpoint when none is supplied.
	DefaultAIBaseURL = "https://api.openai.com/v1"
	// SecretLength is the exact length required of the encryption key and the
	// database password, whether supplied or generated.
	SecretLength = 32
)

// Config is the resolved provisioning configuration. It is immutable after
// Resolve returns; downstream stages receive it by pointer and never mutate it.
type Config struct {
	// Domain is the public domain the reverse proxy serves.
	Domain string
	// AcmeEmail is the optional contact email for certificate issuance.
	AcmeEmail string
	// AIAPIKey is the optional AI provider credential passed to the app service.
	AIAPIKey string
	// AIBaseURL is the AI provider endpoint.
	AIBaseURL string
	// EncryptionKey is the symmetric key the app uses for data at rest.
	EncryptionKey string
	// DBPassword is the data-store password.
	DBPassword string
	// InstallDir is the installation root for rendered artifacts and data.
	InstallDir string
	// ServiceUser is the operating-system user granted container-runtime access.
	ServiceUser string
}

// Field describes one resolvable configuration value. Sources receive the
// full field so a prompting source can render a title and hide secrets.
type Field struct {
	// Key is the canonical name, identical to the CLI flag name.
	Key string
	// EnvVar is the environment variable consulted by the env source.
	EnvVar string
	// Prompt is the interactive prompt title.
	Prompt string
	// Required marks fields that must be non-empty after resolution.
	Required bool
	// Secret marks values that are hidden when prompted and generated when absent.
	Secret bool
	// ExactLen, when non-zero, is the exact length a value must have.
	ExactLen int
}

// Fields returns the resolvable fields in resolution order.
func Fields() []Field {
	return []Field{
		{Key: "domain", EnvVar: "DRIFTBOX_DOMAIN", Prompt: "Domain name (e.g. chat.example.com)", Required: true},
		{Key: "acme-email", EnvVar: "DRIFTBOX_ACME_EMAIL", Prompt: "ACME contact email (optional)"},
		{Key: "ai-api-key", EnvVar: "DRIFTBOX_AI_API_KEY", Prompt: "AI provider API key (optional)", Secret: true},
		{Key: "ai-base-url", EnvVar: "DRIFTBOX_AI_BASE_URL", Prompt: "AI provider base URL"},
		{Key: "encryption-key", EnvVar: "DRIFTBOX_ENCRYPTION_KEY", Prompt: "Encryption key", Secret: true, ExactLen: SecretLength},
		{Key: "db-password", EnvVar: "DRIFTBOX_DB_PASSWORD", Prompt: "Database password", Secret: true, ExactLen: SecretLength},
		{Key: "install-dir", EnvVar: "DRIFTBOX_INSTALL_DIR", Prompt: "Installation directory"},
		{Key: "service-user", EnvVar: "DRIFTBOX_SERVICE_USER", Prompt: "Service user"},
	}
}

// Resolve walks every field through the given sources in priority order and
// returns the populated configuration. Secret fields with a length constraint
// are generated from a cryptographically strong source when no source supplies
// them; supplied values of the wrong length are a hard error, never adjusted.
func Resolve(sources ...Source) (*Config, error) {
	cfg := &Config{
		AIBaseURL:   DefaultAIBaseURL,
		InstallDir:  DefaultInstallDir,
		ServiceUser: defaultServiceUser(),
	}

	for _, field := range Fields() {
		value, err := lookup(field, sources)
		if err != nil {
			return nil, err
		}

		if value == "" {
			if field.Secret && field.ExactLen > 0 {
				value, err = GenerateSecret(field.ExactLen)
				if err != nil {
					return nil, fmt.Errorf("generate %s: %w", field.Key, err)
				}
			} else if field.Required {
				return nil, fmt.Errorf("required value %q not provided: set --%s or %s", field.Key, field.Key, field.EnvVar)
			} else {
				continue
			}
		}

		// Generated values run through the same check as supplied ones.
		if field.ExactLen > 0 && len(value) != field.ExactLen {
			return nil, fmt.Errorf("%s must be exactly %d characters, got %d", field.Key, field.ExactLen, len(value))
		}

		if err := assign(cfg, field.Key, value); err != nil {
			return nil, err
		}
	}

	if err := validateDomain(cfg.Domain); err != nil {
		return nil, err
	}

	return cfg, nil
}

func lookup(field Field, sources []Source) (string, error) {
	for _, src := range sources {
		value, ok, err := src.Lookup(field)
		if err != nil {
			return "", fmt.Errorf("resolve %s from %s: %w", field.Key, src.Name(), err)
		}
		if ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value), nil
		}
	}
	return "", nil
}

func assign(cfg *Config, key, value string) error {
	switch key {
	case "domain":
		cfg.Domain = value
	case "acme-email":
		cfg.AcmeEmail = value
	case "ai-api-key":
		cfg.AIAPIKey = value
	case "ai-base-url":
		cfg.AIBaseURL = value
	case "encryption-key":
		cfg.EncryptionKey = value
	case "db-password":
		cfg.DBPassword = value
	case "install-dir":
		cfg.InstallDir = value
	case "service-user":
		cfg.ServiceUser = value
	default:
		return fmt.Errorf("unknown configuration key %q", key)
	}
	return nil
}

func validateDomain(domain string) error {
	if strings.ContainsAny(domain, " \t/") || !strings.Contains(domain, ".") {
		return fmt.Errorf("domain %q is not a valid hostname", domain)
	}
	if strings.HasPrefix(domain, "www.") {
		return fmt.Errorf("domain %q must be the bare domain; the www. redirect is generated automatically", domain)
	}
	return nil
}

// defaultServiceUser prefers the invoking sudo user so containers are not
// operated as root by default.
func defaultServiceUser() string {
	if u := os.Getenv("SUDO_USER"); u != "" && u != "root" {
		return u
	}
	return "root"
}
