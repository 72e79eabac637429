package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every input the bootstrap pipeline consumes.
type Config struct {
	Domain    string `yaml:"domain"`
	ACMEEmail string `yaml:"acme_email"`
	NodeName  string `yaml:"node_name"`

	GitHubOwner      string `yaml:"github_owner"`
	GitHubRepository string `yaml:"github_repository"`
	GitHubToken      string `yaml:"github_token"`

	S3Endpoint  string `yaml:"s3_endpoint"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`

	CloudflareAPIToken string `yaml:"cloudflare_api_token"`

	// ProbeURL is the endpoint used by the pre-flight connectivity check.
	// Optional; defaults to the k3s install endpoint, which must be
	// reachable anyway.
	ProbeURL string `yaml:"probe_url"`

	// AgeKeyRestore holds an externally supplied private key to restore.
	// Sensitive: never logged, never written anywhere but the key path.
	// Only sourced from the environment or an interactive prompt.
	AgeKeyRestore string `yaml:"-"`
}

// envNames maps required configuration names to struct field accessors.
// The map keys are the names reported in validation errors.
var envNames = map[string]func(*Config) *string{
	"DOMAIN":               func(c *Config) *string { return &c.Domain },
	"ACME_EMAIL":           func(c *Config) *string { return &c.ACMEEmail },
	"NODE_NAME":            func(c *Config) *string { return &c.NodeName },
	"GITHUB_OWNER":         func(c *Config) *string { return &c.GitHubOwner },
	"GITHUB_REPOSITORY":    func(c *Config) *string { return &c.GitHubRepository },
	"GITHUB_TOKEN":         func(c *Config) *string { return &c.GitHubToken },
	"S3_ENDPOINT":          func(c *Config) *string { return &c.S3Endpoint },
	"S3_BUCKET":            func(c *Config) *string { return &c.S3Bucket },
	"S3_ACCESS_KEY":        func(c *Config) *string { return &c.S3AccessKey },
	"S3_SECRET_KEY":        func(c *Config) *string { return &c.S3SecretKey },
	"CLOUDFLARE_API_TOKEN": func(c *Config) *string { return &c.CloudflareAPIToken },
}

// RequiredNames returns the names that must be present and non-empty before
// any mutating stage runs.
func RequiredNames() []string {
	return []string{
		"DOMAIN", "ACME_EMAIL", "NODE_NAME",
		"GITHUB_OWNER", "GITHUB_REPOSITORY", "GITHUB_TOKEN",
		"S3_ENDPOINT", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY",
		"CLOUDFLARE_API_TOKEN",
	}
}

// Load builds the run configuration. Values from the YAML file at path (if
// non-empty) are applied first, then overridden by environment variables of
// the same names. The restore key is environment-only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		// #nosec G304 -- path is the operator-supplied config file
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
		}
	}

	for name, field := range envNames {
		if v := os.Getenv(name); v != "" {
			*field(cfg) = v
		}
	}
	if v := os.Getenv("K3SEED_PROBE_URL"); v != "" {
		cfg.ProbeURL = v
	}
	if cfg.ProbeURL == "" {
		cfg.ProbeURL = "https://get.k3s.io"
	}
	cfg.AgeKeyRestore = os.Getenv("K3SEED_AGE_KEY")

	return cfg, nil
}

// Get returns the value bound to a required configuration name.
func (c *Config) Get(name string) string {
	field, ok := envNames[name]
	if !ok {
		return ""
	}
	// Accessors never mutate; copy so the receiver stays logically const.
	cc := *c
	return *field(&cc)
}
