// Package config loads the session configuration from a YAML file and the
// environment, and builds the vault.Client inputs from it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jmcleod/vaultsession/auth"
	"github.com/jmcleod/vaultsession/vault"
)

var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrUnknownMethod = errors.New("unknown auth method")
)

// Auth methods.
const (
	MethodToken      = "token"
	MethodAppRole    = "approle"
	MethodKubernetes = "kubernetes"
)

// DefaultTokenTTL matches Vault's default token TTL and is used for static
// tokens when no TTL is configured.
const DefaultTokenTTL = 768 * time.Hour

type Config struct {
	Address string        `yaml:"address"`
	Auth    AuthConfig    `yaml:"auth"`
	Renew   RenewConfig   `yaml:"renew"`
	Agent   AgentConfig   `yaml:"agent"`
	Journal JournalConfig `yaml:"journal"`
}

type AuthConfig struct {
	Method string `yaml:"method"`
	Mount  string `yaml:"mount"`

	Token    string        `yaml:"token"`
	TokenTTL time.Duration `yaml:"token_ttl"`

	RoleID   string `yaml:"role_id"`
	SecretID string `yaml:"secret_id"`

	Role    string `yaml:"role"`
	JWTPath string `yaml:"jwt_path"`
}

type RenewConfig struct {
	Policy    string  `yaml:"policy"`
	Threshold float64 `yaml:"threshold"`
}

type AgentConfig struct {
	Listen  string `yaml:"listen"`
	DataDir string `yaml:"data_dir"`
}

type JournalConfig struct {
	MaxEntries        int           `yaml:"max_entries"`
	WebhookURL        string        `yaml:"webhook_url"`
	WebhookAuthHeader string        `yaml:"webhook_auth_header"`
	AlertThreshold    int           `yaml:"alert_threshold"`
	AlertWindow       time.Duration `yaml:"alert_window"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Address: "http://127.0.0.1:8200",
		Auth:    AuthConfig{TokenTTL: DefaultTokenTTL},
		Renew:   RenewConfig{Policy: "reauthenticate", Threshold: 0.75},
		Agent:   AgentConfig{Listen: "127.0.0.1:8100", DataDir: "./data"},
		Journal: JournalConfig{MaxEntries: 10000},
	}
}

// Load reads path (when non-empty) over the defaults, applies the process
// environment and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := cfg.decode(bytes.NewReader(data)); err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a configuration from the environment alone.
func FromEnv() (Config, error) {
	return Load("")
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides fields from environment variables read with lookup.
// When no method is configured it is inferred from which credentials are
// present: VAULT_TOKEN, then APPROLE_ID, then VAULT_ROLE.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("VAULT_ADDR", &c.Address)
	str("VAULT_AUTH_METHOD", &c.Auth.Method)
	str("VAULT_AUTH_MOUNT", &c.Auth.Mount)
	str("VAULT_TOKEN", &c.Auth.Token)
	str("APPROLE_ID", &c.Auth.RoleID)
	str("APPROLE_SECRET", &c.Auth.SecretID)
	str("VAULT_ROLE", &c.Auth.Role)
	str("VAULT_JWT_PATH", &c.Auth.JWTPath)
	str("VAULT_RENEW_POLICY", &c.Renew.Policy)

	if v, ok := lookup("VAULT_TOKEN_TTL"); ok && v != "" {
		d, err := parseTTL(v)
		if err != nil {
			return fmt.Errorf("%w: VAULT_TOKEN_TTL: %v", ErrInvalidConfig, err)
		}
		c.Auth.TokenTTL = d
	}
	if v, ok := lookup("VAULT_RENEW_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: VAULT_RENEW_THRESHOLD: %v", ErrInvalidConfig, err)
		}
		c.Renew.Threshold = f
	}

	if c.Auth.Method == "" {
		switch {
		case c.Auth.Token != "":
			c.Auth.Method = MethodToken
		case c.Auth.RoleID != "":
			c.Auth.Method = MethodAppRole
		case c.Auth.Role != "":
			c.Auth.Method = MethodKubernetes
		}
	}
	return nil
}

// parseTTL accepts a Go duration ("90m") or a number of seconds ("5400").
func parseTTL(v string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Validate checks that the configuration can build a client.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Address) == "" {
		return fmt.Errorf("%w: address is required", ErrInvalidConfig)
	}
	if _, err := c.RenewPolicy(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	switch strings.ToLower(c.Auth.Method) {
	case MethodToken:
		if c.Auth.Token == "" {
			return fmt.Errorf("%w: token auth needs a token", ErrInvalidConfig)
		}
		if c.Auth.TokenTTL <= 0 {
			return fmt.Errorf("%w: token_ttl must be positive", ErrInvalidConfig)
		}
	case MethodAppRole:
		if c.Auth.RoleID == "" || c.Auth.SecretID == "" {
			return fmt.Errorf("%w: approle auth needs role_id and secret_id", ErrInvalidConfig)
		}
	case MethodKubernetes:
		if c.Auth.Role == "" {
			return fmt.Errorf("%w: kubernetes auth needs a role", ErrInvalidConfig)
		}
	case "":
		return fmt.Errorf("%w: no auth method configured", ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, c.Auth.Method)
	}
	return nil
}

// RenewPolicy returns the configured renew policy.
func (c *Config) RenewPolicy() (vault.RenewPolicy, error) {
	return vault.ParseRenewPolicy(c.Renew.Policy, c.Renew.Threshold)
}

// VaultConfig returns the vault.Config for this configuration.
func (c *Config) VaultConfig() (vault.Config, error) {
	policy, err := c.RenewPolicy()
	if err != nil {
		return vault.Config{}, err
	}
	return vault.Config{Address: c.Address, RenewPolicy: policy}, nil
}

// Backend builds the configured auth backend. The Kubernetes backend reads
// its JWT from JWTPath (or the in-cluster default) on every login.
func (c *Config) Backend(opts ...auth.Option) (vault.Backend, error) {
	if c.Auth.Mount != "" {
		opts = append(opts, auth.WithMountPath(c.Auth.Mount))
	}
	var (
		b   vault.Backend
		err error
	)
	switch strings.ToLower(c.Auth.Method) {
	case MethodToken:
		b, err = auth.NewToken(c.Auth.Token, c.Auth.TokenTTL, opts...)
	case MethodAppRole:
		b, err = auth.NewAppRole(c.Auth.RoleID, c.Auth.SecretID, opts...)
	case MethodKubernetes:
		b, err = auth.NewKubernetesFromFile(c.Auth.Role, c.Auth.JWTPath, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, c.Auth.Method)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
