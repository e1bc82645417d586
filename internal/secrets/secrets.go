// Package secrets resolves credentials the service needs at startup, so API
// keys can live outside the config file. Backends are read-only: the service
// consumes secrets, it never writes them.
package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Well-known secret keys.
const (
	KeyLLMAPIKey  = "llm_api_key"
	KeyVaultToken = "vault_token"
)

// Provider is the interface for secret backends.
type Provider interface {
	// Get retrieves a secret by key. A missing key is an error.
	Get(ctx context.Context, key string) (string, error)
	// Name returns the provider name.
	Name() string
}

// Config configures the secrets manager.
type Config struct {
	// Provider specifies which backend to use: "env", "vault", "file".
	Provider string
	// VaultConfig for the HashiCorp Vault backend.
	VaultConfig *VaultConfig
	// FileConfig for the file backend (development only).
	FileConfig *FileConfig
	// EnvPrefix for environment variable names (default: "RAGBOT_").
	EnvPrefix string
}

// DefaultConfig returns the default (env-based) configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider:  "env",
		EnvPrefix: "RAGBOT_",
	}
}

// Manager resolves secrets from a primary backend with environment fallback,
// caching resolved values for the process lifetime.
type Manager struct {
	primary  Provider
	fallback Provider

	mu    sync.RWMutex
	cache map[string]string
}

// NewManager creates a secrets manager with the specified configuration.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var primary Provider
	var err error

	switch cfg.Provider {
	case "vault":
		primary, err = NewVaultProvider(cfg.VaultConfig)
		if err != nil {
			return nil, fmt.Errorf("create vault provider: %w", err)
		}
	case "file":
		primary, err = NewFileProvider(cfg.FileConfig)
		if err != nil {
			return nil, fmt.Errorf("create file provider: %w", err)
		}
	case "env", "":
		primary = NewEnvProvider(cfg.EnvPrefix)
	default:
		return nil, fmt.Errorf("unknown secrets provider: %s", cfg.Provider)
	}

	return &Manager{
		primary:  primary,
		fallback: NewEnvProvider(cfg.EnvPrefix),
		cache:    make(map[string]string),
	}, nil
}

// Get retrieves a secret, trying the primary backend then the environment.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	if val, ok := m.cache[key]; ok {
		m.mu.RUnlock()
		return val, nil
	}
	m.mu.RUnlock()

	for _, p := range []Provider{m.primary, m.fallback} {
		val, err := p.Get(ctx, key)
		if err == nil && val != "" {
			m.mu.Lock()
			m.cache[key] = val
			m.mu.Unlock()
			return val, nil
		}
	}

	return "", fmt.Errorf("secret not found: %s", key)
}

// GetOrDefault retrieves a secret or returns a default value.
func (m *Manager) GetOrDefault(ctx context.Context, key, defaultVal string) string {
	val, err := m.Get(ctx, key)
	if err != nil || val == "" {
		return defaultVal
	}
	return val
}

// EnvProvider reads secrets from environment variables: the key "llm_api_key"
// with prefix "RAGBOT_" resolves from RAGBOT_LLM_API_KEY.
type EnvProvider struct {
	prefix string
}

// NewEnvProvider creates an environment-based secrets provider.
func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = "RAGBOT_"
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(ctx context.Context, key string) (string, error) {
	name := p.prefix + strings.ToUpper(key)
	val, ok := os.LookupEnv(name)
	if !ok || val == "" {
		return "", fmt.Errorf("environment variable not set: %s", name)
	}
	return val, nil
}
