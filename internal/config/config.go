package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Vector    VectorConfig    `mapstructure:"vector"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Server    ServerConfig    `mapstructure:"server"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
}

type LLMConfig struct {
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	EmbedModel  string  `mapstructure:"embed_model"`
	Temperature float64 `mapstructure:"temperature"`
}

type VectorConfig struct {
	// Backend selects the store implementation: "sqlite" (embedded, default)
	// or "qdrant" (remote).
	Backend    string `mapstructure:"backend"`
	Path       string `mapstructure:"path"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
	Dimension  int    `mapstructure:"dimension"`
}

type IngestConfig struct {
	DocsDir      string `mapstructure:"docs_dir"`
	ChunkSize    int    `mapstructure:"chunk_size"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
}

type ServerConfig struct {
	Addr        string   `mapstructure:"addr"`
	TopK        int      `mapstructure:"top_k"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// SecretsConfig selects where credentials are resolved from when they are
// not set in the config file itself.
type SecretsConfig struct {
	Provider   string `mapstructure:"provider"`
	FilePath   string `mapstructure:"file_path"`
	VaultAddr  string `mapstructure:"vault_addr"`
	VaultToken string `mapstructure:"vault_token"`
	VaultMount string `mapstructure:"vault_mount"`
	VaultPath  string `mapstructure:"vault_path"`
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    "openai",
			Temperature: 0.2,
		},
		Vector: VectorConfig{
			Backend:    "sqlite",
			Path:       "index_db",
			Port:       6334,
			Collection: "docs",
			Dimension:  384,
		},
		Ingest: IngestConfig{
			DocsDir:      "docs",
			ChunkSize:    800,
			ChunkOverlap: 120,
		},
		Server: ServerConfig{
			Addr: ":8080",
			TopK: 4,
		},
		Temporal: TemporalConfig{
			Namespace: "default",
			TaskQueue: "ragbot-ingest",
		},
		Telemetry: TelemetryConfig{
			SampleRate: 1.0,
		},
		Secrets: SecretsConfig{
			Provider: "env",
		},
	}
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.LLM.Provider != "" && c.LLM.Provider != "none" && c.LLM.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but api_key is empty", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("LLM temperature %.2f is outside recommended range [0.0, 2.0]", c.LLM.Temperature))
	}
	if c.Ingest.ChunkSize > 0 && c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		warnings = append(warnings, fmt.Sprintf("chunk_overlap %d is not smaller than chunk_size %d", c.Ingest.ChunkOverlap, c.Ingest.ChunkSize))
	}
	if c.Server.TopK <= 0 {
		warnings = append(warnings, fmt.Sprintf("server top_k %d is not positive, retrieval will return nothing", c.Server.TopK))
	}
	if c.Vector.Backend != "" && c.Vector.Backend != "sqlite" && c.Vector.Backend != "qdrant" {
		warnings = append(warnings, fmt.Sprintf("unknown vector backend '%s' (expected sqlite or qdrant)", c.Vector.Backend))
	}
	if c.Secrets.Provider == "file" {
		warnings = append(warnings, "file-based secrets are for development only")
	}

	return warnings
}

// Load reads configuration from file and environment. A missing config file
// is not an error: defaults plus RAGBOT_* environment overrides still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("RAGBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("llm.provider", def.LLM.Provider)
	v.SetDefault("llm.temperature", def.LLM.Temperature)
	v.SetDefault("vector.backend", def.Vector.Backend)
	v.SetDefault("vector.path", def.Vector.Path)
	v.SetDefault("vector.port", def.Vector.Port)
	v.SetDefault("vector.collection", def.Vector.Collection)
	v.SetDefault("vector.dimension", def.Vector.Dimension)
	v.SetDefault("ingest.docs_dir", def.Ingest.DocsDir)
	v.SetDefault("ingest.chunk_size", def.Ingest.ChunkSize)
	v.SetDefault("ingest.chunk_overlap", def.Ingest.ChunkOverlap)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("server.top_k", def.Server.TopK)
	v.SetDefault("temporal.namespace", def.Temporal.Namespace)
	v.SetDefault("temporal.task_queue", def.Temporal.TaskQueue)
	v.SetDefault("telemetry.sample_rate", def.Telemetry.SampleRate)
	v.SetDefault("secrets.provider", def.Secrets.Provider)
}
