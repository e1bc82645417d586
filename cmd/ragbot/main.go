package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"

	"ragbot/internal/config"
	"ragbot/internal/ingest"
	"ragbot/internal/llm"
	"ragbot/internal/llm/anthropic"
	"ragbot/internal/llm/openai"
	"ragbot/internal/loader"
	"ragbot/internal/observability"
	"ragbot/internal/rag"
	"ragbot/internal/secrets"
	"ragbot/internal/server"
	"ragbot/internal/splitter"
	temporalmod "ragbot/internal/temporal"
	"ragbot/internal/vector"
	"ragbot/internal/vector/qdrant"
	"ragbot/internal/vector/sqlitevec"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "ragbot",
		Short: "Document question answering over a local corpus",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "configs/ragbot.yaml", "Config file path")

	var (
		docsDir     string
		viaTemporal bool
	)
	ingestCmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load, chunk, embed, and index the documents directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(configPath, docsDir, viaTemporal)
		},
	}
	ingestCmd.Flags().StringVar(&docsDir, "docs", "", "Documents directory (overrides config)")
	ingestCmd.Flags().BoolVar(&viaTemporal, "via-temporal", false, "Run ingestion on a Temporal worker instead of in-process")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question answering API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	askCmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(configPath, strings.Join(args, " "))
		},
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List available LLM providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available LLM providers:")
			fmt.Println()
			for name, url := range llm.KnownProviders {
				fmt.Printf("  %-14s %s\n", name, url)
			}
			fmt.Println("  custom         (set base_url to any OpenAI-compatible endpoint)")
			fmt.Println()
			fmt.Println("Configure in ragbot.yaml or via environment:")
			fmt.Println("  RAGBOT_LLM_PROVIDER=openai")
			fmt.Println("  RAGBOT_LLM_API_KEY=sk-...")
			fmt.Println("  RAGBOT_LLM_MODEL=gpt-4o-mini")
			fmt.Println("  RAGBOT_LLM_EMBED_MODEL=text-embedding-3-small")
		},
	}

	rootCmd.AddCommand(ingestCmd, serveCmd, askCmd, providersCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(configPath, docsDir string, viaTemporal bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if docsDir != "" {
		cfg.Ingest.DocsDir = docsDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if viaTemporal {
		c, err := temporalclient.Dial(temporalclient.Options{
			HostPort:  cfg.Temporal.Host,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			return fmt.Errorf("temporal client: %w", err)
		}
		defer c.Close()

		result, err := temporalmod.RunIngest(ctx, c, cfg.Temporal.TaskQueue, temporalmod.IngestInput{DocsDir: docsDir})
		if err != nil {
			return err
		}
		fmt.Printf("Ingested %d documents into %d chunks\n", result.Documents, result.Chunks)
		return nil
	}

	tp, err := initTracing(ctx, cfg)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer tp.Shutdown(context.Background())

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer repo.Close()

	embedder := llm.WithEmbedRetry(provider, llm.DefaultRetryConfig())
	stats, err := newPipeline(cfg, embedder, repo).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %d documents into %d chunks\n", stats.Documents, stats.Chunks)
	return nil
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := initTracing(ctx, cfg)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer tp.Shutdown(context.Background())

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer repo.Close()

	fmt.Printf("Using LLM provider: %s\n", provider.Name())
	fmt.Printf("Listening on %s\n", cfg.Server.Addr)

	srv := server.New(newService(cfg, provider, repo), repo, cfg.Server)
	return srv.Run(ctx)
}

func runAsk(configPath, question string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := buildProvider(ctx, cfg)
	if err != nil {
		return err
	}

	repo, err := openRepository(ctx, cfg)
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer repo.Close()

	answer, err := newService(cfg, provider, repo).Answer(ctx, question)
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, s := range answer.Sources {
			fmt.Printf("  - %s: %s\n", s.Source, s.Preview)
		}
	}
	return nil
}

// newFactory registers the built-in providers plus every OpenAI-compatible
// preset, so switching backends is a config change, not a code change.
func newFactory() *llm.Factory {
	factory := llm.NewFactory()
	factory.Register("anthropic", func(c llm.ProviderConfig) (llm.Provider, error) {
		return anthropic.New(c.APIKey, c.Model, c.BaseURL, c.Timeout), nil
	})
	factory.Register("openai", func(c llm.ProviderConfig) (llm.Provider, error) {
		return openai.New(c.APIKey, c.Model, c.BaseURL, c.EmbedModel, c.Timeout), nil
	})
	for _, p := range []struct{ name, url string }{
		{"groq", llm.KnownProviders["groq"]},
		{"ollama", llm.KnownProviders["ollama"]},
		{"together", llm.KnownProviders["together"]},
		{"custom", ""},
	} {
		p := p
		factory.Register(p.name, func(c llm.ProviderConfig) (llm.Provider, error) {
			base := c.BaseURL
			if base == "" {
				base = p.url
			}
			return openai.New(c.APIKey, c.Model, base, c.EmbedModel, c.Timeout), nil
		})
	}
	return factory
}

func buildProvider(ctx context.Context, cfg *config.Config) (llm.Provider, error) {
	pc := llm.DefaultProviderConfig()
	pc.Provider = cfg.LLM.Provider
	pc.APIKey = cfg.LLM.APIKey
	pc.Model = cfg.LLM.Model
	pc.BaseURL = cfg.LLM.BaseURL
	pc.EmbedModel = cfg.LLM.EmbedModel

	if pc.APIKey == "" {
		pc.APIKey = resolveAPIKey(ctx, cfg)
	}

	provider, err := newFactory().Create(pc)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	if provider == nil {
		return nil, fmt.Errorf("an LLM provider is required (set llm.provider)")
	}
	return provider, nil
}

// resolveAPIKey consults the configured secrets backend when the key is not
// in the config file. A still-missing key is not fatal here: the factory may
// be building a local endpoint (e.g. Ollama) that needs none.
func resolveAPIKey(ctx context.Context, cfg *config.Config) string {
	mgr, err := secrets.NewManager(&secrets.Config{
		Provider:   cfg.Secrets.Provider,
		FileConfig: &secrets.FileConfig{Path: cfg.Secrets.FilePath},
		VaultConfig: &secrets.VaultConfig{
			Address:    cfg.Secrets.VaultAddr,
			Token:      cfg.Secrets.VaultToken,
			MountPath:  cfg.Secrets.VaultMount,
			SecretPath: cfg.Secrets.VaultPath,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: secrets backend unavailable: %v\n", err)
		return ""
	}
	return mgr.GetOrDefault(ctx, secrets.KeyLLMAPIKey, "")
}

func openRepository(ctx context.Context, cfg *config.Config) (vector.Repository, error) {
	switch cfg.Vector.Backend {
	case "", "sqlite":
		return sqlitevec.Open(cfg.Vector.Path, cfg.Vector.Collection, cfg.Vector.Dimension)
	case "qdrant":
		return qdrant.New(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection, cfg.Vector.Dimension)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Vector.Backend)
	}
}

func newPipeline(cfg *config.Config, embedder ingest.Embedder, repo vector.Repository) *ingest.Pipeline {
	loaders := loader.NewRegistry()
	loaders.Register(loader.NewTextLoader())
	loaders.Register(loader.NewPDFLoader())

	return &ingest.Pipeline{
		Loaders:   loaders,
		Splitter:  splitter.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		Embedder:  embedder,
		Repo:      repo,
		DocsDir:   cfg.Ingest.DocsDir,
		Dimension: cfg.Vector.Dimension,
		Progress: func(format string, args ...any) {
			fmt.Printf(format+"\n", args...)
		},
	}
}

func newService(cfg *config.Config, provider llm.Provider, repo vector.Repository) *rag.Service {
	return &rag.Service{
		Retriever: &rag.Retriever{Embedder: provider, Repo: repo, TopK: cfg.Server.TopK},
		Composer:  &rag.Composer{Generator: provider, Temperature: cfg.LLM.Temperature},
	}
}

func initTracing(ctx context.Context, cfg *config.Config) (*observability.TracerProvider, error) {
	tc := observability.DefaultTracingConfig()
	tc.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	tc.SampleRate = cfg.Telemetry.SampleRate
	return observability.InitTracing(ctx, tc)
}
