package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	temporalclient "go.temporal.io/sdk/client"

	"ragbot/internal/config"
	"ragbot/internal/ingest"
	"ragbot/internal/llm"
	"ragbot/internal/llm/anthropic"
	"ragbot/internal/llm/openai"
	"ragbot/internal/loader"
	"ragbot/internal/secrets"
	"ragbot/internal/splitter"
	temporalmod "ragbot/internal/temporal"
	"ragbot/internal/vector"
	"ragbot/internal/vector/qdrant"
	"ragbot/internal/vector/sqlitevec"
)

func main() {
	configPath := "configs/ragbot.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Build LLM provider via factory
	factory := llm.NewFactory()
	factory.Register("anthropic", func(c llm.ProviderConfig) (llm.Provider, error) {
		return anthropic.New(c.APIKey, c.Model, c.BaseURL, c.Timeout), nil
	})
	factory.Register("openai", func(c llm.ProviderConfig) (llm.Provider, error) {
		return openai.New(c.APIKey, c.Model, c.BaseURL, c.EmbedModel, c.Timeout), nil
	})
	// All OpenAI-compatible providers
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

	ctx := context.Background()

	pc := llm.DefaultProviderConfig()
	pc.Provider = cfg.LLM.Provider
	pc.APIKey = cfg.LLM.APIKey
	pc.Model = cfg.LLM.Model
	pc.BaseURL = cfg.LLM.BaseURL
	pc.EmbedModel = cfg.LLM.EmbedModel

	if pc.APIKey == "" {
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
			log.Fatalf("secrets: %v", err)
		}
		pc.APIKey = mgr.GetOrDefault(ctx, secrets.KeyLLMAPIKey, "")
	}

	provider, err := factory.Create(pc)
	if err != nil {
		log.Fatalf("creating LLM provider: %v", err)
	}
	if provider == nil {
		log.Fatalf("an LLM provider is required (set llm.provider)")
	}

	var repo vector.Repository
	switch cfg.Vector.Backend {
	case "", "sqlite":
		repo, err = sqlitevec.Open(cfg.Vector.Path, cfg.Vector.Collection, cfg.Vector.Dimension)
	case "qdrant":
		repo, err = qdrant.New(ctx, cfg.Vector.Host, cfg.Vector.Port, cfg.Vector.Collection, cfg.Vector.Dimension)
	default:
		log.Fatalf("unknown vector backend %q", cfg.Vector.Backend)
	}
	if err != nil {
		log.Fatalf("opening vector store: %v", err)
	}
	defer repo.Close()

	loaders := loader.NewRegistry()
	loaders.Register(loader.NewTextLoader())
	loaders.Register(loader.NewPDFLoader())

	// Wire embed retry before SetDependencies
	temporalmod.SetDependencies(&temporalmod.Dependencies{
		Pipeline: &ingest.Pipeline{
			Loaders:   loaders,
			Splitter:  splitter.New(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
			Embedder:  llm.WithEmbedRetry(provider, llm.DefaultRetryConfig()),
			Repo:      repo,
			DocsDir:   cfg.Ingest.DocsDir,
			Dimension: cfg.Vector.Dimension,
			Progress:  log.Printf,
		},
	})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w, err := temporalmod.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("worker: %v", err)
	}

	fmt.Printf("Worker started on task queue: %s\n", cfg.Temporal.TaskQueue)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	w.Stop()
	fmt.Println("Worker stopped")
}
