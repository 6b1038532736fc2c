package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/m-mizutani/simplemem/pkg/adapter"
	"github.com/m-mizutani/simplemem/pkg/model"
	"github.com/m-mizutani/simplemem/pkg/repository"
	"github.com/m-mizutani/simplemem/pkg/usecase/memory"
	"github.com/m-mizutani/simplemem/pkg/utils/logging"
)

// config holds configuration values
type config struct {
	// Namespace
	tenant string
	table  string

	// Store backend
	backend  string
	path     string
	project  string
	database string

	// Embedding / LLM providers
	embedderProvider string
	llmProvider      string
	openaiAPIKey     string
	openaiBaseURL    string
	anthropicAPIKey  string
	geminiProject    string
	geminiLocation   string
	embeddingModel   string
	embeddingDims    int64
	llmModel         string

	topK     int64
	logLevel string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "tenant",
			Aliases:     []string{"t"},
			Usage:       "Tenant identifier owning the memory table",
			Sources:     cli.EnvVars("SIMPLEMEM_TENANT"),
			Destination: &cfg.tenant,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "table",
			Usage:       "Memory table name within the tenant",
			Sources:     cli.EnvVars("SIMPLEMEM_TABLE"),
			Destination: &cfg.table,
		},
	}
	flags = append(flags, logFlags(cfg)...)
	return flags
}

// logFlags returns logging flags, for commands that do not take a namespace
func logFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("SIMPLEMEM_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// storeFlags returns flags for the vector store backend
func storeFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "Store backend (chromem or firestore)",
			Value:       "chromem",
			Sources:     cli.EnvVars("SIMPLEMEM_BACKEND"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "path",
			Usage:       "Data directory for the embedded store",
			Value:       "./simplemem-data",
			Sources:     cli.EnvVars("SIMPLEMEM_PATH"),
			Destination: &cfg.path,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
	}
}

// embedderFlags returns flags for embedding provider configuration
func embedderFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "embedder",
			Usage:       "Embedding provider (openai or gemini)",
			Value:       "openai",
			Sources:     cli.EnvVars("SIMPLEMEM_EMBEDDER"),
			Destination: &cfg.embedderProvider,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI (or OpenRouter) API key",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-base-url",
			Usage:       "Base URL for OpenAI-compatible endpoints",
			Sources:     cli.EnvVars("OPENAI_BASE_URL"),
			Destination: &cfg.openaiBaseURL,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "embedding-model",
			Usage:       "Embedding model name (provider default when empty)",
			Sources:     cli.EnvVars("SIMPLEMEM_EMBEDDING_MODEL"),
			Destination: &cfg.embeddingModel,
		},
		&cli.IntFlag{
			Name:        "embedding-dimensions",
			Usage:       "Embedding vector width (provider default when 0)",
			Sources:     cli.EnvVars("SIMPLEMEM_EMBEDDING_DIMENSIONS"),
			Destination: &cfg.embeddingDims,
		},
	}
}

// llmFlags returns flags for LLM-related configuration
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm",
			Usage:       "Answer synthesis provider (openai, gemini or claude)",
			Value:       "openai",
			Sources:     cli.EnvVars("SIMPLEMEM_LLM"),
			Destination: &cfg.llmProvider,
		},
		&cli.StringFlag{
			Name:        "llm-model",
			Usage:       "LLM model name (provider default when empty)",
			Sources:     cli.EnvVars("SIMPLEMEM_LLM_MODEL"),
			Destination: &cfg.llmModel,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("ANTHROPIC_API_KEY"),
			Destination: &cfg.anthropicAPIKey,
		},
	}
}

// retrievalFlags returns flags shared by the query commands
func retrievalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:        "top-k",
			Aliases:     []string{"k"},
			Usage:       "Number of records retrieved per query",
			Value:       5,
			Sources:     cli.EnvVars("SIMPLEMEM_TOP_K"),
			Destination: &cfg.topK,
		},
	}
}

// setupContext installs a logger configured from flags into the context.
func (cfg *config) setupContext(ctx context.Context) context.Context {
	logger := logging.New(cfg.logLevel, os.Stderr)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// namespace builds the validated namespace from flags.
func (cfg *config) namespace() (model.Namespace, error) {
	return model.NewNamespace(cfg.tenant, cfg.table)
}

// newStore creates the vector store selected by flags.
func (cfg *config) newStore(ctx context.Context) (repository.Store, error) {
	switch cfg.backend {
	case "chromem":
		if cfg.path == "" {
			return nil, goerr.New("path is required for the chromem backend")
		}
		return repository.NewChromem(cfg.path)

	case "firestore":
		if cfg.project == "" {
			return nil, goerr.New("project is required for the firestore backend")
		}
		return repository.NewFirestore(ctx, cfg.project, cfg.database)

	default:
		return nil, goerr.New("unknown store backend", goerr.V("backend", cfg.backend))
	}
}

// newEmbedder creates the embedding provider selected by flags.
func (cfg *config) newEmbedder(ctx context.Context) (adapter.Embedder, error) {
	switch cfg.embedderProvider {
	case "openai":
		if cfg.openaiAPIKey == "" {
			return nil, goerr.New("openai-api-key is required")
		}
		var opts []adapter.OpenAIOption
		if cfg.embeddingModel != "" {
			opts = append(opts, adapter.WithOpenAIEmbeddingModel(cfg.embeddingModel))
		}
		if cfg.embeddingDims > 0 {
			opts = append(opts, adapter.WithOpenAIEmbeddingDimensions(int(cfg.embeddingDims)))
		}
		return adapter.NewOpenAI(cfg.openaiAPIKey, cfg.openaiBaseURL, opts...)

	case "gemini":
		if cfg.geminiProject == "" {
			return nil, goerr.New("gemini-project is required")
		}
		var opts []adapter.GeminiOption
		if cfg.embeddingModel != "" {
			opts = append(opts, adapter.WithGeminiEmbeddingModel(cfg.embeddingModel))
		}
		if cfg.embeddingDims > 0 {
			opts = append(opts, adapter.WithGeminiEmbeddingDimensions(int(cfg.embeddingDims)))
		}
		return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)

	default:
		return nil, goerr.New("unknown embedding provider", goerr.V("embedder", cfg.embedderProvider))
	}
}

// newLLM creates the answer synthesis provider selected by flags.
func (cfg *config) newLLM(ctx context.Context) (adapter.LLM, error) {
	switch cfg.llmProvider {
	case "openai":
		if cfg.openaiAPIKey == "" {
			return nil, goerr.New("openai-api-key is required")
		}
		var opts []adapter.OpenAIOption
		if cfg.llmModel != "" {
			opts = append(opts, adapter.WithOpenAILLMModel(cfg.llmModel))
		}
		return adapter.NewOpenAI(cfg.openaiAPIKey, cfg.openaiBaseURL, opts...)

	case "gemini":
		if cfg.geminiProject == "" {
			return nil, goerr.New("gemini-project is required")
		}
		var opts []adapter.GeminiOption
		if cfg.llmModel != "" {
			opts = append(opts, adapter.WithGeminiGenerativeModel(cfg.llmModel))
		}
		return adapter.NewGemini(ctx, cfg.geminiProject, cfg.geminiLocation, opts...)

	case "claude":
		if cfg.anthropicAPIKey == "" {
			return nil, goerr.New("anthropic-api-key is required")
		}
		var opts []adapter.ClaudeOption
		if cfg.llmModel != "" {
			opts = append(opts, adapter.WithClaudeModel(cfg.llmModel))
		}
		return adapter.NewClaude(cfg.anthropicAPIKey, opts...)

	default:
		return nil, goerr.New("unknown LLM provider", goerr.V("llm", cfg.llmProvider))
	}
}

// newStorage creates a new Storage adapter instance
func (cfg *config) newStorage(ctx context.Context, bucketName string) (adapter.Storage, error) {
	if bucketName == "" {
		return nil, goerr.New("bucket name is required")
	}

	storage, err := adapter.NewStorage(ctx, bucketName)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}

// newUseCase assembles store and embedder into the memory use case.
// withLLM additionally wires the answer synthesis provider.
func (cfg *config) newUseCase(ctx context.Context, withLLM bool) (*memory.UseCase, repository.Store, error) {
	store, err := cfg.newStore(ctx)
	if err != nil {
		return nil, nil, err
	}

	embedder, err := cfg.newEmbedder(ctx)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	opts := []memory.Option{memory.WithTopK(int(cfg.topK))}
	if withLLM {
		llm, err := cfg.newLLM(ctx)
		if err != nil {
			store.Close()
			return nil, nil, err
		}
		opts = append(opts, memory.WithLLM(llm))
	}

	return memory.New(store, embedder, opts...), store, nil
}
