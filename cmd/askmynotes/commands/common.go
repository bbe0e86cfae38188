package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"

	"askmynotes/internal/chunker"
	"askmynotes/internal/config"
	"askmynotes/internal/domain"
	"askmynotes/internal/embedding/tf"
	"askmynotes/internal/generation"
	"askmynotes/internal/generation/mock"
	"askmynotes/internal/generation/openai"
	"askmynotes/internal/logger"
	"askmynotes/internal/objectstore/fs"
	"askmynotes/internal/parser"
	"askmynotes/internal/service"
	transcriptmem "askmynotes/internal/transcript/memory"
	transcriptsql "askmynotes/internal/transcript/sqlite"
	"askmynotes/internal/vectorstore/memory"
)

// AppContext holds everything a command needs, built from one config file.
type AppContext struct {
	Config  *config.AppConfig
	Logger  *slog.Logger
	Service *service.NotesService
	Parser  *parser.Parser

	closers []func() error
}

// NewAppContext loads .env and the config, then assembles the notes
// service. An empty cfgPath uses the default lookup.
func NewAppContext(ctx context.Context, envFile, cfgPath string) (*AppContext, error) {
	if envFile != "" {
		_ = godotenv.Load(envFile)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logCfg := logger.DefaultConfig()
	logCfg.Level = logger.ParseLevel(cfg.Log.Level)
	if cfg.Log.Format != "" {
		logCfg.Format = cfg.Log.Format
	}
	log := logger.New(logCfg)

	ac := &AppContext{Config: cfg, Logger: log}
	svc, err := ac.buildService(ctx)
	if err != nil {
		ac.Close()
		return nil, err
	}
	ac.Service = svc
	return ac, nil
}

func (ac *AppContext) buildService(ctx context.Context) (*service.NotesService, error) {
	cfg := ac.Config

	ch, err := chunker.NewWindowChunker(cfg.Chunker.Size, cfg.Chunker.Overlap)
	if err != nil {
		return nil, err
	}

	ac.Parser = parser.New(
		parser.WithPDFToText(cfg.Parser.PDFToText),
		parser.WithMaxBytes(cfg.Parser.MaxBytes),
		parser.WithLogger(ac.Logger),
	)

	index := memory.NewStorage(tf.NewEmbedder(), memory.WithLogger(ac.Logger))

	var transcripts domain.TranscriptStore
	switch cfg.Transcript.Type {
	case "memory":
		transcripts = transcriptmem.NewStore()
	case "sqlite":
		store, err := transcriptsql.Open(cfg.Transcript.Path)
		if err != nil {
			return nil, fmt.Errorf("open transcript store: %w", err)
		}
		ac.closers = append(ac.closers, store.Close)
		transcripts = store
	default:
		return nil, fmt.Errorf("%w: unknown transcript store %q", domain.ErrInvalidConfig, cfg.Transcript.Type)
	}

	var model domain.Model
	switch cfg.Generation.Provider {
	case "mock":
		model = mock.New()
	case "openai":
		oc := cfg.Generation.OpenAI
		m, err := openai.New(openai.Config{
			BaseURL:   oc.BaseURL,
			APIKeyEnv: oc.APIKeyEnv,
			Model:     oc.Model,
			Timeout:   time.Duration(oc.TimeoutSecs) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		ac.Logger.Info("using openai model", "model", m.ModelName(), "baseURL", oc.BaseURL)
		model = m
	default:
		return nil, fmt.Errorf("%w: unknown generation provider %q", domain.ErrInvalidConfig, cfg.Generation.Provider)
	}

	gen := generation.NewClient(model,
		generation.WithPolicy(generation.Policy{
			MaxRetries: *cfg.Generation.MaxRetries,
			BaseDelay:  time.Duration(cfg.Generation.BaseDelaySecs) * time.Second,
		}),
		generation.WithLogger(ac.Logger),
	)

	opts := []service.Option{
		service.WithLogger(ac.Logger),
		service.WithLimits(cfg.Retrieval.AnswerTopK, cfg.Retrieval.StudyTopK, cfg.Retrieval.HistoryTurns),
	}
	if cfg.ObjectStore.Dir != "" {
		objects, err := fs.New(cfg.ObjectStore.Dir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, service.WithObjectStore(objects))
	}

	ac.Logger.DebugContext(ctx, "notes service assembled",
		"provider", cfg.Generation.Provider,
		"transcript", cfg.Transcript.Type,
		"chunkSize", ch.Size(),
		"chunkOverlap", ch.Overlap(),
	)
	return service.NewNotesService(ac.Parser, ch, index, transcripts, gen, opts...), nil
}

// Close releases stores opened by NewAppContext.
func (ac *AppContext) Close() {
	for _, c := range ac.closers {
		if err := c(); err != nil {
			ac.Logger.Warn("close failed", "error", err)
		}
	}
}

// localTenant is the tenant used by the terminal commands.
func localTenant(subject string) string {
	return "local/" + subject
}
