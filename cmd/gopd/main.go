package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/loqalabs/gop-core/internal/bus"
	"github.com/loqalabs/gop-core/internal/capability"
	"github.com/loqalabs/gop-core/internal/config"
	"github.com/loqalabs/gop-core/internal/eventstore"
	"github.com/loqalabs/gop-core/internal/gop"
	"github.com/loqalabs/gop-core/internal/natsserver"
	"github.com/loqalabs/gop-core/internal/runtime"
	"github.com/loqalabs/gop-core/internal/score"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "gop.yaml", "Path to configuration file")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	embedded, err := natsserver.Start(cfg.Bus, logger)
	if err != nil {
		logger.Error("failed to start embedded nats server", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer embedded.Shutdown()

	busClient, err := bus.Connect(ctx, cfg.Bus, logger)
	if err != nil {
		logger.Error("failed to connect to bus", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer busClient.Close()

	store, err := eventstore.Open(ctx, cfg.EventStore, logger)
	if err != nil {
		logger.Error("failed to open event store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	registry, err := capability.NewRegistry(ctx, cfg.Node, busClient, logger)
	if err != nil {
		logger.Error("failed to start capability registry", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer registry.Close()

	scorer, err := buildScorer(cfg, logger)
	if err != nil {
		logger.Error("failed to build scoring engine", slog.String("error", err.Error()))
		os.Exit(1)
	}

	scoreService := score.NewService(ctx, busClient, store, scorer, logger)
	if err := scoreService.Start(); err != nil {
		logger.Error("failed to start score service", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer scoreService.Close()

	rt := runtime.New(cfg, logger)
	if err := rt.Start(ctx); err != nil {
		logger.Error("runtime exited with error", slog.String("error", err.Error()))
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// buildScorer selects the acoustic model and phonemizer backends named by
// cfg and wires them into a single gop.Scorer, following the mode switches
// cfg.Acoustic.Mode and cfg.Phonemizer.Mode describe.
func buildScorer(cfg config.Config, logger *slog.Logger) (*gop.Scorer, error) {
	vocab, err := loadVocabulary(cfg)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}

	model, err := buildAcousticModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("build acoustic model: %w", err)
	}

	phonemizer, err := buildPhonemizer(cfg)
	if err != nil {
		return nil, fmt.Errorf("build phonemizer: %w", err)
	}

	audioPre := gop.NewAudioPreprocessor()
	emission := gop.NewEmissionProvider(vocab, model)
	tokenizer := gop.NewIPATokenizer(vocab, logger)
	reference := gop.NewReferenceBuilder(phonemizer, tokenizer, logger)
	aligner := gop.NewGOPAligner(vocab, float32(cfg.GOP.ThresholdExcellent), float32(cfg.GOP.ThresholdGood), logger)

	return gop.NewScorer(audioPre, emission, reference, aligner), nil
}

func loadVocabulary(cfg config.Config) (*gop.Vocabulary, error) {
	if cfg.Acoustic.VocabPath == "" {
		return gop.DefaultMockVocabulary(cfg.GOP.BlankID), nil
	}
	return gop.LoadVocabulary(cfg.Acoustic.VocabPath, cfg.GOP.BlankID)
}

func buildAcousticModel(cfg config.Config) (gop.AcousticModel, error) {
	switch cfg.Acoustic.Mode {
	case "onnx":
		return gop.NewONNXAcousticModel(
			cfg.Acoustic.SharedLibPath,
			cfg.Acoustic.ModelPath,
			cfg.Acoustic.InputName,
			cfg.Acoustic.OutputName,
			cfg.Acoustic.VocabSize,
		)
	case "exec":
		return gop.NewExecAcousticModel(cfg.Acoustic.Command, cfg.Acoustic.VocabSize)
	default:
		return gop.NewMockAcousticModel(cfg.Acoustic.VocabSize, cfg.Acoustic.FramesPerSec), nil
	}
}

func buildPhonemizer(cfg config.Config) (gop.Phonemizer, error) {
	switch cfg.Phonemizer.Mode {
	case "goruut":
		return gop.NewGoruutPhonemizer(cfg.Phonemizer.Language), nil
	case "exec":
		return gop.NewExecPhonemizer(cfg.Phonemizer.Command)
	default:
		return gop.NewDictPhonemizer(nil), nil
	}
}
