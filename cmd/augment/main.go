package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/daochai/teasommelier/internal/config"
	"github.com/daochai/teasommelier/internal/domain"
	logpkg "github.com/daochai/teasommelier/internal/logger"
	"github.com/daochai/teasommelier/internal/repository/catalog/xlsx"
	openaiTransport "github.com/daochai/teasommelier/internal/transport/openai"
	augmentuc "github.com/daochai/teasommelier/internal/usecase/augment"
	"github.com/daochai/teasommelier/internal/version"
)

func main() {
	var (
		inPath  = flag.String("in", "", "input catalog xlsx (default: catalog.path from config)")
		outPath = flag.String("out", "augmented.xlsx", "output xlsx path")
	)
	flag.Parse()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	source := *inPath
	if source == "" {
		source = cfg.Catalog.Path
	}

	logger.Info("Starting catalog augmentation",
		zap.String("version", version.Version),
		zap.String("env", env),
		zap.String("in", source),
		zap.String("out", *outPath),
		zap.Int("workers", cfg.Augment.Workers),
		zap.Int("rounds", cfg.Augment.Rounds),
	)

	teas, err := xlsx.NewReader(source, cfg.Catalog.Sheet, logger).Load()
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}
	logger.Info("Catalog loaded", zap.Int("teas", len(teas)))

	base := openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:  cfg.Generation.APIKey,
		BaseURL: cfg.Generation.BaseURL,
		Model:   cfg.Generation.Model,
		Timeout: time.Duration(cfg.Generation.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	generator := openaiTransport.NewRetryingGenerator(base, cfg.Augment.MaxRetries, logger)

	svc := augmentuc.New(generator, augmentuc.Config{
		Workers:       cfg.Augment.Workers,
		Rounds:        cfg.Augment.Rounds,
		RareThreshold: cfg.Augment.RareThreshold,
		MaxPromptLen:  cfg.Augment.MaxPromptLen,
	}, logger)

	teaRefs := teasToRefs(teas)
	rare := svc.SelectRare(teaRefs)
	logger.Info("Selected teas with rare descriptors", zap.Int("selected", len(rare)))

	variants := svc.Run(context.Background(), rare)

	failed := 0
	for _, v := range variants {
		if v.Failed {
			failed++
		}
	}
	logger.Info("Augmentation finished",
		zap.Int("variants", len(variants)),
		zap.Int("failed", failed),
	)

	rows := make([]xlsx.AugmentRow, 0, len(teaRefs)+len(variants))
	for _, t := range teaRefs {
		rows = append(rows, xlsx.AugmentRow{Tea: t, Text: originalText(t), Original: true})
	}
	for _, v := range variants {
		rows = append(rows, xlsx.AugmentRow{Tea: v.Tea, Text: v.Text, Original: false})
	}

	if err := xlsx.WriteAugmented(*outPath, cfg.Catalog.Sheet, rows); err != nil {
		logger.Fatal("Failed to write output", zap.Error(err))
	}
	logger.Info("Output written", zap.String("path", *outPath), zap.Int("rows", len(rows)))
}

func teasToRefs(teas []domain.Tea) []*domain.Tea {
	refs := make([]*domain.Tea, len(teas))
	for i := range teas {
		refs[i] = &teas[i]
	}
	return refs
}

// originalText mirrors the classifier's training text: description joined
// with the comments.
func originalText(t *domain.Tea) string {
	if len(t.Comments()) == 0 {
		return t.Description()
	}
	return t.Description() + " " + strings.Join(t.Comments(), " ")
}
