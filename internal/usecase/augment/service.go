package augment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/daochai/teasommelier/internal/domain"
)

// FailureMarker replaces the paraphrase when every retry against the
// generation backend fails. Kept verbatim from the catalog tooling so
// downstream filtering of failed rows keeps working.
const FailureMarker = "Ошибка обработки данных их GPT"

// Generator produces paraphrased text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config carries the augmentation knobs.
type Config struct {
	// Workers bounds the concurrent generation calls.
	Workers int
	// Rounds is how many paraphrase variants are produced per tea.
	Rounds int
	// RareThreshold marks a descriptor rare when it occurs on fewer
	// than this many teas.
	RareThreshold int
	// MaxPromptLen truncates the source text fed into the prompt.
	MaxPromptLen int
}

// Augmented is one paraphrased variant of a tea description.
type Augmented struct {
	Tea   *domain.Tea
	Text  string
	Round int
	// Failed marks variants that carry the failure marker instead of
	// generated text.
	Failed bool
}

// Service paraphrases descriptions of underrepresented teas to balance the
// descriptor distribution of the training corpus.
type Service struct {
	gen    Generator
	cfg    Config
	logger *zap.Logger
}

// New creates an augmentation service.
func New(gen Generator, cfg Config, logger *zap.Logger) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Rounds <= 0 {
		cfg.Rounds = 1
	}
	if cfg.RareThreshold <= 0 {
		cfg.RareThreshold = 10
	}
	if cfg.MaxPromptLen <= 0 {
		cfg.MaxPromptLen = 5363
	}
	return &Service{gen: gen, cfg: cfg, logger: logger}
}

// SelectRare returns the teas carrying at least one rare descriptor.
// A descriptor is rare when fewer than RareThreshold teas carry it.
func (s *Service) SelectRare(teas []*domain.Tea) []*domain.Tea {
	counts := make(map[string]int)
	for _, t := range teas {
		for _, d := range t.Descriptors() {
			counts[strings.ToLower(d)]++
		}
	}

	var out []*domain.Tea
	for _, t := range teas {
		if len(t.Descriptors()) == 0 {
			continue
		}
		for _, d := range t.Descriptors() {
			if counts[strings.ToLower(d)] < s.cfg.RareThreshold {
				out = append(out, t)
				break
			}
		}
	}

	s.logger.Debug("Selected teas with rare descriptors",
		zap.Int("selected", len(out)),
		zap.Int("total", len(teas)),
	)
	return out
}

// Run paraphrases every tea Rounds times through a bounded worker pool.
// A failed item yields a variant carrying the failure marker; the run as a
// whole never fails because of one tea. Results come back in a
// deterministic (round, input) order.
func (s *Service) Run(ctx context.Context, teas []*domain.Tea) []Augmented {
	out := make([]Augmented, 0, len(teas)*s.cfg.Rounds)

	for round := 1; round <= s.cfg.Rounds; round++ {
		s.logger.Debug("Augmentation round", zap.Int("round", round))
		out = append(out, s.runRound(ctx, teas, round)...)
	}
	return out
}

func (s *Service) runRound(ctx context.Context, teas []*domain.Tea, round int) []Augmented {
	results := make([]Augmented, len(teas))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < s.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = s.paraphrase(ctx, teas[i], round)
			}
		}()
	}

	for i := range teas {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

func (s *Service) paraphrase(ctx context.Context, tea *domain.Tea, round int) Augmented {
	text, err := s.gen.Generate(ctx, s.buildPrompt(sourceText(tea)))
	if err != nil {
		s.logger.Error("Paraphrase failed",
			zap.String("id", tea.ID()),
			zap.Int("round", round),
			zap.Error(err),
		)
		return Augmented{Tea: tea, Text: FailureMarker, Round: round, Failed: true}
	}
	return Augmented{Tea: tea, Text: strings.TrimSpace(text), Round: round}
}

// sourceText joins the description with the comments, the same text the
// descriptor classifier is trained on.
func sourceText(t *domain.Tea) string {
	if len(t.Comments()) == 0 {
		return t.Description()
	}
	return t.Description() + " " + strings.Join(t.Comments(), " ")
}

func (s *Service) buildPrompt(text string) string {
	runes := []rune(text)
	if len(runes) > s.cfg.MaxPromptLen {
		runes = runes[:s.cfg.MaxPromptLen]
	}
	return fmt.Sprintf(`У меня есть описание чая с комментариями. Не добавляй новых комментариев. Перефразируй текст, не теряя смысла.
Сделай текст более выразительным и литературным.
Выводи только финальный текст на русском языке без форматирования. Вот исходный текст:
"%s"`, string(runes))
}
