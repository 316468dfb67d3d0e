package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/daochai/teasommelier/internal/domain"
)

// Fixed user-facing strings. The no-match message never reaches the
// generator; the apology replaces any generation failure.
const (
	NoMatchExplanation = "К сожалению, не нашлось подходящих чаев по вашему запросу."
	ApologyExplanation = "Извините, не могу получить ответ от модели."
)

// Config carries the recommendation defaults.
type Config struct {
	// DefaultTopN bounds the recommendation list when the caller passes
	// topN <= 0.
	DefaultTopN int
	// MaxComments bounds how many comments per tea enter the prompt.
	MaxComments int
}

// Service runs the query-to-recommendation pipeline:
// extract filters → apply → rank → assemble.
type Service struct {
	catalog CatalogReader
	embed   Embedder
	gen     Generator
	cfg     Config
	logger  *zap.Logger
}

// New creates a recommendation service.
func New(catalog CatalogReader, embed Embedder, gen Generator, cfg Config, logger *zap.Logger) *Service {
	if cfg.DefaultTopN <= 0 {
		cfg.DefaultTopN = 3
	}
	if cfg.MaxComments <= 0 {
		cfg.MaxComments = 3
	}
	return &Service{catalog: catalog, embed: embed, gen: gen, cfg: cfg, logger: logger}
}

// TeaView is the outward representation of a recommended tea. It carries
// every display field and never the embedding or the similarity score.
type TeaView struct {
	ID               string            `json:"id"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	URL              string            `json:"url,omitempty"`
	Price            string            `json:"price"`
	Available        bool              `json:"available"`
	Categories       []string          `json:"categories,omitempty"`
	Descriptors      []string          `json:"descriptors,omitempty"`
	ModelDescriptors []string          `json:"model_descriptors,omitempty"`
	Comments         []string          `json:"comments,omitempty"`
	Features         map[string]string `json:"features,omitempty"`
}

// Result is the complete answer to one query.
type Result struct {
	Recommendations []TeaView `json:"recommendations"`
	Explanation     string    `json:"explanation"`
}

// Recommend answers a free-text query. topN <= 0 falls back to the
// configured default. Generation failures never surface as errors; the
// caller always receives a well-formed result.
func (s *Service) Recommend(ctx context.Context, query string, topN int) (Result, error) {
	if topN <= 0 {
		topN = s.cfg.DefaultTopN
	}

	spec := Extract(query, s.catalog)
	candidates := Apply(spec, s.catalog)

	s.logger.Debug("Filters applied",
		zap.Int("candidates", len(candidates)),
		zap.Strings("categories", spec.Categories),
		zap.Strings("descriptors", spec.Descriptors),
	)

	ranked, err := s.Rank(ctx, query, candidates, topN)
	if err != nil {
		return Result{}, fmt.Errorf("rank candidates: %w", err)
	}

	if len(ranked) == 0 {
		return Result{
			Recommendations: []TeaView{},
			Explanation:     NoMatchExplanation,
		}, nil
	}

	views := make([]TeaView, len(ranked))
	for i, r := range ranked {
		views[i] = newTeaView(r.Tea)
	}

	explanation, err := s.gen.Generate(ctx, buildPrompt(ranked, s.cfg.MaxComments))
	if err != nil {
		s.logger.Error("Explanation generation failed", zap.Error(err))
		explanation = ApologyExplanation
	}

	return Result{Recommendations: views, Explanation: explanation}, nil
}

func newTeaView(t *domain.Tea) TeaView {
	return TeaView{
		ID:               t.ID(),
		Title:            t.Title(),
		Description:      t.Description(),
		URL:              t.URL(),
		Price:            t.RawPrice(),
		Available:        t.Available(),
		Categories:       t.Categories(),
		Descriptors:      t.Descriptors(),
		ModelDescriptors: t.ModelDescriptors(),
		Comments:         t.Comments(),
		Features:         t.Features(),
	}
}

// buildPrompt renders the sommelier instruction with one card per tea.
func buildPrompt(ranked []RankedTea, maxComments int) string {
	cards := make([]string, len(ranked))
	for i, r := range ranked {
		cards[i] = teaCard(i+1, r.Tea, maxComments)
	}

	return fmt.Sprintf(`Ты — профессиональный чайный сомелье.

Ответь кратко и по делу на русском языке. Обращайся напрямую к собеседнику (на "вы"), не упоминай слово "пользователь" и не описывай запрос — просто сразу переходи к рекомендации.

Вот подходящие чаи:
%s

Составь короткую рекомендацию (2–4 предложения), укажи 1–3 чая и объясни, почему они подойдут. Не используй ссылки, не давай длинных описаний. Пиши дружелюбно и уверенно.`,
		strings.Join(cards, "\n\n"))
}

func teaCard(n int, t *domain.Tea, maxComments int) string {
	// Display merge of the two descriptor lists, concatenated without dedup.
	descriptors := append(append([]string{}, t.Descriptors()...), t.ModelDescriptors()...)

	availability := "Нет в наличии"
	if t.Available() {
		availability = "Есть в наличии"
	}

	url := t.URL()
	if url == "" {
		url = "нет ссылки"
	}

	comments := t.Comments()
	if len(comments) > maxComments {
		comments = comments[:maxComments]
	}

	return fmt.Sprintf(
		"Чай #%d:\n"+
			"Название: %s\n"+
			"Описание: %s\n"+
			"Дескрипторы вкуса/аромата: %s\n"+
			"Категория: %s\n"+
			"Цена: %s руб.\n"+
			"Особенности: %s\n"+
			"Доступность: %s\n"+
			"Ссылка: %s\n"+
			"Отзывы: %s",
		n,
		t.Title(),
		t.Description(),
		strings.Join(descriptors, ", "),
		strings.Join(t.Categories(), ", "),
		t.RawPrice(),
		formatFeatures(t.Features()),
		availability,
		url,
		strings.Join(comments, " | "),
	)
}

func formatFeatures(features map[string]string) string {
	if len(features) == 0 {
		return "не указаны"
	}
	keys := make([]string, 0, len(features))
	for k := range features {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + " " + features[k]
	}
	return strings.Join(pairs, ", ")
}
