package catalog

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/daochai/teasommelier/internal/domain"
)

type mockEmbedder struct {
	fn    func(text string) (domain.EmbeddingResult, error)
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.fn != nil {
		return m.fn(text)
	}
	return domain.EmbeddingResult{Embedding: []float32{1, 0, 0}}, nil
}

func mustTea(t *testing.T, id, title string, categories, descriptors []string) domain.Tea {
	t.Helper()
	tea, err := domain.New(id, title, "описание", "", "100", true,
		categories, descriptors, nil, nil, nil)
	if err != nil {
		t.Fatalf("failed to create tea: %v", err)
	}
	return tea
}

func TestBuild_EmbedsEveryTea(t *testing.T) {
	teas := []domain.Tea{
		mustTea(t, "tea-1", "Да Хун Пао", []string{"Улун"}, []string{"мёд"}),
		mustTea(t, "tea-2", "Шен пуэр", []string{"Пуэр"}, []string{"чернослив"}),
	}
	emb := &mockEmbedder{}

	store, err := Build(context.Background(), teas, emb, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 teas, got %d", store.Len())
	}
	if emb.calls != 2 {
		t.Fatalf("expected 2 embed calls, got %d", emb.calls)
	}
	for _, tea := range store.Teas() {
		if len(tea.Embedding()) == 0 {
			t.Errorf("tea %s has no embedding", tea.ID())
		}
	}
}

func TestBuild_SkipsFailedItem(t *testing.T) {
	teas := []domain.Tea{
		mustTea(t, "tea-1", "Да Хун Пао", nil, nil),
		mustTea(t, "tea-2", "Шен пуэр", nil, nil),
	}
	emb := &mockEmbedder{fn: func(text string) (domain.EmbeddingResult, error) {
		if text == teas[0].CombinedText() {
			return domain.EmbeddingResult{}, errors.New("provider hiccup")
		}
		return domain.EmbeddingResult{Embedding: []float32{0, 1}}, nil
	}}

	store, err := Build(context.Background(), teas, emb, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 tea after skip, got %d", store.Len())
	}
	if store.Teas()[0].ID() != "tea-2" {
		t.Errorf("expected surviving tea tea-2, got %s", store.Teas()[0].ID())
	}
}

func TestBuild_QuotaErrorCascades(t *testing.T) {
	teas := []domain.Tea{
		mustTea(t, "tea-1", "Да Хун Пао", nil, nil),
		mustTea(t, "tea-2", "Шен пуэр", nil, nil),
	}
	emb := &mockEmbedder{fn: func(string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, domain.ErrEmbeddingQuotaExceeded
	}}

	_, err := Build(context.Background(), teas, emb, zap.NewNop())
	if !errors.Is(err, domain.ErrEmbeddingQuotaExceeded) {
		t.Fatalf("expected quota error to cascade, got %v", err)
	}
	if emb.calls != 1 {
		t.Fatalf("expected build to stop after first quota error, got %d calls", emb.calls)
	}
}

func TestBuild_EmptyInput(t *testing.T) {
	_, err := Build(context.Background(), nil, &mockEmbedder{}, zap.NewNop())
	if !errors.Is(err, domain.ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog, got %v", err)
	}
}

func TestBuild_AllItemsFail(t *testing.T) {
	teas := []domain.Tea{mustTea(t, "tea-1", "Да Хун Пао", nil, nil)}
	emb := &mockEmbedder{fn: func(string) (domain.EmbeddingResult, error) {
		return domain.EmbeddingResult{}, errors.New("boom")
	}}

	_, err := Build(context.Background(), teas, emb, zap.NewNop())
	if !errors.Is(err, domain.ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog when nothing embeds, got %v", err)
	}
}

func TestStore_Vocabularies(t *testing.T) {
	teas := []domain.Tea{
		mustTea(t, "tea-1", "Да Хун Пао", []string{"Улун", "Утёсный"}, []string{"мёд", "карамель"}),
		mustTea(t, "tea-2", "Те Гуань Инь", []string{"улун"}, []string{"Мёд", "сирень"}),
	}
	store := Reconstruct(teas)

	cats := store.Categories()
	if len(cats) != 2 {
		t.Fatalf("expected 2 unique categories, got %v", cats)
	}
	if cats[0] != "Улун" || cats[1] != "Утёсный" {
		t.Errorf("expected first-seen case and order, got %v", cats)
	}

	descs := store.Descriptors()
	if len(descs) != 3 {
		t.Fatalf("expected 3 unique descriptors, got %v", descs)
	}
	if descs[0] != "мёд" {
		t.Errorf("expected first-seen spelling of duplicate descriptor, got %v", descs)
	}
}
