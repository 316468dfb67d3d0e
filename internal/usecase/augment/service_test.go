package augment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/daochai/teasommelier/internal/domain"
)

type mockGenerator struct {
	mu      sync.Mutex
	fn      func(prompt string) (string, error)
	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.calls.Add(1)

	cur := m.active.Add(1)
	for {
		seen := m.maxSeen.Load()
		if cur <= seen || m.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	defer m.active.Add(-1)

	m.mu.Lock()
	fn := m.fn
	m.mu.Unlock()
	if fn != nil {
		return fn(prompt)
	}
	return "перефразировано", nil
}

func makeTea(t *testing.T, id string, descriptors, comments []string) *domain.Tea {
	t.Helper()
	tea := domain.Reconstruct(id, "Чай "+id, "описание "+id, "", "100", true,
		nil, descriptors, nil, comments, nil, "", nil)
	return &tea
}

func TestSelectRare(t *testing.T) {
	// "мёд" occurs on 3 teas (common), "сирень" on 1 (rare).
	teas := []*domain.Tea{
		makeTea(t, "a", []string{"мёд"}, nil),
		makeTea(t, "b", []string{"мёд"}, nil),
		makeTea(t, "c", []string{"мёд", "сирень"}, nil),
		makeTea(t, "d", nil, nil),
	}
	svc := New(&mockGenerator{}, Config{RareThreshold: 3}, zap.NewNop())

	rare := svc.SelectRare(teas)
	if len(rare) != 1 || rare[0].ID() != "c" {
		t.Fatalf("expected only the tea with the rare descriptor, got %d", len(rare))
	}
}

func TestSelectRare_SkipsTeasWithoutDescriptors(t *testing.T) {
	teas := []*domain.Tea{makeTea(t, "a", nil, nil)}
	svc := New(&mockGenerator{}, Config{RareThreshold: 10}, zap.NewNop())

	if rare := svc.SelectRare(teas); len(rare) != 0 {
		t.Fatalf("expected no selection, got %d", len(rare))
	}
}

func TestRun_ParaphrasesEveryTeaEveryRound(t *testing.T) {
	teas := []*domain.Tea{
		makeTea(t, "a", []string{"сирень"}, nil),
		makeTea(t, "b", []string{"жасмин"}, nil),
	}
	gen := &mockGenerator{}
	svc := New(gen, Config{Workers: 2, Rounds: 3}, zap.NewNop())

	out := svc.Run(context.Background(), teas)
	if len(out) != 6 {
		t.Fatalf("expected 2 teas x 3 rounds = 6 variants, got %d", len(out))
	}
	if got := gen.calls.Load(); got != 6 {
		t.Fatalf("expected 6 generation calls, got %d", got)
	}
	// Deterministic order: rounds outer, input order inner.
	if out[0].Tea.ID() != "a" || out[1].Tea.ID() != "b" || out[0].Round != 1 {
		t.Errorf("unexpected result order: %s/%d then %s/%d",
			out[0].Tea.ID(), out[0].Round, out[1].Tea.ID(), out[1].Round)
	}
	if out[5].Round != 3 {
		t.Errorf("expected last variant from round 3, got %d", out[5].Round)
	}
}

func TestRun_WorkerPoolIsBounded(t *testing.T) {
	teas := make([]*domain.Tea, 8)
	for i := range teas {
		teas[i] = makeTea(t, string(rune('a'+i)), []string{"сирень"}, nil)
	}

	gen := &mockGenerator{}
	gen.fn = func(string) (string, error) {
		time.Sleep(time.Millisecond)
		return "текст", nil
	}
	svc := New(gen, Config{Workers: 2, Rounds: 1}, zap.NewNop())

	svc.Run(context.Background(), teas)
	if seen := gen.maxSeen.Load(); seen > 2 {
		t.Fatalf("worker pool exceeded bound: %d concurrent calls", seen)
	}
}

func TestRun_FailureYieldsMarker(t *testing.T) {
	teas := []*domain.Tea{
		makeTea(t, "ok", []string{"сирень"}, nil),
		makeTea(t, "broken", []string{"жасмин"}, nil),
	}
	gen := &mockGenerator{}
	gen.fn = func(prompt string) (string, error) {
		if strings.Contains(prompt, "описание broken") {
			return "", errors.New("backend down")
		}
		return "новый текст", nil
	}
	svc := New(gen, Config{Workers: 1, Rounds: 1}, zap.NewNop())

	out := svc.Run(context.Background(), teas)
	if len(out) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(out))
	}
	if out[0].Failed || out[0].Text != "новый текст" {
		t.Errorf("unexpected first variant: %+v", out[0])
	}
	if !out[1].Failed || out[1].Text != FailureMarker {
		t.Errorf("expected failure marker, got %+v", out[1])
	}
}

func TestBuildPrompt_TruncatesSourceText(t *testing.T) {
	svc := New(&mockGenerator{}, Config{MaxPromptLen: 10}, zap.NewNop())

	prompt := svc.buildPrompt(strings.Repeat("ц", 100))
	if strings.Contains(prompt, strings.Repeat("ц", 11)) {
		t.Fatal("source text must be truncated to the configured length")
	}
	if !strings.Contains(prompt, strings.Repeat("ц", 10)) {
		t.Fatal("truncated source text missing from prompt")
	}
}

func TestSourceText_JoinsDescriptionAndComments(t *testing.T) {
	tea := makeTea(t, "a", nil, []string{"первый", "второй"})
	if got := sourceText(tea); got != "описание a первый второй" {
		t.Fatalf("unexpected source text: %q", got)
	}

	plain := makeTea(t, "b", nil, nil)
	if got := sourceText(plain); got != "описание b" {
		t.Fatalf("unexpected source text: %q", got)
	}
}
