package domain

import (
	"strings"
	"testing"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		title   string
		wantErr bool
	}{
		{"valid", "tea-0001", "Да Хун Пао", false},
		{"missing id", "", "Да Хун Пао", true},
		{"missing title", "tea-0001", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.id, tt.title, "desc", "", "100", true, nil, nil, nil, nil, nil)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_CopiesInputs(t *testing.T) {
	categories := []string{"Улун"}
	features := map[string]string{FeatureKeyProvince: "Фуцзянь"}

	tea, err := New("tea-0001", "Да Хун Пао", "Утёсный улун", "", "1500", true,
		categories, nil, nil, nil, features)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	categories[0] = "Пуэр"
	features[FeatureKeyProvince] = "Юньнань"

	if tea.Categories()[0] != "Улун" {
		t.Error("category slice was not copied on construction")
	}
	if v, _ := tea.Feature(FeatureKeyProvince); v != "Фуцзянь" {
		t.Error("feature map was not copied on construction")
	}
}

func TestPrice(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   float64
		wantOK bool
	}{
		{"integer", "1500", 1500, true},
		{"decimal", "99.5", 99.5, true},
		{"padded", "  800 ", 800, true},
		{"empty", "", 0, false},
		{"non-numeric", "по запросу", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tea := Reconstruct("tea-0001", "T", "", "", tt.raw, true, nil, nil, nil, nil, nil, "", nil)
			got, ok := tea.Price()
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Price() = (%v, %v), want (%v, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCombineText_ContainsEveryField(t *testing.T) {
	tea := Reconstruct("tea-0001", "Да Хун Пао", "Утёсный улун", "", "1500", true,
		[]string{"Улун"},
		[]string{"мёд"},
		[]string{"дым"},
		[]string{"Очень вкусный"},
		map[string]string{FeatureKeyProvince: "Фуцзянь", FeatureKeyBatch: "весна 2023"},
		"", nil)

	text := tea.CombinedText()
	for _, part := range []string{
		"Да Хун Пао", "Утёсный улун", "Улун", "мёд", "дым", "Очень вкусный",
		FeatureKeyProvince, "Фуцзянь", FeatureKeyBatch, "весна 2023",
	} {
		if !strings.Contains(text, part) {
			t.Errorf("combined text missing %q: %q", part, text)
		}
	}
}

func TestCombineText_Deterministic(t *testing.T) {
	// Feature map iteration order must not leak into the combined text,
	// otherwise cached embeddings would miss across restarts.
	features := map[string]string{
		FeatureKeyBatch:    "весна 2023",
		FeatureKeyProvince: "Фуцзянь",
		"Ферментация:":     "сильная",
	}

	first := Reconstruct("tea-0001", "T", "d", "", "", true, nil, nil, nil, nil, features, "", nil)
	for i := 0; i < 20; i++ {
		again := Reconstruct("tea-0001", "T", "d", "", "", true, nil, nil, nil, nil, features, "", nil)
		if again.CombinedText() != first.CombinedText() {
			t.Fatalf("combined text differs between constructions: %q vs %q",
				again.CombinedText(), first.CombinedText())
		}
	}
}

func TestReconstruct_KeepsPrecomputedText(t *testing.T) {
	tea := Reconstruct("tea-0001", "T", "d", "", "", true, nil, nil, nil, nil, nil,
		"precomputed text", []float32{0.1, 0.2})
	if tea.CombinedText() != "precomputed text" {
		t.Errorf("precomputed text was rebuilt: %q", tea.CombinedText())
	}
	if len(tea.Embedding()) != 2 {
		t.Errorf("embedding lost on reconstruction: %v", tea.Embedding())
	}
}
