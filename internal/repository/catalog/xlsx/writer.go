package xlsx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/daochai/teasommelier/internal/domain"
)

// AugmentRow is one output row of the augmentation pipeline: the source tea
// plus either its original text or a paraphrased variant.
type AugmentRow struct {
	Tea      *domain.Tea
	Text     string
	Original bool
}

var augmentHeader = []any{
	colTitle, colDescription, colPrice, colAvailable, colURL,
	colCategories, colDescriptors, colModelDescriptors, colComments, colFeatures,
	"augmented_text", "original",
}

// WriteAugmented writes the augmentation output workbook. Collection cells
// are re-encoded as Python literals so the file round-trips through the
// reader and the upstream tooling.
func WriteAugmented(path, sheet string, rows []AugmentRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if sheet != "Sheet1" {
		if _, err := f.NewSheet(sheet); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet, err)
		}
	}

	if err := setRow(f, sheet, 1, augmentHeader); err != nil {
		return err
	}

	for i, row := range rows {
		t := row.Tea
		cells := []any{
			t.Title(),
			t.Description(),
			t.RawPrice(),
			fmt.Sprintf("%t", t.Available()),
			t.URL(),
			encodeStringList(t.Categories()),
			encodeStringList(t.Descriptors()),
			encodeStringList(t.ModelDescriptors()),
			encodeStringList(t.Comments()),
			encodeStringMap(t.Features()),
			row.Text,
			fmt.Sprintf("%t", row.Original),
		}
		if err := setRow(f, sheet, i+2, cells); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, rowNum int, cells []any) error {
	ref, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheet, ref, &cells); err != nil {
		return fmt.Errorf("set row %d: %w", rowNum, err)
	}
	return nil
}

// encodeStringList renders a Python list literal, the inverse of
// parseStringList.
func encodeStringList(items []string) string {
	if len(items) == 0 {
		return "[]"
	}
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = quoteLiteral(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// encodeStringMap renders a Python dict literal with sorted keys, the
// inverse of parseStringMap.
func encodeStringMap(m map[string]string) string {
	if len(m) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = quoteLiteral(k) + ": " + quoteLiteral(m[k])
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

func quoteLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	return "'" + s + "'"
}
