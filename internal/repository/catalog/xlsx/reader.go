package xlsx

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/daochai/teasommelier/internal/domain"
)

// Source spreadsheet column headers.
const (
	colTitle            = "title"
	colDescription      = "description"
	colPrice            = "price"
	colAvailable        = "available_tea"
	colURL              = "url"
	colCategories       = "tea_category"
	colDescriptors      = "descriptors"
	colModelDescriptors = "bert_descriptors"
	colComments         = "comments"
	colFeatures         = "feature"
)

// Reader loads the tea catalog from an xlsx workbook.
type Reader struct {
	path   string
	sheet  string
	logger *zap.Logger
}

func NewReader(path, sheet string, logger *zap.Logger) *Reader {
	return &Reader{path: path, sheet: sheet, logger: logger}
}

// Load reads every catalog row. Rows without a title are skipped; a malformed
// list or dict cell is logged and treated as empty so one bad row cannot take
// the whole catalog down. An unreadable file or missing sheet is fatal.
func (r *Reader) Load() ([]domain.Tea, error) {
	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file %s: %w", r.path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", r.sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("catalog sheet %s has no data rows: %w", r.sheet, domain.ErrCatalogFormat)
	}

	cols, err := headerIndex(rows[0])
	if err != nil {
		return nil, fmt.Errorf("catalog header: %w", err)
	}

	teas := make([]domain.Tea, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNum := i + 2

		title := strings.TrimSpace(cell(row, cols[colTitle]))
		if title == "" {
			r.logger.Debug("Skipping catalog row without title", zap.Int("row", rowNum))
			continue
		}

		tea, err := domain.New(
			fmt.Sprintf("tea-%04d", rowNum),
			title,
			strings.TrimSpace(cell(row, cols[colDescription])),
			strings.TrimSpace(cell(row, cols[colURL])),
			strings.TrimSpace(cell(row, cols[colPrice])),
			parseAvailable(cell(row, cols[colAvailable])),
			r.listCell(row, cols[colCategories], rowNum, colCategories),
			r.listCell(row, cols[colDescriptors], rowNum, colDescriptors),
			r.listCell(row, cols[colModelDescriptors], rowNum, colModelDescriptors),
			r.listCell(row, cols[colComments], rowNum, colComments),
			r.mapCell(row, cols[colFeatures], rowNum, colFeatures),
		)
		if err != nil {
			r.logger.Warn("Skipping invalid catalog row", zap.Int("row", rowNum), zap.Error(err))
			continue
		}
		teas = append(teas, tea)
	}

	if len(teas) == 0 {
		return nil, domain.ErrEmptyCatalog
	}
	return teas, nil
}

func (r *Reader) listCell(row []string, idx, rowNum int, col string) []string {
	raw := strings.TrimSpace(cell(row, idx))
	if raw == "" {
		return nil
	}
	list, err := parseStringList(raw)
	if err != nil {
		r.logger.Warn("Malformed list cell",
			zap.Int("row", rowNum),
			zap.String("column", col),
			zap.Error(err),
		)
		return nil
	}
	return list
}

func (r *Reader) mapCell(row []string, idx, rowNum int, col string) map[string]string {
	raw := strings.TrimSpace(cell(row, idx))
	if raw == "" {
		return nil
	}
	m, err := parseStringMap(raw)
	if err != nil {
		r.logger.Warn("Malformed dict cell",
			zap.Int("row", rowNum),
			zap.String("column", col),
			zap.Error(err),
		)
		return nil
	}
	return m
}

func headerIndex(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colTitle, colDescription, colPrice, colAvailable} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q: %w", required, domain.ErrCatalogFormat)
		}
	}
	// Optional columns fall back to an out-of-range index, read as empty.
	for _, optional := range []string{colURL, colCategories, colDescriptors, colModelDescriptors, colComments, colFeatures} {
		if _, ok := cols[optional]; !ok {
			cols[optional] = -1
		}
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseAvailable accepts the exporter's bool spellings (True/False) along
// with plain numeric flags.
func parseAvailable(raw string) bool {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return false
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return n != 0
	}
	return false
}
