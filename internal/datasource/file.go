package datasource

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/xuri/excelize/v2"

	"github.com/ziadkadry99/salesiq/internal/sales"
)

// FileSource reads exports matched by a glob such as "data/**/*.xlsx".
// JSON files may hold the API envelope or a bare array; CSV and XLSX files
// need a header row using the API field names.
type FileSource struct {
	pattern string
}

// NewFileSource creates a source over every file matching pattern.
func NewFileSource(pattern string) *FileSource {
	return &FileSource{pattern: pattern}
}

func (s *FileSource) Name() string { return "file:" + s.pattern }

func (s *FileSource) Fetch(ctx context.Context) ([]sales.Record, error) {
	matches, err := doublestar.FilepathGlob(s.pattern)
	if err != nil {
		return nil, fmt.Errorf("matching %s: %w", s.pattern, err)
	}
	sort.Strings(matches)

	var records []sales.Record
	for _, path := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		records = append(records, rows...)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records in %s", ErrNoData, s.pattern)
	}
	return records, nil
}

func readFile(path string) ([]sales.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return parseJSON(data)
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return parseCSV(f)
	case ".xlsx":
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return parseXLSX(f)
	}
	return nil, nil
}

func parseJSON(data []byte) ([]sales.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []sales.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, err
		}
		return records, nil
	}
	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, err
	}
	return env.FormData, nil
}

func parseCSV(r io.Reader) ([]sales.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func parseXLSX(f *excelize.File) ([]sales.Record, error) {
	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

// fromRows maps a header row plus data rows onto records. Headers match the
// API field names case-insensitively; unknown columns are ignored.
func fromRows(rows [][]string) []sales.Record {
	if len(rows) < 2 {
		return nil
	}
	index := make(map[string]int)
	for i, h := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	cell := func(row []string, name string) string {
		i, ok := index[strings.ToLower(name)]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]sales.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		records = append(records, sales.Record{
			ID:           cell(row, "_id"),
			Date:         cell(row, "date"),
			Weave:        cell(row, "weave"),
			Quality:      cell(row, "quality"),
			Composition:  cell(row, "composition"),
			Quantity:     sales.Text(cell(row, "quantity")),
			Rate:         sales.Text(cell(row, "rate")),
			Status:       sales.Status(cell(row, "status")),
			AgentName:    cell(row, "agentName"),
			CustomerName: cell(row, "customerName"),
		})
	}
	return records
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
