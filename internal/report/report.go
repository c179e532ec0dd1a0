// Package report exports answers as xlsx workbooks.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ziadkadry99/salesiq/internal/query"
)

const (
	sheetAnswer  = "Answer"
	sheetRanking = "Ranking"
	sheetDetails = "Orders"
)

var detailHeader = []any{"ID", "Date", "Customer", "Agent", "Weave", "Quality", "Composition", "Status", "Quantity", "Rate", "Revenue"}

// Build creates a workbook with the answer, its ranking if any, and the
// orders it was computed from. The caller must Close it.
func Build(ans *query.Answer) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetAnswer); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	if err := writeAnswer(f, ans); err != nil {
		f.Close()
		return nil, err
	}
	if ans.Detail != nil && len(ans.Detail.Ranking) > 0 {
		if err := writeRanking(f, ans); err != nil {
			f.Close()
			return nil, err
		}
	}
	if ans.Detail != nil && len(ans.Detail.Details) > 0 {
		if err := writeDetails(f, ans); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// Write streams the workbook for ans to w.
func Write(w io.Writer, ans *query.Answer) error {
	f, err := Build(ans)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// WriteFile saves the workbook for ans at path.
func WriteFile(path string, ans *query.Answer) error {
	f, err := Build(ans)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeAnswer(f *excelize.File, ans *query.Answer) error {
	rows := [][]any{
		{"Question", ans.Question},
		{"Answered as", ans.Effective},
		{"Summary", ans.Summary},
		{"Strategy", string(ans.Strategy)},
		{"Intent", string(ans.Intent)},
		{"Angle", string(ans.Angle)},
		{"Stale data", ans.Stale},
		{"Rows", ans.RowCount()},
	}
	if ans.Explanation != "" {
		rows = append(rows, []any{"Explanation", ans.Explanation})
	}
	if ans.Problem != nil {
		rows = append(rows, []any{"Problem", string(ans.Problem.Code)}, []any{"Problem detail", ans.Problem.Message})
	}
	if err := setRows(f, sheetAnswer, rows); err != nil {
		return err
	}
	return f.SetColWidth(sheetAnswer, "B", "B", 80)
}

func writeRanking(f *excelize.File, ans *query.Answer) error {
	if _, err := f.NewSheet(sheetRanking); err != nil {
		return fmt.Errorf("create ranking sheet: %w", err)
	}
	rows := [][]any{{string(ans.Detail.Dimension), "Value", "Orders", "Units", "Revenue", "Leader"}}
	leaders := make(map[string]bool, len(ans.Detail.Leaders))
	for _, l := range ans.Detail.Leaders {
		leaders[l.Key] = true
	}
	for _, en := range ans.Detail.Ranking {
		rows = append(rows, []any{en.Label, en.Value, en.Count, en.Units, en.Revenue, leaders[en.Key]})
	}
	return setRows(f, sheetRanking, rows)
}

func writeDetails(f *excelize.File, ans *query.Answer) error {
	if _, err := f.NewSheet(sheetDetails); err != nil {
		return fmt.Errorf("create orders sheet: %w", err)
	}
	rows := [][]any{detailHeader}
	for _, d := range ans.Detail.Details {
		rows = append(rows, []any{d.ID, d.Date, d.Customer, d.Agent, d.Weave, d.Quality, d.Composition, d.Status, d.Quantity, d.Rate, d.Revenue})
	}
	if err := setRows(f, sheetDetails, rows); err != nil {
		return err
	}
	return f.SetPanes(sheetDetails, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
