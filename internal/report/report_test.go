package report

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ziadkadry99/salesiq/internal/aggregate"
	"github.com/ziadkadry99/salesiq/internal/query"
	"github.com/ziadkadry99/salesiq/internal/sales"
)

func sampleAnswer() *query.Answer {
	return &query.Answer{
		Question: "most sold weave",
		Summary:  "There is a tie for the most sold weave: Linen and Satin each have 5 units.",
		Strategy: query.StrategyDeterministic,
		Detail: &aggregate.Result{
			Kind:      aggregate.KindRanking,
			Dimension: sales.DimWeave,
			Ranking: []aggregate.Entry{
				{Key: "linen", Label: "Linen", Value: 5, Count: 1, Units: 5},
				{Key: "satin", Label: "Satin", Value: 5, Count: 1, Units: 5},
			},
			Tie:      true,
			Leaders:  []aggregate.Entry{{Key: "linen", Label: "Linen"}, {Key: "satin", Label: "Satin"}},
			RowCount: 2,
			Details: []aggregate.Detail{
				{ID: "a1", Date: "2025-05-01", Weave: "Linen", Quantity: 5, Rate: 10, Revenue: 50},
				{ID: "a2", Date: "2025-05-02", Weave: "Satin", Quantity: 5, Rate: 10, Revenue: 50},
			},
		},
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "answer.xlsx")
	require.NoError(t, WriteFile(path, sampleAnswer()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Answer", "Ranking", "Orders"}, f.GetSheetList())

	summary, err := f.GetCellValue("Answer", "B3")
	require.NoError(t, err)
	assert.Contains(t, summary, "tie")

	rows, err := f.GetRows("Ranking")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "weave", rows[0][0])
	assert.Equal(t, "Linen", rows[1][0])
	assert.Equal(t, "TRUE", rows[1][5])

	orders, err := f.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "a2", orders[2][0])
}

func TestWriteProblemAnswer(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, &query.Answer{
		Question: "who won the football match",
		Summary:  "I can only answer questions about the sales data.",
		Strategy: query.StrategyNone,
		Problem:  &query.Problem{Code: query.ProblemOutOfDomain, Message: "question does not mention the sales data"},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Answer"}, f.GetSheetList())
	code, err := f.GetCellValue("Answer", "B9")
	require.NoError(t, err)
	assert.Equal(t, "out_of_domain", code)
}
