package sales

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordDecodesMixedNumericFields(t *testing.T) {
	payload := `[
		{"_id":"a1","date":"2025-05-27","quantity":"1,200 mtr","rate":85.5,"status":"confirmed","agentName":"Mukilan"},
		{"_id":"a2","date":"2025-05-28","quantity":40,"rate":"90","status":"Declined"},
		{"_id":"a3","date":"2025-05-28","quantity":null,"rate":true,"status":"Pending"}
	]`

	var records []Record
	require.NoError(t, json.Unmarshal([]byte(payload), &records))
	require.Len(t, records, 3)

	assert.Equal(t, Text("1,200 mtr"), records[0].Quantity)
	assert.Equal(t, Text("85.5"), records[0].Rate)
	assert.Equal(t, Text("40"), records[1].Quantity)
	assert.Equal(t, Text(""), records[2].Quantity)
	assert.Equal(t, Text("true"), records[2].Rate)
	assert.Equal(t, "Mukilan", records[0].AgentName)
}

func TestStatusRules(t *testing.T) {
	tests := []struct {
		status   Status
		declined bool
		realized bool
	}{
		{"Confirmed", false, true},
		{"confirmed", false, true},
		{"PROCESSED", false, true},
		{"Pending", false, false},
		{"declined", true, false},
		{" Declined ", true, false},
		{"Cancelled", false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.declined, tt.status.IsDeclined())
			assert.Equal(t, tt.realized, tt.status.IsRealized())
		})
	}
}

func TestVocabularyDeduplicatesCaseInsensitively(t *testing.T) {
	records := []Record{
		{Weave: "Satin", AgentName: "mukilan"},
		{Weave: "satin", AgentName: "Devaraj"},
		{Weave: " Linen ", AgentName: ""},
	}
	v := NewVocabulary(records)

	assert.Equal(t, []string{"Linen", "Satin"}, v.Values(DimWeave))
	assert.Equal(t, []string{"Devaraj", "mukilan"}, v.Values(DimAgent))
	assert.Empty(t, v.Values(DimCustomer))
	assert.Len(t, v.All(), 4)
}

func TestDimensionValue(t *testing.T) {
	r := Record{Weave: "Twill", Quality: "Premium", Composition: "Cotton", Status: StatusPending, CustomerName: "Jhon"}
	assert.Equal(t, "Twill", DimWeave.Value(r))
	assert.Equal(t, "Premium", DimQuality.Value(r))
	assert.Equal(t, "Cotton", DimComposition.Value(r))
	assert.Equal(t, "Pending", DimStatus.Value(r))
	assert.Equal(t, "Jhon", DimCustomer.Value(r))
	assert.True(t, DimWeave.IsProduct())
	assert.False(t, DimAgent.IsProduct())
}
