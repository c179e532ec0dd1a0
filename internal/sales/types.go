// Package sales holds the raw order records served by the sales API and the
// dimensions questions are asked about.
package sales

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Status is an order status as reported by the data source.
type Status string

const (
	StatusConfirmed Status = "Confirmed"
	StatusDeclined  Status = "Declined"
	StatusPending   Status = "Pending"
	StatusProcessed Status = "Processed"
)

// KnownStatuses lists the statuses the engine applies business rules to.
var KnownStatuses = []Status{StatusConfirmed, StatusDeclined, StatusPending, StatusProcessed}

// ParseStatus normalizes a raw status value. Unknown values are returned
// trimmed but otherwise unchanged.
func ParseStatus(raw string) Status {
	trimmed := strings.TrimSpace(raw)
	for _, s := range KnownStatuses {
		if strings.EqualFold(trimmed, string(s)) {
			return s
		}
	}
	return Status(trimmed)
}

// IsDeclined reports whether the status is Declined, ignoring case.
func (s Status) IsDeclined() bool {
	return ParseStatus(string(s)) == StatusDeclined
}

// IsRealized reports whether an order with this status counts towards revenue.
func (s Status) IsRealized() bool {
	switch ParseStatus(string(s)) {
	case StatusConfirmed, StatusProcessed:
		return true
	}
	return false
}

// Text is a field the upstream API sends either as a JSON string or as a
// JSON number. It always decodes to its textual form.
type Text string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*t = Text(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*t = Text(strconv.FormatBool(b))
	return nil
}

// Record is one order as served by the sales API. Every record is exactly
// one unit of count, even when several share a date.
type Record struct {
	ID           string `json:"_id"`
	Date         string `json:"date"`
	Weave        string `json:"weave"`
	Quality      string `json:"quality"`
	Composition  string `json:"composition"`
	Quantity     Text   `json:"quantity"`
	Rate         Text   `json:"rate"`
	Status       Status `json:"status"`
	AgentName    string `json:"agentName"`
	CustomerName string `json:"customerName"`
}

// Dimension is a categorical column that can be grouped, filtered or ranked.
type Dimension string

const (
	DimAgent       Dimension = "agent"
	DimCustomer    Dimension = "customer"
	DimWeave       Dimension = "weave"
	DimQuality     Dimension = "quality"
	DimComposition Dimension = "composition"
	DimStatus      Dimension = "status"
)

// Dimensions lists every groupable column in display order.
var Dimensions = []Dimension{DimAgent, DimCustomer, DimWeave, DimQuality, DimComposition, DimStatus}

// ProductDimensions are the product attributes "most sold" questions rank.
var ProductDimensions = []Dimension{DimWeave, DimQuality, DimComposition}

// IsProduct reports whether d is a product attribute.
func (d Dimension) IsProduct() bool {
	for _, p := range ProductDimensions {
		if p == d {
			return true
		}
	}
	return false
}

// Value returns the raw value of the dimension for r.
func (d Dimension) Value(r Record) string {
	switch d {
	case DimAgent:
		return r.AgentName
	case DimCustomer:
		return r.CustomerName
	case DimWeave:
		return r.Weave
	case DimQuality:
		return r.Quality
	case DimComposition:
		return r.Composition
	case DimStatus:
		return string(r.Status)
	}
	return ""
}

// Snapshot is one immutable fetch of the dataset. Stale is set when the
// snapshot was served from the fallback cache after a failed fetch.
type Snapshot struct {
	Records   []Record  `json:"records"`
	FetchedAt time.Time `json:"fetched_at"`
	Source    string    `json:"source"`
	Stale     bool      `json:"stale"`
}

// Len returns the number of records in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}
