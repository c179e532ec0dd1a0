// Package datasource fetches sales snapshots from the live API or from
// files, and keeps the last good snapshot as a fallback.
package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ziadkadry99/salesiq/internal/sales"
)

var (
	// ErrNoData means the source answered but held nothing usable.
	ErrNoData = errors.New("no data")
	// ErrDataUnavailable means no snapshot could be produced, live or cached.
	ErrDataUnavailable = errors.New("data unavailable")
)

// Source yields the current set of sales records.
type Source interface {
	Fetch(ctx context.Context) ([]sales.Record, error)
	Name() string
}

// envelope is the response shape of the sales API.
type envelope struct {
	Status   int            `json:"status"`
	FormData []sales.Record `json:"formData"`
}

// HTTPSource reads the sales API over HTTP.
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource creates a source for url. A zero timeout leaves the bound
// to the caller's context.
func NewHTTPSource(url string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{url: url, client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSource) Name() string { return s.url }

func (s *HTTPSource) Fetch(ctx context.Context) ([]sales.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching sales data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: sales api returned status %d", ErrNoData, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading sales data: %w", err)
	}
	return decodeEnvelope(body)
}

func decodeEnvelope(body []byte) ([]sales.Record, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrNoData, err)
	}
	if env.Status != 0 && env.Status != http.StatusOK {
		return nil, fmt.Errorf("%w: payload status %d", ErrNoData, env.Status)
	}
	if len(env.FormData) == 0 {
		return nil, fmt.Errorf("%w: empty formData", ErrNoData)
	}
	return env.FormData, nil
}

// StaticSource serves a fixed record set.
type StaticSource struct {
	Records []sales.Record
	Label   string
}

func (s StaticSource) Name() string {
	if s.Label == "" {
		return "static"
	}
	return s.Label
}

func (s StaticSource) Fetch(context.Context) ([]sales.Record, error) {
	if len(s.Records) == 0 {
		return nil, ErrNoData
	}
	out := make([]sales.Record, len(s.Records))
	copy(out, s.Records)
	return out, nil
}
