// Package retrieval keeps a semantic index of order summaries. It backs the
// last-resort answer strategy only; numeric answers never come from it.
package retrieval

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"github.com/rs/zerolog"

	"github.com/ziadkadry99/salesiq/internal/cleaner"
	"github.com/ziadkadry99/salesiq/internal/db"
	"github.com/ziadkadry99/salesiq/internal/embeddings"
	"github.com/ziadkadry99/salesiq/internal/progress"
	"github.com/ziadkadry99/salesiq/internal/sales"
)

// ErrDisabled is returned by a nil Index.
var ErrDisabled = errors.New("semantic retrieval is disabled")

const (
	collectionName = "orders"
	indexFile      = "orders.gob.gz"
	batchSize      = 50
)

// Hit is one search result.
type Hit struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	Similarity float32           `json:"similarity"`
	Metadata   map[string]string `json:"metadata"`
}

// Index is a chromem-go collection with one document per order.
type Index struct {
	embedder  embeddings.Embedder
	embedFunc chromem.EmbeddingFunc
	dir       string
	state     *db.DB
	logger    zerolog.Logger

	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
}

// NewIndex creates an empty index. dir is where the index is persisted and
// may be empty for an in-memory index. state records the hash of the last
// indexed snapshot and may be nil.
func NewIndex(embedder embeddings.Embedder, dir string, state *db.DB, logger zerolog.Logger) (*Index, error) {
	x := &Index{
		embedder:  embedder,
		embedFunc: embeddings.ToChromemFunc(embedder),
		dir:       dir,
		state:     state,
		logger:    logger.With().Str("component", "retrieval").Logger(),
	}
	cdb, col, err := x.fresh()
	if err != nil {
		return nil, err
	}
	x.db, x.collection = cdb, col
	return x, nil
}

func (x *Index) fresh() (*chromem.DB, *chromem.Collection, error) {
	cdb := chromem.NewDB()
	col, err := cdb.GetOrCreateCollection(collectionName, nil, x.embedFunc)
	if err != nil {
		return nil, nil, fmt.Errorf("create collection: %w", err)
	}
	return cdb, col, nil
}

// Load restores a persisted index if one exists.
func (x *Index) Load() error {
	if x == nil || x.dir == "" {
		return nil
	}
	path := filepath.Join(x.dir, indexFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	cdb := chromem.NewDB()
	if err := cdb.ImportFromFile(path, ""); err != nil {
		return fmt.Errorf("import index: %w", err)
	}
	col := cdb.GetCollection(collectionName, x.embedFunc)
	if col == nil {
		return fmt.Errorf("collection %q not found after import", collectionName)
	}

	x.mu.Lock()
	x.db, x.collection = cdb, col
	x.mu.Unlock()
	x.logger.Debug().Int("documents", col.Count()).Str("path", path).Msg("index loaded")
	return nil
}

// Build indexes snap unless a snapshot with the same content was already
// indexed by the same embedder. It reports whether a rebuild happened.
func (x *Index) Build(ctx context.Context, snap *sales.Snapshot, rep progress.Reporter) (bool, error) {
	if x == nil {
		return false, ErrDisabled
	}
	if rep == nil {
		rep = progress.Nop{}
	}

	hash, err := Hash(snap.Records)
	if err != nil {
		return false, err
	}
	stateKey := "retrieval:" + x.embedder.Name()
	if prev, err := x.loadState(ctx, stateKey); err != nil {
		return false, err
	} else if prev == hash && x.Count() > 0 {
		x.logger.Debug().Str("hash", hash[:12]).Msg("snapshot unchanged, skipping index build")
		return false, nil
	}

	cdb, col, err := x.fresh()
	if err != nil {
		return false, err
	}

	rows := cleaner.Clean(snap.Records)
	rep.Start(len(rows))
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		docs := make([]chromem.Document, 0, end-start)
		for i, r := range rows[start:end] {
			docs = append(docs, chromem.Document{
				ID:       documentID(r, start+i),
				Content:  Summary(r),
				Metadata: metadata(r),
			})
		}
		if err := col.AddDocuments(ctx, docs, 1); err != nil {
			rep.Finish()
			return false, fmt.Errorf("index batch %d: %w", start/batchSize, err)
		}
		rep.Update(end, fmt.Sprintf("Indexed %d orders", end))
	}
	rep.Finish()

	if x.dir != "" {
		if err := os.MkdirAll(x.dir, 0o755); err != nil {
			return false, fmt.Errorf("create index directory: %w", err)
		}
		if err := cdb.ExportToFile(filepath.Join(x.dir, indexFile), true, ""); err != nil {
			return false, fmt.Errorf("persist index: %w", err)
		}
	}

	x.mu.Lock()
	x.db, x.collection = cdb, col
	x.mu.Unlock()

	if err := x.saveState(ctx, stateKey, hash); err != nil {
		return true, err
	}
	x.logger.Info().Int("documents", len(rows)).Str("hash", hash[:12]).Msg("index built")
	return true, nil
}

// Search returns up to k orders closest to question.
func (x *Index) Search(ctx context.Context, question string, k int) ([]Hit, error) {
	if x == nil {
		return nil, ErrDisabled
	}
	if k <= 0 {
		k = 5
	}

	x.mu.RLock()
	col := x.collection
	x.mu.RUnlock()

	// chromem-go requires nResults <= collection size.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	k = min(k, count)

	results, err := col.Query(ctx, question, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}
	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{ID: r.ID, Content: r.Content, Similarity: r.Similarity, Metadata: r.Metadata}
	}
	return hits, nil
}

// Count returns the number of indexed documents.
func (x *Index) Count() int {
	if x == nil {
		return 0
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.collection.Count()
}

func (x *Index) loadState(ctx context.Context, key string) (string, error) {
	if x.state == nil {
		return "", nil
	}
	var v string
	err := x.state.QueryRowContext(ctx, `SELECT value FROM index_state WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read index state: %w", err)
	}
	return v, nil
}

func (x *Index) saveState(ctx context.Context, key, value string) error {
	if x.state == nil {
		return nil
	}
	_, err := x.state.ExecContext(ctx, `
		INSERT INTO index_state (key, value, updated_at) VALUES (?, ?, datetime('now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("save index state: %w", err)
	}
	return nil
}

// Hash fingerprints a record set.
func Hash(records []sales.Record) (string, error) {
	h := sha256.New()
	if err := json.NewEncoder(h).Encode(records); err != nil {
		return "", fmt.Errorf("hash records: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Summary renders one order as a sentence for embedding.
func Summary(r cleaner.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s", orDash(r.ID))
	if r.HasDate {
		fmt.Fprintf(&b, " on %s", r.Date.Format("2 January 2006"))
	}
	fmt.Fprintf(&b, ": customer %s ordered %g of %s %s %s from agent %s at rate %g, status %s.",
		orDash(r.CustomerName), r.QuantityValue,
		orDash(r.Weave), orDash(r.Quality), orDash(r.Composition),
		orDash(r.AgentName), r.RateValue, orDash(string(r.Status)))
	return b.String()
}

func documentID(r cleaner.Record, i int) string {
	if r.ID != "" {
		return r.ID
	}
	return fmt.Sprintf("row-%d", i)
}

func metadata(r cleaner.Record) map[string]string {
	md := map[string]string{
		"agent":    r.AgentName,
		"customer": r.CustomerName,
		"weave":    r.Weave,
		"status":   string(r.Status),
	}
	if r.HasDate {
		md["date"] = r.Date.Format("2006-01-02")
	}
	return md
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
