package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const catalogKey = "metadata.json"

// catalogEntry is the lightweight per-record index: enough to answer
// existence and listing queries without touching the payload blob.
type catalogEntry struct {
	TextPreview string    `json:"text_preview"`
	Model       string    `json:"model"`
	Dimension   int       `json:"dimension"`
	CreatedAt   time.Time `json:"created_at"`
	Filename    string    `json:"filename"`
	Type        string    `json:"type"`
}

type catalog struct {
	Embeddings  map[string]catalogEntry `json:"embeddings"`
	CreatedAt   time.Time               `json:"created_at"`
	LastUpdated time.Time               `json:"last_updated"`
}

func newCatalog() *catalog {
	now := time.Now()
	return &catalog{
		Embeddings:  make(map[string]catalogEntry),
		CreatedAt:   now,
		LastUpdated: now,
	}
}

func (s *Store) loadCatalog(ctx context.Context) error {
	data, ok, err := s.fs.Get(ctx, catalogKey)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}
	if !ok {
		s.cat = newCatalog()
		return nil
	}
	var cat catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return fmt.Errorf("decode catalog: %w", err)
	}
	if cat.Embeddings == nil {
		cat.Embeddings = make(map[string]catalogEntry)
	}
	s.cat = &cat
	return nil
}

// saveCatalog persists the index. Callers must hold s.mu and must have
// written the payload first so a crash never leaves the catalog pointing
// at a missing blob.
func (s *Store) saveCatalog(ctx context.Context) error {
	s.cat.LastUpdated = time.Now()
	data, err := json.MarshalIndent(s.cat, "", "  ")
	if err != nil {
		return fmt.Errorf("encode catalog: %w", err)
	}
	if err := s.fs.Put(ctx, catalogKey, data); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}
	return nil
}
