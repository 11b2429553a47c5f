// Package store persists embedding records content-addressed: the record id
// is a fingerprint of the text prefix and model, so re-embedding identical
// input overwrites instead of duplicating. Payload blobs live behind a
// filestore backend; a JSON catalog indexes them for listing queries.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/jobmatch/internal/filestore"
	"github.com/xxxsen/jobmatch/internal/model"
)

// idPrefixLen bounds how much text feeds the fingerprint. Long texts
// sharing their first 100 bytes and model collide; accepted, job posting
// texts lead with title and company.
const idPrefixLen = 100

const previewLen = 100

// Stats summarizes what the store holds.
type Stats struct {
	Total      int   `json:"total_embeddings"`
	Jobs       int   `json:"job_embeddings"`
	Resumes    int   `json:"resume_embeddings"`
	TotalBytes int64 `json:"total_size_bytes"`
}

// Entry pairs a record with its id for enumeration results.
type Entry struct {
	ID     string
	Record *model.EmbeddingRecord
}

type Store struct {
	fs    filestore.Store
	mu    sync.Mutex
	cat   *catalog
	cache *expirable.LRU[string, *model.EmbeddingRecord]
}

// Options tune the read-through cache over Load.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

func New(ctx context.Context, fs filestore.Store, opts Options) (*Store, error) {
	size := opts.CacheSize
	if size <= 0 {
		size = 1024
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &Store{
		fs:    fs,
		cache: expirable.NewLRU[string, *model.EmbeddingRecord](size, nil, ttl),
	}
	if err := s.loadCatalog(ctx); err != nil {
		return nil, err
	}
	logutil.GetLogger(ctx).Info("embedding store opened",
		zap.Int("tracked", len(s.cat.Embeddings)))
	return s, nil
}

// FingerprintID derives the content-addressed id for a (text, model) pair.
func FingerprintID(text, model string) string {
	prefix := text
	if len(prefix) > idPrefixLen {
		prefix = prefix[:idPrefixLen]
	}
	sum := sha256.Sum256([]byte(prefix + "_" + model))
	return hex.EncodeToString(sum[:])
}

// Save writes the payload blob first, then registers the catalog entry.
// Saving the same (text prefix, model) again resolves to the same id and
// overwrites.
func (s *Store) Save(ctx context.Context, text string, embedding []float32, modelName string, meta model.Metadata) (string, error) {
	id := FingerprintID(text, modelName)
	rec := &model.EmbeddingRecord{
		ID:        id,
		Text:      text,
		Embedding: embedding,
		Model:     modelName,
		Dimension: len(embedding),
		CreatedAt: time.Now(),
		Metadata:  meta,
	}
	if err := s.put(ctx, rec); err != nil {
		return "", err
	}
	logutil.GetLogger(ctx).Debug("embedding saved",
		zap.String("id", id), zap.Int("dimension", rec.Dimension))
	return id, nil
}

// put registers a fully-formed record, keeping its own timestamps. Used by
// Save and by Import.
func (s *Store) put(ctx context.Context, rec *model.EmbeddingRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	filename := rec.ID + ".json"
	if err := s.fs.Put(ctx, filename, payload); err != nil {
		return fmt.Errorf("write payload %s: %w", rec.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cat.Embeddings[rec.ID] = catalogEntry{
		TextPreview: preview(rec.Text),
		Model:       rec.Model,
		Dimension:   rec.Dimension,
		CreatedAt:   rec.CreatedAt,
		Filename:    filename,
		Type:        rec.Metadata.Type,
	}
	if err := s.saveCatalog(ctx); err != nil {
		return err
	}
	s.cache.Add(rec.ID, rec)
	return nil
}

// Load returns (nil, false, nil) when the id is not cataloged or its
// payload blob is gone; errors are real I/O or decode failures.
func (s *Store) Load(ctx context.Context, id string) (*model.EmbeddingRecord, bool, error) {
	s.mu.Lock()
	entry, ok := s.cat.Embeddings[id]
	s.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	if rec, ok := s.cache.Get(id); ok {
		return rec, true, nil
	}
	data, ok, err := s.fs.Get(ctx, entry.Filename)
	if err != nil {
		return nil, false, fmt.Errorf("read payload %s: %w", id, err)
	}
	if !ok {
		logutil.GetLogger(ctx).Warn("payload missing for cataloged embedding",
			zap.String("id", id), zap.String("filename", entry.Filename))
		return nil, false, nil
	}
	var rec model.EmbeddingRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("decode payload %s: %w", id, err)
	}
	rec.ID = id
	s.cache.Add(id, &rec)
	return &rec, true, nil
}

// Delete removes payload and catalog entry. False means the id was unknown.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	entry, ok := s.cat.Embeddings[id]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := s.fs.Delete(ctx, entry.Filename); err != nil {
		return false, fmt.Errorf("delete payload %s: %w", id, err)
	}
	s.mu.Lock()
	delete(s.cat.Embeddings, id)
	err := s.saveCatalog(ctx)
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	s.cache.Remove(id)
	return true, nil
}

// ListByType loads every record whose metadata type matches, in a stable
// id order.
func (s *Store) ListByType(ctx context.Context, typ string) ([]Entry, error) {
	ids := s.idsByType(typ)
	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		rec, ok, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		entries = append(entries, Entry{ID: id, Record: rec})
	}
	return entries, nil
}

// ResumeRecord returns the first resume entry, if any.
func (s *Store) ResumeRecord(ctx context.Context) (*Entry, bool, error) {
	entries, err := s.ListByType(ctx, model.TypeResume)
	if err != nil {
		return nil, false, err
	}
	if len(entries) == 0 {
		return nil, false, nil
	}
	return &entries[0], true, nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.cat.Embeddings))
	for id := range s.cat.Embeddings {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		if _, err := s.Delete(ctx, id); err != nil {
			return err
		}
	}
	logutil.GetLogger(ctx).Info("cleared all embeddings", zap.Int("count", len(ids)))
	return nil
}

func (s *Store) Stats(ctx context.Context) Stats {
	s.mu.Lock()
	entries := make([]catalogEntry, 0, len(s.cat.Embeddings))
	for _, entry := range s.cat.Embeddings {
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	var st Stats
	st.Total = len(entries)
	for _, entry := range entries {
		if entry.Type == model.TypeResume {
			st.Resumes++
		} else {
			st.Jobs++
		}
		size, err := s.fs.Size(ctx, entry.Filename)
		if err != nil {
			continue
		}
		st.TotalBytes += size
	}
	return st
}

func (s *Store) idsByType(typ string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.cat.Embeddings))
	for id, entry := range s.cat.Embeddings {
		if entry.Type == typ {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) allIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.cat.Embeddings))
	for id := range s.cat.Embeddings {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func preview(text string) string {
	if len(text) > previewLen {
		return text[:previewLen] + "..."
	}
	return text
}
