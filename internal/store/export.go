package store

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/jobmatch/internal/model"
)

// Export formats: a verbose JSON document for interchange and a compact
// gzip-compressed gob stream for fast reload.
const (
	FormatJSON = "json"
	FormatGob  = "gob"
)

// Export dumps every record into one consolidated file at path.
func (s *Store) Export(ctx context.Context, path string, format string) error {
	records, err := s.collect(ctx)
	if err != nil {
		return err
	}
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("encode export: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
	case FormatGob:
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create export: %w", err)
		}
		defer file.Close()
		zw := gzip.NewWriter(file)
		if err := gob.NewEncoder(zw).Encode(records); err != nil {
			return fmt.Errorf("encode export: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("flush export: %w", err)
		}
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
	logutil.GetLogger(ctx).Info("exported embeddings",
		zap.Int("count", len(records)), zap.String("path", path), zap.String("format", format))
	return nil
}

// Import re-registers every record from a previously exported file,
// overwriting records with matching ids. Returns how many were loaded.
func (s *Store) Import(ctx context.Context, path string, format string) (int, error) {
	var records map[string]*model.EmbeddingRecord
	switch format {
	case FormatJSON:
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("read import: %w", err)
		}
		if err := json.Unmarshal(data, &records); err != nil {
			return 0, fmt.Errorf("decode import: %w", err)
		}
	case FormatGob:
		file, err := os.Open(path)
		if err != nil {
			return 0, fmt.Errorf("open import: %w", err)
		}
		defer file.Close()
		zr, err := gzip.NewReader(file)
		if err != nil {
			return 0, fmt.Errorf("open import: %w", err)
		}
		defer zr.Close()
		if err := gob.NewDecoder(zr).Decode(&records); err != nil {
			return 0, fmt.Errorf("decode import: %w", err)
		}
	default:
		return 0, fmt.Errorf("unsupported import format: %s", format)
	}
	count := 0
	for id, rec := range records {
		if rec == nil {
			continue
		}
		rec.ID = id
		if err := s.put(ctx, rec); err != nil {
			return count, err
		}
		count++
	}
	logutil.GetLogger(ctx).Info("imported embeddings",
		zap.Int("count", count), zap.String("path", path), zap.String("format", format))
	return count, nil
}

func (s *Store) collect(ctx context.Context) (map[string]*model.EmbeddingRecord, error) {
	records := make(map[string]*model.EmbeddingRecord)
	for _, id := range s.allIDs() {
		rec, ok, err := s.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		records[id] = rec
	}
	return records, nil
}
