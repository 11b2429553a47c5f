// Package pipeline orchestrates the embedding subsystem end to end:
// generate vectors through the client, persist them in the store, and
// answer similarity queries. It is the only package that knows the
// job-versus-resume semantics.
package pipeline

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/jobmatch/internal/embedder"
	"github.com/xxxsen/jobmatch/internal/model"
	"github.com/xxxsen/jobmatch/internal/similarity"
	"github.com/xxxsen/jobmatch/internal/store"
)

type Coordinator struct {
	client *embedder.Client
	store  *store.Store
}

func New(client *embedder.Client, st *store.Store) *Coordinator {
	return &Coordinator{client: client, store: st}
}

// BatchReport carries per-item outcomes of a generation run. Skipped items
// never reached the provider; failed items exhausted their retries or
// could not be persisted.
type BatchReport struct {
	Total   int `json:"total"`
	Stored  int `json:"stored"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// BatchResult is the outcome of GenerateFromBatch.
type BatchResult struct {
	JobIDs      []string            `json:"job_embedding_ids"`
	ResumeID    string              `json:"resume_embedding_id"`
	GeneratedAt time.Time           `json:"generated_at"`
	Model       string              `json:"model"`
	Usage       embedder.UsageStats `json:"usage_stats"`
	Report      BatchReport         `json:"report"`
}

// SimilarJob is one ranked match joined back to its job metadata.
type SimilarJob struct {
	ID       string  `json:"embedding_id"`
	Title    string  `json:"job_title"`
	Company  string  `json:"company_name"`
	Location string  `json:"location"`
	Score    float64 `json:"similarity_score"`
	Metric   string  `json:"similarity_metric"`
}

// GenerateJobEmbeddings embeds every posting that carries embedding text
// and persists the non-empty results. Postings without text are skipped
// and counted; a failed chunk shows up as failed items, not as an error.
// Returned ids follow input order.
func (c *Coordinator) GenerateJobEmbeddings(ctx context.Context, jobs []model.JobPosting, batchSize int) ([]string, *BatchReport, error) {
	logger := logutil.GetLogger(ctx)
	report := &BatchReport{Total: len(jobs)}
	if len(jobs) == 0 {
		return nil, report, nil
	}

	texts := make([]string, 0, len(jobs))
	valid := make([]model.JobPosting, 0, len(jobs))
	for _, job := range jobs {
		if job.EmbeddingText == "" {
			logger.Warn("job posting missing embedding text", zap.String("title", job.Title))
			report.Skipped++
			continue
		}
		texts = append(texts, job.EmbeddingText)
		valid = append(valid, job)
	}
	if len(texts) == 0 {
		logger.Warn("no embeddable job postings in batch", zap.Int("total", len(jobs)))
		return nil, report, nil
	}

	vectors, err := c.client.EmbedBatch(ctx, texts, batchSize)
	if err != nil {
		return nil, report, err
	}

	ids := make([]string, 0, len(valid))
	for i, vec := range vectors {
		if len(vec) == 0 {
			report.Failed++
			continue
		}
		job := valid[i]
		meta := model.Metadata{
			Type:     model.TypeJob,
			Title:    job.Title,
			Company:  job.Company,
			Location: job.Location,
			Index:    i,
		}
		id, err := c.store.Save(ctx, job.EmbeddingText, vec, c.client.Model(), meta)
		if err != nil {
			logger.Error("failed to persist job embedding",
				zap.Int("index", i), zap.String("title", job.Title), zap.Error(err))
			report.Failed++
			continue
		}
		ids = append(ids, id)
		report.Stored++
	}
	logger.Info("job embedding generation finished",
		zap.Int("total", report.Total),
		zap.Int("stored", report.Stored),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
	)
	return ids, report, nil
}

// GenerateResumeEmbedding embeds the resume text and stores it tagged as
// the resume record. Blank text returns an empty id without calling the
// provider.
func (c *Coordinator) GenerateResumeEmbedding(ctx context.Context, text string, meta model.Metadata) (string, error) {
	vec, err := c.client.EmbedOne(ctx, text)
	if err == embedder.ErrEmptyInput {
		logutil.GetLogger(ctx).Warn("empty resume text, nothing to embed")
		return "", nil
	}
	if err != nil {
		return "", err
	}
	meta.Type = model.TypeResume
	return c.store.Save(ctx, text, vec, c.client.Model(), meta)
}

// GenerateFromBatch runs job and resume generation over a pre-packaged
// batch and reports ids plus accumulated usage.
func (c *Coordinator) GenerateFromBatch(ctx context.Context, batch model.EmbeddingBatch, batchSize int) (*BatchResult, error) {
	jobIDs, report, err := c.GenerateJobEmbeddings(ctx, batch.Jobs, batchSize)
	if err != nil {
		return nil, err
	}
	resumeID := ""
	if batch.ResumeText != "" {
		resumeID, err = c.GenerateResumeEmbedding(ctx, batch.ResumeText, model.Metadata{})
		if err != nil {
			return nil, err
		}
	}
	return &BatchResult{
		JobIDs:      jobIDs,
		ResumeID:    resumeID,
		GeneratedAt: time.Now(),
		Model:       c.client.Model(),
		Usage:       c.client.UsageStats(),
		Report:      *report,
	}, nil
}

// FindSimilarJobs ranks stored job embeddings against the resume vector.
// A missing resume or an empty job set yields an empty result, not an
// error.
func (c *Coordinator) FindSimilarJobs(ctx context.Context, resumeID string, topK int, metric similarity.Metric) ([]SimilarJob, error) {
	logger := logutil.GetLogger(ctx)
	resume, ok, err := c.store.Load(ctx, resumeID)
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Warn("resume embedding not found", zap.String("id", resumeID))
		return nil, nil
	}
	entries, err := c.store.ListByType(ctx, model.TypeJob)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		logger.Warn("no job embeddings stored")
		return nil, nil
	}
	candidates := make([][]float32, 0, len(entries))
	for _, entry := range entries {
		candidates = append(candidates, entry.Record.Embedding)
	}
	ranked := similarity.FindMostSimilar(resume.Embedding, candidates, metric, topK)
	out := make([]SimilarJob, 0, len(ranked))
	for _, r := range ranked {
		entry := entries[r.Index]
		out = append(out, SimilarJob{
			ID:       entry.ID,
			Title:    entry.Record.Metadata.Title,
			Company:  entry.Record.Metadata.Company,
			Location: entry.Record.Metadata.Location,
			Score:    r.Score,
			Metric:   metric.String(),
		})
	}
	logger.Info("similar jobs ranked",
		zap.String("metric", metric.String()), zap.Int("results", len(out)))
	return out, nil
}

// JobSimilarityMatrix computes the pairwise matrix over all stored job
// vectors.
func (c *Coordinator) JobSimilarityMatrix(ctx context.Context, metric similarity.Metric) ([][]float64, error) {
	entries, err := c.store.ListByType(ctx, model.TypeJob)
	if err != nil {
		return nil, err
	}
	vectors := make([][]float32, 0, len(entries))
	for _, entry := range entries {
		vectors = append(vectors, entry.Record.Embedding)
	}
	return similarity.Matrix(vectors, metric), nil
}

// SelfTest exercises the whole path once: provider probe, embed a fixed
// string, store, reload, check cosine self-similarity, delete. Meant as a
// deployment smoke test; any failure returns false without raising.
func (c *Coordinator) SelfTest(ctx context.Context) bool {
	logger := logutil.GetLogger(ctx)
	if !c.client.TestConnection(ctx) {
		logger.Error("self test: connection probe failed")
		return false
	}
	const testText = "Software Engineer with Python and JavaScript experience"
	vec, err := c.client.EmbedOne(ctx, testText)
	if err != nil || len(vec) == 0 {
		logger.Error("self test: embed failed", zap.Error(err))
		return false
	}
	id, err := c.store.Save(ctx, testText, vec, c.client.Model(), model.Metadata{Type: model.TypeJob})
	if err != nil {
		logger.Error("self test: save failed", zap.Error(err))
		return false
	}
	rec, ok, err := c.store.Load(ctx, id)
	if err != nil || !ok {
		logger.Error("self test: reload failed", zap.Error(err))
		return false
	}
	sim := similarity.Cosine(vec, rec.Embedding)
	if sim < 1.0-1e-6 {
		logger.Error("self test: self similarity out of tolerance", zap.Float64("cosine", sim))
		return false
	}
	if _, err := c.store.Delete(ctx, id); err != nil {
		logger.Error("self test: cleanup failed", zap.Error(err))
		return false
	}
	logger.Info("self test passed", zap.Int("dimension", len(vec)))
	return true
}
