package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/jobmatch/internal/embedder"
	"github.com/xxxsen/jobmatch/internal/model"
	"github.com/xxxsen/jobmatch/internal/similarity"
	"github.com/xxxsen/jobmatch/internal/store"
)

const reportPreviewLen = 200

// StatisticsReport aggregates state across the three leaf components.
type StatisticsReport struct {
	Storage       store.Stats            `json:"storage"`
	JobVectors    similarity.VectorStats `json:"job_embeddings"`
	ResumeVectors similarity.VectorStats `json:"resume_embedding"`
	APIUsage      embedder.UsageStats    `json:"api_usage"`
	Model         string                 `json:"model"`
}

type reportJobInfo struct {
	ID          string    `json:"embedding_id"`
	Title       string    `json:"job_title"`
	Company     string    `json:"company_name"`
	Location    string    `json:"location"`
	Dimension   int       `json:"dimension"`
	CreatedAt   time.Time `json:"created_at"`
	TextPreview string    `json:"text_preview"`
}

type reportResumeInfo struct {
	ID          string    `json:"embedding_id"`
	Dimension   int       `json:"dimension"`
	CreatedAt   time.Time `json:"created_at"`
	TextPreview string    `json:"text_preview"`
}

type exportedReport struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Statistics  *StatisticsReport `json:"statistics"`
	Jobs        []reportJobInfo   `json:"jobs"`
	Resume      *reportResumeInfo `json:"resume,omitempty"`
	Model       string            `json:"model"`
}

// Statistics builds the aggregate report over storage, vector norms and
// API usage.
func (c *Coordinator) Statistics(ctx context.Context) (*StatisticsReport, error) {
	jobEntries, err := c.store.ListByType(ctx, model.TypeJob)
	if err != nil {
		return nil, err
	}
	jobVectors := make([][]float32, 0, len(jobEntries))
	for _, entry := range jobEntries {
		jobVectors = append(jobVectors, entry.Record.Embedding)
	}
	var resumeVectors [][]float32
	if resume, ok, err := c.store.ResumeRecord(ctx); err != nil {
		return nil, err
	} else if ok {
		resumeVectors = [][]float32{resume.Record.Embedding}
	}
	return &StatisticsReport{
		Storage:       c.store.Stats(ctx),
		JobVectors:    similarity.Statistics(jobVectors),
		ResumeVectors: similarity.Statistics(resumeVectors),
		APIUsage:      c.client.UsageStats(),
		Model:         c.client.Model(),
	}, nil
}

// ExportReport writes the statistics plus a per-record listing (with
// bounded text previews) as one JSON document at path.
func (c *Coordinator) ExportReport(ctx context.Context, path string) error {
	stats, err := c.Statistics(ctx)
	if err != nil {
		return err
	}
	jobEntries, err := c.store.ListByType(ctx, model.TypeJob)
	if err != nil {
		return err
	}
	jobs := make([]reportJobInfo, 0, len(jobEntries))
	for _, entry := range jobEntries {
		jobs = append(jobs, reportJobInfo{
			ID:          entry.ID,
			Title:       entry.Record.Metadata.Title,
			Company:     entry.Record.Metadata.Company,
			Location:    entry.Record.Metadata.Location,
			Dimension:   entry.Record.Dimension,
			CreatedAt:   entry.Record.CreatedAt,
			TextPreview: truncate(entry.Record.Text),
		})
	}
	report := exportedReport{
		GeneratedAt: time.Now(),
		Statistics:  stats,
		Jobs:        jobs,
		Model:       c.client.Model(),
	}
	if resume, ok, err := c.store.ResumeRecord(ctx); err != nil {
		return err
	} else if ok {
		report.Resume = &reportResumeInfo{
			ID:          resume.ID,
			Dimension:   resume.Record.Dimension,
			CreatedAt:   resume.Record.CreatedAt,
			TextPreview: truncate(resume.Record.Text),
		}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	logutil.GetLogger(ctx).Info("embedding report exported",
		zap.String("path", path), zap.Int("jobs", len(jobs)))
	return nil
}

func truncate(text string) string {
	if len(text) > reportPreviewLen {
		return text[:reportPreviewLen] + "..."
	}
	return text
}
