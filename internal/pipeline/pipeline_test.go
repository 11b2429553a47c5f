package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/jobmatch/internal/config"
	"github.com/xxxsen/jobmatch/internal/embedder"
	"github.com/xxxsen/jobmatch/internal/filestore"
	"github.com/xxxsen/jobmatch/internal/model"
	"github.com/xxxsen/jobmatch/internal/similarity"
	"github.com/xxxsen/jobmatch/internal/store"
)

// fakeProvider returns canned vectors keyed by input text. Texts listed in
// fail always error with a non-retryable status so tests stay fast.
type fakeProvider struct {
	vectors map[string][]float32
	fail    map[string]bool
	calls   int
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) EmbedBatch(ctx context.Context, modelName string, texts []string) ([][]float32, int, error) {
	p.calls++
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		if p.fail[text] {
			return nil, 0, &embedder.ProviderError{Provider: "fake", Status: 400, Message: "rejected input"}
		}
		vec, ok := p.vectors[text]
		if !ok {
			vec = []float32{1, 1, 1}
		}
		out = append(out, vec)
	}
	return out, 5 * len(texts), nil
}

func newTestCoordinator(t *testing.T, provider embedder.Provider) (*Coordinator, *store.Store) {
	t.Helper()
	fs, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{"dir": t.TempDir()},
	})
	require.NoError(t, err)
	st, err := store.New(context.Background(), fs, store.Options{})
	require.NoError(t, err)
	client := embedder.NewClient(provider, embedder.ClientConfig{
		Model:             "text-embedding-3-small",
		RequestsPerMinute: 600000,
		BaseDelay:         time.Millisecond,
	})
	return New(client, st), st
}

func testBatch() model.EmbeddingBatch {
	return model.EmbeddingBatch{
		Jobs: []model.JobPosting{
			{EmbeddingText: "python backend engineer", Title: "Backend Engineer", Company: "Acme", Location: "Berlin"},
			{EmbeddingText: "frontend react developer", Title: "Frontend Dev", Company: "Initech", Location: "Remote"},
			{EmbeddingText: "data analyst sql", Title: "Data Analyst", Company: "Hooli", Location: "NYC"},
		},
		ResumeText: "experienced python developer",
	}
}

func testVectors() map[string][]float32 {
	return map[string][]float32{
		"python backend engineer":      {1, 0, 0},
		"frontend react developer":     {0.8, 0.6, 0},
		"data analyst sql":             {0, 1, 0},
		"experienced python developer": {1, 0, 0},
	}
}

func TestGenerateFromBatch(t *testing.T) {
	provider := &fakeProvider{vectors: testVectors()}
	coord, st := newTestCoordinator(t, provider)
	ctx := context.Background()

	result, err := coord.GenerateFromBatch(ctx, testBatch(), 100)
	require.NoError(t, err)
	require.Len(t, result.JobIDs, 3)
	require.NotEmpty(t, result.ResumeID)
	require.Equal(t, "text-embedding-3-small", result.Model)
	require.Equal(t, BatchReport{Total: 3, Stored: 3}, result.Report)
	require.GreaterOrEqual(t, result.Usage.RequestCount, int64(1))
	require.Greater(t, result.Usage.TotalTokens, int64(0))

	stats := st.Stats(ctx)
	require.Equal(t, 3, stats.Jobs)
	require.Equal(t, 1, stats.Resumes)
}

func TestGenerateJobEmbeddingsSkipsMissingText(t *testing.T) {
	provider := &fakeProvider{vectors: testVectors()}
	coord, _ := newTestCoordinator(t, provider)

	jobs := []model.JobPosting{
		{EmbeddingText: "python backend engineer", Title: "Backend Engineer"},
		{Title: "No Text Here"},
	}
	ids, report, err := coord.GenerateJobEmbeddings(context.Background(), jobs, 100)
	require.NoError(t, err)
	require.Len(t, ids, 1)
	require.Equal(t, &BatchReport{Total: 2, Stored: 1, Skipped: 1}, report)
}

func TestGenerateJobEmbeddingsFailedChunk(t *testing.T) {
	provider := &fakeProvider{
		vectors: testVectors(),
		fail:    map[string]bool{"frontend react developer": true},
	}
	coord, _ := newTestCoordinator(t, provider)

	ids, report, err := coord.GenerateJobEmbeddings(context.Background(), testBatch().Jobs, 1)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	require.Equal(t, &BatchReport{Total: 3, Stored: 2, Failed: 1}, report)
}

func TestGenerateResumeEmbeddingEmptyText(t *testing.T) {
	provider := &fakeProvider{vectors: testVectors()}
	coord, _ := newTestCoordinator(t, provider)

	id, err := coord.GenerateResumeEmbedding(context.Background(), "   ", model.Metadata{})
	require.NoError(t, err)
	require.Empty(t, id)
	require.Zero(t, provider.calls)
}

func TestFindSimilarJobs(t *testing.T) {
	provider := &fakeProvider{vectors: testVectors()}
	coord, _ := newTestCoordinator(t, provider)
	ctx := context.Background()

	result, err := coord.GenerateFromBatch(ctx, testBatch(), 100)
	require.NoError(t, err)

	matches, err := coord.FindSimilarJobs(ctx, result.ResumeID, 2, similarity.CosineSim)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "Backend Engineer", matches[0].Title)
	require.Equal(t, "Acme", matches[0].Company)
	require.InDelta(t, 1.0, matches[0].Score, 1e-6)
	require.Equal(t, "Frontend Dev", matches[1].Title)
	require.InDelta(t, 0.8, matches[1].Score, 1e-6)
	require.Equal(t, "cosine_similarity", matches[0].Metric)
}

func TestFindSimilarJobsMissingResume(t *testing.T) {
	provider := &fakeProvider{vectors: testVectors()}
	coord, _ := newTestCoordinator(t, provider)

	matches, err := coord.FindSimilarJobs(context.Background(), "unknown-id", 5, similarity.CosineSim)
	require.NoError(t, err)
	require.Nil(t, matches)
}

func TestFindSimilarJobsNoJobs(t *testing.T) {
	provider := &fakeProvider{vectors: testVectors()}
	coord, _ := newTestCoordinator(t, provider)
	ctx := context.Background()

	resumeID, err := coord.GenerateResumeEmbedding(ctx, "experienced python developer", model.Metadata{})
	require.NoError(t, err)

	matches, err := coord.FindSimilarJobs(ctx, resumeID, 5, similarity.CosineSim)
	require.NoError(t, err)
	require.Nil(t, matches)
}

func TestJobSimilarityMatrix(t *testing.T) {
	provider := &fakeProvider{vectors: testVectors()}
	coord, _ := newTestCoordinator(t, provider)
	ctx := context.Background()

	_, err := coord.GenerateFromBatch(ctx, testBatch(), 100)
	require.NoError(t, err)

	matrix, err := coord.JobSimilarityMatrix(ctx, similarity.CosineSim)
	require.NoError(t, err)
	require.Len(t, matrix, 3)
	for i := range matrix {
		require.Len(t, matrix[i], 3)
		require.InDelta(t, 1.0, matrix[i][i], 1e-9)
		for j := range matrix[i] {
			require.InDelta(t, matrix[j][i], matrix[i][j], 1e-9)
		}
	}
}

func TestStatisticsAndExportReport(t *testing.T) {
	provider := &fakeProvider{vectors: testVectors()}
	coord, _ := newTestCoordinator(t, provider)
	ctx := context.Background()

	_, err := coord.GenerateFromBatch(ctx, testBatch(), 100)
	require.NoError(t, err)

	stats, err := coord.Statistics(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, stats.Storage.Total)
	require.Equal(t, 3, stats.JobVectors.Count)
	require.Equal(t, 1, stats.ResumeVectors.Count)
	require.Equal(t, "text-embedding-3-small", stats.Model)
	require.Greater(t, stats.APIUsage.TotalCostUSD, 0.0)

	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, coord.ExportReport(ctx, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &report))
	require.Contains(t, report, "statistics")
	require.Contains(t, report, "jobs")
	require.Contains(t, report, "resume")
}

func TestSelfTest(t *testing.T) {
	provider := &fakeProvider{vectors: testVectors()}
	coord, st := newTestCoordinator(t, provider)
	ctx := context.Background()

	require.True(t, coord.SelfTest(ctx))
	require.Equal(t, 0, st.Stats(ctx).Total)
}

func TestSelfTestProviderDown(t *testing.T) {
	provider := &fakeProvider{fail: map[string]bool{"Hello, world!": true}}
	coord, _ := newTestCoordinator(t, provider)
	require.False(t, coord.SelfTest(context.Background()))
}
