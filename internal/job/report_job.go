package job

import (
	"context"

	"github.com/xxxsen/jobmatch/internal/pipeline"
)

// ReportJob periodically re-exports the embedding statistics report so a
// long-running deployment always has a fresh document on disk.
type ReportJob struct {
	coordinator *pipeline.Coordinator
	path        string
}

func NewReportJob(coordinator *pipeline.Coordinator, path string) *ReportJob {
	return &ReportJob{coordinator: coordinator, path: path}
}

func (j *ReportJob) Name() string {
	return "export_report"
}

func (j *ReportJob) Run(ctx context.Context) error {
	if j.coordinator == nil || j.path == "" {
		return nil
	}
	return j.coordinator.ExportReport(ctx, j.path)
}
