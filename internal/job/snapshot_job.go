package job

import (
	"context"

	"github.com/xxxsen/jobmatch/internal/store"
)

// SnapshotJob dumps all stored embeddings into one compact file, giving a
// long-running deployment a periodic restorable backup.
type SnapshotJob struct {
	store *store.Store
	path  string
}

func NewSnapshotJob(st *store.Store, path string) *SnapshotJob {
	return &SnapshotJob{store: st, path: path}
}

func (j *SnapshotJob) Name() string {
	return "export_snapshot"
}

func (j *SnapshotJob) Run(ctx context.Context) error {
	if j.store == nil || j.path == "" {
		return nil
	}
	return j.store.Export(ctx, j.path, store.FormatGob)
}
