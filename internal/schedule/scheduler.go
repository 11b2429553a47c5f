// Package schedule drives periodic maintenance work off cron expressions.
// Jobs never overlap with themselves: a tick that fires while the previous
// run is still going is dropped, not queued.
package schedule

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Job is a named unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler struct {
	cron    *cron.Cron
	baseCtx atomic.Pointer[context.Context]
}

func New() *Scheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Scheduler{
		cron: cron.New(cron.WithParser(parser)),
	}
}

// Add registers a job under a five-field cron expression.
func (s *Scheduler) Add(spec string, j Job) error {
	runner := &jobRunner{sched: s, job: j, spec: spec}
	if _, err := s.cron.AddJob(spec, runner); err != nil {
		return fmt.Errorf("schedule %s: %w", j.Name(), err)
	}
	logutil.GetLogger(context.Background()).Info("job scheduled",
		zap.String("job", j.Name()), zap.String("spec", spec))
	return nil
}

// Start begins firing ticks. The context is handed to every job run;
// cancelling it makes in-flight runs wind down, Stop waits for them.
func (s *Scheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.baseCtx.Store(&ctx)
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) context() context.Context {
	if ptr := s.baseCtx.Load(); ptr != nil {
		return *ptr
	}
	return context.Background()
}

// jobRunner adapts a Job to the cron entry interface, adding the overlap
// guard, timing and run accounting.
type jobRunner struct {
	sched   *Scheduler
	job     Job
	spec    string
	running atomic.Bool
	runs    atomic.Int64
}

func (r *jobRunner) Run() {
	ctx := r.sched.context()
	logger := logutil.GetLogger(ctx).With(
		zap.String("job", r.job.Name()),
		zap.String("spec", r.spec),
	)
	if !r.running.CompareAndSwap(false, true) {
		logger.Info("tick dropped, previous run still in progress")
		return
	}
	defer r.running.Store(false)

	run := r.runs.Add(1)
	start := time.Now()
	err := r.job.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("job run failed",
			zap.Int64("run", run), zap.Duration("duration", elapsed), zap.Error(err))
		return
	}
	logger.Info("job run finished",
		zap.Int64("run", run), zap.Duration("duration", elapsed))
}
