package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/jobmatch/internal/config"
	"github.com/xxxsen/jobmatch/internal/embedder"
	"github.com/xxxsen/jobmatch/internal/filestore"
	"github.com/xxxsen/jobmatch/internal/job"
	"github.com/xxxsen/jobmatch/internal/model"
	"github.com/xxxsen/jobmatch/internal/pipeline"
	"github.com/xxxsen/jobmatch/internal/schedule"
	"github.com/xxxsen/jobmatch/internal/similarity"
	"github.com/xxxsen/jobmatch/internal/store"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "jobmatch",
		Short: "job/resume embedding pipeline",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	var inputPath string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "generate embeddings from a batch file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, coord, _, err := setup(configPath)
			if err != nil {
				return err
			}
			if inputPath == "" {
				return fmt.Errorf("--input is required")
			}
			data, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("read batch file: %w", err)
			}
			var batch model.EmbeddingBatch
			if err := json.Unmarshal(data, &batch); err != nil {
				return fmt.Errorf("decode batch file: %w", err)
			}
			ctx := cmd.Context()
			result, err := coord.GenerateFromBatch(ctx, batch, cfg.BatchSize)
			if err != nil {
				return err
			}
			logutil.GetLogger(ctx).Info("generation complete",
				zap.Int("job_ids", len(result.JobIDs)),
				zap.String("resume_id", result.ResumeID),
				zap.Int64("requests", result.Usage.RequestCount),
				zap.Float64("cost_usd", result.Usage.TotalCostUSD),
			)
			if cfg.ReportPath != "" {
				return coord.ExportReport(ctx, cfg.ReportPath)
			}
			return nil
		},
	}
	runCmd.Flags().StringVar(&inputPath, "input", "", "path to embedding batch json")

	var topK int
	var metricName string
	matchCmd := &cobra.Command{
		Use:   "match",
		Short: "rank stored jobs against the stored resume",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, coord, st, err := setup(configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			resume, ok, err := st.ResumeRecord(ctx)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no resume embedding stored, run generation first")
			}
			metric, known := similarity.ParseMetric(metricName)
			if !known {
				logutil.GetLogger(ctx).Warn("unknown metric, using cosine similarity",
					zap.String("metric", metricName))
			}
			matches, err := coord.FindSimilarJobs(ctx, resume.ID, topK, metric)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(matches, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	matchCmd.Flags().IntVar(&topK, "top-k", 10, "number of matches to return")
	matchCmd.Flags().StringVar(&metricName, "metric", "cosine_similarity", "similarity metric")

	selfTestCmd := &cobra.Command{
		Use:   "selftest",
		Short: "probe provider, storage and similarity end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, coord, _, err := setup(configPath)
			if err != nil {
				return err
			}
			if !coord.SelfTest(cmd.Context()) {
				return fmt.Errorf("self test failed")
			}
			return nil
		},
	}

	var exportPath, exportFormat string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "dump all embeddings to one file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, st, err := setup(configPath)
			if err != nil {
				return err
			}
			if exportPath == "" {
				return fmt.Errorf("--out is required")
			}
			return st.Export(cmd.Context(), exportPath, exportFormat)
		},
	}
	exportCmd.Flags().StringVar(&exportPath, "out", "", "output file path")
	exportCmd.Flags().StringVar(&exportFormat, "format", store.FormatJSON, "json or gob")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "run scheduled report/snapshot jobs until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, coord, st, err := setup(configPath)
			if err != nil {
				return err
			}
			sched := schedule.New()
			if cfg.ReportPath != "" {
				spec := cfg.Schedule["export_report"]
				if spec == "" {
					spec = "0 * * * *"
				}
				if err := sched.Add(spec, job.NewReportJob(coord, cfg.ReportPath)); err != nil {
					return err
				}
			}
			if cfg.SnapshotPath != "" {
				spec := cfg.Schedule["export_snapshot"]
				if spec == "" {
					spec = "30 */6 * * *"
				}
				if err := sched.Add(spec, job.NewSnapshotJob(st, cfg.SnapshotPath)); err != nil {
					return err
				}
			}
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			sched.Start(ctx)
			logutil.GetLogger(ctx).Info("watch mode started")
			<-ctx.Done()
			sched.Stop()
			logutil.GetLogger(context.Background()).Info("watch mode stopped")
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, matchCmd, selfTestCmd, exportCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, *pipeline.Coordinator, *store.Store, error) {
	if configPath == "" {
		return nil, nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	provider, err := embedder.NewProvider(cfg.Provider.Name, cfg.Provider.Data)
	if err != nil {
		return nil, nil, nil, err
	}
	client := embedder.NewClient(provider, embedder.ClientConfig{
		Model:             cfg.Model,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})
	fs, err := filestore.New(cfg.FileStore)
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := store.New(context.Background(), fs, store.Options{
		CacheSize: cfg.CacheSize,
		CacheTTL:  time.Duration(cfg.CacheTTLSeconds) * time.Second,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, pipeline.New(client, st), st, nil
}
