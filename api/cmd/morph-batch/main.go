package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"az-morph/api/internal/app"
	"az-morph/api/internal/batch"
	"az-morph/api/internal/config"
	"az-morph/api/internal/logging"
	"az-morph/api/internal/store"
)

type options struct {
	cfg     *config.Config
	llmName string
	apiKey  string
	limit   int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	opts := &options{cfg: cfg}

	root := &cobra.Command{
		Use:           "morph-batch",
		Short:         "Batch morphological analysis of a word list with SQLite checkpointing",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&cfg.InputFile, "input", cfg.InputFile, "input file, one word per line")
	pf.StringVar(&cfg.DBFile, "db", cfg.DBFile, "SQLite file (ignored when DATABASE_URL is set)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	run := &cobra.Command{
		Use:   "run",
		Short: "Analyze words from the checkpoint onwards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd.Context(), opts)
		},
	}
	rf := run.Flags()
	rf.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "words per LLM request")
	rf.IntVar(&opts.limit, "limit", 0, "stop before this word offset (0 = no limit)")
	rf.StringVar(&cfg.ResultFile, "results", cfg.ResultFile, "JSONL file receiving every result entry")
	rf.StringVar(&cfg.ErrorLog, "errors", cfg.ErrorLog, "JSONL file receiving failed entries")
	rf.StringVar(&opts.llmName, "llm", cfg.DefaultLLM, "llm provider: gemini | gpt")
	rf.StringVar(&opts.apiKey, "api-key", "", "provider API key (defaults to GEMINI_API_KEY / OPENAI_API_KEY)")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show checkpoint and stored row count",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(cmd.Context(), opts)
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Forget the checkpoint; stored analyses are kept",
		RunE: func(cmd *cobra.Command, args []string) error {
			return resetProgress(cmd.Context(), opts)
		},
	}

	root.AddCommand(run, status, reset)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "morph-batch:", err)
		os.Exit(1)
	}
}

func runBatch(ctx context.Context, opts *options) error {
	cfg := opts.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	eng, err := app.Engines(cfg).GetEngine(opts.llmName, opts.apiKey)
	if err != nil {
		return err
	}

	words, err := batch.ReadWords(cfg.InputFile)
	if err != nil {
		return err
	}

	db, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	results, err := openAppend(cfg.ResultFile)
	if err != nil {
		return err
	}
	defer results.Close()
	errs, err := openAppend(cfg.ErrorLog)
	if err != nil {
		return err
	}
	defer errs.Close()

	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))
	log.Info("starting detailed morphology analysis",
		zap.String("input", cfg.InputFile),
		zap.Int("words", len(words)),
		zap.String("store", app.DescribeStore(db, cfg)),
		zap.String("llm", eng.Name()),
		zap.String("model", eng.GetModel()))

	// без кэша: пакетный прогон всегда спрашивает модель
	an := app.Analyzer(cfg, nil, log)
	an.ChunkSize = 0

	r := &batch.Runner{
		Analyzer:  an,
		Engine:    eng,
		DB:        db,
		Morph:     store.NewMorphologyRepo(db),
		Progress:  store.NewProgressRepo(db),
		BatchSize: cfg.BatchSize,
		Limit:     opts.limit,
		Results:   results,
		Errors:    errs,
		RunID:     runID,
		Log:       log.Named("batch"),
	}
	st, err := r.Run(ctx, words)
	log.Info("done",
		zap.Int("start", st.Start),
		zap.Int("next", st.Next),
		zap.Int("total", st.Total),
		zap.Int("batches", st.Batches),
		zap.Int("entries", st.Entries),
		zap.Int64("inserted", st.Inserted),
		zap.Int("failures", st.Failures))
	return err
}

func showStatus(ctx context.Context, opts *options) error {
	db, err := app.OpenStore(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	idx, ok, err := store.NewProgressRepo(db).Get(ctx, db)
	if err != nil {
		return err
	}
	n, err := store.NewMorphologyRepo(db).Count(ctx)
	if err != nil {
		return err
	}
	total := -1
	if words, err := batch.ReadWords(opts.cfg.InputFile); err == nil {
		total = len(words)
	}

	if !ok {
		fmt.Println("checkpoint=none")
	} else {
		fmt.Printf("checkpoint=%d\n", idx)
	}
	fmt.Printf("stored=%d\n", n)
	if total >= 0 {
		fmt.Printf("input_words=%d\n", total)
	}
	return nil
}

func resetProgress(ctx context.Context, opts *options) error {
	db, err := app.OpenStore(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.NewProgressRepo(db).Reset(ctx); err != nil {
		return err
	}
	fmt.Println("checkpoint cleared")
	return nil
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}
