package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/the-glossary-must-flow/internal/cli"
	"github.com/Veraticus/the-glossary-must-flow/internal/common"
	"github.com/Veraticus/the-glossary-must-flow/internal/config"
	"github.com/Veraticus/the-glossary-must-flow/internal/engine"
	"github.com/Veraticus/the-glossary-must-flow/internal/ingest"
	"github.com/Veraticus/the-glossary-must-flow/internal/llm"
	"github.com/Veraticus/the-glossary-must-flow/internal/model"
	"github.com/Veraticus/the-glossary-must-flow/internal/observe"
	"github.com/Veraticus/the-glossary-must-flow/internal/storage"
	"github.com/Veraticus/the-glossary-must-flow/internal/text"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyDB is the run history database kept in the output directory.
const historyDB = "glossa.db"

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [input]",
		Short: "Extract a glossary from source text",
		Long: `Extract proper nouns and terms from a .txt file or a directory of .txt files.

Lines are sent to the configured model in chunks. Chunks that fail are retried
in later rounds with half the token budget. Progress is checkpointed under
<output>/cache, so an interrupted run can be resumed.

Examples:
  glossa extract script/              # Extract from every .txt under script/
  glossa extract scene.txt -o out     # Write results to ./out
  glossa extract --resume             # Resume the run checkpointed in the output dir
  glossa extract script/ --glossary out/glossary.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExtract,
	}

	cmd.Flags().BoolP("resume", "r", false, "Resume from the checkpoint in the output directory")
	cmd.Flags().Bool("speakers", false, "Treat a leading \"name: \" as the speaker")
	cmd.Flags().String("glossary", "", "Glossary file to write (.json, .yaml or .db; default <output>/glossary.json)")
	cmd.Flags().String("source", "", "Source language code")
	cmd.Flags().String("target", "", "Target language code")
	cmd.Flags().String("rules", "", "YAML rules file")
	cmd.Flags().Int("concurrency", 0, "Requests per second and worker count (0 = auto)")
	cmd.Flags().Int("rpm", 0, "Requests per minute (0 = unlimited)")
	cmd.Flags().Int("threshold", 0, "Token budget per chunk in the first round")
	cmd.Flags().Int("max-rounds", 0, "Maximum number of rounds")

	// Bind to viper (errors are rare and can be ignored in practice)
	_ = viper.BindPFlag("extract.resume", cmd.Flags().Lookup("resume"))
	_ = viper.BindPFlag("extract.speakers", cmd.Flags().Lookup("speakers"))
	_ = viper.BindPFlag("extract.glossary", cmd.Flags().Lookup("glossary"))
	_ = viper.BindPFlag("extract.source_language", cmd.Flags().Lookup("source"))
	_ = viper.BindPFlag("extract.target_language", cmd.Flags().Lookup("target"))
	_ = viper.BindPFlag("extract.rules_file", cmd.Flags().Lookup("rules"))
	_ = viper.BindPFlag("extract.concurrency", cmd.Flags().Lookup("concurrency"))
	_ = viper.BindPFlag("extract.rpm", cmd.Flags().Lookup("rpm"))
	_ = viper.BindPFlag("extract.token_threshold", cmd.Flags().Lookup("threshold"))
	_ = viper.BindPFlag("extract.max_rounds", cmd.Flags().Lookup("max-rounds"))

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	resume := viper.GetBool("extract.resume")
	if len(args) == 0 && !resume {
		return common.NewUserError("an input file or directory is required unless --resume is set", common.ErrNoItems)
	}

	run, err := config.Load(viper.GetViper())
	if err != nil {
		return common.NewUserError("invalid configuration", err)
	}
	rules, err := text.LoadRules(run.RulesFile)
	if err != nil {
		return err
	}

	var items []model.TextItem
	if len(args) > 0 {
		source := ingest.TextSource{Speakers: viper.GetBool("extract.speakers")}
		if items, err = source.ReadItems(ctx, config.ExpandPath(args[0]), run.SourceLanguage); err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		common.LogInfo("Read source text", common.Fields{"path": args[0], "items": len(items)})
	}

	collector := observe.NewCollector()
	defer func() { _ = collector.Shutdown(context.Background()) }()
	metrics, err := collector.Metrics()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	gateway, err := llm.NewGateway(run.Platform, llm.GatewayOptions{
		Logger:  slog.Default(),
		Metrics: metrics,
		Timeout: run.RequestTimeout,
	})
	if err != nil {
		return err
	}

	reporter := cli.NewReporter(os.Stderr, slog.Default())
	eng, err := engine.New(run, gateway,
		engine.WithLogger(slog.Default()),
		engine.WithRules(rules),
		engine.WithMetrics(metrics),
		engine.WithListener(reporter.Listener()),
	)
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(os.Stderr, eng.Stop)
	ctx, release := interrupts.HandleInterrupts(ctx)
	defer release()

	res, err := eng.Extract(ctx, engine.ExtractRequest{Items: items, Resume: resume})
	if err != nil {
		return err
	}

	output := viper.GetString("extract.glossary")
	if output == "" {
		output = filepath.Join(run.OutputDir, "glossary.json")
	}
	output = config.ExpandPath(output)

	// Results are written even when the run was interrupted.
	writeCtx := context.WithoutCancel(ctx)
	if err := ingest.SinkFor(output).WriteGlossary(writeCtx, output, res.Glossary); err != nil {
		return fmt.Errorf("failed to write glossary: %w", err)
	}
	if res.Outcome == model.OutcomeFailed {
		path, err := storage.SaveRemaining(run.OutputDir, res.Remaining)
		if err != nil {
			common.LogError(err, "Failed to save remaining lines", common.Fields{"count": len(res.Remaining)})
		} else {
			common.LogInfo("Saved remaining lines", common.Fields{"path": path, "count": len(res.Remaining)})
		}
	}
	recordHistory(writeCtx, run, res)
	logTotals(writeCtx, collector)

	reporter.Finish(res, output)
	return nil
}

// recordHistory stores the run in the output directory's database. Failures
// are logged; the glossary file is the primary result.
func recordHistory(ctx context.Context, run config.Run, res engine.Result) {
	db, err := storage.OpenMigrated(ctx, filepath.Join(run.OutputDir, historyDB))
	if err != nil {
		slog.Warn("Failed to open run history", "error", err)
		return
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("Failed to close database", "error", closeErr)
		}
	}()

	record := storage.NewRunRecord(res.State, run.Platform.Base().Name, res.Outcome, time.Now())
	if err := db.RecordRun(ctx, record); err != nil {
		common.LogError(err, "Failed to record run", common.Fields{"run_id": record.ID})
	}
	if err := db.SaveGlossary(ctx, res.Glossary); err != nil {
		common.LogError(err, "Failed to store glossary", common.Fields{"entries": len(res.Glossary)})
	}
}

func logTotals(ctx context.Context, c *observe.Collector) {
	totals, err := c.Totals(ctx)
	if err != nil {
		slog.Debug("Failed to collect metrics", "error", err)
		return
	}
	common.LogInfo("Model traffic", common.Fields{
		"ok":            totals.Requests[observe.StatusOK],
		"degraded":      totals.Requests[observe.StatusDegraded],
		"skipped":       totals.Requests[observe.StatusSkipped],
		"input_tokens":  totals.InputTokens,
		"output_tokens": totals.OutputTokens,
		"chunks":        totals.Chunks,
	})
}
