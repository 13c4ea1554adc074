package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Veraticus/the-glossary-must-flow/internal/cli"
	"github.com/Veraticus/the-glossary-must-flow/internal/config"
	"github.com/Veraticus/the-glossary-must-flow/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the run history of the output directory",
		Args:  cobra.NoArgs,
		RunE:  runRuns,
	}
	cmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
	return cmd
}

func runRuns(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	config.SetDefaults(viper.GetViper())
	dir := config.ExpandPath(viper.GetString("extract.output_dir"))
	limit, _ := cmd.Flags().GetInt("limit")

	db, err := storage.OpenMigrated(ctx, filepath.Join(dir, historyDB))
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer func() { _ = db.Close() }()

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, cli.FormatInfo("No runs recorded in "+dir))
		return nil
	}
	fmt.Fprintln(w, cli.RenderRow(true, "RUN", "STARTED", "PLATFORM", "OUTCOME", "LINES", "TOKENS", "ROUNDS", "TIME"))
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintln(w, cli.RenderRow(false,
			id,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Platform,
			string(r.Outcome),
			fmt.Sprintf("%d/%d", r.ProcessedLines, r.TotalLines),
			fmt.Sprintf("%d/%d", r.InputTokens, r.OutputTokens),
			fmt.Sprint(r.Rounds),
			(time.Duration(r.ElapsedSeconds) * time.Second).String(),
		))
	}
	return nil
}
