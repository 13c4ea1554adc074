package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Veraticus/the-glossary-must-flow/internal/cli"
	"github.com/Veraticus/the-glossary-must-flow/internal/common"
	"github.com/Veraticus/the-glossary-must-flow/internal/config"
	"github.com/Veraticus/the-glossary-must-flow/internal/engine"
	"github.com/Veraticus/the-glossary-must-flow/internal/ingest"
	"github.com/Veraticus/the-glossary-must-flow/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func consolidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consolidate",
		Short: "Rebuild the glossary from a checkpoint",
		Long: `Rebuild the glossary from the checkpoint in the output directory without
contacting any model. Useful after tweaking consolidation or when a run was
stopped and you want the partial glossary.

Examples:
  glossa consolidate -o out
  glossa consolidate -o out --glossary out/glossary.db`,
		Args: cobra.NoArgs,
		RunE: runConsolidate,
	}
	cmd.Flags().String("glossary", "", "Glossary file to write (default <output>/glossary.json)")
	return cmd
}

func runConsolidate(cmd *cobra.Command, _ []string) error {
	config.SetDefaults(viper.GetViper())
	dir := config.ExpandPath(viper.GetString("extract.output_dir"))

	cp, ok := storage.NewCheckpointStore(storage.WithCheckpointLogger(slog.Default())).Load(dir)
	if !ok {
		return common.NewUserError(fmt.Sprintf("no usable checkpoint in %s", config.CacheDir(dir)), common.ErrCheckpointMissing)
	}

	entries := engine.Consolidate(cp.Items, cp.State.Candidates)

	output, _ := cmd.Flags().GetString("glossary")
	if output == "" {
		output = filepath.Join(dir, "glossary.json")
	}
	output = config.ExpandPath(output)
	if err := ingest.SinkFor(output).WriteGlossary(cmd.Context(), output, entries); err != nil {
		return fmt.Errorf("failed to write glossary: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
		"%d entries from %d candidates written to %s", len(entries), len(cp.State.Candidates), output)))
	return nil
}
