package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Veraticus/the-glossary-must-flow/internal/cli"
	"github.com/Veraticus/the-glossary-must-flow/internal/common"
	"github.com/Veraticus/the-glossary-must-flow/internal/config"
	"github.com/Veraticus/the-glossary-must-flow/internal/engine"
	"github.com/Veraticus/the-glossary-must-flow/internal/llm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func platformCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "platform",
		Short: "Inspect configured model platforms",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured platforms",
		Args:  cobra.NoArgs,
		RunE:  runPlatformList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "test",
		Short: "Send one short extraction request to the active platform",
		Args:  cobra.NoArgs,
		RunE:  runPlatformTest,
	})
	return cmd
}

func runPlatformList(cmd *cobra.Command, _ []string) error {
	platforms, err := config.LoadPlatforms(viper.GetViper())
	if err != nil {
		return err
	}
	if len(platforms) == 0 {
		return common.NewUserError("no platforms configured", common.ErrNoPlatform)
	}
	active, err := config.SelectPlatform(platforms, viper.GetString("active_platform"))
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, cli.RenderRow(true, " ", "NAME", "FORMAT", "MODEL", "URL", "KEYS"))
	for _, p := range platforms {
		b := p.Base()
		marker := " "
		if b.Name == active.Base().Name {
			marker = "*"
		}
		fmt.Fprintln(w, cli.RenderRow(false, marker, b.Name, string(config.VendorOf(p)), b.Model, b.URL,
			fmt.Sprint(len(b.Keys))))
	}
	return nil
}

func runPlatformTest(cmd *cobra.Command, _ []string) error {
	run, err := config.Load(viper.GetViper())
	if err != nil {
		return common.NewUserError("invalid configuration", err)
	}

	gateway, err := llm.NewGateway(run.Platform, llm.GatewayOptions{
		Logger:  slog.Default(),
		Timeout: run.RequestTimeout,
	})
	if err != nil {
		return err
	}
	eng, err := engine.New(run, gateway, engine.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	interrupts := cli.NewInterruptHandler(os.Stderr, nil)
	ctx, release := interrupts.HandleInterrupts(cmd.Context())
	defer release()

	resp, err := eng.TestPlatform(ctx)
	if err != nil {
		return common.NewUserError(fmt.Sprintf("platform %q failed the test", run.Platform.Base().Name), err)
	}

	var b strings.Builder
	if resp.Reasoning != "" {
		fmt.Fprintf(&b, "%s\n\n", cli.SubtleStyle.Render(strings.TrimSpace(resp.Reasoning)))
	}
	fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(resp.Text))
	fmt.Fprintf(&b, "Tokens: %d in / %d out", resp.InputTokens, resp.OutputTokens)
	if resp.Degraded {
		b.WriteString("\n" + cli.FormatWarning("response hit the token ceiling"))
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBox(cli.SuccessIcon+" "+run.Platform.Base().Name, b.String()))
	return nil
}
