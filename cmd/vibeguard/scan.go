package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fyrsmithlabs/vibeguard/internal/config"
	"github.com/fyrsmithlabs/vibeguard/internal/pipeline"
	"github.com/fyrsmithlabs/vibeguard/internal/scanner"
	"github.com/spf13/cobra"
)

var (
	scanConfigPath string
	scanFormat     string
	scanTimeout    time.Duration
	scanFailOn     string

	rulesConfigPath string
	rulesFormat     string
)

var scanCmd = &cobra.Command{
	Use:   "scan <github-url>",
	Short: "Scan one repository and print the report",
	Long: `Download a GitHub repository snapshot, scan it in-process and print
the report.

The exit code is 1 when the scan fails and 2 when --fail-on is set and a
finding at or above that severity exists.

Examples:
  # Human readable report
  vibeguard scan https://github.com/octo/widgets

  # A branch and subdirectory, as JSON
  vibeguard scan https://github.com/octo/widgets/tree/dev/src --format json

  # Gate CI on high severity findings
  vibeguard scan github.com/octo/widgets --fail-on high`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rule catalog",
	Long: `List the rules in evaluation order: the built-in catalog followed by
any scanner.extra_rules from the config file.`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

func init() {
	scanCmd.Flags().StringVar(&scanConfigPath, "config", "", "path to the config file")
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", formatText, "output format: text, json or yaml")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "archive download timeout (default from ingest.download_timeout)")
	scanCmd.Flags().StringVar(&scanFailOn, "fail-on", "", "exit 2 when a finding at or above this severity exists")

	rulesCmd.Flags().StringVar(&rulesConfigPath, "config", "", "path to the config file")
	rulesCmd.Flags().StringVarP(&rulesFormat, "format", "f", formatText, "output format: text, json or yaml")
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := validFormat(scanFormat); err != nil {
		return err
	}
	var failOn scanner.Severity
	if scanFailOn != "" {
		sev, err := scanner.ParseSeverity(scanFailOn)
		if err != nil {
			return fmt.Errorf("--fail-on: %w", err)
		}
		failOn = sev
	}
	if scanTimeout < 0 {
		return fmt.Errorf("--timeout must not be negative")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logs go to stderr so stdout holds only the report.
	a, err := newApp(ctx, scanConfigPath, cmd.ErrOrStderr(), nil)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	report, err := a.pipeline.ScanURL(ctx, args[0], scanTimeout)
	if err != nil {
		return &exitError{code: 1, err: fmt.Errorf("scan failed (%s): %w", pipeline.Kind(err), err)}
	}

	if err := writeReport(cmd.OutOrStdout(), scanFormat, report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if failOn != "" && scanner.AtOrAbove(report.Findings, failOn) {
		return &exitError{code: 2}
	}
	return nil
}

func runRules(cmd *cobra.Command, _ []string) error {
	if err := validFormat(rulesFormat); err != nil {
		return err
	}
	cfg, err := config.LoadWithFile(rulesConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	catalog, err := scanner.NewCatalog(scanner.DefaultRules(), cfg.Scanner.ExtraRules)
	if err != nil {
		return fmt.Errorf("failed to build rule catalog: %w", err)
	}
	return writeRules(cmd.OutOrStdout(), rulesFormat, catalog.Rules())
}
