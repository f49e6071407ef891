package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/deck-auditor/backend/internal/logging"
	"github.com/deck-auditor/backend/internal/matcher"
	"github.com/deck-auditor/backend/internal/models"
	"github.com/deck-auditor/backend/internal/parser"
	"github.com/deck-auditor/backend/internal/report"
)

// errMismatches is returned by --strict audits that found mismatches.
var errMismatches = errors.New("audit found mismatches")

type auditOptions struct {
	presentation string
	spreadsheets []string
	format       string
	output       string
	tolerance    float64
	workers      int
	strict       bool
	logLevel     string
}

func newAuditCmd() *cobra.Command {
	opts := &auditOptions{}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit a deck against its spreadsheets",
		Long: `Audit extracts the numbers of a .pptx deck and matches each one against the
numbers in the given .xlsx, .xls or .csv spreadsheets.

Examples:
  # Print a table of findings
  deckaudit audit --presentation q3.pptx --spreadsheet financials.xlsx

  # Several workbooks, CSV report written to a file
  deckaudit audit -p q3.pptx -s pnl.xlsx -s headcount.csv --format csv -o report.csv

  # Fail (exit 1) when any number disagrees with the data
  deckaudit audit -p q3.pptx -s pnl.xlsx --strict`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.presentation, "presentation", "p", "", "deck to audit (.pptx)")
	cmd.Flags().StringArrayVarP(&opts.spreadsheets, "spreadsheet", "s", nil, "spreadsheet holding the source figures (.xlsx, .xls, .csv); repeatable")
	cmd.Flags().StringVarP(&opts.format, "format", "f", string(report.FormatTable), "output format: table, csv, json, msgpack or pdf")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the report to this file instead of stdout")
	cmd.Flags().Float64Var(&opts.tolerance, "tolerance", matcher.DefaultOptions().Tolerance, "relative difference accepted as a match")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent matching workers (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&opts.strict, "strict", false, "exit with an error when any mismatch is found")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "warn", "log level for diagnostics on stderr")
	_ = cmd.MarkFlagRequired("presentation")
	_ = cmd.MarkFlagRequired("spreadsheet")

	return cmd
}

func runAudit(cmd *cobra.Command, opts *auditOptions) error {
	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.tolerance <= 0 || opts.tolerance >= 1 {
		return fmt.Errorf("--tolerance %v must be in (0, 1)", opts.tolerance)
	}

	logger, err := logging.New(opts.logLevel, "console")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	start := time.Now()
	registry := parser.GetGlobalRegistry()

	deck, err := registry.ReadPresentation(opts.presentation, filepath.Base(opts.presentation))
	if err != nil {
		return fmt.Errorf("%s: %w", opts.presentation, err)
	}
	slides, err := parser.PresentationTokens(deck)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.presentation, err)
	}

	books := make([]models.WorkbookTokens, 0, len(opts.spreadsheets))
	for _, path := range opts.spreadsheets {
		wb, err := registry.ReadWorkbook(path, filepath.Base(path))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		tokens, err := parser.SpreadsheetTokens(wb)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		books = append(books, tokens)
	}

	engine := matcher.New(matcher.Options{Tolerance: opts.tolerance, Workers: opts.workers})
	findings := engine.Match(models.FlattenSlides(slides), models.FlattenWorkbooks(books))
	summary := matcher.Summarize(findings)

	logger.Info("audit complete",
		zap.String("presentation", opts.presentation),
		zap.Int("slides", len(slides)),
		zap.Int("spreadsheets", len(books)),
		zap.Int("numbers", summary.Total),
		zap.Int("mismatches", summary.Mismatches),
		zap.Duration("duration", time.Since(start)),
	)

	if err := writeReport(cmd.OutOrStdout(), opts.output, format, findings); err != nil {
		return err
	}

	if opts.strict && summary.Mismatches > 0 {
		return fmt.Errorf("%w: %d of %d numbers", errMismatches, summary.Mismatches, summary.Total)
	}
	return nil
}

func writeReport(stdout io.Writer, output string, format report.Format, findings []models.AuditFinding) error {
	if output == "" {
		return report.Write(stdout, format, findings)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := report.Write(f, format, findings); err != nil {
		f.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	return f.Close()
}
