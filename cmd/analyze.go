package main

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/followup-cli/internal/config"
	"github.com/sells-group/followup-cli/internal/model"
	"github.com/sells-group/followup-cli/internal/pipeline"
	"github.com/sells-group/followup-cli/internal/report"
	"github.com/sells-group/followup-cli/internal/sheet"
)

var (
	analyzeFile        string
	analyzeSheet       string
	analyzeLimit       int
	analyzeConcurrency int
	analyzeOffline     bool
	analyzeFormat      string
	analyzeOutput      string
	analyzeOwner       string
	analyzeAll         bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a CRM export and print the follow-up report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mode := config.ModeAnalyze
		if analyzeOffline {
			mode = config.ModeOffline
		}
		if analyzeConcurrency > 0 {
			cfg.Batch.Concurrency = analyzeConcurrency
		}
		if err := cfg.Validate(mode); err != nil {
			return err
		}
		if !validFormat(analyzeFormat) {
			return eris.Errorf("unsupported format %q (want md, json, yaml or xlsx)", analyzeFormat)
		}

		tbl, err := sheet.Load(analyzeFile, sheet.Options{SheetName: analyzeSheet, Limit: analyzeLimit})
		if err != nil {
			return eris.Wrap(err, "load export")
		}

		adv, err := initAdvisor(ctx, analyzeOffline)
		if err != nil {
			return err
		}

		p := pipeline.New(adv, pipeline.Options{Concurrency: cfg.Batch.Concurrency, Source: tbl.Name})
		batch, runErr := p.Run(ctx, tbl.Records())
		if batch == nil {
			return runErr
		}

		stats := adv.Cache().Stats()
		zap.L().Info("advisory cache",
			zap.Int64("hits", stats.Hits),
			zap.Int64("misses", stats.Misses),
			zap.Int64("evictions", stats.Evictions),
		)

		if err := writeAnalysis(cmd.OutOrStdout(), batch); err != nil {
			return err
		}
		// A canceled run still reports the rows it finished.
		return runErr
	},
}

func validFormat(f string) bool {
	switch f {
	case "md", "json", "yaml", "xlsx":
		return true
	}
	return false
}

func writeAnalysis(stdout io.Writer, batch *model.Batch) error {
	opts := report.Options{Owner: analyzeOwner}
	if !analyzeAll {
		opts.HiddenPhases = cfg.Report.HiddenPhases
	}

	w := stdout
	if analyzeOutput != "" && analyzeOutput != "-" {
		f, err := os.Create(analyzeOutput)
		if err != nil {
			return eris.Wrap(err, "create output file")
		}
		defer f.Close() //nolint:errcheck
		w = f
	} else if analyzeFormat == "xlsx" {
		return eris.New("xlsx output requires --output")
	}

	var err error
	switch analyzeFormat {
	case "json":
		err = report.WriteJSON(w, batch, opts)
	case "yaml":
		err = report.WriteYAML(w, batch, opts)
	case "xlsx":
		err = report.WriteXLSX(w, batch, opts)
	default:
		err = report.WriteMarkdown(w, batch, opts)
	}
	if err != nil {
		return eris.Wrap(err, "write report")
	}

	if analyzeOutput != "" && analyzeOutput != "-" {
		zap.L().Info("report written",
			zap.String("path", analyzeOutput),
			zap.String("format", analyzeFormat),
		)
	}
	return nil
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "CRM export (.xlsx, .csv or .txt)")
	analyzeCmd.Flags().StringVar(&analyzeSheet, "sheet", "", "worksheet name (default first sheet)")
	analyzeCmd.Flags().IntVar(&analyzeLimit, "limit", 0, "max data rows to process (0 = all)")
	analyzeCmd.Flags().IntVar(&analyzeConcurrency, "concurrency", 0, "rows processed in parallel (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeOffline, "offline", false, "use canned advisories instead of a model")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "md", "report format: md, json, yaml or xlsx")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "output file (default stdout)")
	analyzeCmd.Flags().StringVar(&analyzeOwner, "owner", "", "only report leads of this salesperson")
	analyzeCmd.Flags().BoolVar(&analyzeAll, "all", false, "include early-funnel phases")
	_ = analyzeCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(analyzeCmd)
}
