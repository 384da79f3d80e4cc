package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/otaviosalomao/FundValidation/internal/config"
	"github.com/otaviosalomao/FundValidation/internal/pipeline"
	"github.com/otaviosalomao/FundValidation/internal/reconcile"
)

type compareCmd struct {
	feedPath   string
	bankPath   string
	reportPath string
}

func (*compareCmd) Name() string     { return "compare" }
func (*compareCmd) Synopsis() string { return "reconcile existing feed and bank snapshots" }
func (*compareCmd) Usage() string {
	return `fundvalidation compare [-feed <csv>] [-bank <csv>] [-report <csv>]

  Reconciles two snapshots already on disk and writes the report. Paths
  default to the configured output files.
`
}

func (c *compareCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.feedPath, "feed", "", "feed snapshot to read")
	f.StringVar(&c.bankPath, "bank", "", "bank snapshot to read")
	f.StringVar(&c.reportPath, "report", "", "report to write")
}

func (c *compareCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp((*config.Config).ValidateCompare)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	out := a.cfg.Output
	if c.feedPath != "" {
		out.FeedCSV = c.feedPath
	}
	if c.bankPath != "" {
		out.BankCSV = c.bankPath
	}
	if c.reportPath != "" {
		out.ReportCSV = c.reportPath
	}

	p := &pipeline.Pipeline{Settings: a.settings(), Output: out, Logger: a.log}
	records, err := p.Compare()
	if errors.Is(err, reconcile.ErrNoData) {
		fmt.Println("no data to reconcile:", err)
		return subcommands.ExitSuccess
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	s := reconcile.Summarize(records)
	fmt.Printf("%d records, %d OK, %d ERROR (%.1f%%), report %s\n", s.Total, s.OK, s.Errors, s.SuccessRate(), out.ReportCSV)
	return subcommands.ExitSuccess
}
