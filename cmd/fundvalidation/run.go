package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"github.com/otaviosalomao/FundValidation/internal/config"
	"github.com/otaviosalomao/FundValidation/internal/pipeline"
)

type runCmd struct {
	feedOnly bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "collect feed and bank series, then reconcile them" }
func (*runCmd) Usage() string {
	return `fundvalidation run [-feed-only]

  Fetches the feed return series of every configured instrument and period,
  writes the feed snapshot, loads the matching quota history from the bank
  database, computes returns, writes the bank snapshot and reconciles both
  snapshots into the report.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.feedOnly, "feed-only", false, "stop after writing the feed snapshot")
}

func (c *runCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp((*config.Config).Validate)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := a.newPipeline(ctx, !c.feedOnly, a.recorder())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}

	res := p.Run(ctx, pipeline.RunOptions{FeedOnly: c.feedOnly})
	switch res.Outcome {
	case pipeline.OutcomeFailed:
		fmt.Fprintf(os.Stderr, "run %s failed: %v\n", res.ID, res.Err)
		return subcommands.ExitFailure
	case pipeline.OutcomeNoData:
		fmt.Printf("run %s: no data to reconcile\n", res.ID)
	case pipeline.OutcomeFeedOnly:
		fmt.Printf("run %s: %d feed records written to %s\n", res.ID, res.FeedRecords, res.Output.FeedCSV)
	default:
		s := res.Summary
		fmt.Printf("run %s: %d records, %d OK, %d ERROR (%.1f%%), report %s\n",
			res.ID, s.Total, s.OK, s.Errors, s.SuccessRate(), res.Output.ReportCSV)
	}
	return subcommands.ExitSuccess
}
