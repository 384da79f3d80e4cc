package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"github.com/otaviosalomao/FundValidation/internal/config"
	"github.com/otaviosalomao/FundValidation/internal/notifier"
	"github.com/otaviosalomao/FundValidation/internal/pipeline"
	"github.com/otaviosalomao/FundValidation/internal/scheduler"
)

type serveCmd struct {
	runOnStart bool
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run validations on a schedule and answer chat commands" }
func (*serveCmd) Usage() string {
	return `fundvalidation serve [-run-on-start]

  Runs the validation on the configured cron schedule, posts each summary to
  Telegram and answers /run, /feed and /status until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.runOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "run once immediately")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := newApp((*config.Config).ValidateServe)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return subcommands.ExitFailure
	}
	defer a.close()
	log := a.log

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rec := a.recorder()
	p, err := a.newPipeline(ctx, true, rec)
	if err != nil {
		log.Error("init pipeline", zap.Error(err))
		return subcommands.ExitFailure
	}

	tn := notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, log)

	sched := scheduler.NewScheduler(ctx, p, tn, rec, log)
	if err := sched.Register(a.cfg.Schedule.RunCron); err != nil {
		log.Error("register cron task", zap.Error(err))
		return subcommands.ExitFailure
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Info("telegram polling started")

	if c.runOnStart {
		log.Info("run on start enabled, executing now")
		go sched.RunNow(pipeline.RunOptions{})
	}

	log.Info("fundvalidation is running, press Ctrl+C to stop", zap.String("cron", a.cfg.Schedule.RunCron))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping")
	cancel()
	return subcommands.ExitSuccess
}
