package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/otaviosalomao/FundValidation/internal/notifier"
	"github.com/otaviosalomao/FundValidation/internal/pipeline"
	"github.com/otaviosalomao/FundValidation/internal/recorder"
)

// Runner executes one validation run.
type Runner interface {
	Run(ctx context.Context, opts pipeline.RunOptions) *pipeline.RunResult
}

// Sender delivers a chat message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler triggers validation runs on a cron schedule and on chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Notifier Sender
	Recorder recorder.Recorder
	Logger   *zap.Logger
	Ctx      context.Context

	// running guards against overlapping runs.
	running sync.Mutex
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, runner Runner, sender Sender, rec recorder.Recorder, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Notifier: sender,
		Recorder: rec,
		Logger:   logger,
		Ctx:      ctx,
	}
}

// Register adds the validation run to the cron table.
func (s *Scheduler) Register(runCron string) error {
	if _, err := s.Cron.AddFunc(runCron, func() { s.RunNow(pipeline.RunOptions{}) }); err != nil {
		return fmt.Errorf("register run task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Logger.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Logger.Info("scheduler stopped")
}

// RunNow executes a run immediately and reports it to the chat. It returns
// false without running when another run is in progress.
func (s *Scheduler) RunNow(opts pipeline.RunOptions) bool {
	if !s.running.TryLock() {
		s.Logger.Warn("run already in progress, skipping")
		return false
	}
	defer s.running.Unlock()

	res := s.Runner.Run(s.Ctx, opts)
	s.trySend(notifier.FormatRunSummary(res.Record()))
	return true
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch command {
	case "/run":
		if !s.RunNow(pipeline.RunOptions{}) {
			return "A run is already in progress."
		}
		return ""
	case "/feed":
		if !s.RunNow(pipeline.RunOptions{FeedOnly: true}) {
			return "A run is already in progress."
		}
		return ""
	case "/status":
		run, err := s.Recorder.LastRun()
		if err != nil {
			s.Logger.Error("load last run", zap.Error(err))
			return "Could not load the last run."
		}
		if run == nil {
			return "No run recorded yet."
		}
		return notifier.FormatRunSummary(run)
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.Logger.Error("send notification", zap.Error(err))
	}
}
