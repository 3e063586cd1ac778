package cronjob

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work.
type Job interface {
	FinishDue(ctx context.Context) ([]string, error)
}

type Scheduler struct {
	cron    *cron.Cron
	job     Job
	timeout time.Duration
	logger  *slog.Logger
}

func NewScheduler(job Job, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		job:     job,
		timeout: time.Minute,
		logger:  logger,
	}
}

// Start registers the finisher on spec (six-field cron with seconds) and
// starts the scheduler. An empty spec disables it.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		s.logger.Info("match finisher disabled")
		return nil
	}

	_, err := s.cron.AddFunc(spec, s.run)
	if err != nil {
		s.logger.Error("failed to create cron job", "spec", spec, "error", err)
		return err
	}

	s.logger.Info("match finisher scheduled", "spec", spec)
	s.cron.Start()
	return nil
}

// Stop waits for a running job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.job.FinishDue(ctx); err != nil {
		s.logger.Error("match finisher failed", "error", err)
	}
}
