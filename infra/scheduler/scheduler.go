package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/giovaniif/stock-records/infra/metrics"
	"github.com/giovaniif/stock-records/use_cases/reorder"
)

const scanTimeout = time.Minute

type ReorderNotifier interface {
	Notify(ctx context.Context) (reorder.Output, error)
}

// Scheduler periodically looks for records that need replenishment.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	notifier ReorderNotifier
	logger   *zap.Logger
}

func NewScheduler(schedule string, notifier ReorderNotifier, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron:     cron.New(),
		schedule: schedule,
		notifier: notifier,
		logger:   logger,
	}
}

// Start registers the scan and starts the cron runner. An empty schedule is a no-op.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.logger.Info("reorder scan disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.scan); err != nil {
		return err
	}
	s.logger.Info("starting reorder scan", zap.String("schedule", s.schedule))
	s.cron.Start()
	return nil
}

// Stop waits for a running scan to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) scan() {
	ctx, cancel := context.WithTimeout(context.Background(), scanTimeout)
	defer cancel()
	s.Scan(ctx)
}

func (s *Scheduler) Scan(ctx context.Context) {
	out, err := s.notifier.Notify(ctx)
	metrics.ReorderNeeded.Set(float64(len(out.Records)))
	if err != nil {
		s.logger.Error("reorder scan failed", zap.Int("pending", len(out.Records)), zap.Error(err))
		return
	}
	if len(out.Records) == 0 {
		s.logger.Debug("reorder scan found nothing")
		return
	}
	keys := make([]string, 0, len(out.Records))
	for _, r := range out.Records {
		keys = append(keys, r.ProductID+"/"+r.Location)
	}
	s.logger.Info("reorder needed",
		zap.Int("pending", len(out.Records)),
		zap.Int("published", out.Published),
		zap.Strings("records", keys),
	)
}
