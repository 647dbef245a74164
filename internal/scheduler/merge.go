// Package scheduler runs the periodic knowledge merge on the worker.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// MergeFunc folds snapshots from a directory into the shared knowledge file
// and reports how many were merged.
type MergeFunc func(ctx context.Context, dir string) (int, error)

// Scheduler merges session snapshots on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	dir    string
	merge  MergeFunc
	logger *slog.Logger
}

// New registers the merge job. schedule accepts standard five-field specs
// and descriptors such as "@every 15m".
func New(schedule, dir string, merge MergeFunc, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cron:   cron.New(),
		dir:    dir,
		merge:  merge,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid merge schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start starts the scheduler in the background.
func (s *Scheduler) Start() {
	s.logger.Info("Knowledge merge scheduled", "dir", s.dir)
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running merge to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunOnce performs one merge. Failures are logged.
func (s *Scheduler) RunOnce() {
	n, err := s.merge(context.Background(), s.dir)
	if err != nil {
		s.logger.Warn("Knowledge merge failed", "dir", s.dir, "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("Merged session snapshots", "dir", s.dir, "count", n)
	}
}
