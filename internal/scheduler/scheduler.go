// Package scheduler drives periodic tasks.
package scheduler

import (
	"context"
	"time"

	"quorum/internal/logger"
)

// Scheduler runs a task every Interval until ctx is done. With Align set the
// ticks land on interval boundaries (plus Offset) instead of drifting from
// the start time. A slow task delays the next tick; ticks never overlap.
type Scheduler struct {
	Name           string
	Interval       time.Duration
	Offset         time.Duration
	Align          bool
	RunImmediately bool

	nowFn func() time.Time
}

func New(name string, interval time.Duration) *Scheduler {
	return &Scheduler{Name: name, Interval: interval, nowFn: time.Now}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context, task func(context.Context)) {
	if s == nil {
		return
	}
	if task == nil {
		logger.Warnf("scheduler %s: task is nil, exit", s.Name)
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("scheduler %s: invalid interval=%s, exit", s.Name, s.Interval)
		return
	}
	if s.Offset < 0 {
		s.Offset = 0
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}
	startAt := s.nowFn().UTC()
	logger.Infof("scheduler %s: started interval=%s align=%v run_immediately=%v", s.Name, s.Interval, s.Align, s.RunImmediately)

	if s.RunImmediately {
		if ctx.Err() != nil {
			return
		}
		task(ctx)
	}
	for {
		now := s.nowFn().UTC()
		wakeAt := s.nextWake(now, startAt)
		wait := wakeAt.Sub(now)
		logger.Debugf("scheduler %s: next run at %s (in %s)", s.Name, wakeAt.Format(time.RFC3339), wait.Truncate(time.Second))
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				logger.Infof("scheduler %s: ctx done, exit", s.Name)
				return
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return
		}
		task(ctx)
		if !s.Align {
			startAt = s.nowFn().UTC()
		}
	}
}

func (s *Scheduler) nextWake(now, last time.Time) time.Time {
	if s.Align {
		return now.Truncate(s.Interval).Add(s.Interval).Add(s.Offset)
	}
	return last.Add(s.Interval)
}
