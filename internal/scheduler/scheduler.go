// Package scheduler runs the fallback polling cadences.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"fraud-monitor/internal/logging"
)

// Task is one repeating job.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context)
}

// Scheduler drives independent tasks on their own tickers. Every task runs
// once immediately on Start, then once per interval. Runs of the same task
// never overlap; a tick that arrives while a run is in progress is skipped.
type Scheduler struct {
	tasks  []Task
	logger zerolog.Logger

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler for tasks.
func New(logger zerolog.Logger, tasks ...Task) *Scheduler {
	return &Scheduler{
		tasks:  tasks,
		logger: logging.WithComponent(logger, "scheduler"),
	}
}

// Start launches every task. It fails if the scheduler was already started
// or any task has a non-positive interval.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, task := range s.tasks {
		if task.Interval <= 0 {
			return fmt.Errorf("task %s: interval must be positive", task.Name)
		}
		if task.Run == nil {
			return fmt.Errorf("task %s: no run function", task.Name)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return fmt.Errorf("scheduler already started")
	}
	s.started = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, task)
	}
	return nil
}

func (s *Scheduler) loop(ctx context.Context, task Task) {
	defer s.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	s.logger.Debug().Str("task", task.Name).Dur("interval", task.Interval).Msg("Task started")
	task.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug().Str("task", task.Name).Msg("Task stopped")
			return
		case <-ticker.C:
			// Stop may have raced with the tick.
			if ctx.Err() != nil {
				return
			}
			task.Run(ctx)
		}
	}
}

// Stop cancels all tasks and waits for in-progress runs to return. No
// task runs after Stop returns. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}
