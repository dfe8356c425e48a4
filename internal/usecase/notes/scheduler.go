package notes

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seedbridge/crm-portal/internal/domain/entities"
)

// Sweeper runs one sweep
type Sweeper interface {
	RunSweep(ctx context.Context) (*SweepSummary, error)
}

// Scheduler triggers a sweep on a fixed interval.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler
func NewScheduler(sweeper Sweeper, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{sweeper: sweeper, interval: interval, logger: logger}
}

// Start launches the ticker loop. The first sweep runs after one interval.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return errors.New("scheduler already running")
	}
	if s.interval <= 0 {
		return errors.New("scheduler interval must be positive")
	}

	s.running = true
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("🚀 Notes scheduler started", zap.Duration("interval", s.interval))
	return nil
}

// Stop waits for the loop, and any sweep in flight, to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stop)
	s.wg.Wait()
	s.running = false

	s.logger.Info("✅ Notes scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	_, err := s.sweeper.RunSweep(ctx)
	switch {
	case err == nil:
	case errors.Is(err, entities.ErrSweepInProgress):
		s.logger.Debug("notes.sweep_skipped", zap.String("reason", "in progress"))
	default:
		s.logger.Error("notes.sweep_failed", zap.Error(err))
	}
}
