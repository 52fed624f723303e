package worker

import (
	"context"
	"sync"
	"time"

	"fleetops/internal/availability/service"
	"fleetops/pkg/logger"
)

// CleanupScheduler runs the hold cleanup on a fixed interval until stopped.
// The manual trigger endpoint and the scheduler share the same service, so a
// run from either side is safe while the other is active.
type CleanupScheduler struct {
	cleanup  service.CleanupService
	interval time.Duration
	log      *logger.Logger

	started  bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewCleanupScheduler(cleanup service.CleanupService, interval time.Duration, log *logger.Logger) *CleanupScheduler {
	return &CleanupScheduler{
		cleanup:  cleanup,
		interval: interval,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the scheduler goroutine. Each run gets its own context bound
// by the interval so a wedged run cannot stack behind the next tick.
func (s *CleanupScheduler) Start() {
	s.started = true
	go func() {
		defer close(s.done)

		s.log.Info("Cleanup scheduler started", "interval", s.interval)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stop:
				s.log.Info("Cleanup scheduler stopped")
				return
			}
		}
	}()
}

func (s *CleanupScheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	deleted, err := s.cleanup.RunCleanup(ctx)
	if err != nil {
		s.log.Error("Scheduled cleanup run failed", "error", err)
		return
	}
	if deleted > 0 {
		s.log.Info("Scheduled cleanup run finished", "deleted_count", deleted)
	}
}

// Stop signals the scheduler and waits for the current run to finish.
func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	if s.started {
		<-s.done
	}
}
