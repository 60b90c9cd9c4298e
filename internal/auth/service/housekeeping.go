package service

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper deletes expired records and reports how many went.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// HousekeepingService periodically deletes expired refresh tokens,
// signing keys past their grace period and expired in-memory cache entries.
type HousekeepingService struct {
	RefreshTokens Sweeper
	SigningKeys   Sweeper // nil in ephemeral key mode
	Cache         Sweeper // nil when redis expires keys itself
	Logger        *slog.Logger
	Interval      time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to one hour.
func NewHousekeepingService(refresh, keys Sweeper, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		RefreshTokens: refresh,
		SigningKeys:   keys,
		Logger:        logger,
		Interval:      interval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start runs the worker in the background. Call Stop to end it.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop ends the worker and waits for an in-progress sweep.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Cleanup(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Cleanup(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Cleanup runs one sweep. A failing sweeper does not stop the others.
func (s *HousekeepingService) Cleanup(ctx context.Context) {
	sweep := func(name string, sw Sweeper) {
		if sw == nil {
			return
		}
		n, err := sw.SweepExpired(ctx)
		if err != nil {
			s.Logger.Error("housekeeping sweep failed", "target", name, "error", err)
			return
		}
		s.Logger.Debug("housekeeping sweep done", "target", name, "deleted", n)
	}

	sweep("refresh_tokens", s.RefreshTokens)
	sweep("signing_keys", s.SigningKeys)
	sweep("kvstore", s.Cache)
}
