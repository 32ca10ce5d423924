package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/bakeboard/internal/admin/metrics"
	"github.com/aussiebroadwan/bakeboard/internal/admin/store"
)

// HousekeepingService periodically purges invitations that expired more
// than Retention ago without being accepted. Accepted invitations are kept.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration
	Now       func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the worker. If interval is 0 or negative,
// defaults to 1 hour. A retention of 0 disables purging.
func NewHousekeepingService(s store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Store:     s,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		slog.Duration("interval", s.Interval),
		slog.Duration("retention", s.Retention),
	)
}

// Stop blocks until any in-progress cleanup has finished.
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

// Cleanup runs a single purge and returns the number of deleted invitations.
func (s *HousekeepingService) Cleanup(ctx context.Context) int64 {
	if s.Retention <= 0 {
		return 0
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	cutoff := now.Add(-s.Retention)

	n, err := s.Store.Invitations().DeleteStaleInvitations(ctx, cutoff)
	if err != nil {
		s.Logger.Error("failed to delete stale invitations", slog.Any("error", err))
		return 0
	}

	metrics.RecordHousekeepingDeleted(n)
	s.Logger.Info("housekeeping cleanup completed",
		slog.Int64("invitations_deleted", n),
		slog.Time("cutoff", cutoff),
	)
	return n
}
