package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/store"
)

// HousekeepingService periodically removes expired reference tokens,
// refresh tokens, and stale authorization codes so the store does not grow
// without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// MaxCodeAge is the sweep cutoff for authorization codes. Codes expire
	// per-client much earlier; this catches strays from deleted clients.
	MaxCodeAge time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a housekeeping service. A non-positive
// interval defaults to one hour; a non-positive code age to 24 hours.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:      st,
		Logger:     logger,
		Interval:   interval,
		MaxCodeAge: 24 * time.Hour,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start launches the background worker. Call Stop to shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop blocks until any in-progress sweep finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.cleanup()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

// cleanup runs each sweep independently; one failing does not stop the rest.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	s.Logger.Debug("starting housekeeping sweep")

	if err := s.Store.Tokens().DeleteExpiredTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired reference tokens", "error", err)
	}
	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}
	cutoff := time.Now().Add(-s.MaxCodeAge)
	if err := s.Store.AuthorizationCodes().DeleteAuthorizationCodesCreatedBefore(ctx, cutoff); err != nil {
		s.Logger.Error("failed to delete stale authorization codes", "error", err)
	}

	s.Logger.Debug("housekeeping sweep completed")
}
