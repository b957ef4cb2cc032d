package alerts

import (
	"context"

	"github.com/localpulse/jobs/pkg/logger"
)

// Store persists alerts
type Store interface {
	Insert(ctx context.Context, a Alert) error
}

// Notifier delivers chat messages
type Notifier interface {
	Send(ctx context.Context, message string, silent bool) error
}

// Service is the Sink used in production: alerts go to the store, messages
// to the notifier. Either may be nil.
type Service struct {
	store    Store
	notifier Notifier
	logger   *logger.Logger
}

func NewService(store Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier, logger: logger.New("alerts")}
}

func (s *Service) RaiseAlert(ctx context.Context, a Alert) error {
	if s.store == nil {
		s.logger.Warn().
			Str("action", "alert_dropped").
			Str("title", a.Title).
			Str("tenant", a.Tenant).
			Msg("No alert store configured")
		return nil
	}
	if err := s.store.Insert(ctx, a); err != nil {
		return err
	}

	s.logger.Info().
		Str("action", "alert_raised").
		Str("title", a.Title).
		Str("category", a.Category).
		Str("tenant", a.Tenant).
		Str("priority", string(a.Priority)).
		Msg("Alert raised")
	return nil
}

func (s *Service) SendNotification(ctx context.Context, message string, silent bool) bool {
	if s.notifier == nil {
		return false
	}
	if err := s.notifier.Send(ctx, message, silent); err != nil {
		s.logger.Warn().
			Err(err).
			Str("action", "notification_failed").
			Bool("silent", silent).
			Msg("Failed to send chat notification")
		return false
	}
	return true
}
