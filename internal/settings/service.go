package settings

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

var validCurrencies = map[string]bool{"USD": true, "ETH": true}

// Service answers preference reads with defaults for unknown investors and
// validates updates before they are stored.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates the preferences service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Get returns the investor's preferences, falling back to defaults when
// nothing has been saved.
func (s *Service) Get(ctx context.Context, investor string) (*Preferences, error) {
	prefs, err := s.repo.Get(ctx, investor)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	if prefs == nil {
		return DefaultPreferences(investor), nil
	}
	return prefs, nil
}

// Update applies the provided fields on top of the current preferences.
func (s *Service) Update(ctx context.Context, investor string, req UpdateRequest) (*Preferences, error) {
	prefs, err := s.Get(ctx, investor)
	if err != nil {
		return nil, err
	}

	if req.DisplayCurrency != nil {
		if !validCurrencies[*req.DisplayCurrency] {
			return nil, fmt.Errorf("unsupported display currency %q", *req.DisplayCurrency)
		}
		prefs.DisplayCurrency = *req.DisplayCurrency
	}
	if req.NotifyStatusUpdates != nil {
		prefs.NotifyStatusUpdates = *req.NotifyStatusUpdates
	}
	if req.Language != nil {
		prefs.Language = *req.Language
	}

	if err := s.repo.Save(ctx, prefs); err != nil {
		return nil, fmt.Errorf("failed to save preferences: %w", err)
	}
	return prefs, nil
}

// WantsStatusUpdates reports whether attempt status pushes should reach the
// investor. Lookup failures default to sending.
func (s *Service) WantsStatusUpdates(ctx context.Context, investor string) bool {
	prefs, err := s.Get(ctx, investor)
	if err != nil {
		s.logger.Warn("Failed to load notification preference",
			zap.String("investor", investor),
			zap.Error(err))
		return true
	}
	return prefs.NotifyStatusUpdates
}
