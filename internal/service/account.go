package service

import (
	"context"
	"log/slog"

	"github.com/shurizzle/aniscrobble/internal/domain"
	"github.com/shurizzle/aniscrobble/internal/store"
)

// AccountService manages the stored tracker credential.
type AccountService struct {
	store   *store.Store
	tracker domain.Tracker
	logger  *slog.Logger
}

func NewAccountService(st *store.Store, tracker domain.Tracker, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{store: st, tracker: tracker, logger: logger}
}

// Current returns the stored credential, or nil when logged out.
func (s *AccountService) Current() (*domain.Account, error) {
	return s.store.Login()
}

// Login validates the token against the tracker and stores the credential.
func (s *AccountService) Login(ctx context.Context, token string) (*domain.Account, error) {
	id, err := s.tracker.Viewer(ctx, token)
	if err != nil {
		return nil, err
	}
	acct := &domain.Account{Token: token, UserID: id}
	if err := s.store.SetLogin(acct); err != nil {
		return nil, err
	}
	s.logger.Info("logged in", "user", id)
	return acct, nil
}

// Logout removes the stored credential.
func (s *AccountService) Logout() error {
	if err := s.store.DeleteLogin(); err != nil {
		return err
	}
	s.logger.Info("logged out")
	return nil
}
