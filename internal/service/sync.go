package service

import (
	"context"
	"log/slog"

	"github.com/shurizzle/aniscrobble/internal/domain"
	"github.com/shurizzle/aniscrobble/internal/store"
)

// SyncService reconciles the local pending queue with the tracker.
type SyncService struct {
	store   *store.Store
	tracker domain.Tracker
	logger  *slog.Logger
}

func NewSyncService(st *store.Store, tracker domain.Tracker, logger *slog.Logger) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncService{store: st, tracker: tracker, logger: logger}
}

// Result summarizes one sync run.
type Result struct {
	Reconciled int // entries retired from the pending queue
	Failed     int // entries left queued after a remote error
}

// Run drains the pending queue once. For each entry the authoritative
// progress is the larger of the local and remote values: when local leads
// it is pushed to the tracker first and the entry is only retired after the
// push succeeds. Remote errors are logged and leave the entry queued for a
// later run; they do not fail the run. Store errors are fatal, but progress
// resolved before the failure is still committed by the session's
// abandonment path.
func (s *SyncService) Run(ctx context.Context) (Result, error) {
	var res Result

	acct, err := s.store.Login()
	if err != nil {
		return res, err
	}
	if acct == nil {
		return res, domain.ErrNotLoggedIn
	}

	session, err := s.store.BeginSync()
	if err != nil {
		return res, err
	}
	defer session.Close()

	for {
		candidate, err := session.Next()
		if err != nil {
			return res, err
		}
		if candidate == nil {
			break
		}

		entry, err := s.tracker.Progress(ctx, acct.Token, acct.UserID, candidate.ID())
		if err != nil {
			s.logger.Error("failed to fetch remote progress",
				"media", candidate.ID(), "error", err)
			res.Failed++
			candidate.Skip()
			continue
		}

		episode := entry.Progress
		if candidate.Episode() > entry.Progress {
			if _, err := s.tracker.SaveProgress(ctx, acct.Token, candidate.ID(), candidate.Episode(), entry.Episodes); err != nil {
				s.logger.Error("failed to push progress",
					"media", candidate.ID(), "episode", candidate.Episode(), "error", err)
				res.Failed++
				candidate.Skip()
				continue
			}
			episode = candidate.Episode()
		}

		if err := candidate.Resolve(episode); err != nil {
			return res, err
		}
		res.Reconciled++

		s.logger.Info("reconciled",
			"media", candidate.ID(), "episode", episode)
	}

	if err := session.Finalize(); err != nil {
		return res, err
	}
	return res, nil
}
