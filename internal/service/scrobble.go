package service

import (
	"log/slog"

	"github.com/shurizzle/aniscrobble/internal/store"
)

// ScrobbleService is the local update path: it records observed episode
// counts without touching the network.
type ScrobbleService struct {
	store  *store.Store
	logger *slog.Logger
}

func NewScrobbleService(st *store.Store, logger *slog.Logger) *ScrobbleService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScrobbleService{store: st, logger: logger}
}

// Track records that episode was watched for the given title. Once it
// returns nil the observation is durable and queued for the next sync.
func (s *ScrobbleService) Track(id, episode uint64) error {
	if err := s.store.Record(id, episode); err != nil {
		return err
	}
	s.logger.Info("recorded", "media", id, "episode", episode)
	return nil
}
