package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/shurizzle/aniscrobble/internal/domain"
	"github.com/shurizzle/aniscrobble/internal/log"
	"github.com/shurizzle/aniscrobble/internal/store"
)

// fakeTracker is an in-memory domain.Tracker.
type fakeTracker struct {
	entries  map[uint64]domain.MediaEntry
	fetchErr error
	saveErr  error
	saved    map[uint64]uint64
}

func (f *fakeTracker) Viewer(ctx context.Context, token string) (uint64, error) {
	return 1337, nil
}

func (f *fakeTracker) Progress(ctx context.Context, token string, userID, mediaID uint64) (domain.MediaEntry, error) {
	if f.fetchErr != nil {
		return domain.MediaEntry{}, f.fetchErr
	}
	return f.entries[mediaID], nil
}

func (f *fakeTracker) SaveProgress(ctx context.Context, token string, mediaID, progress, total uint64) (uint64, error) {
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	if f.saved == nil {
		f.saved = make(map[uint64]uint64)
	}
	f.saved[mediaID] = progress
	return progress, nil
}

func newSyncedStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := st.SetLogin(&domain.Account{Token: "secret", UserID: 1337}); err != nil {
		t.Fatalf("failed to set login: %v", err)
	}
	return st
}

func TestSyncRun(t *testing.T) {
	t.Run("Not Logged In", func(t *testing.T) {
		st, err := store.Open(t.TempDir())
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		defer st.Close()

		_, err = NewSyncService(st, &fakeTracker{}, log.NullLogger()).Run(context.Background())
		if !errors.Is(err, domain.ErrNotLoggedIn) {
			t.Errorf("expected ErrNotLoggedIn, got %v", err)
		}
	})

	t.Run("Remote Ahead", func(t *testing.T) {
		// queue [42], local 5, remote (12 episodes, progress 5):
		// nothing to push, entry retired.
		st := newSyncedStore(t)
		if err := st.Record(42, 5); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		tracker := &fakeTracker{entries: map[uint64]domain.MediaEntry{
			42: {Episodes: 12, Progress: 5},
		}}

		res, err := NewSyncService(st, tracker, log.NullLogger()).Run(context.Background())
		if err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		if res.Reconciled != 1 || res.Failed != 0 {
			t.Errorf("unexpected result %+v", res)
		}
		if len(tracker.saved) != 0 {
			t.Errorf("expected no remote writes, got %v", tracker.saved)
		}
		assertState(t, st, 42, 5, nil)
	})

	t.Run("Local Ahead", func(t *testing.T) {
		// queue [42], local 5, remote progress 3: push 5, retire.
		st := newSyncedStore(t)
		if err := st.Record(42, 5); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		tracker := &fakeTracker{entries: map[uint64]domain.MediaEntry{
			42: {Episodes: 12, Progress: 3},
		}}

		res, err := NewSyncService(st, tracker, log.NullLogger()).Run(context.Background())
		if err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		if res.Reconciled != 1 || res.Failed != 0 {
			t.Errorf("unexpected result %+v", res)
		}
		if tracker.saved[42] != 5 {
			t.Errorf("expected remote write of 5, got %v", tracker.saved)
		}
		assertState(t, st, 42, 5, nil)
	})

	t.Run("Remote Write Fails", func(t *testing.T) {
		// Push fails: entry stays queued, run still succeeds.
		st := newSyncedStore(t)
		if err := st.Record(42, 5); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		tracker := &fakeTracker{
			entries: map[uint64]domain.MediaEntry{42: {Episodes: 12, Progress: 3}},
			saveErr: domain.ErrServerOffline,
		}

		res, err := NewSyncService(st, tracker, log.NullLogger()).Run(context.Background())
		if err != nil {
			t.Fatalf("sync should tolerate remote errors, got %v", err)
		}
		if res.Reconciled != 0 || res.Failed != 1 {
			t.Errorf("unexpected result %+v", res)
		}
		assertState(t, st, 42, 5, []uint64{42})
	})

	t.Run("Remote Fetch Fails", func(t *testing.T) {
		st := newSyncedStore(t)
		if err := st.Record(42, 5); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		tracker := &fakeTracker{fetchErr: domain.ErrServerOffline}

		res, err := NewSyncService(st, tracker, log.NullLogger()).Run(context.Background())
		if err != nil {
			t.Fatalf("sync should tolerate remote errors, got %v", err)
		}
		if res.Reconciled != 0 || res.Failed != 1 {
			t.Errorf("unexpected result %+v", res)
		}
		assertState(t, st, 42, 5, []uint64{42})
	})

	t.Run("Remote Further Ahead Advances Local", func(t *testing.T) {
		st := newSyncedStore(t)
		if err := st.Record(42, 5); err != nil {
			t.Fatalf("failed to record: %v", err)
		}
		tracker := &fakeTracker{entries: map[uint64]domain.MediaEntry{
			42: {Episodes: 12, Progress: 9},
		}}

		res, err := NewSyncService(st, tracker, log.NullLogger()).Run(context.Background())
		if err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		if res.Reconciled != 1 {
			t.Errorf("unexpected result %+v", res)
		}
		assertState(t, st, 42, 9, nil)
	})

	t.Run("Mixed Queue", func(t *testing.T) {
		// One entry reconciles, one fails, one is pruned.
		st := newSyncedStore(t)
		for id, e := range map[uint64]uint64{7: 2, 42: 5} {
			if err := st.Record(id, e); err != nil {
				t.Fatalf("failed to record: %v", err)
			}
		}
		tracker := &fakeTracker{entries: map[uint64]domain.MediaEntry{
			7:  {Episodes: 24, Progress: 2},
			42: {Episodes: 12, Progress: 3},
		}, saveErr: domain.ErrServerOffline}

		res, err := NewSyncService(st, tracker, log.NullLogger()).Run(context.Background())
		if err != nil {
			t.Fatalf("sync failed: %v", err)
		}
		// 7 resolves from the remote value; 42 needs a push, which fails.
		if res.Reconciled != 1 || res.Failed != 1 {
			t.Errorf("unexpected result %+v", res)
		}
		assertState(t, st, 42, 5, []uint64{42})
	})
}

// assertState checks a title's recorded episode and the whole pending queue.
func assertState(t *testing.T, st *store.Store, id, episode uint64, pending []uint64) {
	t.Helper()

	got, _, err := st.Progress(id)
	if err != nil {
		t.Fatalf("failed to read progress: %v", err)
	}
	if got != episode {
		t.Errorf("expected episode %d for %d, got %d", episode, id, got)
	}

	queue, err := st.Pending()
	if err != nil {
		t.Fatalf("failed to read pending: %v", err)
	}
	if !slices.Equal(queue, pending) {
		t.Errorf("expected pending %v, got %v", pending, queue)
	}
}
