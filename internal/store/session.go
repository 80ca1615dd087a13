package store

import (
	"fmt"
	"slices"

	"github.com/shurizzle/aniscrobble/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// SyncSession walks the pending queue inside a single long-lived write
// transaction. Every candidate resolved during the session writes into that
// transaction, so Finalize makes all of them durable together, while Close
// (the abandonment path) commits best-effort whatever was done before a
// fatal error. Holding the write transaction also means local updates block
// until the session ends.
type SyncSession struct {
	tx      *bolt.Tx
	queue   []uint64
	cursor  int
	dirty   bool
	done    bool
	current *Candidate
}

// Candidate is one pending entry under consideration. Exactly one of
// Resolve or Skip must be called before asking the session for the next
// entry; an untouched candidate is returned again by Next.
type Candidate struct {
	session *SyncSession
	id      uint64
	episode uint64
}

func (c *Candidate) ID() uint64 { return c.id }

// Episode returns the locally recorded episode count.
func (c *Candidate) Episode() uint64 { return c.episode }

// BeginSync opens the session's write transaction and snapshots the pending
// queue. Ids queued by Record while the session runs are not visited; they
// wait for the next one.
func (s *Store) BeginSync() (*SyncSession, error) {
	tx, err := s.db.Begin(true)
	if err != nil {
		return nil, fmt.Errorf("failed to begin sync transaction: %w", err)
	}
	queue, err := decodePending(tx.Bucket(bucketMeta).Get(keyPending))
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	return &SyncSession{tx: tx, queue: queue}, nil
}

// Next yields the candidate at the cursor. Queue entries with no matching
// progress record are pruned silently and never surfaced; the sequence ends
// with (nil, nil).
func (ss *SyncSession) Next() (*Candidate, error) {
	if ss.done {
		return nil, domain.ErrSessionClosed
	}
	if ss.current != nil {
		return ss.current, nil
	}

	progress := ss.tx.Bucket(bucketProgress)
	for ss.cursor < len(ss.queue) {
		id := ss.queue[ss.cursor]
		var v []byte
		if progress != nil {
			v = progress.Get(itob(id))
		}
		if v == nil {
			// Stale queue entry: drop it and retry at the same position.
			ss.queue = slices.Delete(ss.queue, ss.cursor, ss.cursor+1)
			ss.dirty = true
			continue
		}
		ss.current = &Candidate{session: ss, id: id, episode: btoi(v)}
		return ss.current, nil
	}
	return nil, nil
}

// Resolve retires the candidate from the pending queue and, when episode
// advances past the locally recorded value, writes the new count into the
// session transaction. Callers must pass the reconciled value, which can
// never regress; a smaller episode is a programming error.
func (c *Candidate) Resolve(episode uint64) error {
	ss := c.session
	if ss.done {
		return domain.ErrSessionClosed
	}
	if ss.current != c {
		return fmt.Errorf("candidate %d already settled", c.id)
	}
	if episode < c.episode {
		panic(fmt.Sprintf("store: resolving media %d with regressing episode %d < %d", c.id, episode, c.episode))
	}

	if episode > c.episode {
		progress, err := progressBucket(ss.tx)
		if err != nil {
			return err
		}
		if err := progress.Put(itob(c.id), itob(episode)); err != nil {
			return err
		}
	}

	// The next entry slides into the cursor position.
	ss.queue = slices.Delete(ss.queue, ss.cursor, ss.cursor+1)
	ss.dirty = true
	ss.current = nil
	return nil
}

// Skip leaves the entry queued for a later session and moves the cursor
// past it.
func (c *Candidate) Skip() {
	ss := c.session
	if ss.done || ss.current != c {
		return
	}
	ss.cursor++
	ss.current = nil
}

// Finalize persists the shrunken queue (when it changed) and commits the
// session transaction, making all resolved progress durable atomically.
// If the queue write itself fails the transaction is still committed so the
// resolved progress is not lost; the retained queue entries are simply
// reconciled again next run.
func (ss *SyncSession) Finalize() error {
	if ss.done {
		return domain.ErrSessionClosed
	}
	ss.done = true

	if ss.dirty {
		if err := putPending(ss.tx.Bucket(bucketMeta), ss.queue); err != nil {
			_ = ss.tx.Commit()
			return err
		}
	}
	if err := ss.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sync session: %w", err)
	}
	return nil
}

// Close is the abandonment path, safe to defer: a no-op after Finalize,
// otherwise a best-effort persistence of whatever the session managed to
// do. Secondary errors from the queue write are swallowed; the commit error
// is returned.
func (ss *SyncSession) Close() error {
	if ss.done {
		return nil
	}
	ss.done = true

	if ss.dirty {
		_ = putPending(ss.tx.Bucket(bucketMeta), ss.queue)
	}
	return ss.tx.Commit()
}
