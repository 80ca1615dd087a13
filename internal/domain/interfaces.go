package domain

import "context"

// Tracker is the remote progress service consumed by login and sync.
// Errors returned here are recoverable from the sync driver's point of
// view: the affected entry stays queued and is retried on a later run.
type Tracker interface {
	// Viewer resolves a bearer token to the remote user id.
	Viewer(ctx context.Context, token string) (uint64, error)

	// Progress fetches the remote entry for one title. A remote
	// "no list entry" condition is reported as Progress 0, not an error.
	Progress(ctx context.Context, token string, userID, mediaID uint64) (MediaEntry, error)

	// SaveProgress pushes a new progress value, marking the entry
	// completed when progress equals the total. Returns the progress the
	// remote confirmed.
	SaveProgress(ctx context.Context, token string, mediaID, progress, total uint64) (uint64, error)
}
