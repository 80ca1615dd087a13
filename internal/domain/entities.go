package domain

// Account is the stored credential: the bearer token pasted at login and
// the remote user id it resolved to.
type Account struct {
	Token  string `json:"token"`
	UserID uint64 `json:"user_id"`
}

// MediaEntry is the remote view of one tracked title.
type MediaEntry struct {
	Episodes uint64 // total episodes the remote knows about
	Progress uint64 // episodes the remote has confirmed watched
}
