package leaderboard

// Snapshot is the full broadcastable state: every user in rank order plus
// the most recent claims. Every connected viewer receives the identical
// snapshot; there is no per-viewer filtering and no diffing.
type Snapshot struct {
	Users   []User
	History []ClaimHistoryEntry
}

// SnapshotHistoryLimit caps the history slice carried by a snapshot.
const SnapshotHistoryLimit = 10
