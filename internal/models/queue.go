package models

// QueueKindLog marks a pending log save.
const QueueKindLog = "log"

// SyncQueueItem is a write that has not yet been confirmed by the remote
// store. ID is the local sequence and defines FIFO order.
type SyncQueueItem struct {
	ID         int64    `json:"id"`
	Kind       string   `json:"kind"`
	UserID     string   `json:"userId"`
	Payload    LogEntry `json:"payload"`
	EnqueuedAt int64    `json:"enqueuedAt"`
	Attempts   int      `json:"attempts"`
	LastError  string   `json:"lastError,omitempty"`
}
