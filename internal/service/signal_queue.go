package service

import (
	"sync"

	"breakretest-go/internal/model"
)

// SignalQueue is a per-user mailbox of freshly stored signals. Entries are
// consumed exactly once: Take returns and clears a user's queue atomically.
type SignalQueue struct {
	mu      sync.Mutex
	entries map[int64][]model.QueueEntry
}

func NewSignalQueue() *SignalQueue {
	return &SignalQueue{
		entries: make(map[int64][]model.QueueEntry),
	}
}

// Push appends entries to the user's queue
func (q *SignalQueue) Push(userID int64, entries ...model.QueueEntry) {
	if len(entries) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries[userID] = append(q.entries[userID], entries...)
}

// Take pops every pending entry for the user. The queue is empty afterwards.
func (q *SignalQueue) Take(userID int64) []model.QueueEntry {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries := q.entries[userID]
	delete(q.entries, userID)
	if entries == nil {
		return []model.QueueEntry{}
	}
	return entries
}

// Len returns the number of pending entries for the user
func (q *SignalQueue) Len(userID int64) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries[userID])
}
