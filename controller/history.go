package controller

import (
	"sync"
	"time"
)

const defaultHistorySize = 50

type PlayHistoryEntry struct {
	RequestID string
	Action    Action
	Tracks    int
	PlayedAt  time.Time
}

// PlayHistory is a fixed-size ring of the latest successful requests.
type PlayHistory struct {
	mutex   sync.Mutex
	entries []PlayHistoryEntry
	next    int
	full    bool
}

func NewPlayHistory(size int) *PlayHistory {
	if size < 1 {
		size = 1
	}
	return &PlayHistory{entries: make([]PlayHistoryEntry, size)}
}

func (h *PlayHistory) Add(entry PlayHistoryEntry) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.entries[h.next] = entry
	h.next = (h.next + 1) % len(h.entries)
	if h.next == 0 {
		h.full = true
	}
}

func (h *PlayHistory) Len() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.lenLocked()
}

func (h *PlayHistory) lenLocked() int {
	if h.full {
		return len(h.entries)
	}
	return h.next
}

// GetRecent returns up to n entries, oldest first.
func (h *PlayHistory) GetRecent(n int) []PlayHistoryEntry {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	count := h.lenLocked()
	if n <= 0 || n > count {
		n = count
	}
	out := make([]PlayHistoryEntry, 0, n)
	start := h.next - n
	if start < 0 {
		start += len(h.entries)
	}
	for i := 0; i < n; i++ {
		out = append(out, h.entries[(start+i)%len(h.entries)])
	}
	return out
}
