package channels

import (
	"sync"

	"github.com/nextlevelbuilder/mascot/internal/bus"
)

// History keeps a bounded ring of recent messages per channel so the brain
// gets conversational context without refetching from the platform.
type History struct {
	mu        sync.Mutex
	limit     int
	byChannel map[string][]bus.HistoryEntry
}

// NewHistory creates a history keeping at most limit entries per channel.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 10
	}
	return &History{
		limit:     limit,
		byChannel: make(map[string][]bus.HistoryEntry),
	}
}

// Record appends an entry, evicting the oldest when over the limit.
func (h *History) Record(channelID string, entry bus.HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := append(h.byChannel[channelID], entry)
	if len(entries) > h.limit {
		entries = entries[len(entries)-h.limit:]
	}
	h.byChannel[channelID] = entries
}

// Recent returns a copy of the channel's entries, oldest first.
func (h *History) Recent(channelID string) []bus.HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	entries := h.byChannel[channelID]
	if len(entries) == 0 {
		return nil
	}
	return append([]bus.HistoryEntry(nil), entries...)
}
