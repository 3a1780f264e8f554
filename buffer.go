package lokiship

import (
	"sync"
)

// entryBuffer accumulates entries between flushes. It is the only mutable
// state shared between concurrent logging call-sites.
type entryBuffer struct {
	mu      sync.Mutex
	entries []LogEntry
}

// append pushes one entry and returns the resulting length.
func (b *entryBuffer) append(entry LogEntry) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, entry)
	return len(b.entries)
}

// drain takes ownership of all buffered entries and resets the buffer.
// Entries appended after drain acquires the lock land in the fresh slice.
func (b *entryBuffer) drain() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	batch := b.entries
	b.entries = nil
	return batch
}

func (b *entryBuffer) size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
