// Copyright 2025-2026 Chatmirror

package bridge

import "sync"

// Snapshot caches the Slack channel ID to name mapping as it looked before
// the current event. Slack gives no way to recover a deleted channel's name
// after the fact, so the snapshot is refreshed on every event except the
// deletion itself and consulted only when handling a delete.
//
// The cache is overwritten wholesale on each refresh, never merged;
// single writer per session.
type Snapshot struct {
	mu       sync.Mutex
	channels map[string]string
}

// NewSnapshot returns an empty, unpopulated snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

// Refresh replaces the entire snapshot with the given ID-to-name mapping.
func (s *Snapshot) Refresh(channels []Channel) {
	next := make(map[string]string, len(channels))
	for _, ch := range channels {
		next[ch.ID] = ch.Name
	}
	s.mu.Lock()
	s.channels = next
	s.mu.Unlock()
}

// Name returns the last-known name for a channel ID. The second return is
// false both for unknown IDs and when the snapshot was never populated.
func (s *Snapshot) Name(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.channels == nil {
		return "", false
	}
	name, ok := s.channels[id]
	return name, ok
}

// Len reports how many channels the snapshot holds.
func (s *Snapshot) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.channels)
}

// Populated reports whether Refresh has ever run.
func (s *Snapshot) Populated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels != nil
}

// Drop removes a single entry, used after a deletion has been mirrored.
func (s *Snapshot) Drop(id string) {
	s.mu.Lock()
	delete(s.channels, id)
	s.mu.Unlock()
}

// Clear forgets everything, returning the snapshot to its unpopulated state.
func (s *Snapshot) Clear() {
	s.mu.Lock()
	s.channels = nil
	s.mu.Unlock()
}
