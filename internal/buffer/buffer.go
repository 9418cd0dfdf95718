package buffer

import "sync"

// Store holds the recent messages of each user between the start of a
// classification cycle and its completion. Buffers are bounded: once a user
// has capacity messages pending, further messages are dropped until the
// buffer is cleared.
type Store struct {
	capacity int

	mu      sync.Mutex
	buffers map[string][]string
}

// New creates a store whose per-user buffers hold at most capacity messages.
func New(capacity int) *Store {
	return &Store{
		capacity: capacity,
		buffers:  make(map[string][]string),
	}
}

// Append adds text to user's buffer, creating the buffer on first use.
// Messages beyond capacity are silently dropped. Returns the buffer length
// after the append.
func (s *Store) Append(user, text string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf := s.buffers[user]
	if len(buf) < s.capacity {
		buf = append(buf, text)
		s.buffers[user] = buf
	}
	return len(buf)
}

// Messages returns a snapshot of user's buffer, or nil if none exists.
func (s *Store) Messages(user string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	buf, ok := s.buffers[user]
	if !ok {
		return nil
	}
	out := make([]string, len(buf))
	copy(out, buf)
	return out
}

// Clear removes user's buffer entirely. Clearing an absent user is a no-op.
func (s *Store) Clear(user string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buffers, user)
}

// Len returns the current buffer length for user, 0 if absent.
func (s *Store) Len(user string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buffers[user])
}
