package sessionclient

import "sync"

// State is the access token shared by every request of one client. Pass the
// same State to everything that must see token updates.
//
// The generation counts ended sessions. A request remembers the generation it
// was sent under, so a late 401 can tell its session already ended.
type State struct {
	mu          sync.RWMutex
	accessToken string
	generation  uint64
	ended       bool
}

// snapshot is what a request was sent with.
type snapshot struct {
	accessToken string
	generation  uint64
}

func (s *State) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// SetAccessToken stores a token from login or refresh and starts accepting
// refreshes again.
func (s *State) SetAccessToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = token
	s.ended = false
}

// Clear forgets the access token, e.g. after logout.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
}

// Ended reports whether the last refresh failed and no login happened since.
func (s *State) Ended() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ended
}

func (s *State) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshot{accessToken: s.accessToken, generation: s.generation}
}

func (s *State) endSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.generation++
	s.ended = true
}

// newerThan returns the token to retry a request sent with sent. It returns
// ErrSessionEnded when the session ended after (or before) sending, and ""
// when a refresh is needed.
func (s *State) newerThan(sent snapshot) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ended || s.generation != sent.generation {
		return "", ErrSessionEnded
	}
	if s.accessToken != "" && s.accessToken != sent.accessToken {
		return s.accessToken, nil
	}
	return "", nil
}
