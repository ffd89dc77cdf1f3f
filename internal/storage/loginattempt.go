package storage

import (
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const (
	maxLoginAttemptKeys = 10000
)

// LoginAttemptStorage counts unsuccessful logins per identifier inside a
// sliding window. Entries disappear on their own once the window passes.
type LoginAttemptStorage struct {
	cache  *ristretto.Cache[string, int]
	window time.Duration

	// ristretto Get+Set is not atomic.
	mu sync.Mutex
}

func NewLoginAttemptStorage(window time.Duration) *LoginAttemptStorage {
	c, err := ristretto.NewCache(&ristretto.Config[string, int]{
		NumCounters: maxLoginAttemptKeys * 10,
		MaxCost:     maxLoginAttemptKeys,
		BufferItems: 64,
	})

	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create login attempt storage")
	}

	return &LoginAttemptStorage{
		cache:  c,
		window: window,
	}
}

func (s *LoginAttemptStorage) Failures(key string) int {
	n, _ := s.cache.Get(key)
	return n
}

// Attempt counts a login attempt for key unless limit attempts were already
// counted in the window. It returns the count and whether the attempt may
// proceed. Each counted attempt restarts the window; a successful login
// calls Reset.
func (s *LoginAttemptStorage) Attempt(key string, limit int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, _ := s.cache.Get(key)
	if n >= limit {
		return n, false
	}
	n++
	s.cache.SetWithTTL(key, n, 1, s.window)
	s.cache.Wait()
	return n, true
}

func (s *LoginAttemptStorage) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Del(key)
	s.cache.Wait()
}
