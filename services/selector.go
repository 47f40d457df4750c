package services

import (
	"context"
	"math/rand"
	"sync"

	"github.com/aiqalab/redteam-console/models"
)

// DefaultGreeting is sent when a client has no test cases configured, so the
// loop always has a prompt to send.
const DefaultGreeting = "Hello, I'd like to learn more about your products."

// PromptSelector chooses the next outbound prompt for one client. With
// random generation disabled it cycles round-robin through the pool without
// repetition, in stable insertion order; with it enabled it picks a random
// test case and asks the reply service to paraphrase it.
type PromptSelector struct {
	mu        sync.Mutex
	pool      []models.TestCase
	used      map[string]bool
	useRandom bool
	replies   ReplyProvider
	rng       *rand.Rand
}

// NewPromptSelector creates a selector over the given test-case pool.
func NewPromptSelector(pool []models.TestCase, useRandom bool, replies ReplyProvider, seed int64) *PromptSelector {
	return &PromptSelector{
		pool:      pool,
		used:      make(map[string]bool),
		useRandom: useRandom,
		replies:   replies,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// Next returns the next prompt and the ID of the test case it came from.
// The test-case ID is empty for the fallback greeting.
func (s *PromptSelector) Next(ctx context.Context) (prompt, testCaseID string) {
	s.mu.Lock()
	if len(s.pool) == 0 {
		s.mu.Unlock()
		return DefaultGreeting, ""
	}

	if s.useRandom {
		tc := s.pool[s.rng.Intn(len(s.pool))]
		s.mu.Unlock()
		// Paraphrase calls the upstream API; never hold the lock across it.
		if s.replies != nil {
			return s.replies.Paraphrase(ctx, tc), tc.ID
		}
		return tc.TestPrompt, tc.ID
	}

	tc := s.nextUnusedLocked()
	s.used[tc.ID] = true
	s.mu.Unlock()
	return tc.TestPrompt, tc.ID
}

// nextUnusedLocked returns the first test case not yet used in this cycle,
// restarting the cycle with a cleared history once the pool is exhausted.
func (s *PromptSelector) nextUnusedLocked() models.TestCase {
	for _, tc := range s.pool {
		if !s.used[tc.ID] {
			return tc
		}
	}
	s.used = make(map[string]bool)
	return s.pool[0]
}

// SetPool replaces the test-case pool, e.g. after a client edit. The usage
// history is kept for IDs that survive so an edit mid-cycle does not repeat
// prompts already sent.
func (s *PromptSelector) SetPool(pool []models.TestCase, useRandom bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	surviving := make(map[string]bool, len(s.used))
	for _, tc := range pool {
		if s.used[tc.ID] {
			surviving[tc.ID] = true
		}
	}
	s.pool = pool
	s.used = surviving
	s.useRandom = useRandom
}

// Reset clears the round-robin usage history.
func (s *PromptSelector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used = make(map[string]bool)
}
