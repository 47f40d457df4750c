package services

import "sync"

// SystemPromptStore holds the in-memory system prompt handed to the agent
// under test. Edits apply to the next exchange; restarts revert to the
// default.
type SystemPromptStore struct {
	mu     sync.RWMutex
	prompt string
}

// NewSystemPromptStore creates the store with an initial prompt.
func NewSystemPromptStore(initial string) *SystemPromptStore {
	return &SystemPromptStore{prompt: initial}
}

// Get returns the current prompt.
func (s *SystemPromptStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompt
}

// Set replaces the prompt.
func (s *SystemPromptStore) Set(prompt string) {
	s.mu.Lock()
	s.prompt = prompt
	s.mu.Unlock()
}
