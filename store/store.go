// Package store holds chat transcript persistence. The orchestrator only
// requires "accept an append of messages, keyed by chat id"; durability is a
// property of the chosen implementation, not of this contract.
package store

import (
	"fmt"
	"sync"

	"github.com/hupe1980/ragstream/core"
)

// ChatStore persists finalized chat transcripts keyed by chat id.
// Implementations must be safe for concurrent use.
type ChatStore interface {
	Append(chatID string, messages ...core.ChatMessage) error
	Get(chatID string) ([]core.ChatMessage, error)
}

// InMemoryStore is a volatile ChatStore keeping transcripts in a process
// local map. It is safe for concurrent access and best suited for tests or
// ephemeral demo servers. Returned slices are copies to prevent external
// mutation of internal state.
type InMemoryStore struct {
	mu    sync.RWMutex
	chats map[string][]core.ChatMessage
}

// NewInMemoryStore constructs an empty in-memory chat store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{chats: make(map[string][]core.ChatMessage)}
}

// Append adds messages to the transcript, creating it lazily.
func (s *InMemoryStore) Append(chatID string, messages ...core.ChatMessage) error {
	if chatID == "" {
		return fmt.Errorf("chat id must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chatID] = append(s.chats[chatID], messages...)
	return nil
}

// Get returns a copy of the transcript. A missing chat id yields an empty
// transcript, not an error.
func (s *InMemoryStore) Get(chatID string) ([]core.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.chats[chatID]
	out := make([]core.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}
