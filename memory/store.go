// Package memory keeps the conversational memory of the relay: the last
// model response of every chat, and nothing older.
package memory

import "sync"

// Store holds one slot per chat. A slot is either empty or the most recent
// response produced for that chat; writes are last-write-wins.
type Store struct {
	mu   sync.Mutex
	last map[int64]string
}

func NewStore() *Store {
	return &Store{
		last: make(map[int64]string),
	}
}

// Get returns the stored response for the chat, or "" when there is none.
func (s *Store) Get(chatID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[chatID]
}

// Set overwrites the chat's slot.
func (s *Store) Set(chatID int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if text == "" {
		delete(s.last, chatID)
		return
	}
	s.last[chatID] = text
}

// Reset empties the chat's slot.
func (s *Store) Reset(chatID int64) {
	s.mu.Lock()
	delete(s.last, chatID)
	s.mu.Unlock()
}

// Len reports how many chats currently hold a response.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.last)
}
