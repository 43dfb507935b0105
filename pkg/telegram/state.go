package telegram

import (
	"sync"

	"saypay/pkg/pipeline"
)

// StateManager keeps the in-flight pipeline session per telegram user.
type StateManager struct {
	mu       sync.RWMutex
	sessions map[int64]*pipeline.Session
}

// NewStateManager creates a new state manager
func NewStateManager() *StateManager {
	return &StateManager{
		sessions: make(map[int64]*pipeline.Session),
	}
}

// Session returns the pending session for a user or nil.
func (sm *StateManager) Session(telegramUserID int64) *pipeline.Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.sessions[telegramUserID]
}

// SetSession stores a pending session for a user.
func (sm *StateManager) SetSession(telegramUserID int64, s *pipeline.Session) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	sm.sessions[telegramUserID] = s
}

// Clear drops the pending session for a user.
func (sm *StateManager) Clear(telegramUserID int64) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	delete(sm.sessions, telegramUserID)
}
