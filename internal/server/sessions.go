package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"mindloom/internal/conversation"
	"mindloom/internal/roadmap"
)

// maxSessionsPerKind bounds in-memory state; when the cap is hit the oldest
// session is evicted. Conversations and roadmaps live only for the browser
// session that created them, so eviction of stale entries is harmless.
const maxSessionsPerKind = 1024

type conversationSession struct {
	ID        string
	Locale    string
	Conv      *conversation.Conversation
	CreatedAt time.Time
}

type roadmapSession struct {
	ID        string
	Engine    *roadmap.Engine
	CreatedAt time.Time
}

type sessionRegistry struct {
	mu            sync.Mutex
	conversations map[string]*conversationSession
	roadmaps      map[string]*roadmapSession
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		conversations: make(map[string]*conversationSession),
		roadmaps:      make(map[string]*roadmapSession),
	}
}

func (r *sessionRegistry) createConversation(locale string) *conversationSession {
	session := &conversationSession{
		ID:        uuid.NewString(),
		Locale:    locale,
		Conv:      conversation.New(),
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.conversations) >= maxSessionsPerKind {
		evictOldestConversation(r.conversations)
	}
	r.conversations[session.ID] = session
	return session
}

func (r *sessionRegistry) conversation(id string) (*conversationSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.conversations[id]
	return session, ok
}

func (r *sessionRegistry) createRoadmap(engine *roadmap.Engine) *roadmapSession {
	session := &roadmapSession{
		ID:        uuid.NewString(),
		Engine:    engine,
		CreatedAt: time.Now().UTC(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.roadmaps) >= maxSessionsPerKind {
		evictOldestRoadmap(r.roadmaps)
	}
	r.roadmaps[session.ID] = session
	return session
}

func (r *sessionRegistry) roadmap(id string) (*roadmapSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.roadmaps[id]
	return session, ok
}

func evictOldestConversation(sessions map[string]*conversationSession) {
	oldestID := ""
	var oldestAt time.Time
	for id, session := range sessions {
		if oldestID == "" || session.CreatedAt.Before(oldestAt) {
			oldestID = id
			oldestAt = session.CreatedAt
		}
	}
	if oldestID != "" {
		delete(sessions, oldestID)
	}
}

func evictOldestRoadmap(sessions map[string]*roadmapSession) {
	oldestID := ""
	var oldestAt time.Time
	for id, session := range sessions {
		if oldestID == "" || session.CreatedAt.Before(oldestAt) {
			oldestID = id
			oldestAt = session.CreatedAt
		}
	}
	if oldestID != "" {
		delete(sessions, oldestID)
	}
}
