package dialog

import "sync"

// SessionStore keeps dialog sessions in memory. Get, Put and Remove are safe
// for concurrent use and never wait on another user's handling; Lock
// serializes the handling of one user's updates.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session

	locksMu sync.Mutex
	locks   map[int64]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]Session),
		locks:    make(map[int64]*userLock),
	}
}

// Get returns the session of userID and whether one exists.
func (s *SessionStore) Get(userID int64) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

// Put replaces the session of userID.
func (s *SessionStore) Put(userID int64, session Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = session
}

// Remove drops the session of userID, if any.
func (s *SessionStore) Remove(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len returns the number of active sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Lock blocks until the caller holds userID's lock and returns the function
// that releases it. Lock entries are dropped once nobody holds or waits on them.
func (s *SessionStore) Lock(userID int64) func() {
	s.locksMu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			s.locksMu.Lock()
			l.refs--
			if l.refs == 0 {
				delete(s.locks, userID)
			}
			s.locksMu.Unlock()
		})
	}
}

func (s *SessionStore) lockCount() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}
