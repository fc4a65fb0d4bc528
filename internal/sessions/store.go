package sessions

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lotpulse/pkg/contracts/domain"
)

var (
	// ErrNotFound is returned for unknown or expired session IDs.
	ErrNotFound = errors.New("session not found")
	// ErrStoreFull is returned by Create when MaxSessions live sessions exist.
	ErrStoreFull = errors.New("session store full")
)

// Upload is a loaded file ready to be attached to a session.
type Upload struct {
	FileName       string
	Format         string
	Fingerprint    string
	Size           int
	Table          *domain.OrderTable
	Issues         []domain.FieldIssue
	MissingColumns []string
}

// Session is a snapshot of one session. Table is shared and must be
// treated as read-only.
type Session struct {
	ID         string
	Upload     Upload
	CreatedAt  time.Time
	UpdatedAt  time.Time
	LastAccess time.Time
}

// Store is implemented by MemoryStore.
type Store interface {
	Create(upload Upload) (*Session, error)
	Get(id string) (*Session, error)
	Replace(id string, upload Upload) (*Session, error)
	Delete(id string) error
	List() []*Session
	Sweep(now time.Time) int
	Len() int
}

// Options configures a MemoryStore.
type Options struct {
	// TTL is the idle time after which Sweep removes a session. Zero disables expiry.
	TTL time.Duration
	// MaxSessions caps the number of live sessions. Zero means unlimited.
	MaxSessions int
	// Now overrides the clock used for timestamps.
	Now func() time.Time
}

// MemoryStore is an in-memory implementation of Store
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	max      int
	now      func() time.Time
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore(opts Options) *MemoryStore {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		sessions: make(map[string]*Session),
		ttl:      opts.TTL,
		max:      opts.MaxSessions,
		now:      now,
	}
}

// Create stores upload under a new session ID. Expired sessions are
// evicted first when the store is at capacity.
func (s *MemoryStore) Create(upload Upload) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.max > 0 && len(s.sessions) >= s.max {
		s.sweepLocked(now)
		if len(s.sessions) >= s.max {
			return nil, ErrStoreFull
		}
	}

	session := &Session{
		ID:         uuid.NewString(),
		Upload:     upload,
		CreatedAt:  now,
		UpdatedAt:  now,
		LastAccess: now,
	}
	s.sessions[session.ID] = session
	return copySession(session), nil
}

// Get returns the session and marks it as used.
func (s *MemoryStore) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.live(id)
	if !ok {
		return nil, ErrNotFound
	}
	session.LastAccess = s.now()
	return copySession(session), nil
}

// Replace swaps the upload of an existing session.
func (s *MemoryStore) Replace(id string, upload Upload) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.live(id)
	if !ok {
		return nil, ErrNotFound
	}
	now := s.now()
	session.Upload = upload
	session.UpdatedAt = now
	session.LastAccess = now
	return copySession(session), nil
}

// Delete removes a session.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// List returns all sessions ordered by creation time, oldest first.
// Listing does not count as use.
func (s *MemoryStore) List() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		result = append(result, copySession(session))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// Sweep removes sessions idle for longer than the TTL and returns how many were removed.
func (s *MemoryStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(now)
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}
	removed := 0
	for id, session := range s.sessions {
		if s.expired(session, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// live returns a session that has not expired yet. Expired sessions are
// dropped on access so a late sweep cannot resurrect them.
func (s *MemoryStore) live(id string) (*Session, bool) {
	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	if s.expired(session, s.now()) {
		delete(s.sessions, id)
		return nil, false
	}
	return session, true
}

func (s *MemoryStore) expired(session *Session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(session.LastAccess) > s.ttl
}

func copySession(session *Session) *Session {
	c := *session
	if session.Upload.Issues != nil {
		c.Upload.Issues = make([]domain.FieldIssue, len(session.Upload.Issues))
		copy(c.Upload.Issues, session.Upload.Issues)
	}
	if session.Upload.MissingColumns != nil {
		c.Upload.MissingColumns = make([]string, len(session.Upload.MissingColumns))
		copy(c.Upload.MissingColumns, session.Upload.MissingColumns)
	}
	return &c
}
