// Package session owns the operator's credential, profile and instance
// list. All mutation goes through the named operations here; nothing
// else in the console touches this state directly.
package session

import (
	"log"
	"sync"

	"github.com/arcletproject/entari-console/internal/instance"
)

// UserProfile identifies the authenticated operator.
type UserProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Snapshot is the durable projection of the store: exactly the fields
// that survive a restart.
type Snapshot struct {
	Token     string              `json:"token"`
	User      *UserProfile        `json:"user"`
	Instances []instance.Instance `json:"instances"`
}

// Persister stores and restores the durable session projection.
type Persister interface {
	SaveSession(snap Snapshot) error
	LoadSession() (Snapshot, bool, error)
}

// Store holds session state in memory and mirrors every mutation to the
// persister. An empty token means unauthenticated.
type Store struct {
	mu        sync.RWMutex
	token     string
	user      *UserProfile
	instances []instance.Instance
	persist   Persister
}

// New builds a store, restoring any persisted session synchronously
// before the store becomes observable. persist may be nil for a purely
// in-memory store.
func New(persist Persister) (*Store, error) {
	s := &Store{persist: persist}
	if persist == nil {
		return s, nil
	}
	snap, ok, err := persist.LoadSession()
	if err != nil {
		return nil, err
	}
	if ok {
		s.token = snap.Token
		s.user = snap.User
		s.instances = snap.Instances
	}
	return s, nil
}

// Token returns the current credential. Implements the request
// pipeline's token source; read at send time, never captured.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the authenticated profile, if any.
func (s *Store) User() (UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return UserProfile{}, false
	}
	return *s.user, true
}

// Instances returns a copy of the canonical instance list.
func (s *Store) Instances() []instance.Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneList(s.instances)
}

// SetAuthData atomically replaces credential, profile and instance list.
// Called once per successful login; overwrites any prior session.
func (s *Store) SetAuthData(token string, user UserProfile, instances []instance.Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	u := user
	s.user = &u
	s.instances = cloneList(instances)
	s.persistLocked()
}

// Logout clears credential, profile and instances. Idempotent.
func (s *Store) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
	s.instances = nil
	s.persistLocked()
}

// SetInstances replaces the instance list wholesale.
func (s *Store) SetInstances(list []instance.Instance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances = cloneList(list)
	s.persistLocked()
}

// AddInstance merges a partial server record into the canonical list and
// returns the merged entry. The merge runs on one atomic snapshot;
// concurrent calls serialize here.
func (s *Store) AddInstance(p instance.Partial) (instance.Instance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged, err := instance.Merge(s.instances, p)
	if err != nil {
		return instance.Instance{}, err
	}
	s.instances = merged
	s.persistLocked()

	for _, ins := range merged {
		if p.ID != nil && ins.ID == *p.ID {
			return ins.Clone(), nil
		}
	}
	return instance.Instance{}, nil // unreachable: Merge guarantees the id exists
}

// RemoveInstance deletes the entry with the given id, reporting whether
// it was present.
func (s *Store) RemoveInstance(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.instances {
		if s.instances[i].ID == id {
			s.instances = append(s.instances[:i:i], s.instances[i+1:]...)
			s.persistLocked()
			return true
		}
	}
	return false
}

// persistLocked mirrors the current state to durable storage. Failures
// are logged, not propagated: in-memory state is already updated and the
// next mutation retries the write.
func (s *Store) persistLocked() {
	if s.persist == nil {
		return
	}
	snap := Snapshot{
		Token:     s.token,
		User:      s.user,
		Instances: cloneList(s.instances),
	}
	if err := s.persist.SaveSession(snap); err != nil {
		log.Printf("[Session] persist failed: %v", err)
	}
}

func cloneList(list []instance.Instance) []instance.Instance {
	if list == nil {
		return nil
	}
	out := make([]instance.Instance, len(list))
	for i := range list {
		out[i] = list[i].Clone()
	}
	return out
}
