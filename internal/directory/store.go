package directory

import (
	"errors"
	"sort"
	"sync"

	"whatsapp-deposit-bot/internal/identity"
)

var (
	ErrNotFound     = errors.New("identity not registered")
	ErrProtected    = errors.New("identity is protected")
	ErrUnauthorized = errors.New("actor is not the super operator")
)

// Store keeps the known individual recipients, group recipients and privileged
// operators. The super operator is fixed at construction and can never be
// removed.
type Store struct {
	mu            sync.RWMutex
	superOperator string
	individuals   map[string]struct{}
	groups        map[string]struct{}
	operators     map[string]struct{}
}

func NewStore(superOperator string) *Store {
	return &Store{
		superOperator: superOperator,
		individuals:   make(map[string]struct{}),
		groups:        make(map[string]struct{}),
		operators:     map[string]struct{}{superOperator: {}},
	}
}

func (s *Store) SuperOperator() string {
	return s.superOperator
}

// AddIndividual canonicalizes raw and registers it as an individual recipient.
// Adding an already-registered identity is a no-op. Returns the canonical ID.
func (s *Store) AddIndividual(raw string) (string, error) {
	id, err := identity.Canonicalize(raw)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.individuals[id] = struct{}{}
	return id, nil
}

func (s *Store) RemoveIndividual(raw string) (string, error) {
	id, err := identity.Canonicalize(raw)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.individuals[id]; !ok {
		return "", ErrNotFound
	}
	delete(s.individuals, id)
	return id, nil
}

// AddGroup registers a group recipient. Group IDs are accepted as-is but must
// carry the group suffix.
func (s *Store) AddGroup(id string) (string, error) {
	if !identity.IsGroup(id) {
		return "", identity.ErrInvalidIdentity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[id] = struct{}{}
	return id, nil
}

func (s *Store) RemoveGroup(id string) (string, error) {
	if !identity.IsGroup(id) {
		return "", identity.ErrInvalidIdentity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return "", ErrNotFound
	}
	delete(s.groups, id)
	return id, nil
}

// AddOperator grants operator privileges. Only the super operator may call it.
func (s *Store) AddOperator(actor, raw string) (string, error) {
	if actor != s.superOperator {
		return "", ErrUnauthorized
	}
	id, err := identity.Canonicalize(raw)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.operators[id] = struct{}{}
	return id, nil
}

// RemoveOperator revokes operator privileges. The super operator can neither
// be removed nor remove itself.
func (s *Store) RemoveOperator(actor, raw string) (string, error) {
	if actor != s.superOperator {
		return "", ErrUnauthorized
	}
	id, err := identity.Canonicalize(raw)
	if err != nil {
		return "", err
	}
	if id == s.superOperator || id == actor {
		return "", ErrProtected
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.operators[id]; !ok {
		return "", ErrNotFound
	}
	delete(s.operators, id)
	return id, nil
}

func (s *Store) IsOperator(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.operators[id]
	return ok
}

func (s *Store) Individuals() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.individuals)
}

func (s *Store) Groups() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.groups)
}

func (s *Store) Operators() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.operators)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
