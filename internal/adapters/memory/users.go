package memory

import (
	"context"
	"sync"

	"github.com/robertarktes/event-registrations/internal/auth"
	"github.com/robertarktes/event-registrations/internal/domain"
)

type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
	}
}

func (s *UserStore) CreateUser(ctx context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return domain.ErrDuplicateKey
	}
	s.byID[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *UserStore) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *UserStore) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u, nil
}

func (s *UserStore) UpdateUser(ctx context.Context, email string, upd auth.UserUpdate) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[email]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	u := s.byID[id]
	if upd.PasswordHash != "" {
		u.PasswordHash = upd.PasswordHash
	}
	if upd.Role != "" {
		u.Role = upd.Role
	}
	if upd.Name != "" {
		u.Name = upd.Name
	}
	s.byID[id] = u
	return u, nil
}

// DeleteUser removes an account; tokens issued to it stop authenticating.
func (s *UserStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byEmail, u.Email)
	return nil
}
