// Package memory keeps registrations and accounts in process memory. It
// enforces the same uniqueness rules as the database adapters and backs
// local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/registration"
)

type RegistrationStore struct {
	mu       sync.RWMutex
	order    []string
	byID     map[string]domain.Registration
	byTicket map[string]string
}

func NewRegistrationStore() *RegistrationStore {
	return &RegistrationStore{
		byID:     make(map[string]domain.Registration),
		byTicket: make(map[string]string),
	}
}

func (s *RegistrationStore) Create(ctx context.Context, reg domain.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byTicket[reg.TicketID]; ok {
		return domain.ErrDuplicateKey
	}
	if _, ok := s.byID[reg.ID]; ok {
		return domain.ErrDuplicateKey
	}
	s.byID[reg.ID] = reg
	s.byTicket[reg.TicketID] = reg.ID
	s.order = append(s.order, reg.ID)
	return nil
}

func (s *RegistrationStore) FindByTicket(ctx context.Context, ticketID string) (domain.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byTicket[ticketID]
	if !ok {
		return domain.Registration{}, domain.ErrNotFound
	}
	return s.byID[id], nil
}

func (s *RegistrationStore) FindByEmail(ctx context.Context, email string) ([]domain.Registration, error) {
	return s.filter(func(r domain.Registration) bool { return r.Email == email }), nil
}

func (s *RegistrationStore) Update(ctx context.Context, ticketID string, upd registration.Update) (domain.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byTicket[ticketID]
	if !ok {
		return domain.Registration{}, domain.ErrNotFound
	}
	reg := s.byID[id]
	if upd.PaymentStatus != "" {
		reg.PaymentStatus = upd.PaymentStatus
	}
	if upd.PaymentID != "" {
		reg.PaymentID = upd.PaymentID
	}
	if upd.EventID != "" {
		reg.EventID = upd.EventID
	}
	s.byID[id] = reg
	return reg, nil
}

func (s *RegistrationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if byTicket, ok := s.byTicket[id]; ok {
		if _, isID := s.byID[id]; !isID {
			id = byTicket
		}
	}
	reg, ok := s.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	delete(s.byTicket, reg.TicketID)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *RegistrationStore) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.byID))
	s.byID = make(map[string]domain.Registration)
	s.byTicket = make(map[string]string)
	s.order = nil
	return n, nil
}

func (s *RegistrationStore) List(ctx context.Context) ([]domain.Registration, error) {
	return s.filter(func(domain.Registration) bool { return true }), nil
}

// filter returns matches newest first; equal dates keep the latest insert first.
func (s *RegistrationStore) filter(keep func(domain.Registration) bool) []domain.Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Registration, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		if reg := s.byID[s.order[i]]; keep(reg) {
			out = append(out, reg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out
}
