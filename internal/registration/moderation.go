package registration

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/event-registrations/internal/domain"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// SetStatus applies an admin decision on a manually reported payment.
func (s *Service) SetStatus(ctx context.Context, ticketID, action string) (domain.Registration, error) {
	if strings.TrimSpace(ticketID) == "" || action == "" {
		return domain.Registration{}, domain.Validationf("Missing ticketId or action")
	}

	var status string
	switch action {
	case ActionApprove:
		status = domain.StatusPaid
	case ActionReject:
		status = domain.StatusRejected
	default:
		return domain.Registration{}, domain.Validationf("unknown action %q", action)
	}

	reg, err := s.store.Update(ctx, ticketID, Update{PaymentStatus: status})
	if err != nil {
		return domain.Registration{}, err
	}
	s.record(ctx, "registration."+action, map[string]interface{}{"ticket_id": ticketID, "status": status})
	return reg, nil
}

func (s *Service) DeleteOne(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.Validationf("id is required")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, "registration.deleted", map[string]interface{}{"id": id})
	return nil
}

// DeleteAll purges every registration. Confirmation is the caller's concern.
func (s *Service) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteAll(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "purge registrations")
	}
	s.logger.WithField("deleted", n).Warn("all registrations purged")
	s.record(ctx, "registration.purged", map[string]interface{}{"deleted": n})
	return n, nil
}

const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 500
)

// AuditLog lists recent admin actions. Without an audit trail it is empty.
func (s *Service) AuditLog(ctx context.Context, limit int64) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = DefaultAuditLimit
	}
	if limit > MaxAuditLimit {
		limit = MaxAuditLimit
	}
	if s.audit == nil {
		return []domain.AuditEntry{}, nil
	}
	return s.audit.Recent(ctx, limit)
}
