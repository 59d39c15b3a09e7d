package registration

import (
	"context"

	"github.com/robertarktes/event-registrations/internal/domain"
)

// Store persists registrations. Implementations must enforce uniqueness of
// TicketID and report a colliding Create as domain.ErrDuplicateKey.
type Store interface {
	Create(ctx context.Context, reg domain.Registration) error
	FindByTicket(ctx context.Context, ticketID string) (domain.Registration, error)
	// FindByEmail returns the registrations for email, newest first.
	FindByEmail(ctx context.Context, email string) ([]domain.Registration, error)
	// Update applies the non-empty fields of upd and returns the updated record.
	Update(ctx context.Context, ticketID string, upd Update) (domain.Registration, error)
	// Delete removes the registration whose ID or TicketID equals key.
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context) (int64, error)
	// List returns every registration, newest first.
	List(ctx context.Context) ([]domain.Registration, error)
}

// Update is a partial change to the payment fields of a registration.
type Update struct {
	PaymentStatus string
	PaymentID     string
	EventID       string
}

// Exporter receives registrations that became PAID. Enqueue must not block.
type Exporter interface {
	Enqueue(reg domain.Registration) bool
}

// AuditTrail records privileged actions.
type AuditTrail interface {
	Record(ctx context.Context, action, actor string, data map[string]interface{}) error
	// Recent returns at most limit entries, newest first.
	Recent(ctx context.Context, limit int64) ([]domain.AuditEntry, error)
}

type actorKey struct{}

// WithActor attaches the acting principal's identity for the audit trail.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context) string {
	if a, ok := ctx.Value(actorKey{}).(string); ok {
		return a
	}
	return "unknown"
}
