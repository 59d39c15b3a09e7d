package registration

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/observability"
	"github.com/robertarktes/event-registrations/internal/payment"
)

const ticketIDAttempts = 3

// OrderGateway creates gateway orders for the browser checkout.
type OrderGateway interface {
	CreateOrder(ctx context.Context, req payment.OrderRequest) (payment.Order, error)
}

// HostedGateway drives a checkout completed on the gateway's own page.
type HostedGateway interface {
	Configured() bool
	CreatePaymentRequest(ctx context.Context, req payment.PaymentRequest) (payment.HostedPayment, error)
	PaymentStatus(ctx context.Context, requestID, paymentID string) (string, error)
}

type Deps struct {
	Store   Store
	Orders  OrderGateway
	Hosted  HostedGateway
	Exports Exporter
	Audit   AuditTrail
	Logger  observability.Logger

	// GatewaySecret is the shared secret checkout signatures are keyed with.
	GatewaySecret   string
	FinalizeTimeout time.Duration
	Now             func() time.Time
}

type Service struct {
	store           Store
	orders          OrderGateway
	hosted          HostedGateway
	exports         Exporter
	audit           AuditTrail
	logger          observability.Logger
	secret          string
	finalizeTimeout time.Duration
	now             func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		store:           d.Store,
		orders:          d.Orders,
		hosted:          d.Hosted,
		exports:         d.Exports,
		audit:           d.Audit,
		logger:          d.Logger,
		secret:          d.GatewaySecret,
		finalizeTimeout: d.FinalizeTimeout,
		now:             d.Now,
	}
	if s.logger == nil {
		s.logger = observability.NewNopLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.finalizeTimeout == 0 {
		s.finalizeTimeout = 15 * time.Second
	}
	return s
}

// Register stores a pending registration under a freshly generated ticket ID.
func (s *Service) Register(ctx context.Context, a domain.Attendee) (domain.Registration, error) {
	now := s.now()
	for attempt := 0; attempt < ticketIDAttempts; attempt++ {
		ticketID := domain.NewTicketID(now.Add(time.Duration(attempt) * time.Millisecond))
		reg := domain.NewRegistration(ticketID, a, domain.StatusPending, now)
		err := s.store.Create(ctx, reg)
		if err == nil {
			return reg, nil
		}
		if !errors.Is(err, domain.ErrDuplicateKey) {
			return domain.Registration{}, errors.Wrap(err, "create registration")
		}
		s.logger.WithField("ticket_id", ticketID).Warn("ticket id collision, regenerating")
	}
	return domain.Registration{}, errors.Mark(errors.New("could not allocate a unique ticket id"), domain.ErrUpstream)
}

func (s *Service) Ticket(ctx context.Context, ticketID string) (domain.Registration, error) {
	if strings.TrimSpace(ticketID) == "" {
		return domain.Registration{}, domain.Validationf("ticketId is required")
	}
	return s.store.FindByTicket(ctx, ticketID)
}

func (s *Service) TicketsByEmail(ctx context.Context, email string) ([]domain.Registration, error) {
	if strings.TrimSpace(email) == "" {
		return nil, domain.Validationf("Email required")
	}
	return s.store.FindByEmail(ctx, email)
}

func (s *Service) List(ctx context.Context) ([]domain.Registration, error) {
	return s.store.List(ctx)
}

func (s *Service) export(reg domain.Registration) {
	if s.exports == nil {
		return
	}
	if !s.exports.Enqueue(reg) {
		s.logger.WithField("ticket_id", reg.TicketID).Warn("export queue full, dropping registration")
	}
}

func (s *Service) record(ctx context.Context, action string, data map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, action, actorFrom(ctx), data); err != nil {
		s.logger.WithError(err).WithField("action", action).Warn("audit record failed")
	}
}
