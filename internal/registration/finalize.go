package registration

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/observability"
	"github.com/robertarktes/event-registrations/internal/payment"
)

type FinalizeRequest struct {
	TicketID         string
	GatewayOrderID   string
	GatewayPaymentID string
	GatewaySignature string
	Registration     *domain.Attendee
}

type FinalizeResult struct {
	Created           bool
	AlreadyRegistered bool
	Registration      domain.Registration
}

// Finalize turns a signed checkout confirmation into a PAID registration.
// Repeated or concurrent calls for one ticket persist exactly one record; all
// but the first report AlreadyRegistered.
func (s *Service) Finalize(ctx context.Context, req FinalizeRequest) (FinalizeResult, error) {
	if req.TicketID == "" || req.GatewayOrderID == "" || req.GatewayPaymentID == "" || req.GatewaySignature == "" || req.Registration == nil {
		observability.FinalizeTotal.WithLabelValues("invalid").Inc()
		return FinalizeResult{}, domain.Validationf("Missing payment or registration details")
	}
	if a := req.Registration; strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.Email) == "" || strings.TrimSpace(a.Event) == "" {
		observability.FinalizeTotal.WithLabelValues("invalid").Inc()
		return FinalizeResult{}, domain.Validationf("eventData requires name, email and event")
	}

	if !payment.VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.GatewaySignature, s.secret) {
		observability.FinalizeTotal.WithLabelValues("invalid_signature").Inc()
		s.logger.WithField("ticket_id", req.TicketID).WithField("order_id", req.GatewayOrderID).Warn("payment signature mismatch")
		return FinalizeResult{}, domain.ErrSignatureInvalid
	}

	// The payer has been charged; finish even if the client goes away.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.finalizeTimeout)
	defer cancel()

	existing, err := s.store.FindByTicket(ctx, req.TicketID)
	if err == nil {
		observability.FinalizeTotal.WithLabelValues("already_registered").Inc()
		return FinalizeResult{AlreadyRegistered: true, Registration: existing}, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		observability.FinalizeTotal.WithLabelValues("error").Inc()
		return FinalizeResult{}, errors.Wrapf(err, "lookup ticket %s", req.TicketID)
	}

	reg := domain.NewRegistration(req.TicketID, *req.Registration, domain.StatusPaid, s.now())
	reg.PaymentID = req.GatewayPaymentID
	reg.EventID = req.GatewayOrderID

	if err := s.store.Create(ctx, reg); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			observability.FinalizeTotal.WithLabelValues("already_registered").Inc()
			s.logger.WithField("ticket_id", req.TicketID).Info("concurrent finalize lost the insert race")
			winner, ferr := s.store.FindByTicket(ctx, req.TicketID)
			if ferr != nil {
				winner = domain.Registration{TicketID: req.TicketID}
			}
			return FinalizeResult{AlreadyRegistered: true, Registration: winner}, nil
		}
		observability.FinalizeTotal.WithLabelValues("error").Inc()
		return FinalizeResult{}, errors.Wrapf(err, "create paid registration %s", req.TicketID)
	}

	observability.FinalizeTotal.WithLabelValues("created").Inc()
	s.logger.WithField("ticket_id", reg.TicketID).WithField("payment_id", reg.PaymentID).Info("registration finalized")
	s.export(reg)
	return FinalizeResult{Created: true, Registration: reg}, nil
}
