package registration

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/observability"
	"github.com/robertarktes/event-registrations/internal/payment"
)

// CreateOrder opens a gateway order for ticketID priced by purchaseType.
// Nothing is stored locally.
func (s *Service) CreateOrder(ctx context.Context, ticketID, purchaseType string) (payment.Order, error) {
	if strings.TrimSpace(ticketID) == "" {
		return payment.Order{}, domain.Validationf("ticketId is required")
	}

	req := payment.OrderRequest{
		Amount:         payment.MinorUnits(payment.AmountFor(purchaseType)),
		Currency:       payment.CurrencyINR,
		Receipt:        ticketID,
		PaymentCapture: 1,
	}
	order, err := s.orders.CreateOrder(ctx, req)
	if err != nil {
		observability.GatewayFailures.WithLabelValues("razorpay", "create_order").Inc()
		s.logger.WithError(err).WithField("ticket_id", ticketID).Error("gateway order creation failed")
		return payment.Order{}, domain.OrderCreationFailed(err)
	}
	return order, nil
}

// StartHostedCheckout records a gateway-pending registration and opens a
// payment request the buyer completes on the gateway's page.
func (s *Service) StartHostedCheckout(ctx context.Context, ticketID string, a *domain.Attendee, redirectURL string) (payment.HostedPayment, error) {
	if strings.TrimSpace(ticketID) == "" || a == nil {
		return payment.HostedPayment{}, domain.Validationf("ticketId and eventData are required")
	}
	if s.hosted == nil || !s.hosted.Configured() {
		return payment.HostedPayment{}, errors.Mark(errors.New("hosted checkout is not configured"), domain.ErrUpstream)
	}

	existing, err := s.store.FindByTicket(ctx, ticketID)
	switch {
	case err == nil && !domain.IsPending(existing.PaymentStatus):
		return payment.HostedPayment{}, errors.Mark(errors.Newf("ticket %s is already %s", ticketID, existing.PaymentStatus), domain.ErrConflict)
	case errors.Is(err, domain.ErrNotFound):
		reg := domain.NewRegistration(ticketID, *a, domain.GatewayPendingStatus(payment.InstamojoGateway), s.now())
		if err := s.store.Create(ctx, reg); err != nil && !errors.Is(err, domain.ErrDuplicateKey) {
			return payment.HostedPayment{}, errors.Wrap(err, "create pending registration")
		}
	case err != nil:
		return payment.HostedPayment{}, errors.Wrap(err, "lookup ticket")
	}

	hp, err := s.hosted.CreatePaymentRequest(ctx, payment.PaymentRequest{
		Purpose:     fmt.Sprintf("Event Registration: %s", a.Event),
		Amount:      payment.HostedCheckoutAmount(),
		BuyerName:   a.Name,
		Email:       a.Email,
		Phone:       a.Phone,
		RedirectURL: redirectURL,
	})
	if err != nil {
		observability.GatewayFailures.WithLabelValues(payment.InstamojoGateway, "create_payment").Inc()
		return payment.HostedPayment{}, domain.Upstream(err, "payment creation failed")
	}

	if _, err := s.store.Update(ctx, ticketID, Update{EventID: hp.ID}); err != nil {
		return payment.HostedPayment{}, errors.Wrap(err, "store payment request id")
	}
	return hp, nil
}

// CompleteHostedCheckout confirms a hosted payment with the gateway and marks
// the registration PAID. It reports false when the payment is not credited,
// the ticket is unknown or no longer pending, or the payment request was not
// the one opened for this ticket.
func (s *Service) CompleteHostedCheckout(ctx context.Context, ticketID, requestID, paymentID string) (domain.Registration, bool, error) {
	if ticketID == "" || requestID == "" || paymentID == "" || s.hosted == nil {
		return domain.Registration{}, false, nil
	}

	pending, err := s.store.FindByTicket(ctx, ticketID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Registration{}, false, nil
	}
	if err != nil {
		return domain.Registration{}, false, errors.Wrap(err, "lookup ticket")
	}
	if pending.EventID != requestID || !domain.IsPending(pending.PaymentStatus) {
		s.logger.WithField("ticket_id", ticketID).WithField("payment_request_id", requestID).Warn("hosted checkout callback does not match a pending payment request")
		return domain.Registration{}, false, nil
	}

	status, err := s.hosted.PaymentStatus(ctx, requestID, paymentID)
	if err != nil {
		observability.GatewayFailures.WithLabelValues(payment.InstamojoGateway, "payment_status").Inc()
		return domain.Registration{}, false, domain.Upstream(err, "payment verification")
	}
	if status != payment.PaymentCredited {
		return domain.Registration{}, false, nil
	}

	reg, err := s.store.Update(ctx, ticketID, Update{PaymentStatus: domain.StatusPaid, PaymentID: paymentID})
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Registration{}, false, nil
	}
	if err != nil {
		return domain.Registration{}, false, errors.Wrap(err, "mark hosted checkout paid")
	}
	s.export(reg)
	return reg, true, nil
}
