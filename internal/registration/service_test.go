package registration_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/event-registrations/internal/adapters/memory"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/payment"
	"github.com/robertarktes/event-registrations/internal/registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRegister_AssignsTicketID(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRegistrationStore()
	svc := registration.NewService(registration.Deps{Store: store, Now: func() time.Time { return fixedNow }})

	first, err := svc.Register(ctx, domain.Attendee{Name: "Asha", Email: "asha@example.com", Event: "ALGO MASTERS"})
	require.NoError(t, err)
	assert.Equal(t, domain.NewTicketID(fixedNow), first.TicketID)
	assert.Equal(t, domain.StatusPending, first.PaymentStatus)

	// same clock reading: the generated ID collides and is regenerated
	second, err := svc.Register(ctx, domain.Attendee{Name: "Ravi", Email: "ravi@example.com", Event: "ALGO MASTERS"})
	require.NoError(t, err)
	assert.NotEqual(t, first.TicketID, second.TicketID)

	got, err := svc.Ticket(ctx, first.TicketID)
	require.NoError(t, err)
	assert.Equal(t, first, got)
}

func TestTicketsByEmail(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRegistrationStore()
	svc := registration.NewService(registration.Deps{Store: store})

	_, err := svc.TicketsByEmail(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	old := domain.NewRegistration("VTX-1", domain.Attendee{Email: "a@example.com"}, domain.StatusPaid, fixedNow)
	recent := domain.NewRegistration("VTX-2", domain.Attendee{Email: "a@example.com"}, domain.StatusPaid, fixedNow.Add(time.Hour))
	require.NoError(t, store.Create(ctx, old))
	require.NoError(t, store.Create(ctx, recent))

	tickets, err := svc.TicketsByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, "VTX-2", tickets[0].TicketID)
}

func TestCreateOrder_AmountTable(t *testing.T) {
	ctx := context.Background()
	orders := &mockOrders{}
	svc := registration.NewService(registration.Deps{Store: memory.NewRegistrationStore(), Orders: orders})

	orders.On("CreateOrder", mock.Anything, payment.OrderRequest{Amount: 100, Currency: "INR", Receipt: "VTX-1", PaymentCapture: 1}).
		Return(payment.Order{ID: "order_event", Amount: 100}, nil).Once()
	orders.On("CreateOrder", mock.Anything, payment.OrderRequest{Amount: 59000, Currency: "INR", Receipt: "VTX-2", PaymentCapture: 1}).
		Return(payment.Order{ID: "order_member", Amount: 59000}, nil).Once()

	o, err := svc.CreateOrder(ctx, "VTX-1", "event")
	require.NoError(t, err)
	assert.Equal(t, "order_event", o.ID)

	o, err = svc.CreateOrder(ctx, "VTX-2", "membership")
	require.NoError(t, err)
	assert.Equal(t, int64(59000), o.Amount)

	orders.AssertExpectations(t)
}

func TestCreateOrder_Failures(t *testing.T) {
	ctx := context.Background()
	orders := &mockOrders{}
	store := memory.NewRegistrationStore()
	svc := registration.NewService(registration.Deps{Store: store, Orders: orders})

	_, err := svc.CreateOrder(ctx, "", "event")
	assert.ErrorIs(t, err, domain.ErrValidation)

	orders.On("CreateOrder", mock.Anything, mock.Anything).Return(payment.Order{}, errors.New("dial tcp: connection refused"))
	_, err = svc.CreateOrder(ctx, "VTX-1", "event")
	assert.ErrorIs(t, err, domain.ErrOrderCreationFailed)
	assert.ErrorIs(t, err, domain.ErrUpstream)

	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestHostedCheckout_Flow(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRegistrationStore()
	hosted := &mockHosted{}
	exports := &recordingExporter{capacity: -1}
	svc := registration.NewService(registration.Deps{Store: store, Hosted: hosted, Exports: exports, Now: func() time.Time { return fixedNow }})

	attendee := &domain.Attendee{Name: "Asha", Email: "asha@example.com", Phone: "9000000000", Event: "ALGO MASTERS"}
	hosted.On("CreatePaymentRequest", mock.Anything, mock.MatchedBy(func(r payment.PaymentRequest) bool {
		return r.Purpose == "Event Registration: ALGO MASTERS" && r.Amount.Equal(payment.HostedCheckoutAmount()) && r.BuyerName == "Asha"
	})).Return(payment.HostedPayment{ID: "pr_1", LongURL: "https://pay.example/pr_1"}, nil)

	hp, err := svc.StartHostedCheckout(ctx, "VTX-H", attendee, "http://localhost/instamojo/callback?ticketId=VTX-H")
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/pr_1", hp.LongURL)

	pending, err := store.FindByTicket(ctx, "VTX-H")
	require.NoError(t, err)
	assert.Equal(t, "PENDING_INSTAMOJO", pending.PaymentStatus)
	assert.Equal(t, "pr_1", pending.EventID)
	assert.Equal(t, domain.PendingRef, pending.PaymentID)

	// retried start keeps the single pending record
	_, err = svc.StartHostedCheckout(ctx, "VTX-H", attendee, "http://localhost/cb")
	require.NoError(t, err)
	all, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	hosted.On("PaymentStatus", mock.Anything, "pr_1", "pay_failed").Return("Failed", nil)
	_, paid, err := svc.CompleteHostedCheckout(ctx, "VTX-H", "pr_1", "pay_failed")
	require.NoError(t, err)
	assert.False(t, paid)

	hosted.On("PaymentStatus", mock.Anything, "pr_1", "pay_ok").Return(payment.PaymentCredited, nil)
	reg, paid, err := svc.CompleteHostedCheckout(ctx, "VTX-H", "pr_1", "pay_ok")
	require.NoError(t, err)
	assert.True(t, paid)
	assert.Equal(t, domain.StatusPaid, reg.PaymentStatus)
	assert.Equal(t, "pay_ok", reg.PaymentID)
	assert.Equal(t, 1, exports.count())

	_, paid, err = svc.CompleteHostedCheckout(ctx, "VTX-H", "", "pay_ok")
	require.NoError(t, err)
	assert.False(t, paid)

	// a paid ticket cannot be reopened or paid again
	_, paid, err = svc.CompleteHostedCheckout(ctx, "VTX-H", "pr_1", "pay_again")
	require.NoError(t, err)
	assert.False(t, paid)
	_, err = svc.StartHostedCheckout(ctx, "VTX-H", attendee, "http://localhost/cb")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, 1, exports.count())
}

func TestHostedCheckout_CallbackMustMatchPendingRequest(t *testing.T) {
	ctx := context.Background()
	store := memory.NewRegistrationStore()
	hosted := &mockHosted{}
	svc := registration.NewService(registration.Deps{Store: store, Hosted: hosted, Now: func() time.Time { return fixedNow }})

	other := domain.NewRegistration("VTX-B", domain.Attendee{Name: "Ravi"}, domain.GatewayPendingStatus(payment.InstamojoGateway), fixedNow)
	other.EventID = "pr_B"
	require.NoError(t, store.Create(ctx, other))
	rejected := domain.NewRegistration("VTX-R", domain.Attendee{Name: "Mia"}, domain.StatusRejected, fixedNow)
	rejected.EventID = "pr_R"
	require.NoError(t, store.Create(ctx, rejected))

	_, paid, err := svc.CompleteHostedCheckout(ctx, "VTX-B", "pr_OTHER", "pay_1")
	require.NoError(t, err)
	assert.False(t, paid)

	_, paid, err = svc.CompleteHostedCheckout(ctx, "VTX-R", "pr_R", "pay_1")
	require.NoError(t, err)
	assert.False(t, paid)

	_, paid, err = svc.CompleteHostedCheckout(ctx, "VTX-404", "pr_B", "pay_1")
	require.NoError(t, err)
	assert.False(t, paid)

	for ticket, status := range map[string]string{"VTX-B": "PENDING_INSTAMOJO", "VTX-R": domain.StatusRejected} {
		got, err := store.FindByTicket(ctx, ticket)
		require.NoError(t, err)
		assert.Equal(t, status, got.PaymentStatus)
	}
	hosted.AssertNotCalled(t, "PaymentStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestHostedCheckout_GatewayErrors(t *testing.T) {
	ctx := context.Background()
	hosted := &mockHosted{}
	store := memory.NewRegistrationStore()
	svc := registration.NewService(registration.Deps{Store: store, Hosted: hosted})

	_, err := svc.StartHostedCheckout(ctx, "", &domain.Attendee{}, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	hosted.On("CreatePaymentRequest", mock.Anything, mock.Anything).Return(payment.HostedPayment{}, errors.New("503"))
	_, err = svc.StartHostedCheckout(ctx, "VTX-1", &domain.Attendee{Name: "A"}, "")
	assert.ErrorIs(t, err, domain.ErrUpstream)

	_, err = store.Update(ctx, "VTX-1", registration.Update{EventID: "pr"})
	require.NoError(t, err)
	hosted.On("PaymentStatus", mock.Anything, "pr", "pay").Return("", errors.New("timeout"))
	_, _, err = svc.CompleteHostedCheckout(ctx, "VTX-1", "pr", "pay")
	assert.ErrorIs(t, err, domain.ErrUpstream)

	unconfigured := registration.NewService(registration.Deps{Store: memory.NewRegistrationStore()})
	_, err = unconfigured.StartHostedCheckout(ctx, "VTX-1", &domain.Attendee{}, "")
	assert.ErrorIs(t, err, domain.ErrUpstream)
}
