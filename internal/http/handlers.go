package http

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/event-registrations/internal/auth"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/registration"
)

type Handlers struct {
	registrations *registration.Service
	auth          *auth.Service
	paymentKeyID  string
	ready         func(ctx context.Context) error
}

func NewHandlers(registrations *registration.Service, authSvc *auth.Service, paymentKeyID string, ready func(ctx context.Context) error) *Handlers {
	if ready == nil {
		ready = func(context.Context) error { return nil }
	}
	return &Handlers{
		registrations: registrations,
		auth:          authSvc,
		paymentKeyID:  paymentKeyID,
		ready:         ready,
	}
}

type attendeeRequest struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"phone" validate:"required"`
	Department string `json:"department"`
	Year       string `json:"year"`
	College    string `json:"college"`
	Location   string `json:"location"`
	Event      string `json:"event" validate:"required"`
}

func (a attendeeRequest) attendee() domain.Attendee {
	return domain.Attendee{
		Name:       a.Name,
		Email:      a.Email,
		Phone:      a.Phone,
		Department: a.Department,
		Year:       a.Year,
		College:    a.College,
		Location:   a.Location,
		Event:      a.Event,
	}
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req attendeeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	reg, err := h.registrations.Register(r.Context(), req.attendee())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

type createOrderRequest struct {
	TicketID string `json:"ticketId" validate:"required"`
	Type     string `json:"type"`
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.registrations.CreateOrder(r.Context(), req.TicketID, req.Type)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Field presence is checked by the finalize workflow itself.
type paymentSuccessRequest struct {
	TicketID  string           `json:"ticketId"`
	PaymentID string           `json:"razorpay_payment_id"`
	OrderID   string           `json:"razorpay_order_id"`
	Signature string           `json:"razorpay_signature"`
	EventData *domain.Attendee `json:"eventData"`
}

type paymentSuccessResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	TicketID          string `json:"ticketId"`
	AlreadyRegistered bool   `json:"alreadyRegistered,omitempty"`
}

func (h *Handlers) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	var req paymentSuccessRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.registrations.Finalize(r.Context(), registration.FinalizeRequest{
		TicketID:         req.TicketID,
		GatewayOrderID:   req.OrderID,
		GatewayPaymentID: req.PaymentID,
		GatewaySignature: req.Signature,
		Registration:     req.EventData,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if res.AlreadyRegistered {
		writeJSON(w, http.StatusOK, paymentSuccessResponse{
			Success:           true,
			Message:           "Registration already exists",
			TicketID:          req.TicketID,
			AlreadyRegistered: true,
		})
		return
	}
	writeJSON(w, http.StatusOK, paymentSuccessResponse{
		Success:  true,
		Message:  "Payment verified and registration saved",
		TicketID: res.Registration.TicketID,
	})
}

func (h *Handlers) Ticket(w http.ResponseWriter, r *http.Request) {
	reg, err := h.registrations.Ticket(r.Context(), chi.URLParam(r, "ticketId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (h *Handlers) MyTickets(w http.ResponseWriter, r *http.Request) {
	regs, err := h.registrations.TicketsByEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regs)
}

func (h *Handlers) PaymentKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"key": h.paymentKeyID})
}

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.auth.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"message": "User created", "user": user})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	token, user, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"token": token, "user": user})
}

type hostedCheckoutRequest struct {
	TicketID  string           `json:"ticketId" validate:"required"`
	EventData *attendeeRequest `json:"eventData" validate:"required"`
}

func (h *Handlers) StartHostedCheckout(w http.ResponseWriter, r *http.Request) {
	var req hostedCheckoutRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a := req.EventData.attendee()
	redirect := baseURL(r) + "/instamojo/callback?ticketId=" + url.QueryEscape(req.TicketID)

	hp, err := h.registrations.StartHostedCheckout(r.Context(), req.TicketID, &a, redirect)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "longurl": hp.LongURL})
}

func (h *Handlers) HostedCheckoutCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ticketID := q.Get("ticketId")

	_, ok, err := h.registrations.CompleteHostedCheckout(r.Context(), ticketID, q.Get("payment_request_id"), q.Get("payment_id"))
	if err != nil {
		loggerFrom(r.Context()).WithError(err).WithField("ticket_id", ticketID).Error("hosted checkout verification failed")
	}
	if err != nil || !ok {
		http.Redirect(w, r, "/event_registration.html?error=payment_failed", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/registration_success.html?ticketId="+url.QueryEscape(ticketID)+"&status=success", http.StatusFound)
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := h.ready(r.Context()); err != nil {
		loggerFrom(r.Context()).WithError(err).Warn("readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
