package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending  = "PENDING"
	StatusPaid     = "PAID"
	StatusRejected = "REJECTED"

	// PendingRef marks payment and order references that are not known yet.
	PendingRef = "PENDING"

	RoleUser  = "user"
	RoleAdmin = "admin"
)

// GatewayPendingStatus is the pending status used while a hosted checkout at
// gateway is in flight, e.g. PENDING_INSTAMOJO.
func GatewayPendingStatus(gateway string) string {
	return StatusPending + "_" + strings.ToUpper(gateway)
}

// IsPending reports whether status still awaits payment.
func IsPending(status string) bool {
	return status == StatusPending || strings.HasPrefix(status, StatusPending+"_")
}

type Registration struct {
	ID            string    `json:"id" bson:"_id"`
	TicketID      string    `json:"ticketId" bson:"ticketId"`
	Name          string    `json:"name" bson:"name"`
	Email         string    `json:"email" bson:"email"`
	Phone         string    `json:"phone" bson:"phone"`
	Department    string    `json:"department" bson:"department"`
	Year          string    `json:"year" bson:"year"`
	College       string    `json:"college" bson:"college"`
	Location      string    `json:"location,omitempty" bson:"location,omitempty"`
	Event         string    `json:"event" bson:"event"`
	Date          time.Time `json:"date" bson:"date"`
	PaymentStatus string    `json:"paymentStatus" bson:"paymentStatus"`
	PaymentID     string    `json:"paymentId" bson:"paymentId"`
	EventID       string    `json:"eventId" bson:"eventId"`
}

// Attendee holds the client-supplied part of a registration.
type Attendee struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	Year       string `json:"year"`
	College    string `json:"college"`
	Location   string `json:"location,omitempty"`
	Event      string `json:"event"`
}

func NewRegistration(ticketID string, a Attendee, status string, now time.Time) Registration {
	return Registration{
		ID:            uuid.New().String(),
		TicketID:      ticketID,
		Name:          a.Name,
		Email:         a.Email,
		Phone:         a.Phone,
		Department:    a.Department,
		Year:          a.Year,
		College:       a.College,
		Location:      a.Location,
		Event:         a.Event,
		Date:          now,
		PaymentStatus: status,
		PaymentID:     PendingRef,
		EventID:       PendingRef,
	}
}

// NewTicketID derives a ticket identifier from the intake time.
func NewTicketID(now time.Time) string {
	return fmt.Sprintf("VTX-%d", now.UnixMilli())
}

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"`
	Role         string    `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

func NewUser(name, email, passwordHash, role string, now time.Time) User {
	if role == "" {
		role = RoleUser
	}
	return User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
	}
}

// AuditEntry is one recorded admin action.
type AuditEntry struct {
	ID        string                 `json:"id"`
	Action    string                 `json:"action"`
	Actor     string                 `json:"actor"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}
