package auth

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/observability"
	"golang.org/x/crypto/bcrypt"
)

// UserStore persists accounts. Email is unique; a colliding CreateUser
// reports domain.ErrDuplicateKey.
type UserStore interface {
	CreateUser(ctx context.Context, u domain.User) error
	FindUserByEmail(ctx context.Context, email string) (domain.User, error)
	FindUserByID(ctx context.Context, id string) (domain.User, error)
	UpdateUser(ctx context.Context, email string, upd UserUpdate) (domain.User, error)
}

type UserUpdate struct {
	Name         string
	PasswordHash string
	Role         string
}

// Principal is the identity behind a verified token.
type Principal struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type Service struct {
	users    UserStore
	tokens   *Tokens
	logger   observability.Logger
	hashCost int
}

func NewService(users UserStore, tokens *Tokens, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Service{users: users, tokens: tokens, logger: logger, hashCost: 10}
}

// Authenticate resolves a bearer token to a principal whose account still exists.
func (s *Service) Authenticate(ctx context.Context, token string) (Principal, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Principal{}, err
	}
	u, err := s.users.FindUserByID(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return Principal{}, domain.ErrPrincipalNotFound
	}
	if err != nil {
		return Principal{}, domain.Upstream(err, "lookup principal")
	}
	return Principal{UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}, nil
}

// RequireRole fails with domain.ErrAccessDenied unless p holds role.
func RequireRole(p Principal, role string) error {
	if p.Role != role {
		return domain.ErrAccessDenied
	}
	return nil
}

// Signup creates a regular account. Elevated roles are never granted here.
func (s *Service) Signup(ctx context.Context, name, email, password string) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, domain.Validationf("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return domain.User{}, errors.Wrap(err, "hash password")
	}
	u := domain.NewUser(name, email, string(hash), domain.RoleUser, time.Now())
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, domain.ErrDuplicateKey) {
			return domain.User{}, errors.Mark(errors.New("User already exists"), domain.ErrConflict)
		}
		return domain.User{}, errors.Wrap(err, "create user")
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (string, domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", domain.User{}, domain.Validationf("email and password are required")
	}
	u, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return "", domain.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", domain.User{}, domain.ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(u.ID, u.Email, u.Name, u.Role)
	if err != nil {
		return "", domain.User{}, errors.Wrap(err, "issue token")
	}
	return token, u, nil
}

// EnsureAdmin creates the admin account or resets an existing one's password
// and role. It reports whether the account was created.
func (s *Service) EnsureAdmin(ctx context.Context, name, email, password string) (domain.User, bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, false, domain.Validationf("email and password are required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return domain.User{}, false, errors.Wrap(err, "hash password")
	}

	u, err := s.users.UpdateUser(ctx, email, UserUpdate{PasswordHash: string(hash), Role: domain.RoleAdmin})
	if err == nil {
		s.logger.WithField("email", email).Info("admin account updated")
		return u, false, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, false, errors.Wrap(err, "update admin")
	}

	u = domain.NewUser(name, email, string(hash), domain.RoleAdmin, time.Now())
	if err := s.users.CreateUser(ctx, u); err != nil {
		return domain.User{}, false, errors.Wrap(err, "create admin")
	}
	s.logger.WithField("email", email).Info("admin account created")
	return u, true, nil
}

// Promote grants the admin role to an existing account.
func (s *Service) Promote(ctx context.Context, email string) (domain.User, error) {
	u, err := s.users.UpdateUser(ctx, normalizeEmail(email), UserUpdate{Role: domain.RoleAdmin})
	if err != nil {
		return domain.User{}, err
	}
	s.logger.WithField("email", u.Email).Info("account promoted to admin")
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
