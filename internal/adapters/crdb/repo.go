package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/event-registrations/internal/auth"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/observability"
	"github.com/robertarktes/event-registrations/internal/registration"
)

const (
	SerializationFailureCode = "40001"
	UniqueViolationCode      = "23505"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS registrations (
		id STRING PRIMARY KEY,
		ticket_id STRING NOT NULL UNIQUE,
		name STRING NOT NULL DEFAULT '',
		email STRING NOT NULL DEFAULT '',
		phone STRING NOT NULL DEFAULT '',
		department STRING NOT NULL DEFAULT '',
		year STRING NOT NULL DEFAULT '',
		college STRING NOT NULL DEFAULT '',
		location STRING NOT NULL DEFAULT '',
		event STRING NOT NULL DEFAULT '',
		date TIMESTAMPTZ NOT NULL,
		payment_status STRING NOT NULL CHECK (payment_status IN ('PENDING', 'PAID', 'REJECTED') OR payment_status LIKE 'PENDING\_%'),
		payment_id STRING NOT NULL,
		event_id STRING NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS registrations_email_date_idx ON registrations (email, date DESC)`,
	`CREATE TABLE IF NOT EXISTS users (
		id STRING PRIMARY KEY,
		name STRING NOT NULL DEFAULT '',
		email STRING NOT NULL UNIQUE,
		password_hash STRING NOT NULL,
		role STRING NOT NULL CHECK (role IN ('user', 'admin')),
		created_at TIMESTAMPTZ NOT NULL
	)`,
}

const registrationColumns = `id, ticket_id, name, email, phone, department, year, college, location, event,
	date, payment_status, payment_id, event_id`

type Repository struct {
	pool   *pgxpool.Pool
	logger observability.Logger
}

func NewRepository(pool *pgxpool.Pool, logger observability.Logger) *Repository {
	return &Repository{pool: pool, logger: logger}
}

// Migrate creates the tables and indexes if they do not exist yet.
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return errors.Wrap(err, "migrate")
		}
	}
	return nil
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == UniqueViolationCode
}

func observe(op string) func() {
	start := time.Now()
	return func() {
		observability.StoreOpDuration.WithLabelValues("crdb", op).Observe(time.Since(start).Seconds())
	}
}

func scanRegistration(row pgx.Row) (domain.Registration, error) {
	var reg domain.Registration
	err := row.Scan(
		&reg.ID, &reg.TicketID, &reg.Name, &reg.Email, &reg.Phone, &reg.Department, &reg.Year,
		&reg.College, &reg.Location, &reg.Event, &reg.Date, &reg.PaymentStatus, &reg.PaymentID, &reg.EventID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Registration{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Registration{}, err
	}
	reg.Date = reg.Date.UTC()
	return reg, nil
}

func (r *Repository) Create(ctx context.Context, reg domain.Registration) error {
	defer observe("create")()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO registrations (`+registrationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, reg.ID, reg.TicketID, reg.Name, reg.Email, reg.Phone, reg.Department, reg.Year,
		reg.College, reg.Location, reg.Event, reg.Date, reg.PaymentStatus, reg.PaymentID, reg.EventID)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateKey
	}
	if err != nil {
		r.logger.WithError(err).WithField("ticket_id", reg.TicketID).Error("failed to insert registration")
		return errors.Wrap(err, "insert registration")
	}
	return nil
}

func (r *Repository) FindByTicket(ctx context.Context, ticketID string) (domain.Registration, error) {
	defer observe("find_by_ticket")()
	row := r.pool.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE ticket_id = $1`, ticketID)
	reg, err := scanRegistration(row)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Registration{}, errors.Wrap(err, "find registration")
	}
	return reg, err
}

func (r *Repository) FindByEmail(ctx context.Context, email string) ([]domain.Registration, error) {
	defer observe("find_by_email")()
	return r.query(ctx, `SELECT `+registrationColumns+` FROM registrations WHERE email = $1 ORDER BY date DESC, id DESC`, email)
}

func (r *Repository) List(ctx context.Context) ([]domain.Registration, error) {
	defer observe("list")()
	return r.query(ctx, `SELECT `+registrationColumns+` FROM registrations ORDER BY date DESC, id DESC`)
}

func (r *Repository) query(ctx context.Context, sql string, args ...any) ([]domain.Registration, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query registrations")
	}
	defer rows.Close()

	regs := []domain.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan registration")
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}

func (r *Repository) Update(ctx context.Context, ticketID string, upd registration.Update) (domain.Registration, error) {
	defer observe("update")()
	row := r.pool.QueryRow(ctx, `
		UPDATE registrations SET
			payment_status = COALESCE(NULLIF($2, ''), payment_status),
			payment_id = COALESCE(NULLIF($3, ''), payment_id),
			event_id = COALESCE(NULLIF($4, ''), event_id)
		WHERE ticket_id = $1
		RETURNING `+registrationColumns,
		ticketID, upd.PaymentStatus, upd.PaymentID, upd.EventID)
	reg, err := scanRegistration(row)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Registration{}, errors.Wrap(err, "update registration")
	}
	return reg, err
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	defer observe("delete")()
	tag, err := r.pool.Exec(ctx, `DELETE FROM registrations WHERE id = $1 OR ticket_id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete registration")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	defer observe("delete_all")()
	tag, err := r.pool.Exec(ctx, `DELETE FROM registrations WHERE true`)
	if err != nil {
		return 0, errors.Wrap(err, "delete registrations")
	}
	return tag.RowsAffected(), nil
}

const userColumns = `id, name, email, password_hash, role, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, errors.Wrap(err, "scan user")
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (r *Repository) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateKey
	}
	if err != nil {
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *Repository) FindUserByID(ctx context.Context, id string) (domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// UpdateUser reads the row FOR UPDATE and writes the merged result in one
// serializable transaction.
func (r *Repository) UpdateUser(ctx context.Context, email string, upd auth.UserUpdate) (domain.User, error) {
	var out domain.User
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 FOR UPDATE`, email))
		if err != nil {
			return err
		}
		if upd.Name != "" {
			u.Name = upd.Name
		}
		if upd.PasswordHash != "" {
			u.PasswordHash = upd.PasswordHash
		}
		if upd.Role != "" {
			u.Role = upd.Role
		}
		_, err = tx.Exec(ctx, `UPDATE users SET name = $2, password_hash = $3, role = $4 WHERE id = $1`,
			u.ID, u.Name, u.PasswordHash, u.Role)
		if err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return domain.User{}, err
	}
	return out, nil
}
