package mongo_test

import (
	"context"
	"testing"
	"time"

	mongoadapter "github.com/robertarktes/event-registrations/internal/adapters/mongo"
	"github.com/robertarktes/event-registrations/internal/auth"
	"github.com/robertarktes/event-registrations/internal/config"
	"github.com/robertarktes/event-registrations/internal/domain"
	"github.com/robertarktes/event-registrations/internal/observability"
	"github.com/robertarktes/event-registrations/internal/registration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
)

func startMongo(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForLog("Waiting for connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "mongodb")
	require.NoError(t, err)

	client, err := mongoadapter.Connect(ctx, &config.Config{
		MongoURI:                    endpoint,
		MongoServerSelectionTimeout: 5 * time.Second,
		MongoSocketTimeout:          45 * time.Second,
		MongoMaxPoolSize:            10,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	return client.Database("vortex_test")
}

func TestRegistrationRepository(t *testing.T) {
	db := startMongo(t)
	ctx := context.Background()
	repo := mongoadapter.NewRegistrationRepository(db, observability.NewNopLogger())
	require.NoError(t, repo.EnsureIndexes(ctx))

	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	first := domain.NewRegistration("VTX-1", domain.Attendee{Name: "Asha", Email: "asha@example.com", Event: "ALGO MASTERS"}, domain.StatusPending, base)
	second := domain.NewRegistration("VTX-2", domain.Attendee{Name: "Asha", Email: "asha@example.com", Event: "CODE RELAY"}, domain.StatusPaid, base.Add(time.Hour))
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	err := repo.Create(ctx, domain.NewRegistration("VTX-1", domain.Attendee{}, domain.StatusPaid, base))
	assert.ErrorIs(t, err, domain.ErrDuplicateKey)

	got, err := repo.FindByTicket(ctx, "VTX-1")
	require.NoError(t, err)
	assert.Equal(t, first, got)

	_, err = repo.FindByTicket(ctx, "VTX-404")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mine, err := repo.FindByEmail(ctx, "asha@example.com")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "VTX-2", mine[0].TicketID)

	updated, err := repo.Update(ctx, "VTX-1", registration.Update{PaymentStatus: domain.StatusPaid, PaymentID: "pay_1"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, updated.PaymentStatus)
	assert.Equal(t, "pay_1", updated.PaymentID)
	assert.Equal(t, domain.PendingRef, updated.EventID)

	_, err = repo.Update(ctx, "VTX-404", registration.Update{PaymentStatus: domain.StatusPaid})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, first.ID))
	assert.ErrorIs(t, repo.Delete(ctx, first.ID), domain.ErrNotFound)

	third := domain.NewRegistration("VTX-3", domain.Attendee{Email: "ravi@example.com"}, domain.StatusPaid, base)
	require.NoError(t, repo.Create(ctx, third))
	require.NoError(t, repo.Delete(ctx, "VTX-3"))
	assert.ErrorIs(t, repo.Delete(ctx, "VTX-3"), domain.ErrNotFound)

	n, err := repo.DeleteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUserRepository_UniqueEmail(t *testing.T) {
	db := startMongo(t)
	ctx := context.Background()
	repo := mongoadapter.NewUserRepository(db, observability.NewNopLogger())
	require.NoError(t, repo.EnsureIndexes(ctx))

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	user := domain.NewUser("Asha", "asha@example.com", "hash", "", now)
	require.NoError(t, repo.CreateUser(ctx, user))
	assert.ErrorIs(t, repo.CreateUser(ctx, domain.NewUser("Other", "asha@example.com", "hash", "", now)), domain.ErrDuplicateKey)

	byID, err := repo.FindUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", byID.Email)

	promoted, err := repo.UpdateUser(ctx, "asha@example.com", auth.UserUpdate{Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)
	assert.Equal(t, "hash", promoted.PasswordHash)

	_, err = repo.FindUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuditLogger_Record(t *testing.T) {
	db := startMongo(t)
	ctx := context.Background()
	audit := mongoadapter.NewAuditLogger(db, observability.NewNopLogger())

	require.NoError(t, audit.Record(ctx, "registration.approve", "admin@example.com", map[string]interface{}{"ticket_id": "VTX-1"}))
	require.NoError(t, audit.Record(ctx, "registration.purged", "admin@example.com", map[string]interface{}{"count": 3}))

	logs, err := audit.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "admin@example.com", logs[0].Actor)
}
