// Package bootstrap opens the process-wide store handles for the binaries.
package bootstrap

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/event-registrations/internal/adapters/crdb"
	"github.com/robertarktes/event-registrations/internal/adapters/memory"
	mongoadapter "github.com/robertarktes/event-registrations/internal/adapters/mongo"
	"github.com/robertarktes/event-registrations/internal/auth"
	"github.com/robertarktes/event-registrations/internal/config"
	"github.com/robertarktes/event-registrations/internal/observability"
	"github.com/robertarktes/event-registrations/internal/registration"
	"go.mongodb.org/mongo-driver/mongo"
)

type Stores struct {
	Registrations registration.Store
	Users         auth.UserStore
	// Audit is nil when no mongo database is configured.
	Audit registration.AuditTrail
	Ready func(ctx context.Context) error

	closers []func()
}

func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// OpenStores connects the configured driver and prepares its indexes or schema.
func OpenStores(ctx context.Context, cfg *config.Config, logger observability.Logger) (*Stores, error) {
	s := &Stores{}

	var mongoDB *mongo.Database
	if cfg.MongoURI != "" && cfg.StoreDriver != config.StoreMemory {
		client, err := mongoadapter.Connect(ctx, cfg)
		if err != nil {
			return nil, errors.Wrap(err, "connect mongo")
		}
		s.closers = append(s.closers, func() { _ = client.Disconnect(context.Background()) })
		mongoDB = client.Database(cfg.MongoDB)
		s.Audit = mongoadapter.NewAuditLogger(mongoDB, logger)
		s.Ready = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	}

	switch cfg.StoreDriver {
	case config.StoreMongo:
		regs := mongoadapter.NewRegistrationRepository(mongoDB, logger)
		users := mongoadapter.NewUserRepository(mongoDB, logger)
		if err := regs.EnsureIndexes(ctx); err != nil {
			s.Close()
			return nil, errors.Wrap(err, "ensure registration indexes")
		}
		if err := users.EnsureIndexes(ctx); err != nil {
			s.Close()
			return nil, errors.Wrap(err, "ensure user indexes")
		}
		s.Registrations, s.Users = regs, users

	case config.StoreCRDB:
		poolCfg, err := pgxpool.ParseConfig(cfg.CRDBDSN)
		if err != nil {
			s.Close()
			return nil, errors.Wrap(err, "parse crdb dsn")
		}
		poolCfg.MaxConns = cfg.CRDBMaxConns
		poolCfg.ConnConfig.ConnectTimeout = 5 * time.Second
		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			s.Close()
			return nil, errors.Wrap(err, "connect crdb")
		}
		s.closers = append(s.closers, pool.Close)

		repo := crdb.NewRepository(pool, logger)
		if err := repo.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.Registrations, s.Users = repo, repo
		s.Ready = pool.Ping

	case config.StoreMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		s.Registrations, s.Users = memory.NewRegistrationStore(), memory.NewUserStore()

	default:
		return nil, errors.Newf("unknown store driver %q", cfg.StoreDriver)
	}

	if s.Ready == nil {
		s.Ready = func(context.Context) error { return nil }
	}
	return s, nil
}
