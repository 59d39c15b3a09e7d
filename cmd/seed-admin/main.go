// Command seed-admin bootstraps an admin account or promotes an existing one.
//
//	seed-admin -email admin@example.com -password s3cret -name Admin
//	seed-admin -promote someone@example.com
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/robertarktes/event-registrations/internal/auth"
	"github.com/robertarktes/event-registrations/internal/bootstrap"
	"github.com/robertarktes/event-registrations/internal/config"
	"github.com/robertarktes/event-registrations/internal/observability"
)

func main() {
	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password")
	name := flag.String("name", "Admin", "admin display name")
	promote := flag.String("promote", "", "email of an existing account to promote")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.ValidateStore(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := observability.NewLogger()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stores, err := bootstrap.OpenStores(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open stores: %v", err)
	}
	defer stores.Close()

	// Tokens are never issued here.
	svc := auth.NewService(stores.Users, nil, logger)

	if *promote != "" {
		u, err := svc.Promote(ctx, *promote)
		if err != nil {
			log.Fatalf("promote %s: %v", *promote, err)
		}
		logger.WithField("email", u.Email).Info("promoted to admin")
		return
	}

	if *email == "" || *password == "" {
		flag.Usage()
		log.Fatal("-email and -password are required")
	}
	u, created, err := svc.EnsureAdmin(ctx, *name, *email, *password)
	if err != nil {
		log.Fatalf("seed admin: %v", err)
	}
	logger.WithField("email", u.Email).WithField("created", created).Info("admin account ready")
}
