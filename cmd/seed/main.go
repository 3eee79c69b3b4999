// Package main implements seed, a development tool that creates a drawing
// room with members and sample chat history and prints a token per user.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/models"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth/db"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/config"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to configuration file")
		user       = flag.String("user", "alice", "User id of the room admin")
		name       = flag.String("name", "Alice", "Display name of the room admin")
		guests     = flag.String("guests", "bob", "Comma-separated user ids added as members")
		title      = flag.String("title", "Sketchpad", "Room title")
		messages   = flag.Int("messages", 12, "Number of sample chat messages")
		ttl        = flag.Duration("ttl", 0, "Token lifetime (defaults to auth.jwt.expiration_seconds)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	logLevel := slogging.LogLevelInfo
	if *verbose {
		logLevel = slogging.LogLevelDebug
	}
	if err := slogging.Initialize(slogging.Config{
		Level:            logLevel,
		IsDev:            true,
		AlsoLogToConsole: true,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}
	log := slogging.Get()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	gormDB, err := db.NewGormDB(db.GormConfig{
		Type:             db.DatabaseType(cfg.Database.Type),
		PostgresHost:     cfg.Database.Postgres.Host,
		PostgresPort:     cfg.Database.Postgres.Port,
		PostgresUser:     cfg.Database.Postgres.User,
		PostgresPassword: cfg.Database.Postgres.Password,
		PostgresDatabase: cfg.Database.Postgres.Database,
		PostgresSSLMode:  cfg.Database.Postgres.SSLMode,
		SQLitePath:       cfg.Database.SQLite.Path,
	})
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer func() { _ = gormDB.Close() }()
	if err := gormDB.AutoMigrate(models.AllModels()...); err != nil {
		log.Error("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	keys, err := auth.NewJWTKeyManager(auth.JWTConfig{
		SigningMethod:  cfg.Auth.JWT.SigningMethod,
		Secret:         cfg.Auth.JWT.Secret,
		PrivateKeyPath: cfg.Auth.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.Auth.JWT.PublicKeyPath,
	})
	if err != nil {
		log.Error("Failed to load JWT keys: %v", err)
		os.Exit(1)
	}

	opts := seedOptions{
		Admin:    auth.Identity{UserID: *user, DisplayName: *name},
		Title:    *title,
		Messages: *messages,
		TokenTTL: *ttl,
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = cfg.GetJWTDuration()
	}
	for _, g := range strings.Split(*guests, ",") {
		if g = strings.TrimSpace(g); g != "" {
			opts.Guests = append(opts.Guests, auth.Identity{UserID: g, DisplayName: g})
		}
	}

	result, err := seed(context.Background(), api.NewGormGateway(gormDB.DB()), keys, opts)
	if err != nil {
		log.Error("Seeding failed: %v", err)
		os.Exit(1)
	}

	fmt.Printf("Room:      %s\n", result.Room.Title)
	fmt.Printf("Join code: %s\n", result.Room.JoinCode)
	fmt.Printf("Room id:   %s\n", result.Room.ID)
	for _, u := range result.Users {
		fmt.Printf("\n%s (%s)\n  %s\n", u.Identity.DisplayName, u.Identity.UserID, u.Token)
	}
}
