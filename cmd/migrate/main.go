package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/models"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth/db"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/config"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/dbschema"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
)

func main() {
	var (
		configFile   = flag.String("config", "", "Path to configuration file")
		validateOnly = flag.Bool("validate-only", false, "Only validate the schema, do not migrate")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := slogging.Initialize(slogging.Config{
		Level:            slogging.ParseLogLevel("info"),
		IsDev:            true,
		LogDir:           cfg.Logging.LogDir,
		AlsoLogToConsole: true,
	}); err != nil {
		log.Printf("Warning: Failed to initialize logger: %v", err)
	}
	logger := slogging.Get()

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
		log.Fatalf("Failed to connect to %s database: %v", cfg.Database.Type, err)
	}
	defer func() {
		if err := gormDB.Close(); err != nil {
			logger.Error("Error closing database: %v", err)
		}
	}()

	if !*validateOnly {
		logger.Info("Running migrations on %s database...", cfg.Database.Type)
		if err := gormDB.AutoMigrate(models.AllModels()...); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		fmt.Println("Database migration complete!")
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("Validating database schema...")
	fmt.Println(strings.Repeat("=", 60))

	results, err := dbschema.ValidateSchema(gormDB.DB(), models.AllModels()...)
	if err != nil {
		log.Fatalf("Failed to validate schema: %v", err)
	}
	if errorCount := dbschema.LogValidationResults(results); errorCount > 0 {
		fmt.Printf("\nDatabase schema validation FAILED: %d errors\n", errorCount)
		os.Exit(1)
	}
	fmt.Println("\nDatabase schema validation PASSED")
}
