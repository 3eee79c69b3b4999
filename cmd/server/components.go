package main

import (
	"context"
	"fmt"
	"time"

	"github.com/SobhanSah00/iiit-bbsrDrawisly/api"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/api/models"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/auth/db"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/config"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/slogging"
	"github.com/SobhanSah00/iiit-bbsrDrawisly/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
)

// components holds everything main wires together
type components struct {
	gormDB   *db.GormDB
	redisDB  *db.RedisDB
	hub      *api.Hub
	server   *api.Server
	registry *prometheus.Registry
}

func (c *components) close() {
	logger := slogging.Get()
	if c.redisDB != nil {
		if err := c.redisDB.Close(); err != nil {
			logger.Error("Error closing Redis: %v", err)
		}
	}
	if c.gormDB != nil {
		if err := c.gormDB.Close(); err != nil {
			logger.Error("Error closing database: %v", err)
		}
	}
}

func gormConfig(cfg *config.Config) db.GormConfig {
	pg := cfg.Database.Postgres
	return db.GormConfig{
		Type:             db.DatabaseType(cfg.Database.Type),
		PostgresHost:     pg.Host,
		PostgresPort:     pg.Port,
		PostgresUser:     pg.User,
		PostgresPassword: pg.Password,
		PostgresDatabase: pg.Database,
		PostgresSSLMode:  pg.SSLMode,
		SQLitePath:       cfg.Database.SQLite.Path,
	}
}

// openDatabase connects, migrates and optionally instruments the relational store
func openDatabase(cfg *config.Config) (*db.GormDB, error) {
	gormDB, err := db.NewGormDB(gormConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := gormDB.AutoMigrate(models.AllModels()...); err != nil {
		_ = gormDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if cfg.Telemetry.Enabled {
		if err := telemetry.InstrumentGorm(gormDB.DB()); err != nil {
			slogging.Get().Warn("GORM instrumentation disabled: %v", err)
		}
	}
	return gormDB, nil
}

// openRedis returns nil when Redis is disabled
func openRedis(cfg *config.Config) (*db.RedisDB, error) {
	rc := cfg.Database.Redis
	if !rc.Enabled {
		return nil, nil
	}
	redisDB, err := db.NewRedisDB(db.RedisConfig{
		Host:     rc.Host,
		Port:     rc.Port,
		Password: rc.Password,
		DB:       rc.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	if cfg.Telemetry.Enabled {
		if err := telemetry.InstrumentRedis(redisDB.GetClient()); err != nil {
			slogging.Get().Warn("Redis instrumentation disabled: %v", err)
		}
	}
	redisDB.LogStats()
	return redisDB, nil
}

// newVerifier builds the token verifier from the JWT settings, adding the
// revocation check when Redis is available
func newVerifier(cfg *config.Config, redisDB *db.RedisDB) (auth.Verifier, error) {
	jc := cfg.Auth.JWT
	keys, err := auth.NewJWTKeyManager(auth.JWTConfig{
		SigningMethod:  jc.SigningMethod,
		Secret:         jc.Secret,
		PrivateKeyPath: jc.PrivateKeyPath,
		PublicKeyPath:  jc.PublicKeyPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load JWT keys: %w", err)
	}

	var revocation auth.RevocationChecker
	if redisDB != nil {
		revocation = auth.NewRevocationList(redisDB.GetClient())
	}
	return auth.NewVerifierFromSecrets(keys, jc.PreviousSecrets, revocation)
}

func transportConfig(cfg *config.Config) api.TransportConfig {
	ws := cfg.WebSocket
	return api.TransportConfig{
		ReadLimitBytes: ws.ReadLimitBytes,
		PongWait:       ws.PongWait,
		PingPeriod:     ws.PingPeriod,
		WriteWait:      ws.WriteWait,
		SendBufferSize: ws.SendBufferSize,
		LogMessages:    cfg.Logging.LogWebSocketMsg,
	}
}

// buildComponents wires persistence, auth and the room engine from cfg
func buildComponents(cfg *config.Config) (*components, error) {
	c := &components{registry: prometheus.NewRegistry()}
	ok := false
	defer func() {
		if !ok {
			c.close()
		}
	}()

	var err error
	if c.gormDB, err = openDatabase(cfg); err != nil {
		return nil, err
	}
	if c.redisDB, err = openRedis(cfg); err != nil {
		return nil, err
	}

	verifier, err := newVerifier(cfg, c.redisDB)
	if err != nil {
		return nil, err
	}

	c.registry.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	metrics, err := api.NewMetrics(c.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	gateway := api.NewGormGateway(c.gormDB.DB())
	c.hub = api.NewHub(gateway, metrics)
	if cfg.WebSocket.RejectDuplicates {
		c.hub.SetDuplicatePolicy(api.RejectDuplicate)
	}

	opts := []api.RouterOption{api.WithPersistTimeout(cfg.WebSocket.PersistenceTimeout)}
	if c.redisDB != nil && cfg.Chat.RateLimitFrames > 0 {
		opts = append(opts, api.WithFrameLimiter(
			api.NewFrameRateLimiter(c.redisDB.GetClient(), cfg.Chat.RateLimitFrames, cfg.GetRateLimitWindow())))
		slogging.Get().Info("Frame rate limit: %d per %s", cfg.Chat.RateLimitFrames, cfg.GetRateLimitWindow())
	}
	router := api.NewRouter(c.hub, gateway, metrics, opts...)

	c.server = api.NewServer(c.hub, router, gateway, verifier, api.ServerConfig{
		ServiceName:      cfg.Telemetry.ServiceName,
		Transport:        transportConfig(cfg),
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		DefaultPageLimit: cfg.Chat.DefaultPageLimit,
		MaxPageLimit:     cfg.Chat.MaxPageLimit,
	})
	c.server.SetMetricsGatherer(prometheus.Gatherers{c.registry, prometheus.DefaultGatherer})
	c.server.AddHealthCheck("database", c.gormDB.Ping)
	if c.redisDB != nil {
		c.server.AddHealthCheck("redis", c.redisDB.Ping)
	}

	ok = true
	return c, nil
}

// pingTimeout bounds the startup connectivity check
const pingTimeout = 5 * time.Second

func (c *components) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := c.gormDB.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if c.redisDB != nil {
		if err := c.redisDB.Ping(ctx); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
	}
	return nil
}
