package app

import (
	"context"
	"fmt"

	"github.com/inboxmarket/datagate/config"
	"github.com/inboxmarket/datagate/internal/ledger"
	"github.com/inboxmarket/datagate/middleware"
	"github.com/inboxmarket/datagate/repositories"
	"github.com/inboxmarket/datagate/repositories/postgres"
	"github.com/inboxmarket/datagate/services/mailsource"
	"github.com/inboxmarket/datagate/services/negotiation"
	"github.com/inboxmarket/datagate/services/policy"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repositories
	Policies repositories.PolicyRepository
	Archive  repositories.ArchiveRepository

	// Engine state
	Ledger *ledger.Ledger

	// Services
	PolicyService      *policy.Service
	NegotiationService *negotiation.Service
	MailSource         mailsource.Source

	// Auth
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()
	deps.initServices(cfg)
	deps.initAuth(cfg)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection and schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	d.DB = db

	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := db.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	d.Logger.Info("database connection established",
		zap.String("connection", cfg.Database.LogString()))

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	d.Policies = postgres.NewPolicyRepository(d.DB.DB, d.Logger)
	d.Archive = postgres.NewArchiveRepository(d.DB.DB, d.Logger)
	d.Logger.Info("repositories initialized")
}

// initServices wires the engine: policy service with its snapshot cache, the
// demand ledger, the mail source, and the negotiation coordinator.
func (d *Dependencies) initServices(cfg *config.Config) {
	cache := policy.NewCache(cfg.Engine.PolicyCacheSize, cfg.Engine.PolicyCacheTTL)
	d.PolicyService = policy.NewService(d.Policies, cache, d.Logger)

	d.Ledger = ledger.New(cfg.Engine.LedgerCapacity, nil)

	if cfg.MailSource.BaseURL != "" {
		d.MailSource = mailsource.NewHTTPSource(
			cfg.MailSource.BaseURL,
			cfg.MailSource.APIKey,
			cfg.MailSource.Timeout,
			d.Logger,
		)
		d.Logger.Info("mail source configured",
			zap.String("base_url", cfg.MailSource.BaseURL))
	} else {
		d.MailSource = mailsource.NewStaticSource(nil)
		d.Logger.Warn("no mail source configured, serving empty record set")
	}

	d.NegotiationService = negotiation.NewService(d.Ledger, d.MailSource, d.Archive, nil, d.Logger)
	d.Logger.Info("negotiation engine initialized",
		zap.Int("ledger_capacity", cfg.Engine.LedgerCapacity))
}

func (d *Dependencies) initAuth(cfg *config.Config) {
	if cfg.Auth.JWTSecret == "" {
		d.Logger.Warn("JWT secret not configured, requester tokens will not validate")
	}
	d.AuthMiddleware = middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, cfg.Auth.Issuer, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
