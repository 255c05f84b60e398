package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/events"
	httpapi "github.com/aussiebroadwan/idp/internal/idp/http"
	"github.com/aussiebroadwan/idp/internal/idp/secrets"
	"github.com/aussiebroadwan/idp/internal/idp/service"
	"github.com/aussiebroadwan/idp/internal/idp/store"
	"github.com/aussiebroadwan/idp/internal/idp/store/drivers/sqlite"
	"github.com/aussiebroadwan/idp/internal/idp/users"
	"github.com/aussiebroadwan/idp/internal/idp/validation"
	"github.com/aussiebroadwan/idp/pkg/jwtx"
	"github.com/aussiebroadwan/idp/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the identity provider with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	keyManager *jwtx.KeyManager
	users      users.Service
	sink       events.Sink

	// Protocol pipeline
	clientAuth             *validation.ClientAuthenticator
	scopeAuth              *validation.ScopeAuthenticator
	customGrants           *validation.CustomGrantRegistry
	authorizeValidator     *validation.AuthorizeRequestValidator
	tokenValidator         *validation.TokenRequestValidator
	revocationValidator    *validation.RevocationRequestValidator
	introspectionValidator *validation.IntrospectionRequestValidator

	// Services
	tokenService        *service.TokenService
	refreshService      *service.RefreshTokenService
	tokenResponses      *service.TokenResponseGenerator
	authorizeResponses  *service.AuthorizeResponseGenerator
	revocationService   *service.RevocationService
	introspectionSvc    *service.IntrospectionService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
// The user service is pluggable; the default is the in-memory implementation
// so a dev instance runs with nothing but a database file.
func New(cfg Config, userSvc users.Service) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "idp",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		users: userSvc,
	}

	if app.users == nil {
		inmem, err := users.NewInMemoryService()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize user service: %w", err)
		}
		app.users = inmem
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if cfg.SeedFile != "" {
		if err := app.applySeed(cfg.SeedFile); err != nil {
			_ = app.db.Close()
			return nil, err
		}
	}

	keyManager, err := InitSigningKeys(app.cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keyManager = keyManager

	app.initServices()
	app.initHTTP()

	return app, nil
}

// RegisterGrantValidator adds an extension grant validator. Must be called
// before Run.
func (app *Application) RegisterGrantValidator(v validation.CustomGrantValidator) {
	app.customGrants.Register(v)
	app.router.ExtraGrantTypes = append(app.router.ExtraGrantTypes, v.GrantType())
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("identity provider starting",
		"port", app.cfg.Port,
		"issuer", app.cfg.Issuer,
		"version", BuildVersion,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity provider...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity provider stopped")
	return nil
}

// applySeed loads the configured seed file into the store.
func (app *Application) applySeed(path string) error {
	seed, err := LoadSeed(path)
	if err != nil {
		return err
	}
	if err := seed.Apply(context.Background(), app.db, app.users); err != nil {
		return fmt.Errorf("failed to apply seed: %w", err)
	}
	app.logger.Info("seed applied",
		"clients", len(seed.Clients),
		"scopes", len(seed.Scopes),
		"users", len(seed.Users),
	)
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices wires the validation pipeline and the issuance services.
func (app *Application) initServices() {
	app.sink = events.NewSlogSink()

	// Secret parsing and verification for client/scope authentication.
	// private_key_jwt assertions are audience-bound to the token endpoint.
	parsers := secrets.DefaultParserChain()
	validators := secrets.DefaultValidatorChain(
		app.cfg.Issuer+"/connect/token",
		secrets.NewReplayCache(),
	)

	// Client and scope records sit on every request path; reads go through
	// short-TTL caches around the sqlite repos.
	clients := store.NewCachingClients(app.db.Clients(), app.cfg.ClientScopeCacheTTL)
	scopes := store.NewCachingScopes(app.db.Scopes(), app.cfg.ClientScopeCacheTTL)

	app.clientAuth = validation.NewClientAuthenticator(clients, parsers, validators, app.sink)
	app.scopeAuth = validation.NewScopeAuthenticator(scopes, parsers, validators)

	app.customGrants = validation.NewCustomGrantRegistry()

	app.authorizeValidator = validation.NewAuthorizeRequestValidator(clients, scopes, app.sink)
	app.authorizeValidator.EnableSessionManagement = app.cfg.EnableSessionManagement

	app.tokenValidator = validation.NewTokenRequestValidator(app.db, app.users, app.sink, app.customGrants)
	app.tokenValidator.EnableLocalLogin = app.cfg.EnableLocalLogin

	app.revocationValidator = validation.NewRevocationRequestValidator()
	app.introspectionValidator = validation.NewIntrospectionRequestValidator()

	claims := service.NewClaimsProvider(app.users)
	app.tokenService = service.NewTokenService(
		app.cfg.Issuer,
		app.keyManager.Signer,
		claims,
		app.db,
		app.sink,
	)
	app.refreshService = service.NewRefreshTokenService(app.db)
	app.tokenResponses = service.NewTokenResponseGenerator(app.tokenService, app.refreshService)
	app.authorizeResponses = service.NewAuthorizeResponseGenerator(app.tokenService, app.db)
	app.revocationService = service.NewRevocationService(app.db, app.sink)
	app.introspectionSvc = service.NewIntrospectionService(app.db, app.sink)

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		app.cfg.Issuer,
		app.keyManager.Algorithm(),
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire the pipeline to the router
	router.Users = app.users
	router.ClientAuth = app.clientAuth
	router.ScopeAuth = app.scopeAuth
	router.AuthorizeValidator = app.authorizeValidator
	router.TokenValidator = app.tokenValidator
	router.RevocationValidator = app.revocationValidator
	router.IntrospectionValidator = app.introspectionValidator
	router.AuthorizeResponses = app.authorizeResponses
	router.TokenResponses = app.tokenResponses
	router.Revocations = app.revocationService
	router.Introspections = app.introspectionSvc
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
