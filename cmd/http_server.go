package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/helpdesk-access/internal"
	"github.com/frahmantamala/helpdesk-access/internal/access"
	"github.com/frahmantamala/helpdesk-access/internal/auth"
	"github.com/frahmantamala/helpdesk-access/internal/catalog"
	"github.com/frahmantamala/helpdesk-access/internal/core/events"
	"github.com/frahmantamala/helpdesk-access/internal/subject"
	subjectstore "github.com/frahmantamala/helpdesk-access/internal/subject/postgres"
	"github.com/frahmantamala/helpdesk-access/internal/transport"
	"github.com/frahmantamala/helpdesk-access/internal/transport/rest"
	"github.com/frahmantamala/helpdesk-access/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const storePostgres = "postgres"

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server that previews and enforces access decisions`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config  *internal.Config
	DB      *sqlx.DB
	Catalog *access.Catalog
	Stores  subject.Stores
	Query   *access.QueryService
	Service *subject.Service
	Events  *events.EventBus
	Logger  *slog.Logger
}

func (d *Dependencies) Close() {
	d.Events.Wait()
	if d.DB == nil {
		return
	}
	if err := d.DB.Close(); err != nil {
		d.Logger.Error("Database close error", "error", err)
	}
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	if deps.Config.Access.SeedDemo && deps.Config.Access.Store != storePostgres {
		if err := seedDemo(context.Background(), deps.Service); err != nil {
			deps.Logger.Error("Failed to seed demo subjects", "error", err)
			os.Exit(1)
		}
		deps.Logger.Info("Seeded demo subjects into the memory store")
	}

	if _, err := rest.LoadOpenAPI(context.Background(), rest.DefaultOpenAPIPath); err != nil {
		deps.Logger.Warn("OpenAPI document failed validation", "error", err)
	}

	router := setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "store", deps.Config.Access.Store)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
		BaseContext: func(net.Listener) context.Context {
			return logger.NewContext(context.Background(), deps.Logger)
		},
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.Close()
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) *chi.Mux {
	router := chi.NewRouter()
	base := transport.NewBaseHandler(deps.Logger)

	cfg := rest.RouterConfig{
		StoreKind:      deps.Config.Access.Store,
		AllowedOrigins: deps.Config.Server.AllowedOrigins,
		RateLimit:      deps.Config.Server.RateLimit,
		Production:     isProduction(),
		CatalogHandler: catalog.NewHandler(base, deps.Catalog),
		SubjectHandler: subject.NewHandler(base, deps.Service, time.Now),
		Enforcer:       auth.NewEnforcer(deps.Query, deps.Logger, time.Now),
		Logger:         deps.Logger,
	}
	if deps.DB != nil {
		cfg.DB = deps.DB.DB
	}

	rest.RegisterAllRoutes(router, cfg)
	return router
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	cat, err := catalog.Load(config.Access.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	deps := &Dependencies{
		Config:  config,
		Catalog: cat,
		Logger:  lg,
	}

	switch config.Access.Store {
	case storePostgres:
		db, err := initDB(config.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		gdb, err := openGorm(db)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize gorm: %w", err)
		}
		deps.DB = db
		deps.Stores = subject.Stores{
			Assignments: subjectstore.NewAssignmentRepository(gdb),
			Overrides:   subjectstore.NewOverrideRepository(gdb),
			Grants:      subjectstore.NewGrantRepository(gdb),
		}
	default:
		deps.Stores = subject.MemoryStores()
	}

	deps.Events = events.NewEventBus(lg)
	deps.Events.Subscribe(events.AllEvents, events.AuditLogger(lg))

	deps.Query = access.NewQueryService(cat, deps.Stores.Assignments, deps.Stores.Overrides, deps.Stores.Grants, lg)
	deps.Service = subject.NewService(cat, deps.Stores, deps.Query, deps.Events, lg)

	lg.Info("Access catalog loaded",
		"roles", len(cat.Roles()),
		"permissions", len(cat.Permissions()),
		"store", config.Access.Store)

	return deps, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// openGorm shares the sqlx connection pool with gorm.
func openGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}
