package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/opslens/contextgraph/pkg/auth"
	"github.com/opslens/contextgraph/pkg/config"
	"github.com/opslens/contextgraph/pkg/database"
	"github.com/opslens/contextgraph/pkg/handlers"
	"github.com/opslens/contextgraph/pkg/logging"
	"github.com/opslens/contextgraph/pkg/mcp"
	mcptools "github.com/opslens/contextgraph/pkg/mcp/tools"
	"github.com/opslens/contextgraph/pkg/metrics"
	"github.com/opslens/contextgraph/pkg/middleware"
	"github.com/opslens/contextgraph/pkg/repositories"
	"github.com/opslens/contextgraph/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("bind_addr", cfg.BindAddr),
		zap.String("port", cfg.Port),
		zap.Bool("auth_verification", cfg.Auth.EnableVerification),
		zap.String("database", logging.SanitizeConnectionString(cfg.Database.ConnectionString())),
		zap.Bool("hosts_forward_downstream", cfg.Traversal.HostsForwardDownstream))

	ctx := context.Background()

	// Connect to the entity store
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.String("error", logging.SanitizeError(err)))
	}
	defer db.Close()

	// Run migrations using database/sql (required by golang-migrate)
	sqlDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.String("error", logging.SanitizeError(err)))
	}
	if err := database.RunMigrations(sqlDB, cfg.MigrationsPath, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.String("error", logging.SanitizeError(err)))
	}
	_ = sqlDB.Close()

	// Metrics
	metricsRegistry := metrics.NewRegistry()

	// Repositories
	entityRepo := repositories.NewEntityRepository()
	relationshipRepo := repositories.NewRelationshipRepository()

	// Services
	traversalService := services.NewTraversalService(relationshipRepo, cfg.Traversal, metricsRegistry, logger)
	incidentService := services.NewIncidentService(entityRepo, relationshipRepo, traversalService, metricsRegistry, logger)
	topologyService := services.NewTopologyService(entityRepo, relationshipRepo, logger)

	// Optional startup topology seed for local and demo setups
	if cfg.Seed.File != "" && cfg.Seed.TenantID != "" {
		getTenantCtx := services.NewTenantContextFunc(db)
		seedCtx, cleanup, err := getTenantCtx(ctx, cfg.Seed.TenantID)
		if err != nil {
			logger.Fatal("Failed to acquire tenant scope for seeding", zap.Error(err))
		}
		summary, err := topologyService.SeedFromFile(seedCtx, cfg.Seed.TenantID, cfg.Seed.File)
		cleanup()
		if err != nil {
			logger.Fatal("Failed to seed topology", zap.Error(err))
		}
		logger.Info("Seeded topology from file",
			zap.String("file", cfg.Seed.File),
			zap.Int("entities", summary.Entities),
			zap.Int("relationships", summary.Relationships))
	}

	// Authentication
	jwksClient, err := auth.NewJWKSClient(&auth.JWKSConfig{
		EnableVerification: cfg.Auth.EnableVerification,
		JWKSEndpoints:      cfg.Auth.JWKSEndpoints,
	})
	if err != nil {
		logger.Fatal("Failed to create JWKS client", zap.Error(err))
	}
	defer jwksClient.Close()

	authService := auth.NewAuthService(jwksClient, logger.Named("auth"))
	authMiddleware := auth.NewMiddleware(authService, logger.Named("auth"))
	tenantMiddleware := handlers.TenantMiddleware(database.WithTenantContext(db, logger.Named("tenant")))

	mux := http.NewServeMux()

	// Register handlers
	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	incidentHandler := handlers.NewIncidentHandler(incidentService, logger.Named("incident_handler"))
	incidentHandler.RegisterRoutes(mux, authMiddleware, tenantMiddleware)

	topologyHandler := handlers.NewTopologyHandler(topologyService, logger.Named("topology_handler"))
	topologyHandler.RegisterRoutes(mux, authMiddleware, tenantMiddleware)

	mux.Handle("/metrics", promhttp.HandlerFor(metricsRegistry.Prometheus(), promhttp.HandlerOpts{}))

	// MCP server for assistant-driven incident analysis
	mcpServer := mcp.NewServer("contextgraph", cfg.Version, logger.Named("mcp"))
	mcptools.RegisterIncidentTools(mcpServer.MCP(), &mcptools.IncidentToolDeps{
		DB:              db,
		IncidentService: incidentService,
		EntityRepo:      entityRepo,
		Logger:          logger.Named("mcp_tools"),
	})
	streamable := mcpServer.NewStreamableHTTPServer()
	mux.Handle("/mcp", authMiddleware.RequireAuth(streamable.ServeHTTP))

	handler := middleware.RequestLogger(logger.Named("http"))(
		middleware.RequestMetrics(metricsRegistry, mux)(mux))

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting contextgraph",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

// newLogger builds the process logger: human-readable in local development,
// JSON in deployed environments.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
