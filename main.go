// Package main provides the main entry point for the Tarazu valuation rule engine
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/Tarazu/app/commands"
	"github.com/amirphl/Tarazu/app/services"
	businessflow "github.com/amirphl/Tarazu/business_flow"
	"github.com/amirphl/Tarazu/config"
	"github.com/amirphl/Tarazu/engine"
	"github.com/amirphl/Tarazu/models"
	"github.com/amirphl/Tarazu/repository"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application bundles the wired flows the CLI commands run against
type Application struct {
	config    *config.ProductionConfig
	logger    *slog.Logger
	pricing   businessflow.PricingFlow
	hydration businessflow.HydrationFlow
	authoring businessflow.AuthoringFlow
	exporter  services.QuoteExporter
	closeFns  []func()
}

// Close releases database, cache and metrics resources in reverse order
func (a *Application) Close() {
	for i := len(a.closeFns) - 1; i >= 0; i-- {
		a.closeFns[i]()
	}
}

var evaluateFlags struct {
	basePrice float64
	ruleset   string
	currency  string
	export    string
	asJSON    bool
}

var hydrateFlags struct {
	actor string
}

var rootCmd = &cobra.Command{
	Use:   "tarazu",
	Short: "Tarazu - valuation rule engine for used hardware listings",
	Long: `Tarazu prices used-hardware catalog listings against a catalog of
conditional pricing rules: ruleset selection, condition matching, action
amounts, multiplier cascades and formula contributions.

Catalogs are authored as rulesets of grouped rules and stored in PostgreSQL;
baseline pricing fields are hydrated into concrete rules on demand.`,
	SilenceUsage: true,
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <listing.json>",
	Short: "Price a listing described by a JSON file",
	Long: `Price a single listing. The JSON file carries the base price and the
listing context (flat attributes plus optional item/specs/benchmarks maps);
flags override file values.

Examples:
  tarazu evaluate listing.json
  tarazu evaluate listing.json --base-price 300 --currency EUR
  tarazu evaluate listing.json --ruleset 6f1b... --export quote.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ctx, cancel, err := bootstrap()
		if err != nil {
			return err
		}
		defer cancel()
		defer app.Close()

		opts := commands.EvaluateOptions{
			ContextPath:     args[0],
			RulesetUUID:     evaluateFlags.ruleset,
			Currency:        evaluateFlags.currency,
			DefaultCurrency: app.config.Engine.Currency,
			ExportPath:      evaluateFlags.export,
			AsJSON:          evaluateFlags.asJSON,
		}
		if cmd.Flags().Changed("base-price") {
			opts.BasePrice = &evaluateFlags.basePrice
		}

		return commands.NewEvaluateCommand(app.pricing, app.exporter).Run(ctx, opts)
	},
}

var hydrateCmd = &cobra.Command{
	Use:   "hydrate <ruleset-uuid>",
	Short: "Expand a ruleset's baseline fields into concrete rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ctx, cancel, err := bootstrap()
		if err != nil {
			return err
		}
		defer cancel()
		defer app.Close()

		return commands.NewHydrateCommand(app.hydration).Run(ctx, args[0], hydrateFlags.actor)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed-demo",
	Short: "Create and hydrate a demo catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, ctx, cancel, err := bootstrap()
		if err != nil {
			return err
		}
		defer cancel()
		defer app.Close()

		return commands.NewSeedCommand(app.authoring, app.hydration).Run(ctx)
	},
}

func init() {
	evaluateCmd.Flags().Float64Var(&evaluateFlags.basePrice, "base-price", 0, "override the base price from the listing file")
	evaluateCmd.Flags().StringVar(&evaluateFlags.ruleset, "ruleset", "", "pin evaluation to a ruleset UUID")
	evaluateCmd.Flags().StringVar(&evaluateFlags.currency, "currency", "", "currency label for the result")
	evaluateCmd.Flags().StringVar(&evaluateFlags.export, "export", "", "write an xlsx quote to this path")
	evaluateCmd.Flags().BoolVar(&evaluateFlags.asJSON, "json", false, "print the raw JSON response")

	hydrateCmd.Flags().StringVar(&hydrateFlags.actor, "actor", "", "who runs the hydration (recorded in the audit trail)")
	_ = hydrateCmd.MarkFlagRequired("actor")

	rootCmd.AddCommand(evaluateCmd, hydrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration, wires the application and derives a context
// that cancels on SIGINT/SIGTERM.
func bootstrap() (*Application, context.Context, context.CancelFunc, error) {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	app, err := initializeApplication(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return app, ctx, cancel, nil
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Debug("database connection established",
		"max_open_conns", cfg.MaxOpenConns,
		"max_idle_conns", cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Debug("redis connection established", "db", cfg.RedisDB)
	return rc, nil
}

// startMetricsServer exposes Prometheus metrics while a command runs. The
// returned stop function shuts the listener down.
func startMetricsServer(cfg config.MetricsConfig, logger *slog.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()

	return func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	logger := config.NewLogger(cfg.Logging)
	slog.SetDefault(logger)

	var closeFns []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}
	closeFns = append(closeFns, func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	})

	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		closeFns = append(closeFns, func() { _ = rc.Close() })
	}

	if cfg.Metrics.Enabled {
		closeFns = append(closeFns, startMetricsServer(cfg.Metrics, logger))
	}

	// Initialize repositories
	rulesetRepo := repository.NewRulesetRepository(db)
	groupRepo := repository.NewRuleGroupRepository(db)
	ruleRepo := repository.NewRuleRepository(db)
	fieldRepo := repository.NewBaselineFieldRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	txRunner := repository.NewGormTransactionRunner(db)

	// Initialize the evaluation engine
	formulas, err := engine.NewFormulaEvaluator(cfg.Engine.FormulaCostLimit, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize formula evaluator: %w", err)
	}
	evaluator := engine.NewEvaluator(formulas, logger)
	catalogCache := businessflow.NewCatalogCache(&cfg.Cache, rc, logger)

	// Initialize flows
	pricingFlow := businessflow.NewPricingFlow(rulesetRepo, catalogCache, evaluator, logger)

	hydrationFlow := businessflow.NewHydrationFlow(
		rulesetRepo,
		ruleRepo,
		fieldRepo,
		auditRepo,
		txRunner,
		formulas,
		catalogCache,
		cfg.Hydration.RelationshipFields,
		cfg.Hydration.ValueKeySynonyms,
		logger,
	)

	authoringFlow := businessflow.NewAuthoringFlow(
		rulesetRepo,
		groupRepo,
		ruleRepo,
		fieldRepo,
		auditRepo,
		formulas,
		catalogCache,
		cfg.Engine.MaxConditionDepth,
		logger,
	)

	return &Application{
		config:    cfg,
		logger:    logger,
		pricing:   pricingFlow,
		hydration: hydrationFlow,
		authoring: authoringFlow,
		exporter:  services.NewExcelQuoteExporter(),
		closeFns:  closeFns,
	}, nil
}
