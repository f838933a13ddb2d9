package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/collabsql/internal/auth"
	cachepkg "github.com/dropDatabas3/collabsql/internal/cache"
	memcache "github.com/dropDatabas3/collabsql/internal/cache/memory"
	rediscache "github.com/dropDatabas3/collabsql/internal/cache/redis"
	"github.com/dropDatabas3/collabsql/internal/collab"
	"github.com/dropDatabas3/collabsql/internal/config"
	"github.com/dropDatabas3/collabsql/internal/email"
	authctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/auth"
	dbctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/databases"
	grantctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/grants"
	healthctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/health"
	histctrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/history"
	presencectrl "github.com/dropDatabas3/collabsql/internal/httpx/controllers/presence"
	"github.com/dropDatabas3/collabsql/internal/httpx/router"
	"github.com/dropDatabas3/collabsql/internal/ledger"
	"github.com/dropDatabas3/collabsql/internal/observability/logger"
	"github.com/dropDatabas3/collabsql/internal/permission"
	"github.com/dropDatabas3/collabsql/internal/rate"
	"github.com/dropDatabas3/collabsql/internal/store"
	memstore "github.com/dropDatabas3/collabsql/internal/store/memory"
	pgstore "github.com/dropDatabas3/collabsql/internal/store/pg"
)

func main() {
	// .env si existe; si no, env del sistema
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:          "collabsql",
		Short:        "Servidor de colaboración y auditoría para databases compartidas",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("CONFIG_PATH"), "ruta del archivo de configuración YAML")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP + WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cfgPath)
		},
	}

	var migrationsDir string
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones de Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cfgPath, migrationsDir)
		},
	}
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "migrations/postgres", "directorio con las migraciones *_up.sql")

	root.AddCommand(serveCmd, migrateCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ===== SERVE =====

func runServe(cfgPath string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Paso 1: storage
	st, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer st.Close()

	if cfg.Flags.Migrate {
		pg, ok := st.(*pgstore.Store)
		if !ok {
			return fmt.Errorf("flags.migrate requiere storage.driver=postgres")
		}
		if err := pg.RunMigrations(ctx, "migrations/postgres"); err != nil {
			return fmt.Errorf("migraciones: %w", err)
		}
		log.Info("migraciones aplicadas al arranque")
	}

	// Paso 2: cache y rate limiting
	appCache, redisClient := buildCache(cfg)
	var loginLimiter, registerLimiter rate.Limiter
	if cfg.Rate.Enabled && redisClient != nil {
		loginLimiter = rate.NewRedisLimiter(redisClient, "rl:login:", cfg.Rate.Login.Limit, cfg.LoginWindow())
		registerLimiter = rate.NewRedisLimiter(redisClient, "rl:register:", cfg.Rate.Register.Limit, cfg.RegisterWindow())
	}

	// Paso 3: servicios de dominio
	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.AccessTTL(), st)
	authService := auth.NewService(st, tokens)
	gate := permission.NewGate(st, st, appCache, cfg.Collab.GrantCacheTTL)

	var notifier permission.Notifier
	if cfg.SMTP.Host != "" {
		notifier = email.NewGrantNotifier(email.NewSMTPSender(
			cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password,
		))
	}
	admin := permission.NewAdmin(st, st, st, gate, notifier)
	lg := ledger.New(st, gate, cfg.Collab.HistoryPageSize)

	// Paso 4: núcleo de colaboración
	registry := collab.NewRegistry()
	broadcaster := collab.NewBroadcaster(registry)
	hub := collab.NewHub(registry, broadcaster, gate, lg)
	supervisor := collab.NewSupervisor(registry, broadcaster, cfg.Collab.StalenessThreshold, cfg.Collab.SweepInterval)
	ws := collab.NewWSHandler(hub, tokens, cfg.Server.CORSAllowedOrigins, cfg.Collab.SendBuffer)

	// Paso 5: HTTP
	handler := router.New(router.Deps{
		Verifier:           tokens,
		Auth:               authctrl.NewController(authService),
		Databases:          dbctrl.NewController(st, gate),
		Grants:             grantctrl.NewController(admin),
		History:            histctrl.NewController(lg),
		Presence:           presencectrl.NewController(registry, gate),
		Health:             healthctrl.NewController(st),
		WS:                 ws,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		LoginLimiter:       loginLimiter,
		RegisterLimiter:    registerLimiter,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // WebSocket: sin deadline global de escritura
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", logger.Any("addr", cfg.Server.Addr), logger.Any("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := supervisor.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("bye")
	return nil
}

// ===== MIGRATE =====

func runMigrate(cfgPath, dir string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Storage.Driver != "postgres" {
		return fmt.Errorf("migrate requiere storage.driver=postgres (actual: %s)", cfg.Storage.Driver)
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st, err := pgstore.New(ctx, cfg.Storage.DSN, pgstore.Config{
		MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.PGConnMaxLifetime().String(),
	})
	if err != nil {
		return err
	}
	defer st.Close()

	return st.RunMigrations(ctx, dir)
}

// ===== WIRING =====

func buildStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		return pgstore.New(ctx, cfg.Storage.DSN, pgstore.Config{
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.Postgres.MaxIdleConns,
			ConnMaxLifetime: cfg.PGConnMaxLifetime().String(),
		})
	default:
		return memstore.New(), nil
	}
}

func buildCache(cfg *config.Config) (cachepkg.Cache, *rdb.Client) {
	if cfg.Cache.Kind == "redis" {
		rc := rediscache.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.DB, cfg.Cache.Redis.Prefix)
		return rc, rc.Client()
	}
	return memcache.New(cfg.MemoryCacheTTL()), nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}
