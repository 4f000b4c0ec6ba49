// Command todos-server starts the todo HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/hugo-r/server-challenge/internal/cache"
	"github.com/hugo-r/server-challenge/internal/config"
	"github.com/hugo-r/server-challenge/internal/crypto"
	"github.com/hugo-r/server-challenge/internal/limiter"
	"github.com/hugo-r/server-challenge/internal/migrate"
	"github.com/hugo-r/server-challenge/internal/model"
	"github.com/hugo-r/server-challenge/internal/repository"
	"github.com/hugo-r/server-challenge/internal/repository/memory"
	"github.com/hugo-r/server-challenge/internal/repository/postgres"
	grpcserver "github.com/hugo-r/server-challenge/internal/server/grpc"
	httpserver "github.com/hugo-r/server-challenge/internal/server/http"
	"github.com/hugo-r/server-challenge/internal/service"
	"github.com/hugo-r/server-challenge/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "todos-server:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	root := &cobra.Command{
		Use:           "todos-server",
		Short:         "Cookie-session todo server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Bind(v, cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg, logger); err != nil {
				logger.Error("server stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}
	config.RegisterFlags(root.Flags())

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "todos-server %s (%s)\n", version, buildDate)
		},
	})
	return root
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsDev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// openUsers picks the credential store. The returned closer is never nil.
func openUsers(ctx context.Context, cfg config.Config, log *zap.Logger) (repository.UserRepository, func(), error) {
	if cfg.Users.Source != config.UsersPostgres {
		users := cfg.Users.Static
		if len(users) == 0 {
			log.Info("using built-in demo users")
			users = memory.DemoUsers
		}
		return memory.NewUserRepo(users), func() {}, nil
	}

	if err := migrate.Up(ctx, cfg.DatabaseDSN); err != nil {
		return nil, nil, fmt.Errorf("migrate up: %w", err)
	}
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewUserRepo(db), db.Close, nil
}

// newLimiter returns the login limiter and the cache it keeps its buckets in (nil when disabled).
func newLimiter(cfg config.Config) (limiter.Limiter, *limiter.Store) {
	if cfg.Limiter.MaxFails <= 0 {
		return limiter.Nop{}, nil
	}
	store := cache.New[string, *limiter.Bucket](cache.Config{CleanupInterval: cfg.Cache.CleanupInterval})
	return limiter.NewMemory(store, cfg.Limiter.Window, cfg.Limiter.MaxFails, cfg.Limiter.BlockFor), store
}

// run wires every component and blocks until ctx is done or a listener fails.
func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("mode", cfg.Mode),
		zap.String("addr", cfg.Addr),
	)
	if cfg.GeneratedSecret {
		logger.Warn("no cookie secret configured; generated one for this process, sessions end on restart")
	}

	users, closeUsers, err := openUsers(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeUsers()

	key, err := crypto.DeriveSessionKey([]byte(cfg.Cookie.Secret))
	if err != nil {
		return fmt.Errorf("session key: %w", err)
	}

	todoStore := cache.New[memory.TodoKey, model.Todo](cache.Config{
		MaxEntries:      cfg.Cache.MaxEntries,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})
	defer func() { _ = todoStore.Close() }()

	lim, limStore := newLimiter(cfg)
	if limStore != nil {
		defer func() { _ = limStore.Close() }()
	}

	authSvc := service.NewAuthService(users, session.NewCodec(key, cfg.Cookie.TTL), lim)
	todoSvc := service.NewTodoService(memory.NewTodoRepo(todoStore, cfg.Todos.TTL))

	app := httpserver.New(authSvc, todoSvc, session.CookieOptions{
		Name:   cfg.Cookie.Name,
		Secure: cfg.Cookie.Secure,
	}, logger)
	hs := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("listening", zap.String("addr", lis.Addr().String()))
		if err := hs.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http: %w", err)
		}
	}()

	var health *grpcserver.Server
	if cfg.HealthAddr != "" {
		hl, err := net.Listen("tcp", cfg.HealthAddr)
		if err != nil {
			shutdownHTTP(hs, cfg.ShutdownTimeout, logger)
			return fmt.Errorf("listen health %s: %w", cfg.HealthAddr, err)
		}
		health = grpcserver.New(logger, cfg.IsDev())
		go func() {
			logger.Info("health listening", zap.String("addr", hl.Addr().String()))
			if err := health.Serve(hl); err != nil {
				errCh <- fmt.Errorf("health: %w", err)
			}
		}()
		health.SetServing(true)
	}

	// Wait for stop
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case runErr = <-errCh:
		logger.Error("listener failed", zap.Error(runErr))
	}

	if health != nil {
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		health.Stop(sctx)
		cancel()
	}
	shutdownHTTP(hs, cfg.ShutdownTimeout, logger)

	logger.Info("shutdown complete")
	return runErr
}

func shutdownHTTP(hs *http.Server, timeout time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := hs.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown timed out, closing", zap.Error(err))
		_ = hs.Close()
	}
}
