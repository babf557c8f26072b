package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/andresmejia3/faceguard/internal/config"
	"github.com/andresmejia3/faceguard/internal/extractor"
	"github.com/andresmejia3/faceguard/internal/lock"
	"github.com/andresmejia3/faceguard/internal/logger"
	"github.com/andresmejia3/faceguard/internal/service"
	"github.com/andresmejia3/faceguard/internal/store"
	"github.com/andresmejia3/faceguard/internal/worker"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Backend is the template store the commands operate on.
type Backend interface {
	service.TemplateStore
	Reset(ctx context.Context) error
}

var (
	// DB is the global store shared by subcommands
	DB Backend
	// Cfg is the configuration loaded before every command
	Cfg *config.Config

	// dbURL overrides DATABASE_URL / POSTGRES_*
	dbURL     string
	useMemory bool
	logLevel  string
	threshold float64

	closers []func()
	// redisLocker is set when per-user locks are shared through Redis
	redisLocker *lock.RedisLocker
	// engineSlots is the number of detections the engine runs at once
	engineSlots int
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "faceguard",
	Short:   "Face enrollment and authentication service",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is normal outside development.
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read .env: %w", err)
		}

		var err error
		Cfg, err = config.Load()
		if err != nil {
			return err
		}
		if dbURL != "" {
			Cfg.Database.URL = dbURL
		}
		if logLevel != "" {
			Cfg.Log.Level = logLevel
		}
		if cmd.Flags().Changed("threshold") {
			Cfg.Policy.MatchThreshold = threshold
			if err := Cfg.Policy.Validate(); err != nil {
				return fmt.Errorf("invalid --threshold: %w", err)
			}
		}
		if err := logger.Initialize(Cfg.Log.Level, Cfg.Log.Format); err != nil {
			return err
		}

		if useMemory {
			logger.Warning("using in-memory store; templates are lost on exit")
			DB = store.NewMemoryStore()
			return nil
		}

		// Use the command's context (which will be cancellable) for the connection
		pg, err := store.New(cmd.Context(), Cfg.Database.URL, Cfg.Database.MaxConns)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		DB = pg
		closers = append(closers, pg.Close)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		cleanup()
	},
}

// cleanup releases everything opened for the command, newest first.
func cleanup() {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	closers = nil
	logger.Sync()
}

// newExtractor builds the configured face engine client and records how
// many detections it serves at once in engineSlots.
func newExtractor() (extractor.Extractor, error) {
	ec := Cfg.Extractor
	if ec.Mode == "http" {
		engineSlots = ec.Workers
		return extractor.NewHTTPExtractor(ec.URL, ec.Timeout), nil
	}
	pool, err := worker.NewEnginePool(ec.Workers, ec.Timeout, ec.Command, ec.Script)
	if err != nil {
		return nil, err
	}
	closers = append(closers, pool.Close)
	engineSlots = pool.Size()
	return pool, nil
}

// newLocker returns a Redis locker when REDIS_ADDR is set. A nil Locker makes
// the service fall back to in-process locks.
func newLocker(ctx context.Context) (lock.Locker, error) {
	rc := Cfg.Redis
	if rc.Addr == "" {
		return nil, nil
	}
	rl, err := lock.NewRedisLocker(ctx, rc.Addr, rc.Password, rc.DB, rc.LockTTL)
	if err != nil {
		return nil, err
	}
	closers = append(closers, func() { rl.Close() })
	redisLocker = rl
	return rl, nil
}

// newService wires the store, engine and locker into a Service.
func newService(ctx context.Context) (*service.Service, error) {
	ext, err := newExtractor()
	if err != nil {
		return nil, fmt.Errorf("failed to start face engine: %w", err)
	}
	lk, err := newLocker(ctx)
	if err != nil {
		return nil, err
	}
	return service.New(ext, DB, lk, Cfg.Policy, service.Options{Concurrency: engineSlots}), nil
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cleanup()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string (default: DATABASE_URL or postgres://localhost:5432/faceguard)")
	rootCmd.PersistentFlags().BoolVar(&useMemory, "memory", false, "Keep templates in memory instead of PostgreSQL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Float64Var(&threshold, "threshold", 0.6, "Match threshold (overrides MATCH_THRESHOLD and CALIBRATION_FILE)")
}
