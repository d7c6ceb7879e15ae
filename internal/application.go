package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/rocketscienceinc/tictactoe-solo/internal/config"
	"github.com/rocketscienceinc/tictactoe-solo/internal/repository"
	"github.com/rocketscienceinc/tictactoe-solo/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-solo/internal/service"
	"github.com/rocketscienceinc/tictactoe-solo/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-solo/transport/rest"
	"github.com/rocketscienceinc/tictactoe-solo/transport/terminal"
)

var (
	ErrAddrNotFound   = errors.New("redis address string is empty")
	ErrUnknownStorage = errors.New("unknown storage type")
)

// App holds everything the commands share.
type App struct {
	logger *slog.Logger
	conf   *config.Config

	history   *service.HistoryService
	bot       service.BotService
	reflector usecase.Reflector

	closers []func() error
}

// NewRootCommand builds the CLI: play in the terminal, serve over HTTP, or list past games.
func NewRootCommand(logger *slog.Logger, conf *config.Config) *cobra.Command {
	var app *App

	root := &cobra.Command{
		Use:           "tictactoe",
		Short:         "Single-player Tic-Tac-Toe against a CPU",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			app, err = NewApp(cmd.Context(), logger, conf)
			return err
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if app == nil {
				return nil
			}
			return app.Close()
		},
	}

	root.PersistentFlags().StringVar(&conf.Storage.Type, "storage", conf.Storage.Type, "history storage: memory, redis or sqlite")
	root.PersistentFlags().BoolVar(&conf.CPU.Offline, "offline", conf.CPU.Offline, "never ask Gemini, use the rule-based CPU only")

	root.AddCommand(
		playCmd(func() *App { return app }),
		serveCmd(func() *App { return app }, conf),
		historyCmd(func() *App { return app }, conf),
	)

	return root
}

// Execute runs the root command until it finishes or a signal arrives.
func Execute(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	go func() {
		select {
		case sig := <-sigs:
			log.Info("Received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return NewRootCommand(logger, conf).ExecuteContext(ctx)
}

func playCmd(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Play in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()

			console := terminal.NewConsole(
				a.logger,
				a.NewGame(),
				a.history,
				a.conf.HistoryLimit,
				cmd.InOrStdin(),
				termenv.NewOutput(cmd.OutOrStdout()),
			)

			return console.Run(cmd.Context())
		},
	}
}

func serveCmd(app func() *App, conf *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve games over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()

			sessions := usecase.NewSessionManager(a.logger, a.NewGame, a.conf.SessionIdleTTL)
			handlers := rest.NewHandlers(a.logger, sessions, a.history, a.conf.HistoryLimit)

			a.logger.Info("Starting HTTP server", "port", a.conf.HTTPPort)
			if err := rest.Start(cmd.Context(), a.logger, a.conf.HTTPPort, handlers); err != nil {
				return fmt.Errorf("HTTP server error: %w", err)
			}

			a.logger.Info("Application context canceled, shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&conf.HTTPPort, "port", conf.HTTPPort, "HTTP port")

	return cmd
}

func historyCmd(app func() *App, conf *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := app()

			records, err := a.history.Recent(cmd.Context(), a.conf.HistoryLimit)
			if err != nil {
				return err
			}

			return terminal.PrintHistory(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().IntVarP(&conf.HistoryLimit, "limit", "n", conf.HistoryLimit, "number of games to show")

	return cmd
}

// NewApp opens the configured storage and, unless offline, the Gemini client.
func NewApp(ctx context.Context, logger *slog.Logger, conf *config.Config) (*App, error) {
	app := &App{
		logger: logger,
		conf:   conf,
	}

	gameRepo, err := app.openStorage(ctx)
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	app.history = service.NewHistoryService(logger, gameRepo)

	var suggester service.Suggester
	if conf.Gemini.Enabled() && !conf.CPU.Offline {
		gemini, geminiErr := service.NewGeminiClient(ctx, conf.Gemini)
		if geminiErr != nil {
			logger.Warn("Gemini unavailable, using rule-based CPU", "error", geminiErr)
		} else {
			logger.Info("Gemini enabled", "model", conf.Gemini.Model)
			suggester = gemini
			app.reflector = gemini
		}
	}

	app.bot = service.NewBotService(logger, suggester, conf.CPU.SuggestTimeout)

	return app, nil
}

// NewGame builds a fresh game manager wired to the shared services.
func (that *App) NewGame() *usecase.GameManager {
	random := rand.New(rand.NewSource(time.Now().UnixNano()))

	return usecase.NewGameManager(that.logger, that.bot, that.history, random, that.reflector, that.conf.CPU.ReflectTimeout)
}

func (that *App) Close() error {
	var errs []error
	for i := len(that.closers) - 1; i >= 0; i-- {
		if err := that.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	that.closers = nil

	return errors.Join(errs...)
}

func (that *App) openStorage(ctx context.Context) (repository.GameRepository, error) {
	log := that.logger.With("component", "app", "storage", that.conf.Storage.Type)

	switch that.conf.Storage.Type {
	case config.StorageMemory, "":
		log.Info("History kept in memory")
		return repository.NewMemoryGameRepository(), nil

	case config.StorageRedis:
		if that.conf.Redis.Host == "" || that.conf.Redis.Port == "" {
			return nil, ErrAddrNotFound
		}

		redisStorage, err := storage.NewRedisStorage(ctx, that.conf.Redis.GetRedisAddr())
		if err != nil {
			return nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}
		that.closers = append(that.closers, redisStorage.Close)

		log.Info("History kept in redis", "addr", that.conf.Redis.GetRedisAddr())
		return repository.NewGameRepository(redisStorage.Connection), nil

	case config.StorageSQLite:
		sqliteStorage, err := storage.NewSQLiteStorage(that.conf.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}
		that.closers = append(that.closers, sqliteStorage.Close)

		if err = sqliteStorage.Init(ctx); err != nil {
			return nil, fmt.Errorf("could not init sqlite storage: %w", err)
		}

		log.Info("History kept in sqlite", "path", that.conf.SQLite.Path)
		return repository.NewSQLiteGameRepository(sqliteStorage.Connection), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStorage, that.conf.Storage.Type)
	}
}
