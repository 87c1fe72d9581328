package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jask/pnljournal/internal/config"
	"github.com/jask/pnljournal/internal/database"
	"github.com/jask/pnljournal/internal/database/repository"
	"github.com/jask/pnljournal/internal/logging"
	"github.com/jask/pnljournal/internal/service"
	"github.com/jask/pnljournal/internal/sidebar"
	"github.com/jask/pnljournal/internal/tui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// env is what every command needs once config and logging are set up.
type env struct {
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "pnljournal",
		Short:         "Trading journal with a daily P&L dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if e.logger != nil {
				_ = e.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runDash(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", "", "config file (default ~/.config/pnljournal/config.toml)")
	root.PersistentFlags().BoolVarP(&e.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		&cobra.Command{
			Use:   "dash",
			Short: "Open the dashboard",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return e.runDash(cmd.Context())
			},
		},
		e.importCmd(),
		e.seriesCmd(),
		e.configCmd(),
		e.resetCmd(),
		e.seedCmd(),
	)
	return root
}

func (e *env) setup() error {
	if e.configPath != "" {
		if err := os.Setenv("PNLJOURNAL_CONFIG", e.configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if e.verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	e.cfg, e.logger = cfg, logger
	return nil
}

// openDB applies migrations and opens the database.
func (e *env) openDB() (*sql.DB, error) {
	if err := database.RunMigrations(e.cfg.Database.Path); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(e.cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return db, nil
}

func (e *env) seriesService(db *sql.DB) *service.SeriesService {
	loc, err := e.cfg.Location()
	if err != nil {
		e.logger.Warn("using local timezone", zap.Error(err))
	}
	return &service.SeriesService{
		Trades:   repository.NewTradeRepo(db),
		Location: loc,
		Logger:   e.logger.Named("series"),
	}
}

func (e *env) runDash(ctx context.Context) error {
	db, err := e.openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	store := sidebar.NewStore(
		sidebar.WithDuration(e.cfg.Layout.TransitionDuration()),
		sidebar.WithCollapsed(e.cfg.Layout.SidebarCollapsed),
		sidebar.WithLogger(e.logger.Named("sidebar")),
	)
	defer store.Close()

	app := tui.New(ctx, e.cfg, tui.Deps{
		Store:  store,
		Series: e.seriesService(db),
		Logger: e.logger.Named("tui"),
	})
	defer app.Close()

	e.logger.Info("dashboard started", zap.String("db", e.cfg.Database.Path))
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
