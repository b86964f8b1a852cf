package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/sadopc/goaltrack/internal/clock"
	"github.com/sadopc/goaltrack/internal/config"
	"github.com/sadopc/goaltrack/internal/domain"
	"github.com/sadopc/goaltrack/internal/estimator"
	"github.com/sadopc/goaltrack/internal/identity"
	"github.com/sadopc/goaltrack/internal/logger"
	"github.com/sadopc/goaltrack/internal/notify"
	"github.com/sadopc/goaltrack/internal/outbox"
	"github.com/sadopc/goaltrack/internal/store"
	"github.com/sadopc/goaltrack/internal/tracker"
	"github.com/sadopc/goaltrack/internal/tui"
)

var v *viper.Viper

var rootCmd = &cobra.Command{
	Use:           "goaltrack",
	Short:         "Track timed goals with pace suggestions from your history",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context())
	},
}

func main() {
	var err error
	v, err = config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	rootCmd.PersistentFlags().String("db", "", "path to the SQLite database")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("db_path", rootCmd.PersistentFlags().Lookup("db"))
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(
		statsCmd(),
		recordsCmd(),
		suggestCmd(),
		exportCmd(),
		loginCmd(),
		signupCmd(),
		logoutCmd(),
		syncCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env holds the services shared by the TUI and the subcommands.
type env struct {
	cfg       *config.Config
	log       *zap.Logger
	store     *store.Store
	identity  *identity.Service
	estimator *estimator.Estimator
	closers   []func()
}

func openEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	log, syncLog, err := logger.New(logger.Config{
		Level:    cfg.Log.Level,
		Encoding: cfg.Log.Encoding,
		File:     cfg.Log.File,
	})
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: log, closers: []func(){syncLog}}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		e.close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	e.store = st
	e.closers = append(e.closers, func() { st.Close() })

	secret, err := identity.EnsureSecret(ctx, st, cfg.Auth.Secret)
	if err != nil {
		e.close()
		return nil, err
	}
	id, err := identity.New(st, identity.Config{Secret: secret, TTL: cfg.Auth.TTL}, clock.Real{}, log)
	if err != nil {
		e.close()
		return nil, err
	}
	e.identity = id
	if _, err := id.Restore(ctx); err != nil && !isSignedOut(err) {
		log.Warn("restore session", zap.Error(err))
	}

	e.estimator = estimator.New(st, log)
	return e, nil
}

// close runs the closers in reverse order.
func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// openOutbox starts the replay processor for failed writes.
func (e *env) openOutbox() (*outbox.Processor, error) {
	ob, err := outbox.Open(e.cfg.OutboxPath)
	if err != nil {
		return nil, err
	}
	p := outbox.NewProcessor(ob, e.store, e.log, outbox.Config{
		Interval:   e.cfg.Outbox.Interval,
		MaxRetries: e.cfg.Outbox.MaxRetries,
	})
	e.closers = append(e.closers, func() { ob.Close() })
	return p, nil
}

// requireUser returns the signed-in user or an error pointing at login.
func (e *env) requireUser() (*domain.User, error) {
	u := e.identity.CurrentUser()
	if u == nil {
		return nil, errors.New("not signed in, run `goaltrack login` first")
	}
	return u, nil
}

func isSignedOut(err error) bool {
	return errors.Is(err, domain.ErrNotSignedIn) || errors.Is(err, identity.ErrSessionExpired)
}

func runTUI(ctx context.Context) error {
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	processor, err := e.openOutbox()
	if err != nil {
		return err
	}
	processor.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		processor.Stop(stopCtx)
	}()

	uiNotifier := tui.NewNotifier()
	notifiers := notify.Multi{notify.Log{Logger: e.log}, uiNotifier}
	if e.cfg.Notify.Bell {
		notifiers = append(notifiers, notify.Bell{W: os.Stderr})
	}

	session := tracker.New(tracker.Options{
		Clock:            clock.Real{},
		Store:            e.store,
		Identity:         e.identity,
		Notifier:         notifiers,
		Outbox:           processor,
		Logger:           e.log,
		DefaultUnitLabel: e.cfg.Tracker.DefaultUnitLabel,
	})

	app := tui.NewApp(tui.Options{
		Store:     e.store,
		Session:   session,
		Estimator: e.estimator,
		Identity:  e.identity,
		Notifier:  uiNotifier,
		Logger:    e.log,
	})
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
