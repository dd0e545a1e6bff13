package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pbaille/carnet/internal/auth"
	"github.com/pbaille/carnet/internal/config"
	"github.com/pbaille/carnet/internal/domain"
	"github.com/pbaille/carnet/internal/exchange"
	"github.com/pbaille/carnet/internal/logging"
	"github.com/pbaille/carnet/internal/store"
)

var (
	dbPath   string
	driver   string
	username string
	password string
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "carnet",
		Short:         "Address book with tags, relations and follow-ups",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&dbPath, "db", "", "database path (default from config)")
	flags.StringVar(&driver, "driver", "", "sqlite driver: sqlite3 (cgo) or sqlite (pure Go)")
	flags.StringVarP(&username, "user", "u", "", "account to act as (env CARNET_USER)")
	flags.StringVarP(&password, "password", "p", "", "account password (env CARNET_PASSWORD)")
	flags.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	rootCmd.AddCommand(contactCmd())
	rootCmd.AddCommand(tagCmd())
	rootCmd.AddCommand(findCmd())
	rootCmd.AddCommand(relationCmd())
	rootCmd.AddCommand(duplicatesCmd())
	rootCmd.AddCommand(mergeCmd())
	rootCmd.AddCommand(interactionCmd())
	rootCmd.AddCommand(reminderCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(auditCmd())
	rootCmd.AddCommand(backupCmd())

	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

// app is what a command works with: the opened store, its services and the
// acting account
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *store.Store
	auth     *auth.Service
	exchange *exchange.Service
	// user is nil while the book has no account yet
	user *domain.User
}

// actor is the audit identity of the session
func (a *app) actor() domain.Actor {
	if a.user == nil {
		return domain.Actor{}
	}
	return a.user.Actor()
}

func (a *app) Close() {
	a.store.Close()
	a.log.Sync()
}

// openApp opens the book and checks that the session may perform action.
// A book without accounts is used by its single local owner; once an account
// exists every command authenticates.
func openApp(action string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	log, err := logging.New(level, cfg.Log.JSON)
	if err != nil {
		return nil, err
	}

	st, err := getStore(cfg, log)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		store:    st,
		auth:     auth.New(st, 0, log),
		exchange: exchange.New(st, log),
	}
	a.exchange.BlankGivenMatchesAny = cfg.Import.MatchesAny()

	if err := a.login(action); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) login(action string) error {
	n, err := a.store.CountUsers()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}

	name := firstNonEmpty(username, os.Getenv("CARNET_USER"), a.cfg.User)
	if name == "" {
		return errors.New("this book has accounts: pass --user and --password")
	}
	u, err := a.auth.Authenticate(name, firstNonEmpty(password, os.Getenv("CARNET_PASSWORD")))
	if err != nil {
		return err
	}
	a.user = u

	if !auth.Allowed(u, action) {
		return fmt.Errorf("%s may not %s: %w", u.Username, action, auth.ErrForbidden)
	}
	return nil
}

func getStore(cfg *config.Config, log *zap.Logger) (*store.Store, error) {
	path := dbPath
	if path == "" {
		var err error
		if path, err = cfg.DatabasePath(); err != nil {
			return nil, err
		}
	}
	drv := firstNonEmpty(driver, cfg.Database.Driver, store.DriverCGo)

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	log.Debug("opening book", zap.String("path", path), zap.String("driver", drv))
	return store.New(path, store.WithDriver(drv), store.WithLogger(log))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
