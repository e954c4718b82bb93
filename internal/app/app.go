package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/pandals/internal/auth"
	"github.com/five82/pandals/internal/backend"
	"github.com/five82/pandals/internal/config"
	"github.com/five82/pandals/internal/imagecache"
	"github.com/five82/pandals/internal/location"
	"github.com/five82/pandals/internal/logging"
	"github.com/five82/pandals/internal/prefs"
	"github.com/five82/pandals/internal/sqlstore"
	"github.com/five82/pandals/internal/state"
	"github.com/five82/pandals/internal/supabase"
	"github.com/five82/pandals/internal/ui"
)

const initialLoadTimeout = 10 * time.Second

// Options configure the pandals application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/pandals/prefs.toml
	Migrate    bool   // postgres backend: create missing tables before starting
	SignOut    bool   // drop the cached personal data and exit
	Debug      bool   // log SQL statements
}

// Run boots the pandals TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logging.New(logging.Options{Path: cfg.LogFile, Level: cfg.LogLevel})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = closeLog() }()

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		log.Warn("load preferences failed", zap.Error(err))
	}

	identity := auth.NewSession()
	b, closeBackend, err := openBackend(ctx, cfg, identity, opts, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			log.Warn("close backend failed", zap.Error(err))
		}
	}()

	alerts := ui.NewAlerts()
	session := state.NewSession(b, state.SessionOptions{
		Persister:       prefs.RatingsFile{Path: prefs.DefaultRatingsPath()},
		Notifier:        alerts,
		Logger:          log.Named("state"),
		FreshnessWindow: cfg.FreshnessWindow,
	})

	if opts.SignOut {
		return session.Shutdown()
	}

	identity.OnChange(func(userID string) {
		if userID == "" {
			if err := session.End(); err != nil {
				log.Warn("end session failed", zap.Error(err))
			}
			return
		}
		loadCtx, cancel := context.WithTimeout(ctx, initialLoadTimeout)
		defer cancel()
		if err := session.Start(loadCtx, userID); err != nil {
			log.Warn("start session failed", zap.String("user_id", userID), zap.Error(err))
		}
	})

	// Do initial load to populate the stores before the UI starts
	if cfg.AccessToken != "" {
		if err := identity.SignIn(cfg.AccessToken); err != nil {
			log.Warn("sign in failed, browsing as guest", zap.Error(err))
		}
	}
	if identity.UserID() == "" {
		loadCtx, cancel := context.WithTimeout(ctx, initialLoadTimeout)
		if err := state.IgnoreInFlight(session.Pandals.Load(loadCtx, false)); err != nil {
			log.Warn("initial pandal load failed", zap.Error(err))
		}
		cancel()
	}

	pollCtx, stopPoller := context.WithCancel(ctx)
	pollDone := StartPoller(pollCtx, session.Pandals, cfg.FreshnessWindow, log.Named("poller"))

	tracker := location.NewTracker(location.NewStatic(cfg.FixedPosition()), cfg.LocationInterval, log.Named("location"))
	defer tracker.Stop()

	images := imagecache.New(imagecache.NewHTTPPrefetcher(), cfg.ImageCacheTTL, log.Named("images"))

	err = ui.Run(ui.Options{
		Context:   ctx,
		Session:   session,
		Tracker:   tracker,
		Images:    images,
		Alerts:    alerts,
		Logger:    log,
		LogPath:   cfg.LogFile,
		Identity:  displayName(identity),
		Sort:      userPrefs.Sort,
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
	})
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}

	stopPoller()
	<-pollDone
	return err
}

// openBackend selects the REST or SQL implementation from the config.
func openBackend(ctx context.Context, cfg config.Config, identity *auth.Session, opts Options, log *zap.Logger) (backend.Backend, func() error, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		store, err := sqlstore.Open(cfg.DatabaseURL, opts.Debug)
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		if opts.Migrate {
			if err := store.Migrate(ctx); err != nil {
				_ = store.Close()
				return nil, nil, fmt.Errorf("migrate database: %w", err)
			}
			log.Info("database migrated")
		}
		return store, store.Close, nil

	default:
		clientOpts := []supabase.Option{supabase.WithTokenSource(identity)}
		if cfg.RequestsPerSecond > 0 {
			clientOpts = append(clientOpts, supabase.WithRateLimit(cfg.RequestsPerSecond))
		}
		client, err := supabase.NewClient(cfg.SupabaseURL, cfg.AnonKey, clientOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("init supabase client: %w", err)
		}
		return client, func() error { return nil }, nil
	}
}

func displayName(identity *auth.Session) string {
	if email := identity.Email(); email != "" {
		return email
	}
	return identity.UserID()
}
