package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/devphilip/clausewatch/internal/alerts"
	"github.com/devphilip/clausewatch/internal/config"
	"github.com/devphilip/clausewatch/internal/core"
	"github.com/devphilip/clausewatch/internal/server"
	"github.com/devphilip/clausewatch/internal/sqlite"
	"github.com/devphilip/clausewatch/pkg/logger"
)

// App holds the application's dependencies and configuration.
type App struct {
	Config     *config.Config
	SQLite     *sqlite.DB
	Logger     *slog.Logger
	Dispatcher *alerts.Dispatcher
	server     *server.Server
	BuildInfo  string
	Version    string
}

// Options contains configuration needed when creating a new App instance.
type Options struct {
	ConfigPath string
	BuildInfo  string
	Version    string
}

// New creates and configures a new App instance.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &App{
		Config:    cfg,
		Logger:    logger.New(cfg.Logging.Level == "debug"),
		BuildInfo: opts.BuildInfo,
		Version:   opts.Version,
	}, nil
}

// Initialize sets up the database, channel senders, dispatcher, and HTTP
// server, and starts the dispatch loop.
func (a *App) Initialize(ctx context.Context) error {
	var err error

	a.SQLite, err = sqlite.New(sqlite.Options{
		Config: a.Config.SQLite,
		Logger: a.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sqlite: %w", err)
	}

	senders, err := a.buildSenders()
	if err != nil {
		return err
	}

	a.Dispatcher = alerts.NewDispatcher(alerts.Options{
		Config:   a.Config.Alerts,
		Store:    a.SQLite,
		Resolver: alerts.NewStoreContactResolver(a.SQLite),
		Senders:  senders,
		Audit:    a.SQLite,
		Logger:   a.Logger,
	})

	a.server = server.New(server.Options{
		Config:     a.Config,
		SQLite:     a.SQLite,
		Dispatcher: a.Dispatcher,
		Drafter:    core.NewMessageDrafter(a.Config.AI, a.Logger),
		Logger:     a.Logger,
		Version:    a.Version,
	})

	a.Dispatcher.Start(ctx)
	return nil
}

// buildSenders assembles the channel senders from config. Channels without
// configuration stay nil, which disables them at dispatch time.
func (a *App) buildSenders() (alerts.Senders, error) {
	var senders alerts.Senders
	timeout := a.Config.Alerts.NotificationTimeout

	switch a.Config.Email.Provider {
	case "", "smtp":
		if a.Config.Email.SMTPHost != "" {
			senders.Email = alerts.NewSMTPSender(alerts.SMTPSenderOptions{
				Host:          a.Config.Email.SMTPHost,
				Port:          a.Config.Email.SMTPPort,
				Username:      a.Config.Email.SMTPUsername,
				Password:      a.Config.Email.SMTPPassword,
				From:          a.Config.Email.From,
				ReplyTo:       a.Config.Email.ReplyTo,
				Security:      a.Config.Email.SMTPSecurity,
				Timeout:       timeout,
				SkipTLSVerify: a.Config.Email.SkipTLSVerify,
				Logger:        a.Logger,
			})
		}
	case "resend":
		if a.Config.Email.ResendAPIKey == "" {
			return senders, fmt.Errorf("email provider is resend but resend_api_key is empty")
		}
		senders.Email = alerts.NewResendSender(a.Config.Email.ResendAPIKey, a.Config.Email.From, a.Logger)
	default:
		return senders, fmt.Errorf("unknown email provider %q", a.Config.Email.Provider)
	}
	if senders.Email == nil {
		a.Logger.Warn("no email sender configured; email channel disabled")
	}

	if a.Config.SMS.GatewayURL != "" {
		senders.SMS = alerts.NewSMSGatewaySender(alerts.GatewaySenderOptions{
			URL:       a.Config.SMS.GatewayURL,
			AuthToken: a.Config.SMS.AuthToken,
			From:      a.Config.SMS.From,
			Timeout:   timeout,
			Logger:    a.Logger,
		})
	}
	if a.Config.Voice.GatewayURL != "" {
		senders.Voice = alerts.NewVoiceGatewaySender(alerts.GatewaySenderOptions{
			URL:       a.Config.Voice.GatewayURL,
			AuthToken: a.Config.Voice.AuthToken,
			From:      a.Config.Voice.From,
			Timeout:   timeout,
			Logger:    a.Logger,
		})
	}
	if a.Config.Calendar.GatewayURL != "" {
		senders.Calendar = alerts.NewCalendarGatewaySender(alerts.GatewaySenderOptions{
			URL:       a.Config.Calendar.GatewayURL,
			AuthToken: a.Config.Calendar.AuthToken,
			Timeout:   timeout,
			Logger:    a.Logger,
		})
	}
	return senders, nil
}

// Start begins the application's main execution loop (starts the HTTP server).
func (a *App) Start() error {
	if a.server == nil {
		return fmt.Errorf("server not initialized")
	}
	a.Logger.Info("starting server")
	return a.server.Start()
}

// Shutdown gracefully stops all application components with timeouts.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
	}

	if a.Dispatcher != nil {
		a.Logger.Info("stopping alert dispatcher")
		a.Dispatcher.Stop()
	}

	if a.server != nil {
		serverCtx, serverCancel := context.WithTimeout(ctx, 5*time.Second)
		defer serverCancel()

		serverDone := make(chan error, 1)
		go func() {
			serverDone <- a.server.Shutdown(serverCtx)
		}()
		select {
		case err := <-serverDone:
			if err != nil {
				a.Logger.Error("error shutting down server", "error", err)
			}
		case <-serverCtx.Done():
			a.Logger.Warn("timeout shutting down HTTP server, continuing")
		}
	}

	if a.SQLite != nil {
		if err := a.SQLite.Close(); err != nil {
			a.Logger.Error("error closing SQLite", "error", err)
		}
	}

	a.Logger.Info("application shutdown complete")
	return nil
}
