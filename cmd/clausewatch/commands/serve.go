package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/devphilip/clausewatch/internal/app"
)

// serveCommand runs the clausewatch service: HTTP API plus the alert
// dispatch loop.
func (a *App) serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the clausewatch server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
				Value:   "config.toml",
				Sources: cli.EnvVars("CLAUSEWATCH_CONFIG"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			instance, err := app.New(app.Options{
				ConfigPath: cmd.String("config"),
				BuildInfo:  fmt.Sprintf("%s (%s)", a.Commit, a.Date),
				Version:    a.Version,
			})
			if err != nil {
				return err
			}

			if err := instance.Initialize(ctx); err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- instance.Start()
			}()

			select {
			case err := <-errCh:
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if shutdownErr := instance.Shutdown(shutdownCtx); shutdownErr != nil {
					instance.Logger.Error("shutdown failed", "error", shutdownErr)
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return instance.Shutdown(shutdownCtx)
			}
		},
	}
}
