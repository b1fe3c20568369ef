package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/devphilip/clausewatch/internal/cli/client"
	"github.com/devphilip/clausewatch/internal/cli/render"
)

// alertsCommand groups the alert inspection and dispatch subcommands.
func (a *App) alertsCommand() *cli.Command {
	return &cli.Command{
		Name:  "alerts",
		Usage: "inspect and dispatch alerts on a running server",
		Commands: []*cli.Command{
			{
				Name:  "due",
				Usage: "list alerts the next dispatch run would deliver",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "maximum alerts to list",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "output format (table, json)",
						Value:   "table",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return a.runAlertsDue(ctx, cmd)
				},
			},
			{
				Name:  "dispatch",
				Usage: "trigger one dispatch run now",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return a.runAlertsDispatch(ctx, cmd)
				},
			},
			{
				Name:      "list",
				Usage:     "list alerts for a contract",
				ArgsUsage: "<contract-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "filter by status (open, pending, sent, failed, dead)",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "output format (table, json)",
						Value:   "table",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return a.runAlertsList(ctx, cmd)
				},
			},
		},
	}
}

func (a *App) newClient() (*client.Client, error) {
	return client.New(a.ServerURL, 30*time.Second)
}

func (a *App) runAlertsDue(ctx context.Context, cmd *cli.Command) error {
	apiClient, err := a.newClient()
	if err != nil {
		return err
	}

	alerts, err := apiClient.ListDueAlerts(ctx, int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("failed to list due alerts: %w", err)
	}

	r, err := render.New(render.Options{Format: cmd.String("output"), Color: !cmd.Bool("no-color")})
	if err != nil {
		return err
	}
	return r.RenderAlerts(os.Stdout, alerts)
}

func (a *App) runAlertsDispatch(ctx context.Context, cmd *cli.Command) error {
	apiClient, err := a.newClient()
	if err != nil {
		return err
	}

	sent, err := apiClient.DispatchNow(ctx)
	if err != nil {
		return fmt.Errorf("dispatch failed: %w", err)
	}

	fmt.Printf("%s dispatched %d alert(s)\n", successStyle.Render("✓"), sent)
	return nil
}

func (a *App) runAlertsList(ctx context.Context, cmd *cli.Command) error {
	contractID := cmd.Args().First()
	if contractID == "" {
		return fmt.Errorf("contract ID is required")
	}

	apiClient, err := a.newClient()
	if err != nil {
		return err
	}

	alerts, err := apiClient.ListContractAlerts(ctx, contractID, cmd.String("status"))
	if err != nil {
		return fmt.Errorf("failed to list alerts: %w", err)
	}

	r, err := render.New(render.Options{Format: cmd.String("output"), Color: !cmd.Bool("no-color")})
	if err != nil {
		return err
	}
	return r.RenderAlerts(os.Stdout, alerts)
}
