// Package commands provides the CLI command definitions for clausewatch.
package commands

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
)

// Styles for CLI output
var (
	logoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#2563EB")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6B7280"))
)

// App holds the shared CLI state.
type App struct {
	ServerURL string
	Version   string
	Commit    string
	Date      string
}

// New creates the root CLI command with all subcommands.
func New(version, commit, date string) *cli.Command {
	app := &App{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	return &cli.Command{
		Name:    "clausewatch",
		Usage:   "Contract risk alerting service and admin CLI",
		Version: version,
		Description: `clausewatch watches contract risk findings and delivers alerts over
   email, SMS, voice, and calendar.

   Use 'clausewatch serve' to run the service, 'clausewatch alerts due'
   to inspect the dispatch queue, or 'clausewatch alerts dispatch' to
   trigger a delivery run.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "clausewatch server URL",
				Value:   "http://localhost:8125",
				Sources: cli.EnvVars("CLAUSEWATCH_SERVER_URL"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "disable colored output",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetLevel(log.DebugLevel)
			}
			if cmd.Bool("no-color") {
				log.SetStyles(log.DefaultStyles())
				lipgloss.SetHasDarkBackground(false)
			}
			app.ServerURL = cmd.String("server")
			return ctx, nil
		},
		Commands: []*cli.Command{
			app.serveCommand(),
			app.alertsCommand(),
			app.versionCommand(),
		},
	}
}

// versionCommand shows version information
func (a *App) versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "show version information",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			fmt.Printf("%s version %s\n", logoStyle.Render("clausewatch"), a.Version)
			fmt.Printf("  commit: %s\n", mutedStyle.Render(a.Commit))
			fmt.Printf("  built:  %s\n", mutedStyle.Render(a.Date))
			return nil
		},
	}
}
