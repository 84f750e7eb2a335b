package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/sonnes/chaukidar/config"
	"github.com/urfave/cli/v3"
)

func main() {
	root := &cli.Command{
		Name:  "ck",
		Usage: "Watch a team of AI agents through the session logs they leave behind",
		Description: `Reads each roster agent's session logs, works out what the agent is
doing and who it is talking to, and publishes the result as a status
snapshot. Session logs are only ever read.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log",
				Usage: "Log level: debug, info, warn, error",
				Value: "error",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config file (defaults to the embedded roster)",
				Sources: cli.EnvVars(config.EnvConfig),
			},
			&cli.StringFlag{
				Name:  "agents-dir",
				Usage: "Override the agents directory from the config",
			},
			&cli.StringFlag{
				Name:  "timezone",
				Usage: "Override the IANA timezone from the config",
			},
			&cli.BoolFlag{
				Name:  "no-redact",
				Usage: "Disable redaction of secrets and PII",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			level, err := log.ParseLevel(cmd.String("log"))
			if err != nil {
				return ctx, err
			}
			log.SetLevel(level)
			return ctx, nil
		},
		Commands: []*cli.Command{
			publishCmd(),
			statusCmd(),
			metricsCmd(),
			sessionsCmd(),
			serveCmd(),
		},
	}

	if err := root.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
