package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/sonnes/chaukidar/server"
	"github.com/urfave/cli/v3"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the read-only status and metrics API",
		Description: `Serves the status page, per-agent session pages and the JSON API.
Snapshots and session listings are cached for server.cache_ttl. Nothing
served writes to the agents directory.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides the config)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			p, err := a.publisher()
			if err != nil {
				return err
			}
			addr := a.cfg.Server.Addr
			if v := cmd.String("addr"); v != "" {
				addr = v
			}

			srv := server.New(p, a.query(), a.clock, a.cfg.Server.CacheTTL)
			srv.Logger = log.Default()
			srv.HTML.Location = a.loc

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.ListenAndServe(ctx, addr)
		},
	}
}
