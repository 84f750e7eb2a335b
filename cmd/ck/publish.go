package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sonnes/chaukidar/publish"
	"github.com/urfave/cli/v3"
)

func publishCmd() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Write the agent status snapshot",
		Description: `Reads every roster agent's session logs and writes the status snapshot
to the configured output path. The file is replaced atomically so readers
never see a partial document.

With --interval the snapshot is rewritten on every tick until interrupted.
A failed run is logged and the next tick tries again.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "output",
				Usage: "Snapshot path (overrides the config)",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Republish on this interval until interrupted",
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
			out := a.cfg.Output
			if o := cmd.String("output"); o != "" {
				out = o
			}

			interval := cmd.Duration("interval")
			if interval <= 0 {
				snap, err := p.Publish(ctx, out)
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "wrote %s (%d agents)\n", out, len(snap.Agents))
				return nil
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return publishLoop(ctx, p, out, interval)
		},
	}
}

// publishLoop publishes immediately and then on every tick until ctx is done.
func publishLoop(ctx context.Context, p *publish.Publisher, out string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.Publish(ctx, out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("publish failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
