package main

import (
	"context"
	"fmt"
	"os"

	jsonrender "github.com/sonnes/chaukidar/render/json"
	"github.com/sonnes/chaukidar/snapshot"
	"github.com/urfave/cli/v3"
)

func metricsCmd() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "Write aggregate session metrics",
		Description: `Summarises the most recent sessions by channel, kind and agent and
writes the document to the configured metrics path. Pass --output - to
print it instead.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "output",
				Usage: "Metrics path, or - for stdout (overrides the config)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			doc, err := a.query().Metrics(ctx)
			if err != nil {
				return err
			}

			out := a.cfg.MetricsOutput
			if o := cmd.String("output"); o != "" {
				out = o
			}
			if out == "-" {
				return jsonrender.New().Encode(os.Stdout, doc)
			}
			if err := snapshot.WriteJSON(out, doc); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
			fmt.Fprintf(os.Stderr, "wrote %s (%d sessions)\n", out, doc.Sessions.Total)
			return nil
		},
	}
}
