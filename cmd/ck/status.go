package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
)

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Print the current agent status without writing a snapshot",
		Flags: []cli.Flag{formatFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			r, err := a.renderer(outputFormat(cmd))
			if err != nil {
				return err
			}
			p, err := a.publisher()
			if err != nil {
				return err
			}
			snap, err := p.Run(ctx)
			if err != nil {
				return err
			}
			return r.Render(os.Stdout, snap)
		},
	}
}
