package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/sonnes/chaukidar/core"
	"github.com/sonnes/chaukidar/query"
	jsonrender "github.com/sonnes/chaukidar/render/json"
	"github.com/urfave/cli/v3"
)

func sessionsCmd() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Inspect individual agent sessions",
		Commands: []*cli.Command{
			sessionsListCmd(),
			sessionsStatusCmd(),
			sessionsHistoryCmd(),
			sessionsSubagentsCmd(),
		},
	}
}

func sessionsListCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List recent sessions of every roster agent",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of sessions",
				Value:   query.DefaultListLimit,
			},
			&cli.StringFlag{
				Name:    "output-format",
				Aliases: []string{"o"},
				Usage:   "Output format: table, json",
				Value:   "table",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			list, err := a.query().List(ctx, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			switch f := cmd.String("output-format"); f {
			case "table":
				writeSessionsTable(os.Stdout, list)
				return nil
			case "json":
				return jsonrender.New().Encode(os.Stdout, list)
			default:
				return fmt.Errorf("unknown output format %q", f)
			}
		},
	}
}

// writeSessionsTable prints one row per session, then the total found.
func writeSessionsTable(w io.Writer, list *query.SessionList) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Key", "Agent", "Updated", "Messages", "Tokens"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	for _, s := range list.Sessions {
		tw.AppendRow(table.Row{
			s.Key,
			s.DisplayName,
			s.UpdatedAt.Format("2006-01-02 15:04"),
			s.MessageCount,
			s.TotalTokens,
		})
	}
	tw.AppendFooter(table.Row{fmt.Sprintf("%d of %d", len(list.Sessions), list.Count)})
	tw.Render()
}

func sessionsStatusCmd() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Report whether a session exists and has content",
		ArgsUsage: "<agent:folder:session-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key, err := sessionKeyArg(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			st, err := a.query().Status(ctx, key)
			if err != nil {
				return err
			}
			return jsonrender.New().Encode(os.Stdout, st)
		},
	}
}

func sessionsHistoryCmd() *cli.Command {
	return &cli.Command{
		Name:      "history",
		Usage:     "Show the most recent messages of a session",
		ArgsUsage: "<agent:folder:session-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of messages",
				Value:   query.DefaultHistoryLimit,
			},
			&cli.StringFlag{
				Name:  "compact",
				Usage: "Summarise tool output and long arguments: on, no-thinking",
			},
			formatFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			key, err := sessionKeyArg(cmd)
			if err != nil {
				return err
			}
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			c, err := newCompactor(cmd.String("compact"))
			if err != nil {
				return err
			}
			r, err := a.renderer(outputFormat(cmd))
			if err != nil {
				return err
			}

			var extra []core.HistoryTransformer
			if c != nil {
				extra = append(extra, c)
			}
			h, err := a.query(extra...).History(ctx, key, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			return r.RenderHistory(os.Stdout, h)
		},
	}
}

func sessionsSubagentsCmd() *cli.Command {
	return &cli.Command{
		Name:  "subagents",
		Usage: "List subagent spawns announced by the orchestrator",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of events",
				Value:   query.DefaultSubagentLimit,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			events, err := a.query().Subagents(ctx, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			return jsonrender.New().Encode(os.Stdout, events)
		},
	}
}

func sessionKeyArg(cmd *cli.Command) (string, error) {
	key := cmd.Args().First()
	if key == "" {
		return "", errors.New("a session key is required")
	}
	if _, err := query.ParseKey(key); err != nil {
		return "", err
	}
	return key, nil
}
