package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"github.com/sonnes/chaukidar/clock"
	"github.com/sonnes/chaukidar/compact"
	"github.com/sonnes/chaukidar/config"
	"github.com/sonnes/chaukidar/core"
	"github.com/sonnes/chaukidar/publish"
	"github.com/sonnes/chaukidar/query"
	"github.com/sonnes/chaukidar/reader/openclaw"
	"github.com/sonnes/chaukidar/redact"
	"github.com/sonnes/chaukidar/render"
	htmlrender "github.com/sonnes/chaukidar/render/html"
	jsonrender "github.com/sonnes/chaukidar/render/json"
	"github.com/sonnes/chaukidar/render/terminal"
	"github.com/urfave/cli/v3"
)

// renderer draws both snapshots and session histories.
type renderer interface {
	render.Renderer
	render.HistoryRenderer
}

// app holds the loaded configuration and the pieces built from it.
type app struct {
	cfg      *config.Config
	loc      *time.Location
	store    *openclaw.Store
	clock    clock.Clock
	redactor *redact.Redactor

	renderers map[string]func() renderer
}

func newApp(cmd *cli.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store, err := openclaw.New(os.DirFS(cfg.AgentsDir), openclaw.Options{
		Include:      cfg.Sessions.Include,
		Deleted:      cfg.Sessions.Deleted,
		History:      cfg.Sessions.History,
		MaxFileBytes: cfg.Limits.MaxFileBytes,
		FileTimeout:  cfg.Limits.FileTimeout,
		Logger:       log.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("open agents dir: %w", err)
	}

	a := &app{
		cfg:      cfg,
		loc:      loc,
		store:    store,
		clock:    clock.Real(),
		redactor: newRedactor(cmd),
	}
	a.renderers = map[string]func() renderer{
		"terminal": func() renderer { return &terminal.Renderer{Location: loc} },
		"html": func() renderer {
			r := htmlrender.New()
			r.Location = loc
			return r
		},
		"json": func() renderer { return jsonrender.New() },
	}
	return a, nil
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if dir := cmd.String("agents-dir"); dir != "" {
		cfg.AgentsDir = dir
	}
	if tz := cmd.String("timezone"); tz != "" {
		cfg.Timezone = tz
	}
	return cfg, nil
}

// newRedactor returns nil when --no-redact is set.
func newRedactor(cmd *cli.Command) *redact.Redactor {
	if cmd.Bool("no-redact") {
		return nil
	}
	return redact.New(redact.DefaultConfig())
}

func (a *app) publisher() (*publish.Publisher, error) {
	p, err := publish.New(a.cfg, a.store, a.clock)
	if err != nil {
		return nil, err
	}
	p.Logger = log.Default()
	if a.redactor != nil {
		p.Transformers = append(p.Transformers, a.redactor)
	}
	return p, nil
}

// query builds a session query service. Extra transformers run after
// redaction.
func (a *app) query(extra ...core.HistoryTransformer) *query.Service {
	var ts []core.HistoryTransformer
	if a.redactor != nil {
		ts = append(ts, a.redactor)
	}
	return &query.Service{
		Store:        a.store,
		Roster:       a.cfg.Roster(),
		Clock:        a.clock,
		Workers:      a.cfg.Limits.Workers,
		Transformers: append(ts, extra...),
		Logger:       log.Default(),
	}
}

func (a *app) renderer(name string) (renderer, error) {
	fn, ok := a.renderers[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q", name)
	}
	return fn(), nil
}

// outputFormat returns the -o flag, or terminal when stdout is a terminal
// and json otherwise.
func outputFormat(cmd *cli.Command) string {
	if f := cmd.String("output-format"); f != "" {
		return f
	}
	return defaultFormat(os.Stdout.Fd())
}

func defaultFormat(fd uintptr) string {
	if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		return "terminal"
	}
	return "json"
}

// newCompactor parses the --compact flag. "no-thinking" also drops
// thinking blocks.
func newCompactor(mode string) (*compact.Compactor, error) {
	switch mode {
	case "":
		return nil, nil
	case "on", "true":
		return compact.New(compact.Config{}), nil
	case "no-thinking":
		return compact.New(compact.Config{StripThinking: true}), nil
	default:
		return nil, fmt.Errorf("unknown compact mode %q", mode)
	}
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "output-format",
		Aliases: []string{"o"},
		Usage:   "Output format: terminal, html, json (default: terminal on a TTY, json otherwise)",
	}
}
