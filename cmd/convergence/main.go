// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/convergence"
	"github.com/poiesic/convergence/config"
	"github.com/poiesic/convergence/core"
	"github.com/poiesic/convergence/logging"
	"github.com/poiesic/convergence/selection"
	"github.com/poiesic/convergence/taxonomy"
)

const configKey = "config"

func newApp() *cli.App {
	return &cli.App{
		Name:  "convergence",
		Usage: "Pick the news item that best converges with current research",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Path to a dotenv file; missing files are ignored",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error); overrides the config",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Colored log output for terminals",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:      "select",
				Usage:     "Evaluate a batch of items and print the winner",
				ArgsUsage: " ",
				Action:    selectCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "items",
						Aliases:  []string{"i"},
						Usage:    "JSON file with the candidate items",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the ranking as JSON",
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Log every pipeline stage at debug level",
					},
				},
			},
			{
				Name:   "refresh",
				Usage:  "Recompute and persist the taxonomy embeddings",
				Action: refreshCommand,
			},
			{
				Name:   "audit",
				Usage:  "List recorded selection runs, newest first",
				Action: auditCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show (0 for all)",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print full records as JSON",
					},
				},
			},
			{
				Name:   "taxonomy",
				Usage:  "Print the built-in category taxonomy",
				Action: taxonomyCommand,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// setup loads the configuration and installs the logger.
func setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"), c.String("env-file"))
	if err != nil {
		return err
	}
	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg

	levelStr := cfg.LogLevel
	if c.IsSet("log-level") {
		levelStr = c.String("log-level")
	}
	level, err := parseLevel(levelStr)
	if err != nil {
		return err
	}

	opts := slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if c.Bool("pretty") {
		handler = logging.NewPrettyHandler(c.App.ErrWriter, logging.PrettyHandlerOptions{SlogOpts: opts})
	} else {
		handler = slog.NewTextHandler(c.App.ErrWriter, &opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
}

func loadedConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.Default()
}

// newEngine is replaced in tests.
var newEngine = func(cfg *config.Config) (*convergence.Engine, error) {
	return convergence.NewEngine(cfg, convergence.WithLogger(slog.Default()))
}

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func selectCommand(c *cli.Context) error {
	items, err := readItems(c.String("items"))
	if err != nil {
		return err
	}

	engine, err := newEngine(loadedConfig(c))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	var opts []selection.Option
	if c.Bool("trace") {
		opts = append(opts, selection.WithMonitor(newLogMonitor(slog.Default())))
	}

	ctx, cancel := signalContext(c)
	defer cancel()
	outcome, err := engine.Select(ctx, items, opts...)
	if err != nil {
		return fmt.Errorf("selection failed: %w", err)
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, rankingOf(outcome))
	}
	printOutcome(c.App.Writer, outcome)
	return nil
}

func refreshCommand(c *cli.Context) error {
	engine, err := newEngine(loadedConfig(c))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	ctx, cancel := signalContext(c)
	defer cancel()
	snap, err := engine.Refresh(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Snapshot %s\n", snap.Key)
	fmt.Fprintf(c.App.Writer, "Model: %s\n", snap.ModelID)
	fmt.Fprintf(c.App.Writer, "Categories: %d (%d dims)\n", len(snap.Categories), snap.Dimensions())
	fmt.Fprintf(c.App.Writer, "Refreshed at: %s\n", snap.RefreshedAt.Format("2006-01-02 15:04:05 MST"))
	return nil
}

func auditCommand(c *cli.Context) error {
	limit := c.Int("limit")
	if limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}

	engine, err := newEngine(loadedConfig(c))
	if err != nil {
		return fmt.Errorf("failed to open engine: %w", err)
	}
	defer engine.Close()

	records, err := engine.Audits(c.Context, limit)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, records)
	}
	if len(records) == 0 {
		fmt.Fprintln(c.App.Writer, "No runs recorded")
		return nil
	}
	for _, rec := range records {
		printAudit(c.App.Writer, rec)
	}
	return nil
}

func taxonomyCommand(c *cli.Context) error {
	fmt.Fprintf(c.App.Writer, "Taxonomy %s\n", taxonomy.DefaultVersion)
	for _, cat := range taxonomy.Default() {
		fmt.Fprintf(c.App.Writer, "  %-10s %s\n", cat.Code, cat.Name)
	}
	return nil
}

// itemRecord is the upstream JSON shape of a candidate item.
type itemRecord struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	Source         string   `json:"source"`
	HintCategories []string `json:"hint_categories"`
	ImpactScore    float64  `json:"impact_score"`
}

func readItems(path string) ([]*core.CandidateItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read items: %w", err)
	}
	var records []itemRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse items %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", path, selection.ErrNoItems)
	}
	items := make([]*core.CandidateItem, 0, len(records))
	for i, r := range records {
		item, err := core.NewCandidateItem(r.ID, r.Title, r.Summary, r.HintCategories, r.ImpactScore)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		item.Source = r.Source
		items = append(items, item)
	}
	return items, nil
}
