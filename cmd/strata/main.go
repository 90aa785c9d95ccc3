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
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/strata"
	"github.com/poiesic/strata/config"
	"github.com/poiesic/strata/core"
	"github.com/poiesic/strata/index"
	"github.com/poiesic/strata/objects"
	"github.com/poiesic/strata/reindex"
	"github.com/poiesic/strata/search"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "strata",
		Usage: "Inspect and maintain a strata object store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
				EnvVars: []string{"STRATA_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "data",
				Usage: "Use the local store rooted at this directory",
			},
			&cli.StringFlag{
				Name:  "filer",
				Usage: "Use the SeaweedFS filer at this URL",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Write the content at a path to stdout",
				ArgsUsage: "<path>",
				Action:    getCommand,
			},
			{
				Name:      "put",
				Usage:     "Store a file (or stdin) at a path",
				ArgsUsage: "<path> [file]",
				Action:    putCommand,
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "ttl",
						Usage: "Expire the object after this long (filer only)",
					},
					&cli.BoolFlag{
						Name:  "lock",
						Usage: "Hold a lease on the path while writing",
					},
				},
			},
			{
				Name:      "ls",
				Usage:     "List the children of a directory, oldest first",
				ArgsUsage: "<path>",
				Action:    lsCommand,
			},
			{
				Name:      "stat",
				Usage:     "Show the metadata of a path",
				ArgsUsage: "<path>",
				Action:    statCommand,
			},
			{
				Name:      "rm",
				Usage:     "Remove a path",
				ArgsUsage: "<path>",
				Action:    rmCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "recursive",
						Aliases: []string{"r"},
						Usage:   "Remove directories and their contents",
					},
				},
			},
			{
				Name:      "mv",
				Usage:     "Move a path",
				ArgsUsage: "<src> <dst>",
				Action:    mvCommand,
			},
			{
				Name:      "vacuum",
				Usage:     "Remove empty directory subtrees",
				ArgsUsage: "[path]",
				Action:    vacuumCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Vacuum every top-level folder except " + strings.Join(strata.VacuumSkip, ", "),
					},
				},
			},
			{
				Name:      "ids",
				Usage:     "List the ids an index holds for a reference",
				ArgsUsage: "<index> [ref]",
				Action:    idsCommand,
			},
			{
				Name:      "search",
				Usage:     "Search campaigns by words",
				ArgsUsage: "<terms...>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all-words",
						Usage: "Only show campaigns containing every term",
					},
				},
			},
			{
				Name:   "reindex",
				Usage:  "Rebuild the indexes of every stored record",
				Action: reindexCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "kind",
						Usage: "Record kinds to reindex",
						Value: cli.NewStringSlice(core.KindUser, core.KindCampaign),
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of records to load in each batch",
						Value: reindex.DefaultBatchSize,
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of records indexed concurrently",
						Value: 4,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N records",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per record",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
				},
			},
		},
	}
}

// loadConfig reads the configuration file, if any, and applies the
// command-line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if dir := c.String("data"); dir != "" {
		config.WithLocalStorage(dir)(cfg)
	}
	if url := c.String("filer"); url != "" {
		config.WithRemoteStorage(url, cfg.RemoteBaseFolder)(cfg)
	}
	return cfg, cfg.Validate()
}

func openDatabase(c *cli.Context) (*strata.Database, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	db, err := strata.NewDatabase(c.Context, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func requireArgs(c *cli.Context, n int) error {
	if c.NArg() < n {
		return fmt.Errorf("%s: expected %s", c.Command.Name, c.Command.ArgsUsage)
	}
	return nil
}

func getCommand(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	rc, err := db.Objects().Get(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(c.App.Writer, rc)
	return err
}

func putCommand(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	var r io.Reader = os.Stdin
	if src := c.Args().Get(1); src != "" && src != "-" {
		f, err := os.Open(src)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}

	var opts []objects.PutOption
	if ttl := c.Duration("ttl"); ttl > 0 {
		opts = append(opts, objects.WithTTL(ttl))
	}
	if c.Bool("lock") {
		opts = append(opts, objects.WithLock())
	}
	return db.Objects().Put(c.Context, c.Args().First(), r, opts...)
}

func lsCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	p := c.Args().First()
	if p == "" {
		p = db.Objects().Root()
	}
	names, err := db.Objects().List(c.Context, p)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(c.App.Writer, name)
	}
	return nil
}

func statCommand(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	meta, err := db.Objects().Stat(c.Context, c.Args().First())
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(c.App.Writer, "%s: %s\n", k, meta[k])
	}
	return nil
}

func rmCommand(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Objects().Remove(c.Context, c.Args().First(), c.Bool("recursive"))
}

func mvCommand(c *cli.Context) error {
	if err := requireArgs(c, 2); err != nil {
		return err
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Objects().Move(c.Context, c.Args().Get(0), c.Args().Get(1))
}

func vacuumCommand(c *cli.Context) error {
	if !c.Bool("all") && c.NArg() == 0 {
		return errors.New("vacuum: expected a path or --all")
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if c.Bool("all") {
		removed, err := db.VacuumAll(c.Context)
		if err != nil {
			return err
		}
		for _, name := range removed {
			fmt.Fprintf(c.App.Writer, "removed %s\n", name)
		}
		return nil
	}

	p := c.Args().First()
	gone, err := db.Vacuum(c.Context, p)
	if err != nil {
		return err
	}
	if gone {
		fmt.Fprintf(c.App.Writer, "removed %s\n", p)
	} else {
		fmt.Fprintf(c.App.Writer, "kept %s\n", p)
	}
	return nil
}

func idsCommand(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	d, ok := index.Lookup(c.Args().First())
	if !ok {
		names := make([]string, 0)
		for _, def := range index.Definitions() {
			names = append(names, def.Name)
		}
		return fmt.Errorf("unknown index %q: must be one of %s", c.Args().First(), strings.Join(names, ", "))
	}
	ref := c.Args().Get(1)
	if ref == "" {
		if d.Name != index.LatestCampaigns.Name {
			return fmt.Errorf("ids: index %s needs a reference", d.Name)
		}
		ref = index.LatestRef
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	var ids []string
	if d.Name == index.WordCampaigns.Name {
		ids, err = db.Engine().WordIDs(c.Context, d, ref)
	} else {
		ids, err = db.Engine().IDsFor(c.Context, d, ref, nil)
	}
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(c.App.Writer, id)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	if err := requireArgs(c, 1); err != nil {
		return err
	}
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	var opts []search.Option
	if c.Bool("all-words") {
		opts = append(opts, search.WithRequireAllWords())
	}
	searcher, err := db.NewSearcher(opts...)
	if err != nil {
		return err
	}
	results, err := searcher.Search(c.Context, strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return err
	}
	for _, campaign := range results {
		fmt.Fprintf(c.App.Writer, "%s\t%s\t%.0f%%\t%s\n",
			campaign.ID, campaign.LastContributionDatetime, campaign.Progress()*100, campaign.Title)
	}
	return nil
}

func reindexCommand(c *cli.Context) error {
	cfg := &reindex.Config{
		Kinds:          c.StringSlice("kind"),
		BatchSize:      c.Int("batch-size"),
		PoolSize:       c.Int("pool-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if cfg.PoolSize <= 0 {
		return fmt.Errorf("pool-size must be greater than 0")
	}
	if cfg.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if cfg.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	reindexer, err := db.NewReindexer(cfg, c.App.ErrWriter)
	if err != nil {
		return err
	}

	stats, err := reindexer.Run(c.Context)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	if stats.Failed > 0 {
		return fmt.Errorf("reindex finished with %d failed records", stats.Failed)
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
