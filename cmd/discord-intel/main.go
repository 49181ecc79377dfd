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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"strings"

	discordintel "github.com/kgeesawor/discord-intel"
	"github.com/kgeesawor/discord-intel/ai"
	"github.com/kgeesawor/discord-intel/ai/openai"
	"github.com/kgeesawor/discord-intel/config"
	"github.com/kgeesawor/discord-intel/core"
	"github.com/kgeesawor/discord-intel/indexing"
	"github.com/kgeesawor/discord-intel/search"
	"github.com/kgeesawor/discord-intel/storage"
	"github.com/urfave/cli/v2"
)

// newProvider creates the embedding provider for index and search.
var newProvider = func(cfg *ai.Config) (ai.AIProvider, error) {
	return openai.NewProvider(cfg)
}

func main() {
	app := newApp(os.Stdout)
	if err := app.Run(hoistFlags(app, os.Args)); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "discord-intel",
		Usage:     "Load Discord exports, index safe messages and search them",
		Writer:    out,
		ErrWriter: os.Stderr,
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
				Usage:   "Path to YAML configuration file",
				EnvVars: []string{"DISCORD_INTEL_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL (overrides config)",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name (overrides config)",
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "Embedding service API key (overrides config)",
				EnvVars: []string{"DISCORD_INTEL_API_KEY"},
			},
			&cli.StringFlag{
				Name:  "collection",
				Usage: "Vector collection name (overrides config)",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "Load channel export files into the message store",
				ArgsUsage: "<export_dir> <store_path>",
				Action:    ingestCommand,
			},
			{
				Name:      "index",
				Usage:     "Rebuild the vector index from safe messages",
				ArgsUsage: "<store_path> <index_path|qdrant://host:port>",
				Action:    indexCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of messages embedded per request (overrides config)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of batches embedded concurrently (overrides config)",
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum attempts per batch (overrides config)",
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff (overrides config)",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Search indexed messages",
				ArgsUsage: "<index_path|qdrant://host:port> <query...>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Number of results",
						Value:   search.DefaultLimit,
					},
					&cli.StringFlag{
						Name:  "channel",
						Usage: "Only messages from this channel name",
					},
					&cli.StringFlag{
						Name:  "author",
						Usage: "Only messages from this author name",
					},
				},
			},
			{
				Name:      "mark",
				Usage:     "Record a safety classification for messages",
				ArgsUsage: "<store_path> <message_id...>",
				Action:    markCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "status",
						Usage:    "Safety status (pending, safe, unsafe)",
						Required: true,
					},
					&cli.Float64Flag{
						Name:  "score",
						Usage: "Classifier score",
					},
					&cli.StringFlag{
						Name:  "flags",
						Usage: "Classifier flags",
					},
				},
			},
			{
				Name:      "stats",
				Usage:     "Show message counts per safety status and channel",
				ArgsUsage: "<store_path>",
				Action:    statsCommand,
			},
		},
	}
}

func ingestCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: %s ingest <export_dir> <store_path>", c.App.Name)
	}
	exportDir, storePath := c.Args().Get(0), c.Args().Get(1)

	if err := requirePath(exportDir); err != nil {
		return err
	}

	db, err := discordintel.NewDatabase(discordintel.WithStorePath(storePath))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	loader, err := db.NewLoader()
	if err != nil {
		return err
	}

	report, err := loader.LoadDir(c.Context, exportDir)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Found %d JSON files\n", report.Files)
	for _, res := range report.Results {
		if res.Err != nil {
			fmt.Fprintf(out, "  %s: error: %v\n", res.Path, res.Err)
			continue
		}
		fmt.Fprintf(out, "  #%s: %d messages", res.Channel, res.Inserted)
		if res.Skipped > 0 {
			fmt.Fprintf(out, " (%d skipped)", res.Skipped)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "\nTotal: %d messages -> %s\n", report.Loaded, storePath)
	return nil
}

func indexCommand(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: %s index <store_path> <index_path>", c.App.Name)
	}
	storePath, indexLocation := c.Args().Get(0), c.Args().Get(1)

	if err := requirePath(storePath); err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ixCfg := cfg.Indexing()
	if c.IsSet("batch-size") {
		ixCfg.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("workers") {
		ixCfg.Workers = c.Int("workers")
	}
	if c.IsSet("max-retries") {
		ixCfg.MaxRetries = c.Int("max-retries")
	}
	if c.IsSet("retry-delay") {
		ixCfg.RetryDelay = c.Duration("retry-delay")
	}
	if err := ixCfg.Validate(); err != nil {
		return err
	}

	provider, err := openProvider(c.Context, cfg)
	if err != nil {
		return err
	}

	db, err := discordintel.NewDatabase(
		discordintel.WithStorePath(storePath),
		discordintel.WithIndexLocation(indexLocation),
		discordintel.WithProvider(provider),
		discordintel.WithCollection(ixCfg.Collection),
	)
	if err != nil {
		provider.Close()
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	indexer, err := db.NewIndexer(ixCfg, indexing.WithProgress(os.Stderr))
	if err != nil {
		return err
	}
	defer indexer.Release()

	report, err := indexer.Run(c.Context)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	out := c.App.Writer
	switch {
	case report.Indexed > 0:
		fmt.Fprintf(out, "Indexed %d safe messages -> %s (%s)\n", report.Indexed, indexLocation, report.Collection)
	case report.Cleared:
		fmt.Fprintf(out, "No safe messages to index; cleared %s\n", report.Collection)
	default:
		fmt.Fprintln(out, "No safe messages to index")
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() < 2 {
		if c.NArg() == 1 {
			return errors.New("no query provided")
		}
		return fmt.Errorf("usage: %s search <index_path> <query...> [--limit N] [--channel X] [--author Y]", c.App.Name)
	}
	indexLocation := c.Args().First()
	query := strings.Join(c.Args().Tail(), " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("no query provided")
	}

	limit := c.Int("limit")
	if limit <= 0 {
		return fmt.Errorf("%w: --limit %d", search.ErrInvalidLimit, limit)
	}

	if !strings.HasPrefix(indexLocation, discordintel.QdrantScheme) {
		if err := requirePath(indexLocation); err != nil {
			return err
		}
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	provider, err := openProvider(c.Context, cfg)
	if err != nil {
		return err
	}

	db, err := discordintel.NewDatabase(
		discordintel.WithIndexLocation(indexLocation),
		discordintel.WithReadOnlyIndex(),
		discordintel.WithProvider(provider),
		discordintel.WithCollection(cfg.Index.Collection),
	)
	if err != nil {
		provider.Close()
		if errors.Is(err, storage.ErrCollectionNotFound) {
			return fmt.Errorf("%w: %s (run the index command first)", search.ErrIndexNotFound, cfg.Index.Collection)
		}
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}

	hits, err := searcher.Search(c.Context, search.Query{
		Text:    query,
		Limit:   limit,
		Channel: c.String("channel"),
		Author:  c.String("author"),
	})
	if err != nil {
		if errors.Is(err, search.ErrIndexNotFound) {
			return fmt.Errorf("%w (run the index command first)", err)
		}
		return err
	}

	printHits(c.App.Writer, query, hits)
	return nil
}

func printHits(out io.Writer, query string, hits []*core.SearchHit) {
	if len(hits) == 0 {
		fmt.Fprintln(out, "No results found")
		return
	}

	fmt.Fprintf(out, "Found %d results for: '%s'\n\n", len(hits), query)
	fmt.Fprintln(out, strings.Repeat("-", 60))
	for _, h := range hits {
		date := h.Record.Timestamp
		if len(date) > 10 {
			date = date[:10]
		}
		if date == "" {
			date = "N/A"
		}
		fmt.Fprintf(out, "[#%s] @%s\n", h.Record.Channel, h.Record.Author)
		fmt.Fprintf(out, "  %s\n", search.Truncate(h.Record.Content, search.PreviewLength))
		fmt.Fprintf(out, "  Distance: %.4f | %s\n\n", h.Distance, date)
	}
}

func markCommand(c *cli.Context) error {
	if c.NArg() < 2 {
		return fmt.Errorf("usage: %s mark --status S <store_path> <message_id...>", c.App.Name)
	}
	storePath := c.Args().First()
	if err := requirePath(storePath); err != nil {
		return err
	}

	status := core.SafetyStatus(c.String("status"))
	if err := core.ValidateSafetyStatus(status); err != nil {
		return err
	}

	var score *float64
	if c.IsSet("score") {
		v := c.Float64("score")
		score = &v
	}
	var flags *string
	if c.IsSet("flags") {
		v := c.String("flags")
		flags = &v
	}

	db, err := discordintel.NewDatabase(discordintel.WithStorePath(storePath))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	ids := c.Args().Tail()
	cls := make([]core.Classification, len(ids))
	for i, id := range ids {
		cls[i] = core.Classification{MessageID: id, Status: status, Score: score, Flags: flags}
	}

	n, err := db.Store().Classify(c.Context, cls...)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Marked %d of %d messages as %s\n", n, len(ids), status)
	return nil
}

func statsCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: %s stats <store_path>", c.App.Name)
	}
	storePath := c.Args().First()
	if err := requirePath(storePath); err != nil {
		return err
	}

	db, err := discordintel.NewDatabase(discordintel.WithStorePath(storePath))
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer db.Close()

	stats, err := db.Store().Stats(c.Context)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "Messages: %d\n", stats.Messages)
	for _, status := range []core.SafetyStatus{core.SafetyStatusPending, core.SafetyStatusSafe, core.SafetyStatusUnsafe} {
		fmt.Fprintf(out, "  %-8s %d\n", status, stats.ByStatus[status])
	}
	for status, n := range stats.ByStatus {
		switch status {
		case core.SafetyStatusPending, core.SafetyStatusSafe, core.SafetyStatusUnsafe:
		default:
			fmt.Fprintf(out, "  %-8s %d\n", status, n)
		}
	}

	fmt.Fprintf(out, "\nChannels: %d\n", len(stats.Channels))
	for _, ch := range stats.Channels {
		fmt.Fprintf(out, "  #%-24s %6d  %s\n", ch.Name, ch.MessageCount, ch.LastExport)
	}
	return nil
}

// loadConfig reads the config file and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.IsSet("embedding-host") {
		cfg.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedding.Model = c.String("embedding-model")
	}
	if c.IsSet("api-key") {
		cfg.Embedding.APIKey = c.String("api-key")
	}
	if c.IsSet("collection") {
		cfg.Index.Collection = c.String("collection")
	}
	return cfg, nil
}

// openProvider creates the provider and checks the embedding service once
// before any data is touched.
func openProvider(ctx context.Context, cfg *config.Config) (ai.AIProvider, error) {
	aiConfig := cfg.AI()
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	provider, err := newProvider(aiConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	dim, err := ai.CheckEmbedder(ctx, provider.Embedder())
	if err != nil {
		provider.Close()
		return nil, fmt.Errorf("%w (host %s, model %s)", err, aiConfig.EmbeddingHost, aiConfig.EmbeddingModel)
	}
	slog.Debug("embedding service ready", "model", provider.EmbeddingModel(), "dimension", dim)
	return provider, nil
}

func requirePath(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%s does not exist", path)
		}
		return err
	}
	return nil
}

// hoistFlags moves a command's flags that follow its positional arguments
// in front of them, so "search idx deploy --limit 5" parses like
// "search --limit 5 idx deploy".
func hoistFlags(app *cli.App, args []string) []string {
	i := 1
	for i < len(args) && strings.HasPrefix(args[i], "-") {
		if takesValue(app.Flags, args[i]) {
			i++
		}
		i++
	}
	if i >= len(args) {
		return args
	}
	cmd := app.Command(args[i])
	if cmd == nil {
		return args
	}

	var flags, positionals []string
	rest := args[i+1:]
	for j := 0; j < len(rest); j++ {
		a := rest[j]
		if a == "--" {
			positionals = append(positionals, rest[j+1:]...)
			break
		}
		if lookupFlag(cmd.Flags, a) == nil {
			positionals = append(positionals, a)
			continue
		}
		flags = append(flags, a)
		if takesValue(cmd.Flags, a) && j+1 < len(rest) {
			flags = append(flags, rest[j+1])
			j++
		}
	}

	out := make([]string, 0, len(args)+1)
	out = append(out, args[:i+1]...)
	out = append(out, flags...)
	for _, p := range positionals {
		if strings.HasPrefix(p, "-") {
			out = append(out, "--")
			break
		}
	}
	return append(out, positionals...)
}

// lookupFlag returns the flag named by arg ("-n", "--limit", "--limit=5").
func lookupFlag(flags []cli.Flag, arg string) cli.Flag {
	if !strings.HasPrefix(arg, "-") {
		return nil
	}
	name := strings.TrimLeft(arg, "-")
	name, _, _ = strings.Cut(name, "=")
	for _, f := range flags {
		for _, n := range f.Names() {
			if n == name {
				return f
			}
		}
	}
	return nil
}

func takesValue(flags []cli.Flag, arg string) bool {
	f := lookupFlag(flags, arg)
	if f == nil || strings.Contains(arg, "=") {
		return false
	}
	_, isBool := f.(*cli.BoolFlag)
	return !isBool
}

func setupLogger(c *cli.Context) error {
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
