package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/hupe1980/hsearch"
	"github.com/hupe1980/hsearch/metrics/prometheus"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "hsearch",
		Usage: "Index and search documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file (yaml, json or toml)",
				EnvVars: []string{"HSEARCH_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Write logs as JSON",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Index JSON lines documents",
				Action: indexCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Usage:   "JSON lines file, - for stdin",
						Value:   "-",
					},
					&cli.StringFlag{
						Name:  "id-field",
						Usage: "Document attribute holding the id; missing ids are generated",
						Value: "id",
					},
					&cli.BoolFlag{
						Name:  "update",
						Usage: "Replace documents with the same id",
					},
				},
			},
			{
				Name:   "search",
				Usage:  "Search the index",
				Action: searchCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "match", Aliases: []string{"m"}, Usage: "path=value, value null matches missing values"},
					&cli.StringSliceFlag{Name: "not", Usage: "path=value to exclude"},
					&cli.StringSliceFlag{Name: "range", Aliases: []string{"r"}, Usage: "path=from..to, half-open bounds may be empty"},
					&cli.StringSliceFlag{Name: "exists", Usage: "path that must have a value"},
					&cli.StringSliceFlag{Name: "project", Aliases: []string{"p"}, Usage: "stored field to return"},
					&cli.StringSliceFlag{Name: "agg", Usage: "name:terms:path[:size] or name:range:path:key=from..to,..."},
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "Maximum number of references, 0 for all", Value: 10},
					&cli.BoolFlag{Name: "score", Usage: "Order references by score"},
				},
			},
			{
				Name:   "stats",
				Usage:  "Print index statistics",
				Action: statsCommand,
			},
			{
				Name:   "merge",
				Usage:  "Merge segments and commit",
				Action: mergeCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "max-segments", Usage: "Target segment count", Value: 1},
				},
			},
		},
	}
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(c.String("log-level")))); err != nil {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.String("log-level"))
	}

	logger := hsearch.NewTextLogger(level)
	if c.Bool("log-json") {
		logger = hsearch.NewJSONLogger(level)
	}
	slog.SetDefault(logger.Logger)
	if c.App.Metadata == nil {
		c.App.Metadata = make(map[string]any)
	}
	c.App.Metadata["logger"] = logger
	return nil
}

func appLogger(c *cli.Context) *hsearch.Logger {
	if l, ok := c.App.Metadata["logger"].(*hsearch.Logger); ok {
		return l
	}
	return hsearch.NoopLogger()
}

// withIndex opens the configured index, runs fn and closes everything.
func withIndex(c *cli.Context, fn func(ctx context.Context, b *hsearch.Backend, idx *hsearch.Index) error) error {
	ctx := c.Context
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	model, err := buildModel(cfg)
	if err != nil {
		return err
	}
	logger := appLogger(c)

	opts := []hsearch.Option{hsearch.WithLogger(logger), hsearch.WithSearchWorkers(cfg.Workers)}
	if cfg.Metrics.Addr != "" {
		stop, mc, err := serveMetrics(cfg.Metrics.Addr, logger)
		if err != nil {
			return err
		}
		defer stop()
		opts = append(opts, hsearch.WithMetricsCollector(mc))
	}

	dir, idxOpts, err := openDirectory(ctx, cfg.Directory, logger.Logger)
	if err != nil {
		return err
	}
	defer dir.Close()

	b, err := hsearch.Open(ctx, opts...)
	if err != nil {
		return err
	}
	defer b.Close()

	idx, err := b.CreateIndex(ctx, model, dir, idxOpts...)
	if err != nil {
		return err
	}
	return fn(ctx, b, idx)
}

func serveMetrics(addr string, logger *hsearch.Logger) (func(), hsearch.MetricsCollector, error) {
	reg := prom.NewRegistry()
	mc, err := prometheus.New(reg)
	if err != nil {
		return nil, nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()

	stop := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	return stop, mc, nil
}

func indexCommand(c *cli.Context) error {
	return withIndex(c, func(ctx context.Context, _ *hsearch.Backend, idx *hsearch.Index) error {
		var in io.Reader = os.Stdin
		if path := c.String("input"); path != "-" {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		idField := c.String("id-field")
		_, idDeclared := idx.Model().Field(idField)

		dec := json.NewDecoder(in)
		dec.UseNumber()
		count := 0
		for {
			var values map[string]any
			if err := dec.Decode(&values); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				return fmt.Errorf("document %d: %w", count+1, err)
			}

			id := uuid.NewString()
			if raw, ok := values[idField]; ok && raw != nil {
				id = fmt.Sprint(raw)
			}
			if !idDeclared {
				delete(values, idField)
			}

			write := idx.Add
			if c.Bool("update") {
				write = idx.Update
			}
			if err := write(ctx, id, values); err != nil {
				return err
			}
			count++
		}

		if err := idx.Commit(ctx); err != nil {
			return err
		}
		return writeJSON(c.App.Writer, map[string]any{"index": idx.Name(), "indexed": count})
	})
}

func searchCommand(c *cli.Context) error {
	return withIndex(c, func(ctx context.Context, b *hsearch.Backend, idx *hsearch.Index) error {
		scope, err := b.Scope(idx.Name())
		if err != nil {
			return err
		}
		q, err := buildQuery(scope, queryFlags{
			Match:  c.StringSlice("match"),
			Not:    c.StringSlice("not"),
			Range:  c.StringSlice("range"),
			Exists: c.StringSlice("exists"),
		})
		if err != nil {
			return err
		}

		req := hsearch.SearchRequest{
			Query:       q,
			Limit:       c.Int("limit"),
			SortByScore: c.Bool("score"),
			Projections: c.StringSlice("project"),
		}
		for _, expr := range c.StringSlice("agg") {
			a, err := parseAggregation(expr)
			if err != nil {
				return err
			}
			req.Aggregations = append(req.Aggregations, a)
		}

		res, err := scope.Search(ctx, req)
		if err != nil {
			return err
		}
		return writeJSON(c.App.Writer, searchOutput(res))
	})
}

type hit struct {
	Index  string         `json:"index"`
	ID     string         `json:"id"`
	Score  *float32       `json:"score,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

func searchOutput(res *hsearch.Result) map[string]any {
	hits := make([]hit, len(res.References))
	for i, ref := range res.References {
		hits[i] = hit{Index: ref.IndexName, ID: ref.ID}
		if i < len(res.Scores) {
			hits[i].Score = &res.Scores[i]
		}
		if i < len(res.Projections) {
			hits[i].Fields = res.Projections[i]
		}
	}
	out := map[string]any{"total": res.TotalHits, "hits": hits}
	if len(res.Aggregations) > 0 {
		out["aggregations"] = res.Aggregations
	}
	return out
}

func statsCommand(c *cli.Context) error {
	return withIndex(c, func(_ context.Context, _ *hsearch.Backend, idx *hsearch.Index) error {
		return writeJSON(c.App.Writer, indexStats(idx))
	})
}

func mergeCommand(c *cli.Context) error {
	return withIndex(c, func(ctx context.Context, _ *hsearch.Backend, idx *hsearch.Index) error {
		if err := idx.Merge(ctx, c.Int("max-segments")); err != nil {
			return err
		}
		if err := idx.Commit(ctx); err != nil {
			return err
		}
		return writeJSON(c.App.Writer, indexStats(idx))
	})
}

func indexStats(idx *hsearch.Index) map[string]any {
	s := idx.Stats()
	return map[string]any{
		"index":      idx.Name(),
		"segments":   s.Segments,
		"maxDoc":     s.MaxDoc,
		"numDocs":    s.NumDocs,
		"generation": s.Generation,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
