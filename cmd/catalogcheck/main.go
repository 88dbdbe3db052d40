// Command catalogcheck runs one catalog aggregation against the live metadata
// service and reports what each category returned.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/icco/kodflex/lib/catalog"
	"github.com/icco/kodflex/lib/config"
	"github.com/icco/kodflex/lib/tmdb"
)

func main() {
	partial := flag.Bool("partial", false, "keep the categories that loaded when another fails")
	query := flag.String("search", "", "also run a search for this query")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	client := tmdb.NewClient(cfg.TMDBAPIKey, logger,
		tmdb.WithBaseURL(cfg.TMDBBaseURL),
		tmdb.WithImageHost(cfg.TMDBImageHost),
	)

	policy := catalog.PolicyAllOrNothing
	if *partial || cfg.CatalogPartial {
		policy = catalog.PolicyPerCategory
	}

	store := catalog.NewStore()
	store.Subscribe(func(s catalog.State) {
		logger.Debug("Store updated", slog.Bool("loading", s.Loading), slog.Bool("error", s.Error != nil))
	})
	agg := catalog.NewAggregator(client, store, logger, policy)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	start := time.Now()
	refreshErr := refreshWithin(ctx, agg)
	if errors.Is(refreshErr, context.DeadlineExceeded) {
		logger.Error("Aggregation timed out", slog.Duration("elapsed", time.Since(start)))
		os.Exit(1)
	}
	state := store.State()

	logger.Info("Aggregation finished",
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("trending", len(state.Trending)),
		slog.Int("popular", len(state.Popular)),
		slog.Int("top_rated", len(state.TopRated)),
		slog.Int("upcoming", len(state.Upcoming)))

	if featured := state.Featured(); featured != nil {
		image := featured.BackdropPath
		if image == "" {
			image = featured.PosterPath
		}
		logger.Info("Featured title",
			slog.Int("id", featured.ID),
			slog.String("title", featured.Title),
			slog.String("image", client.ImageURL(image, "original")))
	}

	if *query != "" {
		results, err := client.Search(ctx, *query)
		if err != nil {
			logger.Error("Search failed", slog.String("query", *query), slog.Any("error", err))
		} else {
			logger.Info("Search finished", slog.String("query", *query), slog.Int("results", len(results)))
			for i, m := range results {
				if i == 5 {
					break
				}
				logger.Info("Search result", slog.Int("id", m.ID), slog.String("title", m.Title), slog.Int("year", m.Year()))
			}
		}
	}

	if refreshErr != nil {
		logger.Error("Aggregation failed", slog.Any("error", refreshErr))
		os.Exit(1)
	}
}

type refresher interface {
	Refresh(ctx context.Context) error
}

// refreshWithin waits for one refresh until ctx is done. Refresh itself ignores
// cancellation, so the deadline is enforced here and a stalled refresh is abandoned.
func refreshWithin(ctx context.Context, r refresher) error {
	done := make(chan error, 1)
	go func() { done <- r.Refresh(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
