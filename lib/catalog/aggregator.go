package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"log/slog"

	"github.com/icco/kodflex/lib/metrics"
	"github.com/icco/kodflex/models"
	"golang.org/x/sync/errgroup"
)

// FetchErrorMessage is the only catalog error users ever see.
const FetchErrorMessage = "Failed to fetch movies"

// Source is the subset of the catalog service the aggregator needs.
type Source interface {
	Trending(ctx context.Context) ([]models.Movie, error)
	Popular(ctx context.Context) ([]models.Movie, error)
	TopRated(ctx context.Context) ([]models.Movie, error)
	Upcoming(ctx context.Context) ([]models.Movie, error)
}

// Policy decides what happens to the categories that did load when another one fails.
type Policy int

const (
	// PolicyAllOrNothing discards every result if any category fails.
	PolicyAllOrNothing Policy = iota
	// PolicyPerCategory keeps the categories that loaded and leaves failed ones stale.
	PolicyPerCategory
)

type Aggregator struct {
	source Source
	store  *Store
	logger *slog.Logger
	policy Policy

	mu      sync.Mutex
	mounted bool
}

func NewAggregator(source Source, store *Store, logger *slog.Logger, policy Policy) *Aggregator {
	return &Aggregator{
		source: source,
		store:  store,
		logger: logger,
		policy: policy,
	}
}

func (a *Aggregator) Store() *Store {
	return a.store
}

// Mount runs the first Refresh for this view. Later calls do nothing.
func (a *Aggregator) Mount(ctx context.Context) error {
	a.mu.Lock()
	if a.mounted {
		a.mu.Unlock()
		return nil
	}
	a.mounted = true
	a.mu.Unlock()

	return a.Refresh(ctx)
}

type category struct {
	name   string
	fetch  func(context.Context) ([]models.Movie, error)
	action func([]models.Movie) Action
	movies []models.Movie
	err    error
}

// Refresh fetches all four categories concurrently and reduces the outcome into
// the store. Calls are not deduplicated; overlapping refreshes race per field.
// The context is detached from cancellation so a departed caller cannot abort
// in-flight fetches.
func (a *Aggregator) Refresh(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)

	a.store.Dispatch(SetLoading(true), SetError{})

	categories := []*category{
		{name: "trending", fetch: a.source.Trending, action: func(m []models.Movie) Action { return SetTrending(m) }},
		{name: "popular", fetch: a.source.Popular, action: func(m []models.Movie) Action { return SetPopular(m) }},
		{name: "top_rated", fetch: a.source.TopRated, action: func(m []models.Movie) Action { return SetTopRated(m) }},
		{name: "upcoming", fetch: a.source.Upcoming, action: func(m []models.Movie) Action { return SetUpcoming(m) }},
	}

	var g errgroup.Group
	for _, c := range categories {
		g.Go(func() error {
			c.movies, c.err = c.fetch(ctx)
			if c.err != nil {
				return fmt.Errorf("failed to fetch %s movies: %w", c.name, c.err)
			}
			return nil
		})
	}
	err := g.Wait()

	if err == nil {
		actions := make([]Action, 0, len(categories))
		for _, c := range categories {
			actions = append(actions, c.action(c.movies))
		}
		a.store.Dispatch(actions...)
		metrics.Aggregations.WithLabelValues("ok").Inc()
		a.logger.Debug("Catalog refreshed",
			slog.Int("trending", len(categories[0].movies)),
			slog.Int("popular", len(categories[1].movies)),
			slog.Int("top_rated", len(categories[2].movies)),
			slog.Int("upcoming", len(categories[3].movies)))
		return nil
	}

	actions := []Action{ErrorMessage(FetchErrorMessage), SetLoading(false)}
	result := "failed"
	if a.policy == PolicyPerCategory {
		var errs []error
		loaded := make([]Action, 0, len(categories))
		for _, c := range categories {
			if c.err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.name, c.err))
				continue
			}
			loaded = append(loaded, c.action(c.movies))
		}
		if len(loaded) > 0 {
			result = "partial"
		}
		actions = append(loaded, actions...)
		err = errors.Join(errs...)
	}
	a.store.Dispatch(actions...)
	metrics.Aggregations.WithLabelValues(result).Inc()

	a.logger.Error("Failed to refresh catalog", slog.String("result", result), slog.Any("error", err))
	return err
}
