package tmdb

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("test-key", slog.New(slog.NewTextHandler(io.Discard, nil)),
		WithBaseURL(srv.URL),
		WithImageHost("https://img.example"),
	)
}

func TestListEndpoints(t *testing.T) {
	tests := []struct {
		name string
		path string
		call func(*Client, context.Context) (int, error)
	}{
		{"trending", "/trending/movie/week", func(c *Client, ctx context.Context) (int, error) {
			m, err := c.Trending(ctx)
			return len(m), err
		}},
		{"popular", "/movie/popular", func(c *Client, ctx context.Context) (int, error) {
			m, err := c.Popular(ctx)
			return len(m), err
		}},
		{"top rated", "/movie/top_rated", func(c *Client, ctx context.Context) (int, error) {
			m, err := c.TopRated(ctx)
			return len(m), err
		}},
		{"upcoming", "/movie/upcoming", func(c *Client, ctx context.Context) (int, error) {
			m, err := c.Upcoming(ctx)
			return len(m), err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.path, r.URL.Path)
				assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
				_, _ = io.WriteString(w, `{"page":1,"results":[{"id":1,"title":"A"},{"id":2,"title":"B"}]}`)
			})

			n, err := tt.call(c, context.Background())
			require.NoError(t, err)
			assert.Equal(t, 2, n)
		})
	}
}

func TestListDecodesMovies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"results":[{
			"id": 27205,
			"title": "Inception",
			"overview": "Dreams.",
			"poster_path": "/p.jpg",
			"backdrop_path": "/b.jpg",
			"release_date": "2010-07-15",
			"vote_average": 8.4,
			"genre_ids": [28, 878],
			"adult": false
		}]}`)
	})

	got, err := c.Popular(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	m := got[0]
	assert.Equal(t, 27205, m.ID)
	assert.Equal(t, "Inception", m.Title)
	assert.Equal(t, "/p.jpg", m.PosterPath)
	assert.Equal(t, "/b.jpg", m.BackdropPath)
	assert.Equal(t, []int{28, 878}, m.GenreIDs)
	assert.InDelta(t, 8.4, m.VoteAverage, 0.001)
	assert.Equal(t, 2010, m.Year())
}

func TestSearchSingleRequest(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "batman", r.URL.Query().Get("query"))
		_, _ = io.WriteString(w, `{"results":[{"id":2,"title":"The Batman"},{"id":1,"title":"Batman"}]}`)
	})

	got, err := c.Search(context.Background(), "batman")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].ID)
	assert.EqualValues(t, 1, hits.Load(), "one search is one upstream request")
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/movie", r.URL.Path)
		assert.Equal(t, "batman & robin", r.URL.Query().Get("query"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		_, _ = io.WriteString(w, `{"results":[{"id":3,"title":"C"},{"id":1,"title":"A"},{"id":2,"title":"B"}]}`)
	})

	got, err := c.Search(context.Background(), "batman & robin")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int{3, 1, 2}, []int{got[0].ID, got[1].ID, got[2].ID}, "relevance order is kept")
}

func TestSearchNoResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"results":[]}`)
	})

	got, err := c.Search(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/movie/550", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":550,"title":"Fight Club","runtime":139,"tagline":"Mischief.","genres":[{"id":18,"name":"Drama"}]}`)
	})

	got, err := c.Details(context.Background(), 550)
	require.NoError(t, err)
	assert.Equal(t, 550, got.ID)
	assert.Equal(t, "Fight Club", got.Title)
	assert.Equal(t, 139, got.Runtime)
	assert.Equal(t, "2h 19m", got.RuntimeLabel())
	require.Len(t, got.Genres, 1)
	assert.Equal(t, "Drama", got.Genres[0].Name)
}

func TestFetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"bad status", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"status_message":"Invalid API key"}`, http.StatusUnauthorized)
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"results": [`)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			_, err := c.Trending(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFetch)
		})
	}
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient("k", slog.New(slog.NewTextHandler(io.Discard, nil)), WithBaseURL(srv.URL))

	_, err := c.Upcoming(context.Background())
	assert.ErrorIs(t, err, ErrFetch)
}

func TestImageURL(t *testing.T) {
	c := NewClient("k", slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, "https://image.tmdb.org/t/p/w500/abc.jpg", c.ImageURL("/abc.jpg", ""))
	assert.Equal(t, "https://image.tmdb.org/t/p/original/abc.jpg", c.ImageURL("/abc.jpg", "original"))
	assert.Equal(t, "https://image.tmdb.org/t/p/w500", c.ImageURL("", ""))
	assert.Equal(t, "https://img.example/t/p/w185/x.png", ImageURL("https://img.example", "/x.png", "w185"))
}
