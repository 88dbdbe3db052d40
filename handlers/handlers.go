package handlers

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/icco/kodflex/handlers/templates"
	"github.com/icco/kodflex/lib/catalog"
	"github.com/icco/kodflex/lib/session"
	"github.com/icco/kodflex/lib/tmdb"
	"github.com/icco/kodflex/lib/validation"
	"github.com/icco/kodflex/models"
	jsoniter "github.com/json-iterator/go"
)

// Catalog is the part of the catalog service the pages call directly. The four
// category rows come from the session's aggregator instead.
type Catalog interface {
	Search(ctx context.Context, query string) ([]models.Movie, error)
	Details(ctx context.Context, id int) (*models.MovieDetails, error)
	ImageURL(path, size string) string
}

var errRateLimited = errors.New("too many requests, slow down")

var pages = []string{"home", "search", "movie", "login", "register", "error"}

// renderer holds the parsed page templates.
type renderer struct {
	pages map[string]*template.Template
}

func newRenderer(imageURL func(path, size string) string) (*renderer, error) {
	rn := &renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		tmpl, err := templates.ParseTemplates(imageURL, "base.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		rn.pages[name] = tmpl
	}
	return rn, nil
}

func (rn *renderer) render(w http.ResponseWriter, page string, status int, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := rn.pages[page].ExecuteTemplate(w, "base", data); err != nil {
		slog.Error("Failed to execute template", slog.String("page", page), slog.Any("error", err))
	}
}

// pageData is shared by every page: the navbar needs the user and the last query.
type pageData struct {
	User  *session.Session
	Query string
}

type errorData struct {
	pageData
	Message string
}

func (rn *renderer) renderError(w http.ResponseWriter, r *http.Request, message string, status int) {
	rn.render(w, "error", status, errorData{
		pageData: pageData{User: session.FromContext(r.Context())},
		Message:  message,
	})
}

type row struct {
	Title  string
	Movies []models.Movie
}

type homeData struct {
	pageData
	Catalog  catalog.State
	Featured *models.Movie
	Rows     []row
}

// rows lists the non-empty categories in display order.
func rows(s catalog.State) []row {
	all := []row{
		{Title: "Trending Now", Movies: s.Trending},
		{Title: "Popular on Kodflex", Movies: s.Popular},
		{Title: "Top Rated", Movies: s.TopRated},
		{Title: "Upcoming", Movies: s.Upcoming},
	}
	out := all[:0]
	for _, r := range all {
		if len(r.Movies) > 0 {
			out = append(out, r)
		}
	}
	return out
}

// HandleHome mounts the session's catalog view on first visit and renders it.
func (rn *renderer) HandleHome() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		s := session.FromContext(req.Context())
		if err := s.Catalog.Mount(req.Context()); err != nil {
			// The store already carries the user-facing message.
			slog.Debug("Catalog mount failed", slog.Any("error", err))
		}

		state := s.Catalog.Store().State()
		rn.render(w, "home", http.StatusOK, homeData{
			pageData: pageData{User: s},
			Catalog:  state,
			Featured: state.Featured(),
			Rows:     rows(state),
		})
	}
}

// HandleReload is the manual retry: it re-runs the aggregation from scratch.
func (rn *renderer) HandleReload() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		s := session.FromContext(req.Context())
		if err := s.Catalog.Refresh(req.Context()); err != nil {
			slog.Debug("Catalog reload failed", slog.Any("error", err))
		}
		http.Redirect(w, req, "/home", http.StatusSeeOther)
	}
}

type searchData struct {
	pageData
	Results []models.Movie
	Error   string
}

func (rn *renderer) HandleSearch(c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		s := session.FromContext(req.Context())
		q, err := validation.NormalizeQuery(req.URL.Query().Get("q"))
		if errors.Is(err, validation.ErrEmptyQuery) {
			http.Redirect(w, req, "/home", http.StatusSeeOther)
			return
		}
		if err != nil {
			rn.renderError(w, req, err.Error(), http.StatusBadRequest)
			return
		}

		results, err := c.Search(req.Context(), q)
		if err != nil {
			slog.Error("Failed to search movies", slog.String("query", q), slog.Any("error", err))
			rn.render(w, "search", http.StatusBadGateway, searchData{
				pageData: pageData{User: s, Query: q},
				Error:    "Failed to search movies",
			})
			return
		}

		rn.render(w, "search", http.StatusOK, searchData{
			pageData: pageData{User: s, Query: q},
			Results:  results,
		})
	}
}

type movieData struct {
	pageData
	Movie *models.MovieDetails
}

func (rn *renderer) HandleMovie(c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id, err := validation.ParseMovieID(urlParam(req, "id"))
		if err != nil {
			rn.renderError(w, req, "Invalid movie id.", http.StatusBadRequest)
			return
		}

		details, err := c.Details(req.Context(), id)
		if err != nil {
			slog.Error("Failed to get movie details", slog.Int("id", id), slog.Any("error", err))
			rn.renderError(w, req, "We couldn't load this movie. Please try again later.", http.StatusBadGateway)
			return
		}

		rn.render(w, "movie", http.StatusOK, movieData{
			pageData: pageData{User: session.FromContext(req.Context())},
			Movie:    details,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := jsoniter.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}

// HandleAPICatalog returns the session's catalog view, mounting it if needed.
func HandleAPICatalog() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		s := session.FromContext(req.Context())
		if err := s.Catalog.Mount(req.Context()); err != nil {
			slog.Debug("Catalog mount failed", slog.Any("error", err))
		}
		writeJSON(w, http.StatusOK, s.Catalog.Store().State())
	}
}

func HandleAPISearch(c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		q, err := validation.NormalizeQuery(req.URL.Query().Get("q"))
		if err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		results, err := c.Search(req.Context(), q)
		if err != nil {
			slog.Error("Failed to search movies", slog.String("query", q), slog.Any("error", err))
			validation.WriteError(w, errors.New("failed to search movies"), http.StatusBadGateway)
			return
		}
		if results == nil {
			results = []models.Movie{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": results})
	}
}

func HandleAPIMovie(c Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id, err := validation.ParseMovieID(urlParam(req, "id"))
		if err != nil {
			validation.WriteError(w, err, http.StatusBadRequest)
			return
		}

		details, err := c.Details(req.Context(), id)
		if err != nil {
			slog.Error("Failed to get movie details", slog.Int("id", id), slog.Any("error", err))
			status := http.StatusInternalServerError
			if errors.Is(err, tmdb.ErrFetch) {
				status = http.StatusBadGateway
			}
			validation.WriteError(w, errors.New("failed to fetch movie"), status)
			return
		}
		writeJSON(w, http.StatusOK, details)
	}
}
