package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/icco/kodflex/lib/session"
	"github.com/icco/kodflex/lib/validation"
	"golang.org/x/time/rate"
)

// Deps is everything the storefront routes need.
type Deps struct {
	Catalog  Catalog
	Sessions *session.Manager
	// SearchLimiter throttles calls that reach the catalog search. It is shared
	// by every client since the upstream quota belongs to the one API key. Nil
	// disables it.
	SearchLimiter *rate.Limiter
	// Extra is mounted as-is, for /health and /metrics.
	Extra map[string]http.Handler
}

// NewRouter parses the page templates and wires every route.
func NewRouter(d Deps) (*chi.Mux, error) {
	rn, err := newRenderer(d.Catalog.ImageURL)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	for pattern, h := range d.Extra {
		r.Handle(pattern, h)
	}

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/login", http.StatusSeeOther)
	})
	r.Get("/login", rn.HandleLoginPage(d.Sessions))
	r.Post("/login", rn.HandleLogin(d.Sessions))
	r.Get("/register", rn.HandleRegisterPage(d.Sessions))
	r.Post("/register", rn.HandleRegister(d.Sessions))
	r.Post("/logout", HandleLogout(d.Sessions))
	r.Post("/api/register", HandleAPIRegister(d.Sessions))
	r.Post("/api/login", HandleAPILogin(d.Sessions))

	r.Group(func(r chi.Router) {
		r.Use(d.Sessions.Require("/login"))

		r.Get("/home", rn.HandleHome())
		r.Post("/home/reload", rn.HandleReload())
		r.Get("/movie/{id}", rn.HandleMovie(d.Catalog))
		r.Get("/api/catalog", HandleAPICatalog())
		r.Get("/api/movie/{id}", HandleAPIMovie(d.Catalog))

		r.Group(func(r chi.Router) {
			r.Use(RateLimit(d.SearchLimiter, func(w http.ResponseWriter, req *http.Request) {
				if strings.HasPrefix(req.URL.Path, "/api/") {
					validation.WriteError(w, errRateLimited, http.StatusTooManyRequests)
					return
				}
				rn.renderError(w, req, "Too many searches right now. Please wait a moment and try again.", http.StatusTooManyRequests)
			}))
			r.Get("/search", rn.HandleSearch(d.Catalog))
			r.Get("/api/search", HandleAPISearch(d.Catalog))
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		rn.renderError(w, req, "Page not found.", http.StatusNotFound)
	})

	return r, nil
}

func urlParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

// RateLimit hands requests to onLimit once the limiter runs dry. A nil onLimit
// answers with a JSON 429.
func RateLimit(l *rate.Limiter, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, r *http.Request) {
			validation.WriteError(w, errRateLimited, http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				onLimit(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
