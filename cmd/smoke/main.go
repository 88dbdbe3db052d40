// Command smoke drives the storefront routes in-process against the configured
// metadata service and logs anything that looks broken.
package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/icco/kodflex/handlers"
	"github.com/icco/kodflex/lib/catalog"
	"github.com/icco/kodflex/lib/config"
	"github.com/icco/kodflex/lib/db"
	"github.com/icco/kodflex/lib/session"
	"github.com/icco/kodflex/lib/tmdb"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})))
	logger := slog.Default()
	logger.Info("Starting endpoint smoke test")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	// A private in-memory directory so runs never touch real users.
	gormDB, err := db.Open("file:smoke-"+uuid.NewString()+"?mode=memory&cache=shared", logger)
	if err != nil {
		logger.Error("Failed to open database", slog.Any("error", err))
		os.Exit(1)
	}

	client := tmdb.NewClient(cfg.TMDBAPIKey, logger,
		tmdb.WithBaseURL(cfg.TMDBBaseURL),
		tmdb.WithImageHost(cfg.TMDBImageHost),
	)
	sessions := session.NewManager(gormDB, logger, func() *catalog.Aggregator {
		return catalog.NewAggregator(client, catalog.NewStore(), logger, catalog.PolicyAllOrNothing)
	})

	r, err := handlers.NewRouter(handlers.Deps{Catalog: client, Sessions: sessions})
	if err != nil {
		logger.Error("Failed to build router", slog.Any("error", err))
		os.Exit(1)
	}

	failures := testEndpoints(r, logger)
	if failures > 0 {
		logger.Error("Smoke test finished with failures", slog.Int("failures", failures))
		os.Exit(1)
	}
	logger.Info("=== ENDPOINT TESTING COMPLETED ===")
}

func testEndpoints(r *chi.Mux, logger *slog.Logger) int {
	failures := 0
	check := func(name string, w *httptest.ResponseRecorder, want int, mustContain string) {
		body := w.Body.String()
		logger.Info("Response",
			slog.String("check", name),
			slog.Int("status", w.Code),
			slog.String("content_type", w.Header().Get("Content-Type")),
			slog.Int("body_length", len(body)))

		if w.Code != want {
			failures++
			logger.Error("Unexpected status code", slog.String("check", name), slog.Int("status", w.Code), slog.Int("want", want))
		}
		if mustContain != "" && !strings.Contains(body, mustContain) {
			failures++
			logger.Error("Missing expected content", slog.String("check", name), slog.String("want", mustContain),
				slog.String("body_preview", body[:min(200, len(body))]))
		}
		if strings.Contains(body, "template:") || strings.Contains(body, "error executing template") {
			failures++
			logger.Error("Template error detected", slog.String("check", name), slog.String("body_preview", body[:min(500, len(body))]))
		}
	}

	logger.Info("Test 1: Home without a session")
	w := serve(r, http.MethodGet, "/home", nil, nil)
	check("home anonymous", w, http.StatusSeeOther, "")

	logger.Info("Test 2: Register")
	form := url.Values{
		"name":     {"Smoke Test"},
		"email":    {"smoke-" + uuid.NewString()[:8] + "@example.com"},
		"password": {"smoke-pass"},
	}
	w = serve(r, http.MethodPost, "/register", form, nil)
	check("register", w, http.StatusCreated, "Registration Successful!")
	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	if cookie == nil {
		logger.Error("No session cookie after registration")
		return failures + 1
	}

	logger.Info("Test 3: Home with catalog")
	w = serve(r, http.MethodGet, "/home", nil, cookie)
	check("home", w, http.StatusOK, "Trending Now")
	if strings.Contains(w.Body.String(), catalog.FetchErrorMessage) {
		failures++
		logger.Error("Catalog failed to load on home page")
	}

	logger.Info("Test 4: Search")
	w = serve(r, http.MethodGet, "/search?q=batman", nil, cookie)
	check("search", w, http.StatusOK, "batman")

	logger.Info("Test 5: Blank search")
	w = serve(r, http.MethodGet, "/search?q=+", nil, cookie)
	check("blank search", w, http.StatusSeeOther, "")

	logger.Info("Test 6: Movie details")
	w = serve(r, http.MethodGet, "/movie/550", nil, cookie)
	check("movie", w, http.StatusOK, "Fight Club")

	logger.Info("Test 7: Invalid movie id")
	w = serve(r, http.MethodGet, "/movie/invalid-id", nil, cookie)
	check("invalid movie", w, http.StatusBadRequest, "")

	logger.Info("Test 8: Catalog API")
	w = serve(r, http.MethodGet, "/api/catalog", nil, cookie)
	check("api catalog", w, http.StatusOK, `"trending"`)

	logger.Info("Test 9: Logout")
	w = serve(r, http.MethodPost, "/logout", nil, cookie)
	check("logout", w, http.StatusSeeOther, "")
	w = serve(r, http.MethodGet, "/home", nil, cookie)
	check("home after logout", w, http.StatusSeeOther, "")

	return failures
}

func serve(r http.Handler, method, target string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
