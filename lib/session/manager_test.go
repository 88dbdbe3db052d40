package session

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/icco/kodflex/lib/catalog"
	"github.com/icco/kodflex/lib/db"
	"github.com/icco/kodflex/lib/metrics"
	"github.com/icco/kodflex/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	gormDB, err := db.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared", logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return NewManager(gormDB, logger, func() *catalog.Aggregator {
		return catalog.NewAggregator(nil, catalog.NewStore(), logger, catalog.PolicyAllOrNothing)
	})
}

func validProfile() Profile {
	return Profile{
		Name:        "Ada Lovelace",
		Email:       "Ada@Example.com ",
		Password:    "secret1",
		PhoneNumber: "555-0100",
	}
}

func TestRegister(t *testing.T) {
	m := newTestManager(t)

	s, err := m.Register(context.Background(), validProfile())
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Ada Lovelace", s.Name)
	assert.Equal(t, "ada@example.com", s.Email)
	require.NotNil(t, s.Catalog)

	got, err := m.Get(s.ID)
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"blank name", func(p *Profile) { p.Name = "  " }},
		{"bad email", func(p *Profile) { p.Email = "not-an-email" }},
		{"short password", func(p *Profile) { p.Password = "12345" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t)
			p := validProfile()
			tt.mutate(&p)

			_, err := m.Register(context.Background(), p)
			require.Error(t, err)
			assert.NotErrorIs(t, err, ErrStorage)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Register(context.Background(), validProfile())
	require.NoError(t, err)

	p := validProfile()
	p.Email = "ADA@example.com"
	_, err = m.Register(context.Background(), p)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterLosesRace(t *testing.T) {
	m := newTestManager(t)

	// Another registration lands between the email check and the insert.
	raced := false
	require.NoError(t, m.db.Callback().Create().Before("gorm:create").Register("race", func(tx *gorm.DB) {
		if raced {
			return
		}
		raced = true
		tx.Session(&gorm.Session{NewDB: true}).Create(&models.User{Name: "Ada", Email: "ada@example.com"})
	}))

	_, err := m.Register(context.Background(), validProfile())
	require.True(t, raced)
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NotErrorIs(t, err, ErrStorage)
}

func TestLogin(t *testing.T) {
	m := newTestManager(t)
	reg, err := m.Register(context.Background(), validProfile())
	require.NoError(t, err)

	s, err := m.Login(context.Background(), "ada@example.com", "anything")
	require.NoError(t, err)
	assert.NotEqual(t, reg.ID, s.ID, "each login starts a new session")
	assert.Equal(t, "Ada Lovelace", s.Name)
	assert.NotSame(t, reg.Catalog, s.Catalog, "each session owns its catalog view")
}

func TestLoginRejected(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Register(context.Background(), validProfile())
	require.NoError(t, err)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "bob@example.com", "secret1"},
		{"malformed email", "bob", "secret1"},
		{"short password", "ada@example.com", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Login(context.Background(), tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestLogout(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Register(context.Background(), validProfile())
	require.NoError(t, err)
	active := testutil.ToFloat64(metrics.ActiveSessions)

	m.Logout(s.ID)
	_, err = m.Get(s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.InDelta(t, active-1, testutil.ToFloat64(metrics.ActiveSessions), 0.001)

	m.Logout(s.ID)
	assert.InDelta(t, active-1, testutil.ToFloat64(metrics.ActiveSessions), 0.001, "unknown ids are ignored")
}

func TestRequire(t *testing.T) {
	m := newTestManager(t)
	s, err := m.Register(context.Background(), validProfile())
	require.NoError(t, err)

	var seen *Session
	h := m.Require("/login")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("page without session redirects", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/home", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("api without session is unauthorized", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
	})

	t.Run("stale cookie redirects", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/home", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: uuid.NewString()})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})

	t.Run("valid cookie passes the session on", func(t *testing.T) {
		rec := httptest.NewRecorder()
		SetCookie(rec, s)
		req := httptest.NewRequest(http.MethodGet, "/home", nil)
		for _, c := range rec.Result().Cookies() {
			req.AddCookie(c)
		}

		out := httptest.NewRecorder()
		h.ServeHTTP(out, req)
		assert.Equal(t, http.StatusNoContent, out.Code)
		assert.Same(t, s, seen)
	})
}

func TestClearCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	ClearCookie(rec)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
