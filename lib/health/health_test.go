package health

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/icco/kodflex/lib/db"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return gormDB
}

func check(t *testing.T, h http.HandlerFunc) (int, Health) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var out Health
	require.NoError(t, jsoniter.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestCheckHealthy(t *testing.T) {
	gormDB := openTestDB(t)
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		_ = sqlDB.Close()
	})

	code, out := check(t, Check(gormDB, true))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, "ok", out.DB.Status)
	assert.Equal(t, "ok", out.Catalog.Status)
}

func TestCheckCatalogUnconfigured(t *testing.T) {
	gormDB := openTestDB(t)
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		_ = sqlDB.Close()
	})

	code, out := check(t, Check(gormDB, false))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", out.Status)
	assert.Equal(t, "ok", out.DB.Status)
	assert.Equal(t, "error", out.Catalog.Status)
}

func TestCheckDatabaseDown(t *testing.T) {
	gormDB := openTestDB(t)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	code, out := check(t, Check(gormDB, true))
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", out.Status)
	assert.Equal(t, "error", out.DB.Status)
}
