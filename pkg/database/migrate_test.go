package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func migrationFS() fstest.MapFS {
	return fstest.MapFS{
		"002_products.up.sql":     {Data: []byte("CREATE TABLE products (id UUID PRIMARY KEY);")},
		"001_categories.up.sql":   {Data: []byte("CREATE TABLE categories (id UUID PRIMARY KEY);")},
		"001_categories.down.sql": {Data: []byte("DROP TABLE categories;")},
		"README.md":               {Data: []byte("docs")},
	}
}

func TestRunMigrations_AppliesPendingInOrder(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("001_categories.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("002_products.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE products").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("INSERT INTO schema_migrations").
		WithArgs("002_products.up.sql").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = RunMigrations(context.Background(), mock, migrationFS(), discardLogger())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_SQLErrorIsNotRetried(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("001_categories.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE categories").
		WillReturnError(errors.New("syntax error at or near \"TABLE\""))
	mock.ExpectRollback()

	err = RunMigrations(context.Background(), mock, migrationFS(), discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 001_categories.up.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_ConnectionErrorStopsOnCanceledContext(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnError(errors.New("dial tcp 127.0.0.1:5432: connection refused"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = RunMigrations(ctx, mock, migrationFS(), discardLogger())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMigrationFiles_OnlyUpScriptsSorted(t *testing.T) {
	names, err := migrationFiles(migrationFS())
	require.NoError(t, err)
	assert.Equal(t, []string{"001_categories.up.sql", "002_products.up.sql"}, names)
}

// --- Retry helpers ---

func TestBackoff_ExponentialWithJitter(t *testing.T) {
	for attempt := 0; attempt < retryAttempts; attempt++ {
		base := retryBaseWait << attempt
		lo := time.Duration(float64(base) * (1 - retryJitter))
		hi := time.Duration(float64(base) * (1 + retryJitter))
		for i := 0; i < 20; i++ {
			d := backoff(attempt)
			assert.GreaterOrEqual(t, d, lo)
			assert.LessOrEqual(t, d, hi)
		}
	}
}

func TestRetry_StopsOnPermanentError(t *testing.T) {
	calls := 0
	permanent := errors.New("permission denied")
	err := retry(context.Background(), nil, "op", isConnectionError, func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"dial tcp 127.0.0.1:5432: connection refused", true},
		{"read: connection reset by peer", true},
		{"write: broken pipe", true},
		{"i/o timeout", true},
		{"unexpected EOF", true},
		{"could not connect to server", true},
		{"syntax error at or near", false},
		{"duplicate key value violates unique constraint", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isConnectionError(errors.New(tt.msg)))
		})
	}
	assert.False(t, isConnectionError(nil))
}

// --- Pool metrics ---

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(nil, "catalog")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, 8, n)
}

func TestPoolStatsCollector_NilPoolCollectsNothing(t *testing.T) {
	c := NewPoolStatsCollector(nil, "catalog")

	ch := make(chan prometheus.Metric, 16)
	c.Collect(ch)
	close(ch)
	assert.Empty(t, ch)
}

func TestRegisterPoolMetrics_RejectsDuplicate(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, RegisterPoolMetrics(reg, nil, "catalog"))
	assert.Error(t, RegisterPoolMetrics(reg, nil, "catalog"))
}
