package storage_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/EcommerceGo/catalog/internal/storage"
	"github.com/utafrali/EcommerceGo/catalog/internal/storage/memory"
)

// flakyStorage fails every call with err until err is cleared.
type flakyStorage struct {
	err   error
	calls int
}

func (f *flakyStorage) Upload(_ context.Context, in *storage.UploadInput) (*storage.UploadResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &storage.UploadResult{Key: in.Key, URL: "mem://" + in.Key}, nil
}

func (f *flakyStorage) Delete(context.Context, string) error {
	f.calls++
	return f.err
}

func (f *flakyStorage) Ping(context.Context) error { return f.err }

func testBreakerConfig() storage.BreakerConfig {
	return storage.BreakerConfig{
		Name:         "test-blob",
		MaxRequests:  1,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func upload(b storage.Storage) error {
	_, err := b.Upload(context.Background(), &storage.UploadInput{Key: "k", Data: strings.NewReader("x")})
	return err
}

// --- Breaker ---

func TestBreaker_OpensAfterFailures(t *testing.T) {
	next := &flakyStorage{err: errors.New("503 slow down")}
	reg := prometheus.NewRegistry()
	b, err := storage.NewBreaker(next, testBreakerConfig(), reg, discardLogger())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.Error(t, upload(b))
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())
	assert.Equal(t, 3, next.calls)

	err = upload(b)
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Equal(t, 3, next.calls, "open breaker must not reach the store")
	assert.ErrorIs(t, b.Ping(context.Background()), storage.ErrUnavailable)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, 2.0, families[0].GetMetric()[0].GetGauge().GetValue())
}

func TestBreaker_NotFoundDoesNotTrip(t *testing.T) {
	next := &flakyStorage{err: storage.ErrNotFound}
	b, err := storage.NewBreaker(next, testBreakerConfig(), prometheus.NewRegistry(), discardLogger())
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, b.Delete(context.Background(), "gone"), storage.ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_PassesResults(t *testing.T) {
	b, err := storage.NewBreaker(&flakyStorage{}, testBreakerConfig(), prometheus.NewRegistry(), discardLogger())
	require.NoError(t, err)

	res, err := b.Upload(context.Background(), &storage.UploadInput{Key: "products/p/i.png", Data: strings.NewReader("x")})
	require.NoError(t, err)
	assert.Equal(t, "mem://products/p/i.png", res.URL)
}

func TestBreaker_DuplicateMetric(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := storage.NewBreaker(&flakyStorage{}, testBreakerConfig(), reg, discardLogger())
	require.NoError(t, err)
	_, err = storage.NewBreaker(&flakyStorage{}, testBreakerConfig(), reg, discardLogger())
	assert.Error(t, err)
}

// --- Memory ---

func TestMemoryStorage(t *testing.T) {
	s := memory.New("http://localhost:8080/media/")

	res, err := s.Upload(context.Background(), &storage.UploadInput{
		Key:         "products/p1/a.jpg",
		ContentType: "image/jpeg",
		Data:        strings.NewReader("jpeg"),
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/media/products/p1/a.jpg", res.URL)

	data, ok := s.Get("products/p1/a.jpg")
	require.True(t, ok)
	assert.Equal(t, "jpeg", string(data))
	assert.Equal(t, 1, s.Len())

	require.NoError(t, s.Delete(context.Background(), "products/p1/a.jpg"))
	assert.ErrorIs(t, s.Delete(context.Background(), "products/p1/a.jpg"), storage.ErrNotFound)
	assert.Zero(t, s.Len())
}

func TestMemoryStorage_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := memory.New("").Upload(ctx, &storage.UploadInput{Key: "k", Data: strings.NewReader("x")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestImageKey(t *testing.T) {
	assert.Equal(t, "products/p1/i1.jpg", storage.ImageKey("p1", "i1", "Photo.JPG"))
	assert.Equal(t, "products/p1/i1", storage.ImageKey("p1", "i1", "noext"))
}
