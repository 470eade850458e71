package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// ErrUnavailable is returned while the breaker rejects calls.
var ErrUnavailable = errors.New("blob storage unavailable")

// BreakerConfig tunes the circuit breaker around the blob store.
type BreakerConfig struct {
	Name         string        `env:"STORAGE_BREAKER_NAME" envDefault:"blob-storage"`
	MaxRequests  uint32        `env:"STORAGE_BREAKER_HALF_OPEN_REQUESTS" envDefault:"1"`
	Interval     time.Duration `env:"STORAGE_BREAKER_INTERVAL" envDefault:"60s"`
	Timeout      time.Duration `env:"STORAGE_BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
	FailureRatio float64       `env:"STORAGE_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	MinRequests  uint32        `env:"STORAGE_BREAKER_MIN_REQUESTS" envDefault:"5"`
}

// Breaker decorates a Storage with a circuit breaker so a failing store
// rejects requests fast instead of stalling every mutation.
type Breaker struct {
	next    Storage
	breaker *gobreaker.CircuitBreaker[*UploadResult]
	state   prometheus.Gauge
}

var _ Storage = (*Breaker)(nil)

// NewBreaker wraps next. The breaker state is exported on reg as
// blob_storage_circuit_state (0 closed, 1 half-open, 2 open).
func NewBreaker(next Storage, cfg BreakerConfig, reg prometheus.Registerer, logger *slog.Logger) (*Breaker, error) {
	state := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "blob_storage_circuit_state",
		Help:        "Circuit breaker state of the blob store (0=closed, 1=half-open, 2=open)",
		ConstLabels: prometheus.Labels{"name": cfg.Name},
	})
	if err := reg.Register(state); err != nil {
		return nil, fmt.Errorf("register breaker metric: %w", err)
	}

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			state.Set(stateValue(to))
		},
		// A missing key or a canceled request says nothing about the store's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
	}

	return &Breaker{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*UploadResult](settings),
		state:   state,
	}, nil
}

// Upload stores a file through the breaker.
func (b *Breaker) Upload(ctx context.Context, input *UploadInput) (*UploadResult, error) {
	res, err := b.breaker.Execute(func() (*UploadResult, error) {
		return b.next.Upload(ctx, input)
	})
	return res, translate(err)
}

// Delete removes a file through the breaker.
func (b *Breaker) Delete(ctx context.Context, key string) error {
	_, err := b.breaker.Execute(func() (*UploadResult, error) {
		return nil, b.next.Delete(ctx, key)
	})
	return translate(err)
}

// Ping fails fast while the breaker is open and otherwise checks the store
// directly, without counting toward the breaker.
func (b *Breaker) Ping(ctx context.Context) error {
	if b.breaker.State() == gobreaker.StateOpen {
		return ErrUnavailable
	}
	return b.next.Ping(ctx)
}

// State returns the current breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.breaker.State()
}

func translate(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
