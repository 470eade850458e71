package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apperrors "github.com/utafrali/EcommerceGo/catalog/pkg/errors"
)

// Mutation outcomes recorded by Metrics.
const (
	outcomeSuccess  = "success"
	outcomeNoOp     = "noop"
	outcomeInvalid  = "invalid"
	outcomeNotFound = "not_found"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)

// Metrics counts mutation outcomes and validation violations.
type Metrics struct {
	mutations     *prometheus.CounterVec
	violations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	compensations *prometheus.CounterVec
}

// NewMetrics creates the service metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_product_mutations_total",
			Help: "Product mutations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_validation_violations_total",
			Help: "Validation violations reported to clients, by code.",
		}, []string{"code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_product_mutation_duration_seconds",
			Help:    "Duration of product mutations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		compensations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_blob_compensations_total",
			Help: "Uploaded blobs deleted after a failed persist, by result.",
		}, []string{"result"}),
	}
	for _, c := range []prometheus.Collector{m.mutations, m.violations, m.duration, m.compensations} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register service metrics: %w", err)
		}
	}
	return m, nil
}

// observe records one finished mutation. A nil receiver is a no-op.
func (m *Metrics) observe(operation string, start time.Time, err error, noop bool) {
	if m == nil {
		return
	}
	outcome := outcomeSuccess
	switch {
	case err != nil:
		outcome = outcomeOf(err)
	case noop:
		outcome = outcomeNoOp
	}
	m.mutations.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		for _, sub := range appErr.SubErrors() {
			m.violations.WithLabelValues(sub.Code).Inc()
		}
	}
}

func (m *Metrics) compensated(ok bool) {
	if m == nil {
		return
	}
	result := "deleted"
	if !ok {
		result = "failed"
	}
	m.compensations.WithLabelValues(result).Inc()
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return outcomeNotFound
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrAlreadyExists):
		return outcomeConflict
	case errors.Is(err, apperrors.ErrInvalidInput), errors.Is(err, apperrors.ErrUnprocessable):
		return outcomeInvalid
	default:
		return outcomeError
	}
}
