// Package telemetry exposes catalog metrics and the health endpoint.
package telemetry

import "time"

// Operation labels for query metrics.
const (
	OpList       = "list"
	OpSearch     = "search"
	OpGet        = "get"
	OpCategories = "categories"
)

// Status labels.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusNotFound = "not_found"
)

// Metrics records catalog activity.
type Metrics interface {
	ObserveQuery(op, status string, duration time.Duration)
	ObserveRebuild(err error)
	SetIndexedTools(n int)
}

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveQuery(_, _ string, _ time.Duration) {}

func (n *NoopMetrics) ObserveRebuild(_ error) {}

func (n *NoopMetrics) SetIndexedTools(_ int) {}

var _ Metrics = (*NoopMetrics)(nil)

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
