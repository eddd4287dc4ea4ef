package workflow

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	domainwf "github.com/garyjia/daco-workflow/internal/domain/workflow"
)

var (
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daco_workflow_transitions_total",
		Help: "Workflow transitions by trigger and result.",
	}, []string{"trigger", "result"})

	transitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "daco_workflow_transition_duration_seconds",
		Help:    "Time spent applying a workflow transition.",
		Buckets: prometheus.DefBuckets,
	}, []string{"trigger"})
)

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domainwf.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, domainwf.ErrIncompleteApplication):
		return "incomplete"
	case errors.Is(err, domainwf.ErrConcurrentModification):
		return "conflict"
	case errors.Is(err, domainwf.ErrApplicationNotFound):
		return "not_found"
	case errors.Is(err, domainwf.ErrInvalidRevisionRequest), errors.Is(err, ErrInvalidActor):
		return "bad_request"
	default:
		return "error"
	}
}
