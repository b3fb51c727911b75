// Package metrics defines the custom Prometheus metrics of the portal and the
// adapters that feed them. Metrics register with the default registry on
// package init through promauto.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/atelier/profile-portal/internal/core/action"
)

const namespace = "atelier"

// GuardDecisionsTotal counts admin area decisions.
// Label:
//   - decision: "allow", "deny" or "redirect_signin"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of admin guard decisions, by decision.",
	},
	[]string{"decision"},
)

// SensitiveActionsTotal counts invocations that reached a terminal state.
// Labels:
//   - action: function name, e.g. "becomeArtist"
//   - outcome: "succeeded", "failed" or "cancelled"
var SensitiveActionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sensitive_actions_total",
		Help:      "Total number of sensitive action invocations, by action and outcome.",
	},
	[]string{"action", "outcome"},
)

// SensitiveActionDuration measures how long the run of a confirmed action takes.
var SensitiveActionDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sensitive_action_duration_seconds",
		Help:      "Duration of confirmed sensitive action runs.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"action"},
)

// ChangeQueueDepth tracks document changes waiting in each dispatcher shard.
var ChangeQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "change_queue_depth",
		Help:      "Current number of document changes pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// PendingInvocations is the number of invocations kept by the registry.
var PendingInvocations = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_invocations",
		Help:      "Number of sensitive action invocations awaiting an answer or recently finished.",
	},
)

// ActionObserver records terminal transitions of sensitive actions.
func ActionObserver() action.Observer {
	return action.ObserverFunc(func(t action.Transition) {
		switch t.To {
		case action.Succeeded, action.Failed:
			SensitiveActionsTotal.WithLabelValues(t.Action, t.To.String()).Inc()
			SensitiveActionDuration.WithLabelValues(t.Action).Observe(t.Elapsed.Seconds())
		case action.Cancelled:
			SensitiveActionsTotal.WithLabelValues(t.Action, t.To.String()).Inc()
		}
	})
}

// Sampler is polled by Sample.
type Sampler interface {
	Pending() []int
}

// Counter is polled by Sample.
type Counter interface {
	Len() int
}

// Sample copies queue depths and registry size into the gauges every interval
// until ctx is cancelled.
func Sample(ctx context.Context, interval time.Duration, queue Sampler, registry Counter) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if queue != nil {
				for i, n := range queue.Pending() {
					ChangeQueueDepth.WithLabelValues(strconv.Itoa(i)).Set(float64(n))
				}
			}
			if registry != nil {
				PendingInvocations.Set(float64(registry.Len()))
			}
		}
	}
}
