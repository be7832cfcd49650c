// Package metrics exposes the gateway's Prometheus collectors. All metrics
// are registered on the default registry and served by the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SendRequests counts send-message requests by provider and outcome
	// (completed, failed, rejected).
	SendRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatgate",
		Name:      "send_requests_total",
		Help:      "Send-message requests by provider and outcome.",
	}, []string{"provider", "outcome"})

	// StreamFragments counts reply fragments relayed to clients.
	StreamFragments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatgate",
		Name:      "stream_fragments_total",
		Help:      "Reply fragments relayed to clients, by provider.",
	}, []string{"provider"})

	// StreamDuration observes the time from first provider fragment request
	// to terminal event.
	StreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "chatgate",
		Name:      "stream_duration_seconds",
		Help:      "Wall time of the provider streaming phase.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"provider"})

	// ProviderErrors counts classified provider failures.
	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chatgate",
		Name:      "provider_errors_total",
		Help:      "Provider failures by provider and classification.",
	}, []string{"provider", "kind"})
)
