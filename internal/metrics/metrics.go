// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stackit"

var (
	// VotesCast counts ledger mutations by outcome (registered, updated, removed).
	VotesCast = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "votes_cast_total",
		Help:      "Votes applied to answers, by outcome.",
	}, []string{"outcome"})

	VoteRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vote_conflict_retries_total",
		Help:      "castVote attempts retried after a unique-constraint conflict.",
	})

	AnswersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answers_accepted_total",
		Help:      "Successful acceptAnswer calls.",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
