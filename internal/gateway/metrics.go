package gateway

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/simp-lee/userdesk/internal/domain"
)

var (
	requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "userdesk_gateway_requests_total",
		Help: "Users API calls by operation and outcome.",
	}, []string{"op", "outcome"})

	latency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "userdesk_gateway_request_duration_seconds",
		Help:    "Users API call latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

func init() { prometheus.MustRegister(requests, latency) }

// outcome maps err to a metrics label.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		return strconv.Itoa(apiErr.StatusCode)
	}
	if domain.IsNetwork(err) {
		return "network"
	}
	return "error"
}

func observe(op string, err error, d time.Duration) {
	requests.WithLabelValues(op, outcome(err)).Inc()
	latency.WithLabelValues(op).Observe(d.Seconds())
}
