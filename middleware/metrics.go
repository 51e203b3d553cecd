package middleware

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/broady/tyrest"
)

// Metrics records handler calls as Prometheus metrics, labelled by endpoint
// and the status the call resolved to. Requests the router rejects before a
// handler runs are not counted.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tyrest",
			Name:      "handler_requests_total",
			Help:      "Handler calls by endpoint and resulting status.",
		}, []string{"endpoint", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tyrest",
			Name:      "handler_duration_seconds",
			Help:      "Handler call latency by endpoint.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
	reg.MustRegister(m.requests, m.duration)
	return m
}

// Interceptor returns the interceptor that feeds m.
func (m *Metrics) Interceptor() tyrest.Interceptor {
	return func(ctx *tyrest.Context, req *tyrest.Request, next tyrest.HandlerFunc) (*tyrest.Response, error) {
		start := time.Now()
		res, err := next(ctx, req)

		endpoint := ctx.EndpointID()
		m.duration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(endpoint, statusLabel(res, err)).Inc()
		return res, err
	}
}

// statusLabel is the status the router answers with for a handler result.
// Responses the router rejects as invalid are labelled "invalid".
func statusLabel(res *tyrest.Response, err error) string {
	if err != nil {
		return strconv.Itoa(tyrest.DefaultErrorTransformer(err).Code.HTTPStatus())
	}
	if populated := res.Populated(); len(populated) == 1 {
		return strconv.Itoa(populated[0])
	}
	return "invalid"
}
