package httpclient

import (
	"context"
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsPlugin counts exchanges and observes their latency.
type MetricsPlugin struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsPlugin registers the plugin collectors on reg. Registering
// twice on the same registry reuses the existing collectors.
func NewMetricsPlugin(reg prometheus.Registerer) (*MetricsPlugin, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "endpointkit_requests_total",
		Help: "Total number of dispatched requests by target, method and status code",
	}, []string{"target", "method", "code"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "endpointkit_request_duration_seconds",
		Help:    "Latency of completed exchanges",
		Buckets: prometheus.DefBuckets,
	}, []string{"target", "method"})

	var err error
	if requests, err = registerOrReuse(reg, requests); err != nil {
		return nil, err
	}
	if duration, err = registerOrReuse(reg, duration); err != nil {
		return nil, err
	}
	return &MetricsPlugin{requests: requests, duration: duration}, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// WillSend implements Plugin.
func (m *MetricsPlugin) WillSend(context.Context, *Request) {}

// DidReceive implements Plugin.
func (m *MetricsPlugin) DidReceive(_ context.Context, req *Request, resp Response, err error) {
	code := "error"
	if err == nil && resp != nil {
		code = strconv.Itoa(resp.StatusCode())
		m.duration.WithLabelValues(req.Target, req.Method).Observe(resp.Duration().Seconds())
	}
	m.requests.WithLabelValues(req.Target, req.Method, code).Inc()
}
