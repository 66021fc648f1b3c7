package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"path", "method", "status"},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"},
	)
	predictions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digit_predictions_total",
			Help: "Predictions served, by predicted label",
		}, []string{"label"},
	)
	rejectedUploads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "digit_rejected_uploads_total",
			Help: "Uploads rejected before inference, by reason",
		}, []string{"reason"},
	)
)

// OtherRoute labels every request whose path is not a tracked route.
const OtherRoute = "other"

var (
	routesMu sync.RWMutex
	routes   = map[string]bool{}
)

func init() {
	prometheus.MustRegister(requestCount, requestDuration, predictions, rejectedUploads)
}

// TrackRoutes registers the paths that get their own request label.
func TrackRoutes(paths ...string) {
	routesMu.Lock()
	defer routesMu.Unlock()
	for _, path := range paths {
		routes[path] = true
	}
}

// RouteLabel keeps the path label bounded to the tracked routes.
func RouteLabel(path string) string {
	routesMu.RLock()
	defer routesMu.RUnlock()
	if routes[path] {
		return path
	}
	return OtherRoute
}

func ObserveRequest(path, method string, status int, duration time.Duration) {
	route := RouteLabel(path)
	requestCount.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	requestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

func ObservePrediction(label string) {
	predictions.WithLabelValues(label).Inc()
}

func ObserveRejection(reason string) {
	rejectedUploads.WithLabelValues(reason).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
