package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	HTTPRequests       *prometheus.CounterVec
	HTTPSeconds        *prometheus.HistogramVec
	GeocodingRequests  *prometheus.CounterVec
	GeocodingSeconds   *prometheus.HistogramVec
	ImagesUploaded     *prometheus.CounterVec
	CacheLookups       *prometheus.CounterVec
	AnimationLegs      *prometheus.CounterVec
	SchedulerStates    *prometheus.CounterVec
	LocationsOnDisplay *prometheus.GaugeVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		HTTPRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_http_requests_total",
			Help: "Total number of handled API requests.",
		}, []string{"route", "method", "status"}),
		HTTPSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "meridian_http_request_duration_seconds",
			Help:    "Duration of API requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		GeocodingRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_geocoding_requests_total",
			Help: "Total number of requests sent to the geocoding provider.",
		}, []string{"provider", "status"}),
		GeocodingSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "meridian_geocoding_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		ImagesUploaded: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_images_uploaded_total",
			Help: "Total number of stored images.",
		}, []string{"kind"}),
		CacheLookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_cache_lookups_total",
			Help: "Total number of list cache lookups.",
		}, []string{"result"}),
		AnimationLegs: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_animation_legs_total",
			Help: "Total number of animated legs by outcome.",
		}, []string{"status"}),
		SchedulerStates: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "meridian_idle_scheduler_transitions_total",
			Help: "Total number of idle scheduler transitions by target state.",
		}, []string{"state"}),
		LocationsOnDisplay: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "meridian_locations_loaded",
			Help: "Current number of locations in the map view snapshot.",
		}, []string{"kind"}),
	}
}

// ObserveLeg counts an animated leg outcome.
func (m *Metrics) ObserveLeg(status string) {
	m.AnimationLegs.WithLabelValues(status).Inc()
}

// ObserveSchedulerState counts an idle scheduler transition into state.
func (m *Metrics) ObserveSchedulerState(state string) {
	m.SchedulerStates.WithLabelValues(state).Inc()
}

// ObserveCacheLookup counts a list cache hit or miss.
func (m *Metrics) ObserveCacheLookup(result string) {
	m.CacheLookups.WithLabelValues(result).Inc()
}
