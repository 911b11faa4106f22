// Package metrics 定义 Prometheus 指标（推荐请求、兜底、流水线节点、HTTP）。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecommendRequests 推荐请求数，按类型（similar/preference/collaborative/popular）和结果（ok/error）
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carkit_recommend_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"kind", "outcome"},
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carkit_recommend_duration_seconds",
			Help:    "Duration of recommendation requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// RecommendFallbacks 协同过滤退化为热门兜底的次数，按原因
	RecommendFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carkit_recommend_fallbacks_total",
			Help: "Total number of collaborative requests served by the popularity fallback",
		},
		[]string{"reason"},
	)

	NodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carkit_pipeline_node_duration_seconds",
			Help:    "Duration of pipeline node processing in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"pipeline", "node"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "carkit_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "carkit_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	RatingsSaved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "carkit_ratings_saved_total",
			Help: "Total number of ratings written",
		},
	)
)

// RecordRecommend 记录一次推荐请求
func RecordRecommend(kind string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	RecommendRequests.WithLabelValues(kind, outcome).Inc()
	RecommendDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordFallback 记录一次热门兜底
func RecordFallback(reason string) {
	RecommendFallbacks.WithLabelValues(reason).Inc()
}

// RecordNode 记录流水线节点耗时
func RecordNode(pipeline, node string, duration time.Duration) {
	NodeDuration.WithLabelValues(pipeline, node).Observe(duration.Seconds())
}

// RecordAPIRequest 记录 HTTP 请求
func RecordAPIRequest(method, endpoint, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
