package api

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/heimaolst/shortlink/internal/util"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP 请求总数",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP 请求延迟（秒）",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	linksCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "shortlink_links_created_total",
			Help: "短链接创建总数",
		},
	)

	redirectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shortlink_redirects_total",
			Help: "短链接重定向次数，按结果分组",
		},
		[]string{"result"},
	)
)

// PrometheusMetrics 记录每个 HTTP 请求的次数和延迟
func PrometheusMetrics() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		// 使用路由模板，避免 /r/:shortCode 产生高基数标签
		path := ctx.FullPath()
		if path == "" {
			path = "unknown"
		}
		status := strconv.Itoa(ctx.Writer.Status())
		httpRequestsTotal.WithLabelValues(ctx.Request.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(ctx.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func recordLinkCreated() {
	linksCreatedTotal.Inc()
}

func recordRedirect(err error) {
	result := "success"
	if err != nil {
		switch util.CodeOf(err) {
		case util.CodeNotFound:
			result = "not_found"
		case util.CodeGone:
			result = "gone"
		default:
			result = "error"
		}
	}
	redirectsTotal.WithLabelValues(result).Inc()
}
