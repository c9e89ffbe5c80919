// Package metrics 提供监控指标功能.
// 支持Prometheus标准，收集 HTTP、存储引擎与分享访问等指标.
//
// Example:
//
//	err := metrics.InitMetrics(config.Metrics)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.RequestCounter.WithLabelValues("GET", "/api/files", "200").Inc()
//	metrics.StorageDelta.WithLabelValues("upload").Add(float64(size))
package metrics

import (
	"net/http"
	"net/http/pprof"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yeisme/cloudbox/pkg/configs"
)

// Namespace 指标命名空间.
const Namespace = "cloudbox"

// HTTP 指标.
var (
	// RequestCounter HTTP请求计数器.
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration HTTP请求持续时间.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// ActiveConnections 活跃连接数.
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "active_connections",
			Help:      "Number of in-flight HTTP requests",
		},
	)
)

// 领域指标.
var (
	// FilesUploaded 成功上传的文件数.
	FilesUploaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "files_uploaded_total",
		Help:      "Files committed by upload",
	})

	// StorageDelta 按原因累计应用到 storageUsed 的字节数（取绝对值）.
	StorageDelta = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "storage_delta_bytes_total",
		Help:      "Absolute bytes applied to per-user usage, by reason",
	}, []string{"reason"})

	// QuotaRejections 因配额不足拒绝的上传批次.
	QuotaRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "quota_rejections_total",
		Help:      "Upload batches rejected by quota admission",
	})

	// OrphansHealed 被自愈删除的孤儿记录.
	OrphansHealed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "orphans_healed_total",
		Help:      "File records removed because their bytes were missing",
	}, []string{"source"})

	// CascadeItems 级联操作处理的条目.
	CascadeItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "cascade_items_total",
		Help:      "Files and folders touched by cascading folder operations",
	}, []string{"op", "kind"})

	// ShareResolutions 分享解析结果.
	ShareResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "share_resolutions_total",
		Help:      "Share token resolutions by result",
	}, []string{"result"})

	// BlobDeleteFailures 尽力而为的物理删除失败次数.
	BlobDeleteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "blob_delete_failures_total",
		Help:      "Best-effort physical deletes that failed",
	})
)

var (
	// registry Prometheus注册表.
	registry = prometheus.NewRegistry()
	regOnce  sync.Once
)

// register 注册内置指标（幂等）.
func register(runtime bool) {
	regOnce.Do(func() {
		if runtime {
			registry.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
		}

		registry.MustRegister(
			RequestCounter, RequestDuration, ActiveConnections,
			FilesUploaded, StorageDelta, QuotaRejections, OrphansHealed,
			CascadeItems, ShareResolutions, BlobDeleteFailures,
		)
	})
}

// InitMetrics 初始化Metrics.
// 未启用时指标仍可计数，只是不会注册到导出端点.
func InitMetrics(config configs.MetricsConfig) error {
	if !config.Enabled {
		return nil
	}

	register(config.RuntimeMetrics)

	return nil
}

// StartMetricsServer 在给定 gin 引擎上挂载 /metrics 与可选的 pprof.
func StartMetricsServer(config configs.MetricsConfig, engine *gin.Engine) error {
	if !config.Enabled {
		return nil
	}

	path := config.Path
	if path == "" {
		path = "/metrics"
	}

	engine.GET(path, gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))

	if config.Pprof {
		pp := engine.Group("/debug/pprof")
		pp.GET("/", gin.WrapF(pprof.Index))
		pp.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pp.GET("/profile", gin.WrapF(pprof.Profile))
		pp.GET("/symbol", gin.WrapF(pprof.Symbol))
		pp.GET("/trace", gin.WrapF(pprof.Trace))
		pp.GET("/:name", func(c *gin.Context) {
			pprof.Handler(c.Param("name")).ServeHTTP(c.Writer, c.Request)
		})
	}

	return nil
}

// GetRegistry 获取Prometheus注册表.
func GetRegistry() *prometheus.Registry {
	return registry
}

// Handler 返回注册表的 HTTP 处理器.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// NewCounter 创建新的计数器指标.
func NewCounter(name, help string, labels []string) *prometheus.CounterVec {
	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
	registry.MustRegister(counter)

	return counter
}

// NewGauge 创建新的仪表盘指标.
func NewGauge(name, help string, labels []string) *prometheus.GaugeVec {
	gauge := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      name,
			Help:      help,
		},
		labels,
	)
	registry.MustRegister(gauge)

	return gauge
}
