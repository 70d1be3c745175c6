package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 分类结果计数
	CategorizedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_categorized_total",
			Help: "Total number of emails categorized",
		},
		[]string{"category", "source"}, // source: api, bulk, batch, raw, worker
	)

	// 分类置信度分布
	CategorizeConfidence = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "email_categorize_confidence",
			Help:    "Confidence of categorization results",
			Buckets: []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 1},
		},
		[]string{"category"},
	)

	// 规则表变更计数
	RuleMutationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "category_rule_mutations_total",
			Help: "Total number of rule table mutations",
		},
		[]string{"op"}, // op: create, update, delete
	)

	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1ms to ~2s
		},
		[]string{"routing_key", "queue"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation", "table"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "path", "status"},
	)

	// 邮件处理计数
	EmailProcessedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_processed_count",
			Help: "Total number of email.received events processed",
		},
		[]string{"status"}, // status: success, failed, duplicate, invalid
	)

	// 慢查询计数
	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_total",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"command"},
	)

	// 熔断器状态 (0=closed, 1=open, 2=half-open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state",
		},
		[]string{"name"},
	)
)

// RecordCategorized 记录一次分类结果
func RecordCategorized(category, source string, confidence float64) {
	CategorizedCount.WithLabelValues(category, source).Inc()
	CategorizeConfidence.WithLabelValues(category).Observe(confidence)
}

// IncrementRuleMutation 增加规则变更计数
func IncrementRuleMutation(op string) {
	RuleMutationCount.WithLabelValues(op).Inc()
}

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// IncrementEmailProcessed 增加邮件处理计数
func IncrementEmailProcessed(status string) {
	EmailProcessedCount.WithLabelValues(status).Inc()
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery(command string) {
	SlowQueryCount.WithLabelValues(command).Inc()
}

// SetCircuitBreakerState 记录熔断器状态
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}
