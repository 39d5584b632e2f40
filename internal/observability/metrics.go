package observability

import (
	"strconv"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric represents a single metric
type Metric struct {
	Name      string                 `json:"name"`
	Type      MetricType             `json:"type"`
	Value     float64                `json:"value"`
	Labels    map[string]string      `json:"labels,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// MetricsCollector collects and stores application metrics in process
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics map[string]*Metric
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: make(map[string]*Metric),
	}
}

// metricKey generates a unique key for a metric
func metricKey(name string, labels map[string]string) string {
	key := name
	for k, v := range labels {
		key += "." + k + "=" + v
	}
	return key
}

// Inc increments a counter metric
func (mc *MetricsCollector) Inc(name string, labels map[string]string) {
	mc.Add(name, 1, labels)
}

// Add adds a value to a counter metric
func (mc *MetricsCollector) Add(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := metricKey(name, labels)
	if metric, exists := mc.metrics[key]; exists {
		metric.Value += value
		metric.Timestamp = time.Now()
	} else {
		mc.metrics[key] = &Metric{
			Name:      name,
			Type:      MetricTypeCounter,
			Value:     value,
			Labels:    labels,
			Timestamp: time.Now(),
		}
	}
}

// Set sets a gauge metric value
func (mc *MetricsCollector) Set(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := metricKey(name, labels)
	mc.metrics[key] = &Metric{
		Name:      name,
		Type:      MetricTypeGauge,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Observe records a histogram observation. The stored Value is the running
// average; count and sum live in Extra.
func (mc *MetricsCollector) Observe(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := metricKey(name, labels)
	metric, exists := mc.metrics[key]
	if !exists {
		mc.metrics[key] = &Metric{
			Name:      name,
			Type:      MetricTypeHistogram,
			Value:     value,
			Labels:    labels,
			Timestamp: time.Now(),
			Extra: map[string]interface{}{
				"count": 1.0,
				"sum":   value,
			},
		}
		return
	}

	count, _ := metric.Extra["count"].(float64)
	sum, _ := metric.Extra["sum"].(float64)
	count++
	sum += value
	metric.Extra["count"] = count
	metric.Extra["sum"] = sum
	metric.Value = sum / count
	metric.Timestamp = time.Now()
}

// Get retrieves a metric by name and labels
func (mc *MetricsCollector) Get(name string, labels map[string]string) (*Metric, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	metric, exists := mc.metrics[metricKey(name, labels)]
	return metric, exists
}

// GetAll retrieves a copy of all metrics
func (mc *MetricsCollector) GetAll() map[string]*Metric {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make(map[string]*Metric, len(mc.metrics))
	for k, v := range mc.metrics {
		result[k] = v
	}
	return result
}

// Reset clears all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.metrics = make(map[string]*Metric)
}

// Standard metric names
const (
	// Question pipeline metrics
	MetricQuestionsTotal      = "labquery_questions_total"
	MetricQuestionDuration    = "labquery_question_duration_seconds"
	MetricQuestionsSuccess    = "labquery_questions_success_total"
	MetricQuestionsFailure    = "labquery_questions_failure_total"
	MetricTranslationCacheHit = "labquery_translation_cache_hits_total"
	MetricSafetyViolations    = "labquery_safety_violations_total"

	// Translator metrics
	MetricLLMRequests = "llm_requests_total"
	MetricLLMDuration = "llm_request_duration_seconds"
	MetricLLMTokens   = "llm_tokens_total"
	MetricLLMErrors   = "llm_errors_total"

	// Database metrics
	MetricDBQueries     = "database_queries_total"
	MetricDBDuration    = "database_query_duration_seconds"
	MetricDBErrors      = "database_errors_total"
	MetricDBConnections = "database_connections_in_use"

	// Auth metrics
	MetricAuthAttempts = "auth_attempts_total"
	MetricAuthFailure  = "auth_failure_total"

	// HTTP metrics
	MetricHTTPRequests     = "http_requests_total"
	MetricHTTPDuration     = "http_request_duration_seconds"
	MetricHTTPErrors       = "http_errors_total"
	MetricHTTPResponseSize = "http_response_size_bytes"
)

// Global metrics collector instance
var globalMetrics = NewMetricsCollector()

// GetGlobalMetrics returns the global metrics collector
func GetGlobalMetrics() *MetricsCollector {
	return globalMetrics
}

// RecordQuestionMetrics records metrics for one question pipeline run
func RecordQuestionMetrics(duration time.Duration, success bool, cacheHit bool, errorType string) {
	metrics := GetGlobalMetrics()

	metrics.Inc(MetricQuestionsTotal, nil)
	if success {
		metrics.Inc(MetricQuestionsSuccess, nil)
	} else {
		labels := map[string]string{}
		if errorType != "" {
			labels["error_type"] = errorType
		}
		metrics.Inc(MetricQuestionsFailure, labels)
	}
	if cacheHit {
		metrics.Inc(MetricTranslationCacheHit, nil)
	}
	metrics.Observe(MetricQuestionDuration, duration.Seconds(), nil)
}

// RecordLLMMetrics records metrics for translator operations
func RecordLLMMetrics(operation string, duration time.Duration, tokens int, err error) {
	metrics := GetGlobalMetrics()
	labels := map[string]string{"operation": operation}

	metrics.Inc(MetricLLMRequests, labels)
	metrics.Observe(MetricLLMDuration, duration.Seconds(), labels)
	if tokens > 0 {
		metrics.Add(MetricLLMTokens, float64(tokens), labels)
	}
	if err != nil {
		metrics.Inc(MetricLLMErrors, labels)
	}
}

// RecordDBMetrics records metrics for database operations
func RecordDBMetrics(operation string, duration time.Duration, err error) {
	metrics := GetGlobalMetrics()
	labels := map[string]string{"operation": operation}

	metrics.Inc(MetricDBQueries, labels)
	metrics.Observe(MetricDBDuration, duration.Seconds(), labels)
	if err != nil {
		metrics.Inc(MetricDBErrors, labels)
	}
}

// RecordHTTPMetrics records metrics for HTTP requests
func RecordHTTPMetrics(method, path string, statusCode int, duration time.Duration, responseSize int) {
	metrics := GetGlobalMetrics()

	labels := map[string]string{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(statusCode),
	}

	metrics.Inc(MetricHTTPRequests, labels)
	metrics.Observe(MetricHTTPDuration, duration.Seconds(), labels)
	if statusCode >= 400 {
		metrics.Inc(MetricHTTPErrors, labels)
	}
	if responseSize > 0 {
		metrics.Observe(MetricHTTPResponseSize, float64(responseSize), labels)
	}
}
