// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordAnalyzeSuccess()
	RecordAnalyzeFailure(reason string)
	RecordAnalyzeLatency(duration time.Duration)
	RecordPaletteRepair(diagnostic string)
	RecordLoginSuccess()
	RecordLoginFailure()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	analyzeSuccess prometheus.Counter
	analyzeFail    *prometheus.CounterVec
	analyzeLatency prometheus.Histogram
	paletteRepair  *prometheus.CounterVec
	loginSuccess   prometheus.Counter
	loginFail      prometheus.Counter
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		analyzeSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitelens_analyze_success_total",
			Help: "ウェブサイト解析成功の合計数",
		}),
		analyzeFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitelens_analyze_fail_total",
			Help: "ウェブサイト解析失敗の合計数（原因別）",
		}, []string{"reason"}),
		analyzeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "sitelens_analyze_latency_seconds",
			Help: "ウェブサイト解析のレイテンシ（秒）",
			// 解析は最大数分かかるため、デフォルトより長いバケットを使用する
			Buckets: []float64{1, 5, 15, 30, 60, 120, 180, 300},
		}),
		paletteRepair: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitelens_palette_repair_total",
			Help: "カラーパレット正規化の診断結果別の合計数",
		}, []string{"diagnostic"}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitelens_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sitelens_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sitelens_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.analyzeSuccess,
		c.analyzeFail,
		c.analyzeLatency,
		c.paletteRepair,
		c.loginSuccess,
		c.loginFail,
		c.httpStatus,
	)

	return c
}

// RecordAnalyzeSuccess は解析成功を記録する。
func (c *Collector) RecordAnalyzeSuccess() {
	c.analyzeSuccess.Inc()
}

// RecordAnalyzeFailure は解析失敗を原因付きで記録する。
func (c *Collector) RecordAnalyzeFailure(reason string) {
	c.analyzeFail.WithLabelValues(reason).Inc()
}

// RecordAnalyzeLatency は解析のレイテンシを記録する。
func (c *Collector) RecordAnalyzeLatency(duration time.Duration) {
	c.analyzeLatency.Observe(duration.Seconds())
}

// RecordPaletteRepair はパレット正規化の診断結果を記録する。
// 壊れたパレットの発生頻度を監視するために使用する。
func (c *Collector) RecordPaletteRepair(diagnostic string) {
	c.paletteRepair.WithLabelValues(diagnostic).Inc()
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess() {
	c.loginSuccess.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFail.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
