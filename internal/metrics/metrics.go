// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// dev.to API（上流）への呼び出しと認証操作を観測する。
type Collector struct {
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  prometheus.Histogram
	loginSuccess     prometheus.Counter
	loginFail        prometheus.Counter
	refreshSuccess   prometheus.Counter
	refreshFail      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "devpress_upstream_requests_total",
			Help: "dev.to APIへのリクエスト数（エンドポイント・ステータスコード別）",
		}, []string{"endpoint", "status_code"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "devpress_upstream_latency_seconds",
			Help:    "dev.to APIのレスポンスレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		loginSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devpress_login_success_total",
			Help: "ログイン成功の合計数",
		}),
		loginFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devpress_login_fail_total",
			Help: "ログイン失敗の合計数",
		}),
		refreshSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devpress_refresh_success_total",
			Help: "トークン再発行成功の合計数",
		}),
		refreshFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "devpress_refresh_fail_total",
			Help: "トークン再発行失敗の合計数",
		}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamLatency,
		c.loginSuccess,
		c.loginFail,
		c.refreshSuccess,
		c.refreshFail,
	)

	return c
}

// RecordUpstreamRequest はdev.to APIへのリクエストを記録する。
func (c *Collector) RecordUpstreamRequest(endpoint string, statusCode int, duration time.Duration) {
	c.upstreamRequests.WithLabelValues(endpoint, strconv.Itoa(statusCode)).Inc()
	c.upstreamLatency.Observe(duration.Seconds())
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(success bool) {
	if success {
		c.loginSuccess.Inc()
	} else {
		c.loginFail.Inc()
	}
}

// RecordRefresh はトークン再発行の結果を記録する。
func (c *Collector) RecordRefresh(success bool) {
	if success {
		c.refreshSuccess.Inc()
	} else {
		c.refreshFail.Inc()
	}
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
