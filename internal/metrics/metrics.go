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
// サービス層とHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordLike()
	RecordMatchCreated()
	RecordMatchDissolved()
	RecordBlock()
	RecordMessageSent()
	RecordMessagesRead(count int)
	RecordHTTPStatus(statusCode int)
	RecordRequestDuration(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	likes           prometheus.Counter
	matchesCreated  prometheus.Counter
	matchesDissolve prometheus.Counter
	blocks          prometheus.Counter
	messagesSent    prometheus.Counter
	messagesRead    prometheus.Counter
	httpStatus      *prometheus.CounterVec
	requestDuration prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		likes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchtalk_likes_total",
			Help: "作成されたいいねの合計数",
		}),
		matchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchtalk_matches_created_total",
			Help: "成立したマッチの合計数",
		}),
		matchesDissolve: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchtalk_matches_dissolved_total",
			Help: "いいね取り消しまたはブロックで解消したマッチの合計数",
		}),
		blocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchtalk_blocks_total",
			Help: "作成されたブロックの合計数",
		}),
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchtalk_messages_sent_total",
			Help: "送信されたメッセージの合計数",
		}),
		messagesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "matchtalk_messages_read_total",
			Help: "未読から既読に遷移したメッセージの合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "matchtalk_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "matchtalk_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.likes,
		c.matchesCreated,
		c.matchesDissolve,
		c.blocks,
		c.messagesSent,
		c.messagesRead,
		c.httpStatus,
		c.requestDuration,
	)

	return c
}

// RecordLike はいいねの作成を記録する。
func (c *Collector) RecordLike() {
	c.likes.Inc()
}

// RecordMatchCreated はマッチ成立を記録する。
func (c *Collector) RecordMatchCreated() {
	c.matchesCreated.Inc()
}

// RecordMatchDissolved はマッチ解消を記録する。
func (c *Collector) RecordMatchDissolved() {
	c.matchesDissolve.Inc()
}

// RecordBlock はブロックの作成を記録する。
func (c *Collector) RecordBlock() {
	c.blocks.Inc()
}

// RecordMessageSent はメッセージ送信を記録する。
func (c *Collector) RecordMessageSent() {
	c.messagesSent.Inc()
}

// RecordMessagesRead は既読に遷移したメッセージ数を記録する。
func (c *Collector) RecordMessagesRead(count int) {
	if count <= 0 {
		return
	}
	c.messagesRead.Add(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestDuration はリクエストの処理時間を記録する。
func (c *Collector) RecordRequestDuration(duration time.Duration) {
	c.requestDuration.Observe(duration.Seconds())
}

// Nop は何も記録しないMetricsCollector。
// メトリクスを必要としないワーカーやテストで使う。
type Nop struct{}

func (Nop) RecordLike() {}
func (Nop) RecordMatchCreated() {}
func (Nop) RecordMatchDissolved() {}
func (Nop) RecordBlock() {}
func (Nop) RecordMessageSent() {}
func (Nop) RecordMessagesRead(int) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordRequestDuration(time.Duration) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
