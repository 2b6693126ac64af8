package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
)

// OrderMetrics records payment workflow transitions and QR rendering.
type OrderMetrics struct {
	created     prometheus.Counter
	transitions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	qrCache     *prometheus.CounterVec
	qrRender    prometheus.Histogram
}

// NewOrderMetrics registers the order metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created from a cart (idempotent replays excluded).",
	})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Payment status transitions by channel.",
	}, []string{"channel", "from", "to"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_rejections_total",
		Help: "Order operations refused before any mutation.",
	}, []string{"operation", "reason"})
	qrCache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_qr_cache_total",
		Help: "Payment QR cache lookups by result.",
	}, []string{"result"})
	qrRender := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_qr_render_seconds",
		Help:    "Time spent encoding payment QR images.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(created, transitions, rejections, qrCache, qrRender)
	return &OrderMetrics{
		created:     created,
		transitions: transitions,
		rejections:  rejections,
		qrCache:     qrCache,
		qrRender:    qrRender,
	}
}

func (m *OrderMetrics) IncCreated() {
	if m == nil || m.created == nil {
		return
	}
	m.created.Inc()
}

// IncTransition counts a committed payment status change.
func (m *OrderMetrics) IncTransition(channel enums.ReviewChannel, from, to enums.PaymentStatus) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(string(channel)), normalizeLabel(string(from)), normalizeLabel(string(to))).Inc()
}

// IncRejection counts a refused operation, e.g. ("submit_payment", "transaction_id_in_use").
func (m *OrderMetrics) IncRejection(operation, reason string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(operation), normalizeLabel(reason)).Inc()
}

func (m *OrderMetrics) IncQRCacheHit() {
	if m == nil || m.qrCache == nil {
		return
	}
	m.qrCache.WithLabelValues("hit").Inc()
}

func (m *OrderMetrics) IncQRCacheMiss() {
	if m == nil || m.qrCache == nil {
		return
	}
	m.qrCache.WithLabelValues("miss").Inc()
}

func (m *OrderMetrics) ObserveQRRender(duration time.Duration) {
	if m == nil || m.qrRender == nil {
		return
	}
	m.qrRender.Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
