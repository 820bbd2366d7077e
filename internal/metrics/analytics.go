package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analyticsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkpage",
			Subsystem: "analytics",
			Name:      "events_submitted_total",
			Help:      "进入统计队列的事件数。",
		},
		[]string{"kind"},
	)

	analyticsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkpage",
			Subsystem: "analytics",
			Name:      "events_dropped_total",
			Help:      "入队前被丢弃的事件数。",
		},
		[]string{"kind", "reason"},
	)

	analyticsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "linkpage",
			Subsystem: "analytics",
			Name:      "events_recorded_total",
			Help:      "消费端处理的事件数，按结果区分。",
		},
		[]string{"kind", "result"},
	)
)

// AnalyticsSubmitted 记录一次成功入队。
func AnalyticsSubmitted(kind string) {
	analyticsSubmittedTotal.WithLabelValues(kind).Inc()
}

// AnalyticsDropped 记录一次丢弃及原因。
func AnalyticsDropped(kind, reason string) {
	analyticsDroppedTotal.WithLabelValues(kind, reason).Inc()
}

// AnalyticsRecorded 记录消费结果：stored、discarded 或 failed。
func AnalyticsRecorded(kind, result string) {
	analyticsRecordedTotal.WithLabelValues(kind, result).Inc()
}
