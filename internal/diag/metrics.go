package diag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 进程内私有注册表；运行结束时可按 textfile 格式导出（node_exporter textfile collector）。
// 名称：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}
// - lines_read_total / lines_rejected_total{reason} / lines_emitted_total
// - values_coalesced_total / rounds_total
// - sources_dropped_total / sinks_dropped_total
var (
	registry = prometheus.NewRegistry()
	factory  = promauto.With(registry)

	opTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linemerge",
		Name:      "op_total",
		Help:      "Operations by component, stage and result.",
	}, []string{"comp", "stage", "result"})

	errorTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linemerge",
		Name:      "error_total",
		Help:      "Errors by component and classification code.",
	}, []string{"comp", "code"})

	opDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "linemerge",
		Name:      "op_duration_ms",
		Help:      "Stage duration in milliseconds.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"comp", "stage"})

	linesRead = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "linemerge",
		Name:      "lines_read_total",
		Help:      "Raw lines read from all sources.",
	})

	linesRejected = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "linemerge",
		Name:      "lines_rejected_total",
		Help:      "Candidate lines filtered out, by reason (empty|invalid).",
	}, []string{"reason"})

	linesEmitted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "linemerge",
		Name:      "lines_emitted_total",
		Help:      "Distinct values emitted (counted once regardless of sink count).",
	})

	valuesCoalesced = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "linemerge",
		Name:      "values_coalesced_total",
		Help:      "Duplicate candidates folded into an already emitted value.",
	})

	rounds = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "linemerge",
		Name:      "rounds_total",
		Help:      "Merge rounds (prime, select, drain).",
	})

	sourcesDropped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "linemerge",
		Name:      "sources_dropped_total",
		Help:      "Sources skipped at open or dropped after a read failure.",
	})

	sinksDropped = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "linemerge",
		Name:      "sinks_dropped_total",
		Help:      "Sinks dropped after a write failure.",
	})
)

// Registry 返回指标注册表（测试与导出使用）。
func Registry() *prometheus.Registry { return registry }

// WriteTextfile 以 Prometheus 文本格式原子写出全部指标。
func WriteTextfile(path string) error { return prometheus.WriteToTextfile(path, registry) }

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) { opTotal.WithLabelValues(comp, stage, result).Inc() }

// IncError 按分类累加错误计数。
func IncError(comp, code string) { errorTotal.WithLabelValues(comp, code).Inc() }

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	opDuration.WithLabelValues(comp, stage).Observe(float64(durMS))
}

func IncLinesRead()             { linesRead.Inc() }
func IncRejected(reason string) { linesRejected.WithLabelValues(reason).Inc() }
func IncEmitted()               { linesEmitted.Inc() }
func AddCoalesced(n int)        { valuesCoalesced.Add(float64(n)) }
func IncRound()                 { rounds.Inc() }
func IncSourceDropped()         { sourcesDropped.Inc() }
func IncSinkDropped()           { sinksDropped.Inc() }
