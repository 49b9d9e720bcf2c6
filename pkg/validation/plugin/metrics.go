package plugin

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"katydid-async-validation/pkg/validation/core"
)

// MetricsConfig 指标配置
type MetricsConfig struct {
	Namespace       string    `mapstructure:"namespace"`
	Subsystem       string    `mapstructure:"subsystem"`
	DurationBuckets []float64 `mapstructure:"duration_buckets"`
}

// MetricsPlugin Prometheus 指标插件
type MetricsPlugin struct {
	runsTotal     *prometheus.CounterVec
	faultsTotal   *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
	inFlight      prometheus.Gauge
	duration      *prometheus.HistogramVec
}

// NewMetricsPlugin 创建指标插件并注册到 registerer
// registerer 为 nil 时使用默认注册表
func NewMetricsPlugin(cfg MetricsConfig, registerer prometheus.Registerer) (*MetricsPlugin, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "katydid"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "validation"
	}
	if len(cfg.DurationBuckets) == 0 {
		// 本地规则为微秒级，远程规则为毫秒到秒级
		cfg.DurationBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
	}

	p := &MetricsPlugin{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "runs_total",
			Help:      "Total number of validation runs by kind and outcome.",
		}, []string{"kind", "outcome"}),
		faultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "faults_total",
			Help:      "Total number of evaluation faults by kind.",
		}, []string{"kind"}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "failures_total",
			Help:      "Total number of rule failures recorded by kind.",
		}, []string{"kind"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "in_flight",
			Help:      "Number of validation runs currently in flight.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "run_duration_seconds",
			Help:      "Validation run duration in seconds.",
			Buckets:   cfg.DurationBuckets,
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{p.runsTotal, p.faultsTotal, p.failuresTotal, p.inFlight, p.duration} {
		if err := registerer.Register(c); err != nil {
			return nil, fmt.Errorf("plugin: register metrics: %w", err)
		}
	}

	return p, nil
}

// Name 插件名称
func (p *MetricsPlugin) Name() string {
	return "MetricsPlugin"
}

// BeforeRun 运行开始
func (p *MetricsPlugin) BeforeRun(core.RunInfo) {
	p.inFlight.Inc()
}

// AfterRun 运行结束
func (p *MetricsPlugin) AfterRun(result core.RunResult) {
	kind := string(result.Info.Kind)

	p.inFlight.Dec()
	p.runsTotal.WithLabelValues(kind, result.Outcome()).Inc()
	p.duration.WithLabelValues(kind).Observe(result.Duration.Seconds())

	if result.Fault != nil {
		p.faultsTotal.WithLabelValues(kind).Inc()
		return
	}
	p.failuresTotal.WithLabelValues(kind).Add(float64(len(result.Failures)))
}
