// Package metrics はログインゲートの Prometheus メトリクスを提供します。
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics は認証まわりのカウンターをまとめたものです。
// nil の *Metrics に対する記録は何もしません。
type Metrics struct {
	registry      *prometheus.Registry
	GateDecisions *prometheus.CounterVec
	Logins        *prometheus.CounterVec
	Logouts       prometheus.Counter
}

// New は専用レジストリにメトリクスを登録して返します。
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		GateDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_gate_decisions_total",
				Help: "Total number of session gate decisions by outcome",
			},
			[]string{"decision"},
		),
		Logins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		Logouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "stock_logouts_total",
				Help: "Total number of logouts",
			},
		),
	}

	reg.MustRegister(m.GateDecisions, m.Logins, m.Logouts)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return m
}

// RecordGate はゲートの判定結果を記録します。
func (m *Metrics) RecordGate(allowed bool) {
	if m == nil {
		return
	}
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.GateDecisions.WithLabelValues(decision).Inc()
}

// RecordLogin はログインの成否を記録します。
func (m *Metrics) RecordLogin(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.Logins.WithLabelValues(result).Inc()
}

// RecordLogout はログアウトを記録します。
func (m *Metrics) RecordLogout() {
	if m == nil {
		return
	}
	m.Logouts.Inc()
}

// Handler は /metrics 用のハンドラーを返します。
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
