// Package monitor accounts the bytes each worker exchanges with its peers.
package monitor

import (
	"io"
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/kungfu/config"
	"github.com/lsds/kungfu-ddp/srcs/go/plan"
)

type Monitor interface {
	Egress(n int64, a plan.NetAddr)
	Ingress(n int64, a plan.NetAddr)

	// Totals returns the bytes sent and received since start.
	Totals() (egress, ingress int64)
	// WriteTo writes per-peer totals and rates of the last period.
	WriteTo(w io.Writer)
}

var defaultMonitor = newMonitor(config.EnableMonitoring, config.MonitoringPeriod)

func GetMonitor() Monitor {
	return defaultMonitor
}

type noopMonitor struct{}

func (noopMonitor) Egress(n int64, a plan.NetAddr)  {}
func (noopMonitor) Ingress(n int64, a plan.NetAddr) {}
func (noopMonitor) Totals() (int64, int64)          { return 0, 0 }
func (noopMonitor) WriteTo(w io.Writer)             {}

type netMetrics struct {
	egressCounters  *rateAccumulatorGroup
	ingressCounters *rateAccumulatorGroup
}

func newMonitor(enabled bool, p time.Duration) Monitor {
	if !enabled {
		return noopMonitor{}
	}
	m := newNetMetrics()
	if p > 0 {
		go m.start(p)
	}
	return m
}

func newNetMetrics() *netMetrics {
	return &netMetrics{
		egressCounters:  newRateAccumulatorGroup("egress"),
		ingressCounters: newRateAccumulatorGroup("ingress"),
	}
}

func (m *netMetrics) start(p time.Duration) {
	for range time.Tick(p) {
		m.update(p)
	}
}

func (m *netMetrics) update(p time.Duration) {
	m.egressCounters.update(p)
	m.ingressCounters.update(p)
}

func (m *netMetrics) Egress(n int64, a plan.NetAddr) {
	m.egressCounters.getOrCreate(a).add(n)
}

func (m *netMetrics) Ingress(n int64, a plan.NetAddr) {
	m.ingressCounters.getOrCreate(a).add(n)
}

func (m *netMetrics) Totals() (int64, int64) {
	return m.egressCounters.total(), m.ingressCounters.total()
}

func (m *netMetrics) WriteTo(w io.Writer) {
	m.egressCounters.writeTo(w)
	m.ingressCounters.writeTo(w)
}
