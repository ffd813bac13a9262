package monitor

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/stretchr/testify/assert"
)

func TestNetMetrics(t *testing.T) {
	a := plan.NetAddr{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 10001}
	b := plan.NetAddr{IPv4: plan.MustParseIPv4("127.0.0.1"), Port: 10000}
	m := newNetMetrics()
	m.Egress(3, a)
	m.Egress(4, b)
	m.Ingress(2, a)
	m.update(time.Second)

	var buf bytes.Buffer
	m.WriteTo(&buf)
	const want = `egress_total_bytes{peer="127.0.0.1:10000"} 4
egress_rate_bytes_per_sec{peer="127.0.0.1:10000"} 4.000000
egress_total_bytes{peer="127.0.0.1:10001"} 3
egress_rate_bytes_per_sec{peer="127.0.0.1:10001"} 3.000000
ingress_total_bytes{peer="127.0.0.1:10001"} 2
ingress_rate_bytes_per_sec{peer="127.0.0.1:10001"} 2.000000
`
	assert.Equal(t, want, buf.String())

	egress, ingress := m.Totals()
	assert.EqualValues(t, 7, egress)
	assert.EqualValues(t, 2, ingress)
}

func TestConcurrentEgress(t *testing.T) {
	m := newNetMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(port uint16) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Egress(1, plan.NetAddr{Port: port % 2})
			}
		}(uint16(i))
	}
	wg.Wait()
	egress, _ := m.Totals()
	assert.EqualValues(t, 8000, egress)
}

func TestNoopMonitor(t *testing.T) {
	m := newMonitor(false, 0)
	m.Egress(10, plan.NetAddr{})
	egress, ingress := m.Totals()
	assert.Zero(t, egress)
	assert.Zero(t, ingress)
	var buf bytes.Buffer
	m.WriteTo(&buf)
	assert.Empty(t, buf.String())
}

func TestRateTicker(t *testing.T) {
	m := newMonitor(true, 5*time.Millisecond)
	a := plan.NetAddr{Port: 10000}
	assert.Eventually(t, func() bool {
		m.Egress(1000, a)
		var buf bytes.Buffer
		m.WriteTo(&buf)
		return !strings.Contains(buf.String(), `egress_rate_bytes_per_sec{peer="0.0.0.0:10000"} 0.000000`)
	}, time.Second, 5*time.Millisecond)
}
