package monitor

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/plan"
)

const (
	totalUnitSuffix = `bytes`
	rateUnitSuffix  = `bytes_per_sec`
	rateTimeUnit    = float64(time.Second)
)

// rateAccumulator counts bytes exchanged with one peer and the rate observed
// over the last update period.
type rateAccumulator struct {
	total atomic.Int64

	mu   sync.Mutex
	prev int64
	rate float64
}

func (ra *rateAccumulator) add(n int64) { ra.total.Add(n) }

func (ra *rateAccumulator) update(p time.Duration) {
	now := ra.total.Load()
	ra.mu.Lock()
	defer ra.mu.Unlock()
	ra.rate = float64(now-ra.prev) / (float64(p) / rateTimeUnit)
	ra.prev = now
}

func (ra *rateAccumulator) getRate() float64 {
	ra.mu.Lock()
	defer ra.mu.Unlock()
	return ra.rate
}

type rateAccumulatorGroup struct {
	sync.Mutex

	prefix           string
	rateAccumulators map[plan.NetAddr]*rateAccumulator
}

func newRateAccumulatorGroup(prefix string) *rateAccumulatorGroup {
	return &rateAccumulatorGroup{
		prefix:           prefix,
		rateAccumulators: make(map[plan.NetAddr]*rateAccumulator),
	}
}

func (g *rateAccumulatorGroup) getOrCreate(a plan.NetAddr) *rateAccumulator {
	g.Lock()
	defer g.Unlock()
	ra, ok := g.rateAccumulators[a]
	if !ok {
		ra = &rateAccumulator{}
		g.rateAccumulators[a] = ra
	}
	return ra
}

func (g *rateAccumulatorGroup) update(p time.Duration) {
	g.Lock()
	defer g.Unlock()
	for _, ra := range g.rateAccumulators {
		ra.update(p)
	}
}

func (g *rateAccumulatorGroup) total() int64 {
	g.Lock()
	defer g.Unlock()
	var n int64
	for _, ra := range g.rateAccumulators {
		n += ra.total.Load()
	}
	return n
}

func (g *rateAccumulatorGroup) sortedAddrs() []plan.NetAddr {
	addrs := make([]plan.NetAddr, 0, len(g.rateAccumulators))
	for a := range g.rateAccumulators {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].IPv4 != addrs[j].IPv4 {
			return addrs[i].IPv4 < addrs[j].IPv4
		}
		return addrs[i].Port < addrs[j].Port
	})
	return addrs
}

// writeTo writes one total and one rate line per peer in the Prometheus text
// format, ordered by address.
func (g *rateAccumulatorGroup) writeTo(w io.Writer) {
	g.Lock()
	defer g.Unlock()
	for _, a := range g.sortedAddrs() {
		ra := g.rateAccumulators[a]
		labels := fmt.Sprintf(`{peer="%s"}`, a)
		fmt.Fprintf(w, "%s_total_%s%s %d\n", g.prefix, totalUnitSuffix, labels, ra.total.Load())
		fmt.Fprintf(w, "%s_rate_%s%s %f\n", g.prefix, rateUnitSuffix, labels, ra.getRate())
	}
}
