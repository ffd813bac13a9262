package execution

import (
	"sync"

	"github.com/lsds/kungfu-ddp/srcs/go/plan"
	"github.com/lsds/kungfu-ddp/srcs/go/utils"
)

// PeerFunc is an action taken against one peer.
type PeerFunc func(plan.PeerID) error

// Par runs f for all peers in parallel and merges their errors.
func (f PeerFunc) Par(ps plan.PeerList) error {
	errs := make([]error, len(ps))
	var wg sync.WaitGroup
	for i, p := range ps {
		wg.Add(1)
		go func(i int, p plan.PeerID) {
			errs[i] = f(p)
			wg.Done()
		}(i, p)
	}
	wg.Wait()
	return utils.MergeErrors(errs, "par")
}

// Seq runs f for all peers in order and stops at the first error.
func (f PeerFunc) Seq(ps plan.PeerList) error {
	for _, p := range ps {
		if err := f(p); err != nil {
			return err
		}
	}
	return nil
}
