// Package device assigns a local compute device to a worker and moves tensors onto it.
//
// The runtime is CPU only: a device is a slot index plus the number of threads
// the worker may spend on input processing.
package device

import (
	"fmt"
	"runtime"

	"github.com/lsds/kungfu-ddp/srcs/go/nn"
)

type Device struct {
	Index   int
	Threads int

	staging map[string]*nn.Tensor
}

// Select picks device rank mod count and shares the CPUs evenly among localSize workers.
func Select(rank, count, localSize int) *Device {
	if count <= 0 {
		count = 1
	}
	if localSize <= 0 {
		localSize = 1
	}
	return &Device{
		Index:   rank % count,
		Threads: max(1, runtime.NumCPU()/localSize),
		staging: make(map[string]*nn.Tensor),
	}
}

func (d *Device) String() string {
	return fmt.Sprintf("cpu:%d", d.Index)
}

// Put copies t into a staging buffer named slot, reused by later calls with the same slot.
func (d *Device) Put(slot string, t *nn.Tensor) *nn.Tensor {
	s, ok := d.staging[slot]
	if !ok {
		s = &nn.Tensor{}
		d.staging[slot] = s
	}
	s.Resize(t.Shape...)
	copy(s.Data, t.Data)
	return s
}

// ToHost returns state with every tensor that aliases a staging buffer
// replaced by a copy. Other tensors already live on the host and are kept.
func (d *Device) ToHost(state map[string]*nn.Tensor) map[string]*nn.Tensor {
	out := make(map[string]*nn.Tensor, len(state))
	for k, t := range state {
		if d.isStaging(t) {
			t = t.Clone()
		}
		out[k] = t
	}
	return out
}

func (d *Device) isStaging(t *nn.Tensor) bool {
	for _, s := range d.staging {
		if s == t {
			return true
		}
	}
	return false
}
