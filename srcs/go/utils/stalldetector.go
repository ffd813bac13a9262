package utils

import (
	"time"

	"github.com/lsds/kungfu-ddp/srcs/go/log"
)

// StallDetector warns periodically while a blocking phase, such as joining
// the process group or waiting for the dataset, is still running.
type StallDetector struct {
	name   string
	period time.Duration
	t0     time.Time
	stop   chan struct{}
	done   chan struct{}
}

func InstallStallDetector(name string, period time.Duration) *StallDetector {
	s := &StallDetector{
		name:   name,
		period: period,
		t0:     time.Now(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.watch()
	return s
}

func (s *StallDetector) watch() {
	defer close(s.done)
	tk := time.NewTicker(s.period)
	defer tk.Stop()
	var stalled bool
	for {
		select {
		case <-tk.C:
			stalled = true
			log.Warnf("%s stalled for %s", s.name, time.Since(s.t0).Round(time.Millisecond))
		case <-s.stop:
			if stalled {
				log.Infof("%s recovered after %s", s.name, time.Since(s.t0).Round(time.Millisecond))
			}
			return
		}
	}
}

// Stop ends the watch and returns how long the phase took.
func (s *StallDetector) Stop() time.Duration {
	close(s.stop)
	<-s.done
	return time.Since(s.t0)
}
