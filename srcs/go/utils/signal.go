package utils

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/lsds/kungfu-ddp/srcs/go/log"
)

// Trap calls cancel on the first SIGINT or SIGTERM. A second signal exits
// immediately, for workers stuck in a collective that cancel cannot reach.
func Trap(cancel func(os.Signal)) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		cancel(<-c)
		sig := <-c
		log.Errorf("%s received again, exiting", sig)
		log.Flush()
		os.Exit(130)
	}()
}
