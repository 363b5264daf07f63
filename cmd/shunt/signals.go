package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
)

// interrupter is stopped by forwarded signals.
type interrupter interface {
	Interrupt(sig syscall.Signal)
}

// forwardSignals relays SIGINT and SIGTERM to target until the returned stop
// function is called. The first signal starts a graceful stop, a second one
// kills what is left.
func forwardSignals(target interrupter) (stop func()) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-sigs:
				s, ok := sig.(syscall.Signal)
				if !ok {
					s = syscall.SIGTERM
				}
				log.Debug("received signal", "signal", sig)
				go target.Interrupt(s)
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}
