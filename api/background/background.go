// Package background runs fire-and-forget work outside the request cycle and
// lets the server wait for it before exiting.
package background

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

type Background struct {
	log logrus.FieldLogger
	wg  sync.WaitGroup

	mu       sync.Mutex
	shutdown bool
}

func New(log logrus.FieldLogger) *Background {
	return &Background{log: log}
}

// Add runs fn in its own goroutine. Panics are recovered and logged. Work
// submitted after Shutdown started is dropped.
func (b *Background) Add(fn func()) {
	b.mu.Lock()
	if b.shutdown {
		b.mu.Unlock()
		b.log.Warn("background task rejected: shutting down")
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				b.log.WithField("panic", fmt.Sprint(rec)).Error("background task panicked")
			}
		}()

		fn()
	}()
}

// Shutdown waits for running tasks or for ctx to end, whichever is first.
func (b *Background) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	b.shutdown = true
	b.mu.Unlock()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
