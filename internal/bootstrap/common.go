package bootstrap

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

const defaultCleanUpTimeout = 10 * time.Second

type operation func(ctx context.Context) error

// signalContext is canceled on the first termination signal.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
}

// cleanUp runs the clean up operations concurrently and gives up after timeout.
func cleanUp(timeout time.Duration, ops map[string]operation) {
	if len(ops) == 0 {
		return
	}
	if timeout <= 0 {
		timeout = defaultCleanUpTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var wg sync.WaitGroup
	for key, op := range ops {
		wg.Add(1)
		go func() {
			defer wg.Done()

			logrus.Debugf("cleaning up: %s", key)
			if err := op(ctx); err != nil {
				logrus.Errorf("%s: clean up failed: %s", key, err.Error())
				return
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logrus.Errorf("timeout %d ms has been elapsed, skipping remaining clean up", timeout.Milliseconds())
	}
}
