package httpserver

import (
	"context"
	"errors"
	"time"
)

// ShutdownTimeout controls how long to wait for graceful shutdowns.
var ShutdownTimeout = 10 * time.Second

// ShutdownFunc releases one resource during shutdown.
type ShutdownFunc func(ctx context.Context) error

// ShutdownAll runs each step in order under a single deadline and joins their
// errors. Later steps still run when an earlier one fails.
func ShutdownAll(timeout time.Duration, steps ...ShutdownFunc) error {
	if timeout <= 0 {
		timeout = ShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, step := range steps {
		if step == nil {
			continue
		}
		if err := step(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
