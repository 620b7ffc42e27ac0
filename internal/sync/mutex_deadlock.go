//go:build deadlock

package sync

import "github.com/sasha-s/go-deadlock"

// Mutex is github.com/sasha-s/go-deadlock's instrumented mutex: it
// panics with a goroutine dump on lock-order inversion instead of
// hanging, for test builds that exercise the scheduler's and gc's
// concurrent accumulators.
type Mutex = deadlock.Mutex
