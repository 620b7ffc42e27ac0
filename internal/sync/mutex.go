//go:build !deadlock

// Package sync re-exports the Mutex the scheduler and gc packages guard
// their shared accumulators with: plain sync.Mutex by default,
// swapped for github.com/sasha-s/go-deadlock's instrumented Mutex when
// built with -tags deadlock.
package sync

import "sync"

type Mutex = sync.Mutex
