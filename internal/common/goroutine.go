// -----------------------------------------------------------------------
// Safe Goroutine - panic-protected goroutine wrappers
// -----------------------------------------------------------------------

package common

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/ternarybob/arbor"
)

var goroutineCounter int64

// GetGoroutineCount returns the number of goroutines spawned via SafeGo
func GetGoroutineCount() int64 {
	return atomic.LoadInt64(&goroutineCounter)
}

// PanicHandler receives the recovered value and stack of a crashed goroutine.
type PanicHandler func(recovered interface{}, stack string)

// SafeGo runs fn in a goroutine with panic recovery.
// Panics are logged and handed to onPanic (may be nil); they never crash the process.
//
// Example:
//
//	common.SafeGo(logger, "scrape:"+jobID, func() {
//	    manager.Run(ctx, jobID)
//	}, func(r interface{}, _ string) {
//	    manager.fail(jobID, fmt.Errorf("panic: %v", r))
//	})
func SafeGo(logger arbor.ILogger, name string, fn func(), onPanic PanicHandler) {
	atomic.AddInt64(&goroutineCounter, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				buf := make([]byte, 4096)
				n := runtime.Stack(buf, false)
				stack := string(buf[:n])

				if logger != nil {
					logger.Error().
						Str("goroutine", name).
						Str("panic", fmt.Sprintf("%v", r)).
						Str("stack", stack).
						Msg("Recovered from panic in goroutine")
				}
				if onPanic != nil {
					onPanic(r, stack)
				}
			}
		}()

		fn()
	}()
}

// SafeGoWithContext is SafeGo that skips fn when ctx is already done.
func SafeGoWithContext(ctx context.Context, logger arbor.ILogger, name string, fn func(), onPanic PanicHandler) {
	SafeGo(logger, name, func() {
		select {
		case <-ctx.Done():
			if logger != nil {
				logger.Debug().Str("goroutine", name).Msg("Goroutine cancelled before start")
			}
			return
		default:
		}
		fn()
	}, onPanic)
}

// RecoverError converts a recovered panic value into an error.
func RecoverError(r interface{}) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
