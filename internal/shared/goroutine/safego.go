// Package goroutine guards background goroutines against unhandled panics.
package goroutine

import (
	"runtime/debug"

	"traino/internal/shared/logger"
)

// SafeGo runs fn on a new goroutine. A panic is logged with its stack under
// the given name instead of crashing the process.
func SafeGo(log logger.Interface, name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorw("goroutine panicked",
					"goroutine", name,
					"panic", r,
					"stack", string(debug.Stack()),
				)
			}
		}()
		fn()
	}()
}
