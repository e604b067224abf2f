// Package monitoring holds the diagnostic logger shared by skelid's library
// packages.
package monitoring

import (
	"log"
	"sync"
)

var (
	mu   sync.RWMutex
	logf = log.Printf
)

// Logf writes a diagnostic line through the current logger. It defaults to
// log.Printf.
func Logf(format string, v ...any) {
	mu.RLock()
	f := logf
	mu.RUnlock()
	f(format, v...)
}

// SetLogger replaces the logger. Passing nil mutes output. It returns the
// previous logger so tests can restore it.
func SetLogger(f func(format string, v ...any)) func(format string, v ...any) {
	if f == nil {
		f = func(string, ...any) {}
	}
	mu.Lock()
	prev := logf
	logf = f
	mu.Unlock()
	return prev
}
