package log

import "sync/atomic"

// process is the logger packages fall back to when they are built without
// one. Commands install theirs once flags and config are parsed.
var process atomic.Pointer[Logger]

// SetDefaultLogger installs l as the process-wide fallback. A nil l
// restores the built-in default on next use.
func SetDefaultLogger(l *Logger) {
	process.Store(l)
}

// DefaultLogger returns the installed logger, creating an info-level text
// logger on first use.
func DefaultLogger() *Logger {
	if l := process.Load(); l != nil {
		return l
	}
	l := Default()
	if process.CompareAndSwap(nil, l) {
		return l
	}
	return process.Load()
}
