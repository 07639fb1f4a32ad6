// Package monitoring carries the process-wide diagnostic logger shared by
// the inference, archive, and frame packages. It exists so library code can
// log without binding to a concrete sink; main wires the default, tests mute
// it.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger, which is how tests silence inference-loop chatter.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Prefixed returns a logger that prepends a subsystem tag to every message,
// so interleaved output from the inference loop and the archive replayer
// stays attributable.
func Prefixed(tag string) func(format string, v ...interface{}) {
	return func(format string, v ...interface{}) {
		Logf(tag+": "+format, v...)
	}
}
