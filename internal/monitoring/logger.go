// Package monitoring holds the diagnostic logger shared by the digitizer
// packages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf and
// is swapped with SetLogger; tests usually mute or capture it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs a non-fatal problem tagged with its component, e.g.
// "[digitizer] warn: variance floored".
func Warnf(component, format string, v ...interface{}) {
	Logf("["+component+"] warn: "+format, v...)
}

// Component returns a logger that prefixes every line with "[component] ".
// It resolves Logf at call time so later SetLogger calls take effect.
func Component(component string) func(format string, v ...interface{}) {
	prefix := "[" + component + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
