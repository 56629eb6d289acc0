package logger

import "sync/atomic"

type holder struct{ Logger }

var defLogger atomic.Pointer[holder]

func init() {
	defLogger.Store(&holder{NewSlog(InfoLevel, false)})
}

// GetLogger returns the package-level default logger. Sessions, transports
// and simulated devices created without WithLogger log through it.
func GetLogger() Logger {
	return defLogger.Load().Logger
}

// SetLogger replaces the package-level default logger. A nil l is ignored.
//
// Components capture the default when they are created, so call it before
// opening sessions.
func SetLogger(l Logger) {
	if l != nil {
		defLogger.Store(&holder{l})
	}
}
