package go_seos

import (
	"github.com/go-i2p/logger"
)

// logInstance is the package-wide structured logger. Verbosity is controlled
// through the DEBUG_I2P environment variable understood by go-i2p/logger
// ("debug", "warn", "error").
var logInstance = logger.GetGoI2PLogger()

// Debug logs a debug message with optional format arguments.
func Debug(message string, args ...interface{}) {
	if len(args) == 0 {
		logInstance.Debug(message)
		return
	}
	logInstance.Debugf(message, args...)
}

// Warning logs a warning message with optional format arguments.
func Warning(message string, args ...interface{}) {
	if len(args) == 0 {
		logInstance.Warn(message)
		return
	}
	logInstance.Warnf(message, args...)
}

// Error logs an error message with optional format arguments.
func Error(message string, args ...interface{}) {
	if len(args) == 0 {
		logInstance.Error(message)
		return
	}
	logInstance.Errorf(message, args...)
}
