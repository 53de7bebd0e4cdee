package util

import (
	"fmt"
	"log"
)

type Logger struct {
	Verbose     bool
	Quiet       bool
	Prefix      *string
	Destination *log.Logger

	// Receives every message regardless of Quiet, without the level
	// letter (syslog carries its own severity)
	Syslog SyslogWriter
}

// SyslogWriter is the subset of *syslog.Writer the logger needs
type SyslogWriter interface {
	Debug(m string) error
	Info(m string) error
	Warning(m string) error
	Err(m string) error
}

func (logger *Logger) WithPrefix(prefix string) *Logger {
	if logger.Prefix != nil {
		prefix = *logger.Prefix + "/" + prefix
	}
	return &Logger{Verbose: logger.Verbose, Quiet: logger.Quiet, Destination: logger.Destination, Syslog: logger.Syslog, Prefix: &prefix}
}

func (logger *Logger) format(format string, args ...interface{}) string {
	msg := fmt.Sprintf(format, args...)
	if logger.Prefix != nil {
		msg = fmt.Sprintf("[%s] %s", *logger.Prefix, msg)
	}
	return msg
}

func (logger *Logger) print(logLevel string, msg string) {
	if logger.Destination == nil {
		return
	}
	logger.Destination.Printf("%s %s", logLevel, msg)
}

func (logger *Logger) PrintVerbose(format string, args ...interface{}) {
	msg := logger.format(format, args...)
	if logger.Syslog != nil {
		logger.Syslog.Debug(msg)
	}
	if logger.Quiet || !logger.Verbose {
		return
	}

	logger.print("V", msg)
}

func (logger *Logger) PrintInfo(format string, args ...interface{}) {
	msg := logger.format(format, args...)
	if logger.Syslog != nil {
		logger.Syslog.Info(msg)
	}
	if logger.Quiet {
		return
	}

	logger.print("I", msg)
}

func (logger *Logger) PrintWarning(format string, args ...interface{}) {
	msg := logger.format(format, args...)
	if logger.Syslog != nil {
		logger.Syslog.Warning(msg)
	}
	logger.print("W", msg)
}

func (logger *Logger) PrintError(format string, args ...interface{}) {
	msg := logger.format(format, args...)
	if logger.Syslog != nil {
		logger.Syslog.Err(msg)
	}
	logger.print("E", msg)
}
