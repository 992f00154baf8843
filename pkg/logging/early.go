package logging

import (
	"fmt"
	"io"
	"os"
)

// EarlyLog writes plain lines to stderr before the structured logger exists.
type EarlyLog struct {
	out     io.Writer
	service string
}

func NewEarlyLog(service string) *EarlyLog {
	return &EarlyLog{out: os.Stderr, service: service}
}

func (l *EarlyLog) Warn(msg string, args ...interface{}) {
	l.write("WARN", msg, args...)
}

// Fatal writes the message and exits with status 1.
func (l *EarlyLog) Fatal(msg string, args ...interface{}) {
	l.write("FATAL", msg, args...)
	os.Exit(1)
}

func (l *EarlyLog) write(level, msg string, args ...interface{}) {
	fmt.Fprintf(l.out, "%s [%s] %s\n", level, l.service, fmt.Sprintf(msg, args...))
}
