// Package telemetry wires the ambient logging/metrics stack: a logrus
// logger behind the teacher's Logger contract (api.go's With/Info/Error),
// and Prometheus collectors standing in for the teacher's unwired
// PrometheusCollector/SigNozExporter interfaces (observability.go).
package telemetry

import (
	"github.com/sirupsen/logrus"
)

// Logger is the structured logging contract every package in this module
// depends on, unchanged from the teacher's api.go Logger interface.
type Logger interface {
	With(key string, value any) Logger
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// logrusLogger adapts *logrus.Entry to the Logger contract.
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogger builds a Logger backed by logrus, formatting with JSON in
// production and a human-readable text formatter otherwise.
func NewLogger(json bool) Logger {
	l := logrus.New()
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logrusLogger{entry: logrus.NewEntry(l)}
}

func (l logrusLogger) With(key string, value any) Logger {
	return logrusLogger{entry: l.entry.WithField(key, value)}
}

func toFields(args []any) logrus.Fields {
	fields := make(logrus.Fields, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			continue
		}
		fields[key] = args[i+1]
	}
	return fields
}

func (l logrusLogger) Info(msg string, args ...any) {
	if len(args) == 0 {
		l.entry.Info(msg)
		return
	}
	l.entry.WithFields(toFields(args)).Info(msg)
}

func (l logrusLogger) Error(msg string, args ...any) {
	if len(args) == 0 {
		l.entry.Error(msg)
		return
	}
	l.entry.WithFields(toFields(args)).Error(msg)
}

// noop satisfies Logger without emitting anything, used by tests that
// don't care about log output.
type noop struct{}

// NewNoop returns a Logger that discards everything.
func NewNoop() Logger { return noop{} }

func (noop) With(string, any) Logger        { return noop{} }
func (noop) Info(string, ...any)            {}
func (noop) Error(string, ...any)           {}
