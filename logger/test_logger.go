package logger

import (
	"context"
	"testing"
)

// TestLogger routes log lines through testing.T so output attaches to the
// test that produced it.
type TestLogger struct {
	t *testing.T
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t}
}

var _ Logger = (*TestLogger)(nil)

func (l *TestLogger) CDebugf(ctx context.Context, format string, args ...interface{}) {
	l.t.Logf("DEBUG "+format, args...)
}

func (l *TestLogger) CInfof(ctx context.Context, format string, args ...interface{}) {
	l.t.Logf("INFO "+format, args...)
}

func (l *TestLogger) CWarningf(ctx context.Context, format string, args ...interface{}) {
	l.t.Logf("WARNING "+format, args...)
}

func (l *TestLogger) CErrorf(ctx context.Context, format string, args ...interface{}) {
	l.t.Logf("ERROR "+format, args...)
}
