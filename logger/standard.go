package logger

import (
	"context"

	logging "github.com/keybase/go-logging"
)

// Standard logs through go-logging, one named logger per module.
type Standard struct {
	internal *logging.Logger
}

func New(module string) *Standard {
	return &Standard{internal: logging.MustGetLogger(module)}
}

var _ Logger = (*Standard)(nil)

func (s *Standard) CDebugf(ctx context.Context, format string, args ...interface{}) {
	s.internal.Debugf(format, args...)
}

func (s *Standard) CInfof(ctx context.Context, format string, args ...interface{}) {
	s.internal.Infof(format, args...)
}

func (s *Standard) CWarningf(ctx context.Context, format string, args ...interface{}) {
	s.internal.Warningf(format, args...)
}

func (s *Standard) CErrorf(ctx context.Context, format string, args ...interface{}) {
	s.internal.Errorf(format, args...)
}
