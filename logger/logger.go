package logger

import "context"

// BaseLogger is the leveled surface the rest of the codebase logs through.
type BaseLogger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warning(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// ContextInterface couples a context.Context with a logger so both can be
// threaded through storage engines as a single argument.
type ContextInterface interface {
	BaseLogger
	Ctx() context.Context
	UpdateContextToLoggerContext(context.Context) ContextInterface
}

// Logger is a context-aware leveled logging backend.
type Logger interface {
	// CDebugf logs a message at debug level, with a context and
	// formatting args.
	CDebugf(ctx context.Context, format string, args ...interface{})
	// CInfof logs a message at info level, with a context and formatting args.
	CInfof(ctx context.Context, format string, args ...interface{})
	// CWarningf logs a message at warning level, with a context and
	// formatting args.
	CWarningf(ctx context.Context, format string, args ...interface{})
	// CErrorf logs a message at error level, with a context and
	// formatting args.
	CErrorf(ctx context.Context, format string, args ...interface{})
}

type Context struct {
	ctx context.Context
	log Logger
}

func NewContext(c context.Context, l Logger) Context {
	return Context{ctx: c, log: l}
}

var _ ContextInterface = Context{}

func (c Context) Ctx() context.Context {
	return c.ctx
}

func (c Context) UpdateContextToLoggerContext(ctx context.Context) ContextInterface {
	return NewContext(ctx, c.log)
}

func (c Context) Debug(format string, args ...interface{}) {
	c.log.CDebugf(c.ctx, format, args...)
}

func (c Context) Info(format string, args ...interface{}) {
	c.log.CInfof(c.ctx, format, args...)
}

func (c Context) Warning(format string, args ...interface{}) {
	c.log.CWarningf(c.ctx, format, args...)
}

func (c Context) Error(format string, args ...interface{}) {
	c.log.CErrorf(c.ctx, format, args...)
}

// Null discards everything.
type Null struct{}

func NewNull() *Null {
	return &Null{}
}

var _ Logger = (*Null)(nil)

func (l *Null) CDebugf(ctx context.Context, format string, args ...interface{})   {}
func (l *Null) CInfof(ctx context.Context, format string, args ...interface{})    {}
func (l *Null) CWarningf(ctx context.Context, format string, args ...interface{}) {}
func (l *Null) CErrorf(ctx context.Context, format string, args ...interface{})   {}
