package logger

// ComponentLogger adds a "component" attribute to every record so output
// from the relay and the HTTP gateway can be filtered apart.
type ComponentLogger struct {
	inner     Logger
	component string
}

func WithComponent(inner Logger, component string) *ComponentLogger {
	return &ComponentLogger{inner: inner, component: component}
}

func (c *ComponentLogger) attrs(args []any) []any {
	return append([]any{"component", c.component}, args...)
}

func (c *ComponentLogger) SetLogLevel(levelStr string) { c.inner.SetLogLevel(levelStr) }
func (c *ComponentLogger) GetLogLevel() string         { return c.inner.GetLogLevel() }

func (c *ComponentLogger) Trace(msg string, args ...any) { c.inner.Trace(msg, c.attrs(args)...) }
func (c *ComponentLogger) Debug(msg string, args ...any) { c.inner.Debug(msg, c.attrs(args)...) }
func (c *ComponentLogger) Info(msg string, args ...any)  { c.inner.Info(msg, c.attrs(args)...) }
func (c *ComponentLogger) Warn(msg string, args ...any)  { c.inner.Warn(msg, c.attrs(args)...) }

func (c *ComponentLogger) Error(msg string, err error, args ...any) {
	c.inner.Error(msg, err, c.attrs(args)...)
}

func (c *ComponentLogger) Fatal(msg string, err error, args ...any) {
	c.inner.Fatal(msg, err, c.attrs(args)...)
}
