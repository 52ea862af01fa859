package render

import (
	"log/slog"
)

// Context is the per-application state handed to every component that
// needs device-wide settings.
type Context struct {
	Config *Config
	// Log overrides the package logger when set.
	Log *slog.Logger
}

// NewContext returns a Context using cfg, or the defaults when cfg is nil.
func NewContext(cfg *Config) *Context {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Context{Config: cfg}
}

func (c *Context) Logger() *slog.Logger {
	if c == nil || c.Log == nil {
		return Logger()
	}
	return c.Log
}

// Families returns the configured queue families.
func (c *Context) Families() QueueFamilies {
	if c == nil || c.Config == nil {
		return QueueFamilies{}
	}
	return c.Config.Queues
}
