package engine

import (
	"context"

	"github.com/GoCodeAlone/pluginrt/bundle"
	"github.com/GoCodeAlone/pluginrt/function"
)

// RegisterPluginContext is the read-only (path, bundle) handed to a
// Manager's RegisterPlugin hook.
type RegisterPluginContext struct {
	Path   string
	Bundle bundle.Bundle
}

// LoadPluginContext is the mutable borrow of the plugin being loaded plus a
// read-only view of the engine's registered Requests, handed to a
// Manager's LoadPlugin hook.
type LoadPluginContext struct {
	plugin   *Plugin
	requests []function.Request
}

// Bundle returns the identity of the plugin being loaded.
func (c *LoadPluginContext) Bundle() bundle.Bundle { return c.plugin.Bundle() }

// Requests returns the engine's registered Requests as of the start of this
// load call.
func (c *LoadPluginContext) Requests() []function.Request {
	out := make([]function.Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// RegisterRequest attaches f as the plugin's implementation of the engine
// Request sharing its name. The engine Request must exist and f's
// signature must satisfy it per function.Request.SatisfiedBy.
func (c *LoadPluginContext) RegisterRequest(f function.Function) error {
	for _, r := range c.requests {
		if r.Name != f.Name() {
			continue
		}
		if !r.SatisfiedBy(f) {
			return &RegisterRequestArgumentsIncorrectlyError{Name: f.Name()}
		}
		c.plugin.attachRequest(f)
		return nil
	}
	return &RegisterRequestNotFoundError{Name: f.Name()}
}

// RegisterFunction adds f to the plugin's private registry, making it
// callable by other plugins through Api.CallFunctionDepend.
func (c *LoadPluginContext) RegisterFunction(f function.Function) error {
	return c.plugin.registerFunction(f)
}

// LoaderContext is the setup-time surface handed to the host: registering
// managers, host Functions, and Requests. Every mutation routes through the
// engine's own register paths so the uniqueness invariants hold.
type LoaderContext struct {
	engine *Engine
}

func (c *LoaderContext) RegisterManager(m Manager) error {
	return c.engine.RegisterManager(m)
}

func (c *LoaderContext) RegisterManagers(ms []Manager) []error {
	return c.engine.RegisterManagers(ms)
}

func (c *LoaderContext) RegisterManagersParallel(ctx context.Context, ms []Manager) []error {
	return c.engine.RegisterManagersParallel(ctx, ms)
}

func (c *LoaderContext) UnregisterManager(format string) error {
	return c.engine.UnregisterManager(format)
}

func (c *LoaderContext) UnregisterManagers(formats []string) []error {
	return c.engine.UnregisterManagers(formats)
}

func (c *LoaderContext) UnregisterManagersParallel(ctx context.Context, formats []string) []error {
	return c.engine.UnregisterManagersParallel(ctx, formats)
}

func (c *LoaderContext) RegisterRequest(r function.Request) error {
	return c.engine.RegisterRequest(r)
}

func (c *LoaderContext) RegisterFunction(f function.Function) error {
	return c.engine.RegisterFunction(f)
}
