package engine

import (
	"context"

	"github.com/GoCodeAlone/pluginrt/bundle"
	"github.com/GoCodeAlone/pluginrt/function"
)

// Plugin is the engine's owned record for one registered plugin. All
// mutation happens through the engine's own lifecycle operations; callers
// outside the engine package only ever see read accessors plus the
// function-call surface, mirroring the "managers receive borrowed views"
// ownership rule.
type Plugin struct {
	manager  Manager
	path     string
	bundle   bundle.Bundle
	metadata Metadata

	isLoaded bool

	// requests holds, per registered engine Request name, the Function the
	// plugin supplied to satisfy it. Order follows the order the plugin
	// registered them in during its load hook.
	requests     []function.Function
	requestNames map[string]int

	// registry is the plugin's private function registry: functions it
	// exposes to other plugins, keyed by name.
	registry map[string]function.Function
}

func newPlugin(m Manager, path string, b bundle.Bundle, meta Metadata) *Plugin {
	return &Plugin{
		manager:      m,
		path:         path,
		bundle:       b,
		metadata:     meta,
		requestNames: make(map[string]int),
		registry:     make(map[string]function.Function),
	}
}

func (p *Plugin) Path() string { return p.path }

func (p *Plugin) Bundle() bundle.Bundle { return p.bundle }

func (p *Plugin) Metadata() Metadata { return p.metadata }

func (p *Plugin) IsLoaded() bool { return p.isLoaded }

// Requests returns the ordered sequence of request-implementing Functions
// currently attached to the plugin.
func (p *Plugin) Requests() []function.Function {
	out := make([]function.Function, len(p.requests))
	copy(out, p.requests)
	return out
}

func (p *Plugin) requestByName(name string) (function.Function, bool) {
	idx, ok := p.requestNames[name]
	if !ok {
		return nil, false
	}
	return p.requests[idx], true
}

func (p *Plugin) attachRequest(f function.Function) {
	if idx, ok := p.requestNames[f.Name()]; ok {
		p.requests[idx] = f
		return
	}
	p.requestNames[f.Name()] = len(p.requests)
	p.requests = append(p.requests, f)
}

// registerFunction adds f to the plugin's private registry. Duplicate names
// are rejected with PluginRegisterFunctionAlreadyExistsError.
func (p *Plugin) registerFunction(f function.Function) error {
	if _, exists := p.registry[f.Name()]; exists {
		return &PluginRegisterFunctionAlreadyExistsError{Name: f.Name()}
	}
	p.registry[f.Name()] = f
	return nil
}

// CallFunction invokes a Function from the plugin's private registry by
// name.
func (p *Plugin) CallFunction(ctx context.Context, name string, args []Variable) (*Variable, error) {
	fn, ok := p.registry[name]
	if !ok {
		return nil, &PluginCallFunctionNotFoundError{Name: name}
	}
	return fn.Call(ctx, args)
}

// CallRequest invokes the Function the plugin attached for the named
// Request.
func (p *Plugin) CallRequest(ctx context.Context, name string, args []Variable) (*Variable, error) {
	fn, ok := p.requestByName(name)
	if !ok {
		return nil, &PluginCallRequestNotFoundError{Name: name}
	}
	return fn.Call(ctx, args)
}
