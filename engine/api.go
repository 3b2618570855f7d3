package engine

import (
	"context"

	"github.com/GoCodeAlone/pluginrt/bundle"
	"github.com/GoCodeAlone/pluginrt/function"
)

// Api is the per-plugin, dependency-scoped handle a Manager uses during
// LoadPlugin to interact with the rest of the engine. It is constructed
// once per LoadPlugin hook call and must not be retained past it: it holds
// a non-owning back-reference to the engine and is invalid once the hook
// returns. A worker goroutine may use it only if joined before the hook
// returns.
type Api struct {
	engine       *Engine
	self         bundle.Bundle
	requiredDeps []bundle.Bundle
	optionalDeps []bundle.Bundle
}

// Self returns the bundle of the plugin this Api was constructed for.
func (a *Api) Self() bundle.Bundle { return a.self }

// RequiredDependencies returns the bundles resolved for this plugin's
// required Depends, in declaration order.
func (a *Api) RequiredDependencies() []bundle.Bundle {
	out := make([]bundle.Bundle, len(a.requiredDeps))
	copy(out, a.requiredDeps)
	return out
}

// OptionalDependencies returns the bundles resolved for this plugin's
// optional Depends that were actually present at load time.
func (a *Api) OptionalDependencies() []bundle.Bundle {
	out := make([]bundle.Bundle, len(a.optionalDeps))
	copy(out, a.optionalDeps)
	return out
}

// The full engine operation surface is re-exposed so a manager can drive
// further lifecycle operations (e.g. lazily loading a soft-linked plugin)
// from inside a hook call. Api is only ever live while the engine's
// LoadPlugin call that constructed it still holds the engine's lock, so
// every one of these routes through the lock-free "*Locked" internals
// rather than the public, re-locking methods. Calling the public methods
// here would self-deadlock the moment a manager calls back into the Api
// from within its own LoadPlugin hook, which the hook contract permits.

func (a *Api) RegisterManager(m Manager) error { return a.engine.registerManagerLocked(m) }
func (a *Api) UnregisterManager(format string) error {
	return a.engine.unregisterManagerLocked(format)
}
func (a *Api) RegisterPlugin(path string) (bundle.Bundle, error) {
	return a.engine.registerPluginLocked(path)
}
func (a *Api) UnregisterPlugin(id, version string) error {
	return a.engine.unregisterPluginByIDLocked(id, version)
}
func (a *Api) LoadPlugin(id, version string) error {
	return a.engine.loadPluginByIDLocked(id, version)
}
func (a *Api) UnloadPlugin(id, version string) error {
	return a.engine.unloadPluginByIDLocked(id, version)
}
func (a *Api) GetPlugin(id, version string) (*Plugin, bool) {
	return a.engine.findPluginLocked(id, version)
}
func (a *Api) RegisterRequest(r function.Request) error {
	return a.engine.registerRequestLocked(r)
}
func (a *Api) RegisterFunction(f function.Function) error {
	return a.engine.registerFunctionLocked(f)
}
func (a *Api) CallRequest(ctx context.Context, name string, args []Variable) ([]*Variable, error) {
	return a.engine.callRequestLocked(ctx, name, args)
}

func (a *Api) GetManager(format string) (Manager, bool) {
	m, ok := a.engine.managers[format]
	return m, ok
}

func (a *Api) Plugins() []bundle.Bundle { return a.engine.pluginBundlesLocked() }

func (a *Api) Requests() []function.Request { return a.engine.requestsSnapshotLocked() }

func (a *Api) HostFunctions() []function.Function { return a.engine.hostFunctionsLocked() }

// CallHostFunction invokes a Function from the host's registry by name.
func (a *Api) CallHostFunction(ctx context.Context, name string, args []Variable) (*Variable, error) {
	return a.engine.callHostFunctionLocked(ctx, name, args)
}

// CallFunctionDepend invokes name on the required dependency (id, version),
// which must appear in RequiredDependencies(); otherwise
// CallFunctionDependNotFoundError.
func (a *Api) CallFunctionDepend(ctx context.Context, id, version, name string, args []Variable) (*Variable, error) {
	p, err := a.lookupDepend(a.requiredDeps, id, version)
	if err != nil {
		return nil, err
	}
	out, err := p.CallFunction(ctx, name, args)
	if err != nil {
		return nil, &CallFunctionDependFailedError{Cause: err}
	}
	return out, nil
}

// CallFunctionOptionalDepend is like CallFunctionDepend but against the
// optional dependency list; it returns (nil, false, nil) if the optional
// dependency was not present at load time instead of an error.
func (a *Api) CallFunctionOptionalDepend(ctx context.Context, id, version, name string, args []Variable) (*Variable, bool, error) {
	p, err := a.lookupDepend(a.optionalDeps, id, version)
	if err != nil {
		return nil, false, nil
	}
	out, err := p.CallFunction(ctx, name, args)
	if err != nil {
		return nil, true, &CallFunctionDependFailedError{Cause: err}
	}
	return out, true, nil
}

func (a *Api) lookupDepend(deps []bundle.Bundle, id, version string) (*Plugin, error) {
	found := false
	for _, b := range deps {
		if b.ID == id && b.Version.String() == version {
			found = true
			break
		}
	}
	if !found {
		return nil, &CallFunctionDependNotFoundError{ID: id, Version: version}
	}
	p, ok := a.engine.findPluginLocked(id, version)
	if !ok {
		return nil, &CallFunctionDependNotFoundError{ID: id, Version: version}
	}
	return p, nil
}
