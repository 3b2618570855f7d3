// Package engine implements the plugin lifecycle engine: the dependency-
// aware register/load/unload/unregister state machine, the host↔plugin
// typed function-call layer, and the Manager contract the core is defined
// against.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/GoCodeAlone/pluginrt/bundle"
	"github.com/GoCodeAlone/pluginrt/function"
)

// Engine is the single-owner, multi-reader lifecycle engine. All mutable
// operations treat (managers, plugins, registry, requests) as one
// aggregate guarded by a single lock.
type Engine struct {
	mu     sync.Mutex
	logger *slog.Logger

	managers map[string]Manager
	plugins  []*Plugin

	hostRegistry      map[string]function.Function
	hostRegistryOrder []string

	requests []function.Request
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger sets the structured logger the engine reports lifecycle
// transitions through. Nil is treated as slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New builds an Engine ready to accept manager and plugin registrations.
func New(opts ...Option) *Engine {
	e := &Engine{
		managers:     make(map[string]Manager),
		hostRegistry: make(map[string]function.Function),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Loader returns the setup-time surface intended for host configuration
// code (register managers, host Functions, Requests).
func (e *Engine) Loader() *LoaderContext { return &LoaderContext{engine: e} }

// --- manager registration ---

func (e *Engine) RegisterManager(m Manager) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registerManagerLocked(m)
}

func (e *Engine) registerManagerLocked(m Manager) error {
	format := m.Format()
	if _, exists := e.managers[format]; exists {
		return &AlreadyOccupiedFormatError{Format: format}
	}
	if err := m.RegisterManager(); err != nil {
		return &RegisterManagerByManagerError{Cause: err}
	}
	e.managers[format] = m
	e.logger.Info("manager registered", slog.String("format", format))
	return nil
}

// RegisterManagers registers ms in order, collecting rather than
// short-circuiting on failure.
func (e *Engine) RegisterManagers(ms []Manager) []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for _, m := range ms {
		if err := e.registerManagerLocked(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (e *Engine) UnregisterManager(format string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unregisterManagerLocked(format)
}

func (e *Engine) unregisterManagerLocked(format string) error {
	m, ok := e.managers[format]
	if !ok {
		return &UnregisterManagerNotFoundError{Format: format}
	}

	var subset []*Plugin
	for _, p := range e.plugins {
		if p.manager == m {
			subset = append(subset, p)
		}
	}
	order := topoSort(e.plugins, subset)

	// Two phases: unload everything in dependency order first, so a failed
	// unload aborts before any plugin record has been irreversibly removed,
	// then unregister the records.
	for _, p := range order {
		if !p.isLoaded {
			continue
		}
		if err := e.unloadPluginLocked(p); err != nil {
			return &UnregisterManagerUnregisterPluginError{Cause: &UnregisterPluginUnloadError{Cause: err}}
		}
	}
	for _, p := range order {
		if err := e.unregisterPluginLocked(p); err != nil {
			return &UnregisterManagerUnregisterPluginError{Cause: err}
		}
	}

	if err := m.UnregisterManager(); err != nil {
		return &UnregisterManagerByManagerError{Cause: err}
	}
	delete(e.managers, format)
	e.logger.Info("manager unregistered", slog.String("format", format))
	return nil
}

func (e *Engine) UnregisterManagers(formats []string) []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for _, f := range formats {
		if err := e.unregisterManagerLocked(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// --- request / function registration (setup-time, via LoaderContext) ---

func (e *Engine) RegisterRequest(r function.Request) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registerRequestLocked(r)
}

func (e *Engine) registerRequestLocked(r function.Request) error {
	e.requests = append(e.requests, r)
	return nil
}

func (e *Engine) RegisterFunction(f function.Function) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registerFunctionLocked(f)
}

func (e *Engine) registerFunctionLocked(f function.Function) error {
	if _, exists := e.hostRegistry[f.Name()]; !exists {
		e.hostRegistryOrder = append(e.hostRegistryOrder, f.Name())
	}
	e.hostRegistry[f.Name()] = f
	return nil
}

// HostFunctions returns the host registry's Functions in registration
// order.
func (e *Engine) HostFunctions() []function.Function {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hostFunctionsLocked()
}

func (e *Engine) hostFunctionsLocked() []function.Function {
	out := make([]function.Function, len(e.hostRegistryOrder))
	for i, name := range e.hostRegistryOrder {
		out[i] = e.hostRegistry[name]
	}
	return out
}

// CallHostFunction invokes a Function from the host registry by name.
func (e *Engine) CallHostFunction(ctx context.Context, name string, args []Variable) (*Variable, error) {
	e.mu.Lock()
	fn, ok := e.hostRegistry[name]
	e.mu.Unlock()
	if !ok {
		return nil, &PluginCallFunctionNotFoundError{Name: name}
	}
	return fn.Call(ctx, args)
}

func (e *Engine) callHostFunctionLocked(ctx context.Context, name string, args []Variable) (*Variable, error) {
	fn, ok := e.hostRegistry[name]
	if !ok {
		return nil, &PluginCallFunctionNotFoundError{Name: name}
	}
	return fn.Call(ctx, args)
}

// Requests returns the engine's registered Requests in registration order.
func (e *Engine) Requests() []function.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requestsSnapshotLocked()
}

func (e *Engine) requestsSnapshotLocked() []function.Request {
	out := make([]function.Request, len(e.requests))
	copy(out, e.requests)
	return out
}

// GetManager returns the Manager registered for format, if any.
func (e *Engine) GetManager(format string) (Manager, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.managers[format]
	return m, ok
}

// --- plugin lookup ---

func (e *Engine) GetPlugin(id, version string) (*Plugin, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.findPluginLocked(id, version)
}

// Plugins returns the bundles of every registered plugin in insertion
// order.
func (e *Engine) Plugins() []bundle.Bundle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pluginBundlesLocked()
}

func (e *Engine) pluginBundlesLocked() []bundle.Bundle {
	out := make([]bundle.Bundle, len(e.plugins))
	for i, p := range e.plugins {
		out[i] = p.Bundle()
	}
	return out
}

func (e *Engine) findPluginLocked(id, version string) (*Plugin, bool) {
	for _, p := range e.plugins {
		if p.bundle.ID == id && p.bundle.Version.String() == version {
			return p, true
		}
	}
	return nil, false
}

// --- register_plugin ---

func (e *Engine) RegisterPlugin(path string) (bundle.Bundle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registerPluginLocked(path)
}

func (e *Engine) registerPluginLocked(path string) (bundle.Bundle, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return bundle.Bundle{}, &RegisterNotFoundError{Path: path}
	}

	leaf := filepath.Base(path)
	if !strings.Contains(leaf, ".") {
		return bundle.Bundle{}, &RegisterUnknownManagerFormatError{Format: ""}
	}

	b, err := bundle.Parse(leaf)
	if err != nil {
		return bundle.Bundle{}, &RegisterBundleFromError{Cause: err}
	}

	if _, exists := e.findPluginLocked(b.ID, b.Version.String()); exists {
		return bundle.Bundle{}, &RegisterAlreadyExistsError{ID: b.ID, Version: b.Version.String()}
	}

	m, ok := e.managers[b.Format]
	if !ok {
		return bundle.Bundle{}, &RegisterUnknownManagerFormatError{Format: b.Format}
	}

	meta, err := m.RegisterPlugin(&RegisterPluginContext{Path: path, Bundle: b})
	if err != nil {
		return bundle.Bundle{}, &RegisterByManagerError{Cause: err}
	}

	e.plugins = append(e.plugins, newPlugin(m, path, b, meta))
	e.logger.Info("plugin registered", slog.String("plugin", b.String()))
	return b, nil
}

// --- unregister_plugin ---

func (e *Engine) UnregisterPlugin(id, version string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unregisterPluginByIDLocked(id, version)
}

func (e *Engine) unregisterPluginByIDLocked(id, version string) error {
	p, ok := e.findPluginLocked(id, version)
	if !ok {
		return &UnregisterPluginNotFoundError{ID: id, Version: version}
	}
	return e.unregisterPluginLocked(p)
}

func (e *Engine) unregisterPluginLocked(p *Plugin) error {
	if p.isLoaded {
		if err := e.unloadPluginLocked(p); err != nil {
			return &UnregisterPluginUnloadError{Cause: err}
		}
	}

	for i, other := range e.plugins {
		if other == p {
			e.plugins = append(e.plugins[:i], e.plugins[i+1:]...)
			break
		}
	}

	if err := p.manager.UnregisterPlugin(p); err != nil {
		return &UnregisterPluginByManagerError{Cause: err}
	}
	e.logger.Info("plugin unregistered", slog.String("plugin", p.Bundle().String()))
	return nil
}

// UnregisterPlugins unregisters the named (id, version) plugins in order,
// collecting rather than short-circuiting on failure.
func (e *Engine) UnregisterPlugins(ids [][2]string) []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for _, idv := range ids {
		if err := e.unregisterPluginByIDLocked(idv[0], idv[1]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// --- load_plugin ---

func (e *Engine) LoadPlugin(id, version string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loadPluginByIDLocked(id, version)
}

func (e *Engine) loadPluginByIDLocked(id, version string) error {
	p, ok := e.findPluginLocked(id, version)
	if !ok {
		return &LoadNotFoundError{ID: id, Version: version}
	}
	return e.loadPluginLocked(p)
}

func (e *Engine) loadPluginLocked(p *Plugin) error {
	if p.isLoaded {
		return nil
	}

	meta := p.Metadata()

	// Required and optional depends are walked as one chained pass. A
	// missing required dependency is accumulated, not returned immediately,
	// so it never short-circuits resolution of the optional depends that
	// follow it in the same attempt.
	var missing []bundle.Depend
	var requiredBundles []bundle.Bundle
	for _, d := range meta.Depends() {
		dep, ok := bestMatch(d, e.plugins)
		if !ok {
			missing = append(missing, d)
			continue
		}
		if err := e.loadPluginLocked(dep); err != nil {
			return &LoadDependencyError{Depend: d, Cause: err}
		}
		requiredBundles = append(requiredBundles, dep.Bundle())
	}

	var optionalBundles []bundle.Bundle
	for _, d := range meta.OptionalDepends() {
		dep, ok := bestMatch(d, e.plugins)
		if !ok {
			continue
		}
		if err := e.loadPluginLocked(dep); err != nil {
			return &LoadDependencyError{Depend: d, Cause: err}
		}
		optionalBundles = append(optionalBundles, dep.Bundle())
	}

	if len(missing) > 0 {
		return &LoadNotFoundDependenciesError{Missing: missing}
	}

	api := &Api{engine: e, self: p.Bundle(), requiredDeps: requiredBundles, optionalDeps: optionalBundles}
	loadCtx := &LoadPluginContext{plugin: p, requests: append([]function.Request(nil), e.requests...)}

	if err := p.manager.LoadPlugin(loadCtx, api); err != nil {
		return &LoadByManagerError{Cause: err}
	}
	p.isLoaded = true

	var unsatisfied []string
	for _, r := range e.requests {
		fn, ok := p.requestByName(r.Name)
		if !ok || !r.SatisfiedBy(fn) {
			unsatisfied = append(unsatisfied, r.Name)
		}
	}
	if len(unsatisfied) > 0 {
		p.isLoaded = false
		return &LoadRequestsNotFoundError{Names: unsatisfied}
	}

	e.logger.Info("plugin loaded", slog.String("plugin", p.Bundle().String()))
	return nil
}

// --- unload_plugin ---

func (e *Engine) UnloadPlugin(id, version string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.unloadPluginByIDLocked(id, version)
}

func (e *Engine) unloadPluginByIDLocked(id, version string) error {
	p, ok := e.findPluginLocked(id, version)
	if !ok {
		return &UnloadNotFoundError{ID: id, Version: version}
	}
	return e.unloadPluginLocked(p)
}

func (e *Engine) unloadPluginLocked(p *Plugin) error {
	if !p.isLoaded {
		return nil
	}

	var loaded []*Plugin
	for _, other := range e.plugins {
		if other.isLoaded {
			loaded = append(loaded, other)
		}
	}

	for _, other := range loaded {
		if other == p {
			continue
		}
		for _, d := range allDepends(other) {
			if !d.Matches(p.Bundle()) {
				continue
			}
			if best, ok := bestMatch(d, loaded); ok && best == p {
				return &UnloadCurrentlyUsesDependError{Plugin: other.Bundle(), Depend: d}
			}
		}
	}

	if err := p.manager.UnloadPlugin(p); err != nil {
		return &UnloadByManagerError{Cause: err}
	}
	p.isLoaded = false
	e.logger.Info("plugin unloaded", slog.String("plugin", p.Bundle().String()))
	return nil
}

// UnloadPlugins unloads the named (id, version) plugins in order,
// collecting rather than short-circuiting on failure.
func (e *Engine) UnloadPlugins(ids [][2]string) []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for _, idv := range ids {
		if err := e.unloadPluginByIDLocked(idv[0], idv[1]); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// --- batch / reduced load ---

// LoadPluginNow registers the plugin at path, then loads it.
func (e *Engine) LoadPluginNow(path string) (bundle.Bundle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, err := e.registerPluginLocked(path)
	if err != nil {
		return bundle.Bundle{}, err
	}
	p, _ := e.findPluginLocked(b.ID, b.Version.String())
	if err := e.loadPluginLocked(p); err != nil {
		return bundle.Bundle{}, err
	}
	return b, nil
}

// LoadPlugins registers every supplied path, then loads every registered
// plugin that is not itself the best-match dependency of another plugin in
// the batch (dependencies load transitively through loadPluginLocked).
func (e *Engine) LoadPlugins(paths []string) ([]bundle.Bundle, []error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var registered []*Plugin
	var errs []error
	for _, path := range paths {
		b, err := e.registerPluginLocked(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p, _ := e.findPluginLocked(b.ID, b.Version.String())
		registered = append(registered, p)
	}

	var bundles []bundle.Bundle
	for _, p := range registered {
		if isDependencyTargetWithin(p, registered, e.plugins) {
			continue
		}
		if err := e.loadPluginLocked(p); err != nil {
			errs = append(errs, err)
			continue
		}
	}
	for _, p := range registered {
		bundles = append(bundles, p.Bundle())
	}
	return bundles, errs
}

// LoadOnlyUsedPlugins behaves like LoadPlugins, then additionally
// unregisters every plugin in the batch that is superseded by a
// higher-version sibling, returning only the surviving bundles.
func (e *Engine) LoadOnlyUsedPlugins(paths []string) ([]bundle.Bundle, []error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var registered []*Plugin
	var errs []error
	for _, path := range paths {
		b, err := e.registerPluginLocked(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p, _ := e.findPluginLocked(b.ID, b.Version.String())
		registered = append(registered, p)
	}

	for _, p := range registered {
		if isDependencyTargetWithin(p, registered, e.plugins) {
			continue
		}
		if err := e.loadPluginLocked(p); err != nil {
			errs = append(errs, err)
		}
	}

	used, unused := usedUnused(registered)
	for _, p := range unused {
		if err := e.unregisterPluginLocked(p); err != nil {
			errs = append(errs, err)
		}
	}

	var bundles []bundle.Bundle
	for _, p := range used {
		bundles = append(bundles, p.Bundle())
	}
	return bundles, errs
}

// --- function-call layer ---

// CallRequest invokes the named Request's Function on every plugin whose
// version is the highest for its id, returning results in plugin-insertion
// order.
func (e *Engine) CallRequest(ctx context.Context, name string, args []Variable) ([]*Variable, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.callRequestLocked(ctx, name, args)
}

func (e *Engine) callRequestLocked(ctx context.Context, name string, args []Variable) ([]*Variable, error) {
	var targets []*Plugin
	for _, p := range e.plugins {
		if p.isLoaded && isHighestForID(p, e.plugins) {
			targets = append(targets, p)
		}
	}

	out := make([]*Variable, 0, len(targets))
	for _, p := range targets {
		v, err := p.CallRequest(ctx, name, args)
		if err != nil {
			return nil, fmt.Errorf("call request %q on %s: %w", name, p.Bundle(), err)
		}
		out = append(out, v)
	}
	return out, nil
}

// --- stop ---

// Stop unloads and unregisters every plugin in topological (dependents
// first) order, then unregisters every manager. Failures are collected
// rather than short-circuited so teardown remains maximal. When any plugin
// failed, the plugin failures are what is returned.
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	order := topoSort(e.plugins, append([]*Plugin(nil), e.plugins...))

	// Two phases, collecting failures so teardown stays maximal: unload
	// everything in dependency order, then unregister the records. Plugins
	// whose unload failed keep their record so no manager hook fires for a
	// still-loaded plugin.
	var pluginErrs []error
	unloadFailed := make(map[*Plugin]bool)
	for _, p := range order {
		if !p.isLoaded {
			continue
		}
		if err := e.unloadPluginLocked(p); err != nil {
			pluginErrs = append(pluginErrs, err)
			unloadFailed[p] = true
		}
	}
	for _, p := range order {
		if unloadFailed[p] {
			continue
		}
		if err := e.unregisterPluginLocked(p); err != nil {
			pluginErrs = append(pluginErrs, err)
		}
	}
	var managerErrs []error
	for format := range e.managers {
		if err := e.unregisterManagerLocked(format); err != nil {
			managerErrs = append(managerErrs, err)
		}
	}
	if len(pluginErrs) > 0 {
		return &StopUnregisterPluginFailedError{Errors: pluginErrs}
	}
	if len(managerErrs) > 0 {
		return &StopUnregisterManagerFailedError{Errors: managerErrs}
	}
	return nil
}
