package engine

import (
	"context"
	"log/slog"

	"github.com/GoCodeAlone/pluginrt/bundle"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// The parallel variants in this file fan their items out across goroutines
// via errgroup. RegisterManagersParallel and CallRequestParallel run the
// manager hooks or request calls outside the engine's lock; the other
// variants take the single lock once per item for that item's whole
// operation, manager hooks included, so those hooks still run one at a
// time. The returned results match the sequential variant's; the ordering
// of side effects (e.g. which manager hook runs first, or the order in
// which LoadPluginsParallel inserts plugins) is left unspecified. Each
// batch is stamped with a correlation id so a host can tie its own
// manager-side logs back to one fan-out call.

// RegisterManagersParallel registers ms concurrently. Format uniqueness is
// checked and the formats reserved up front, so the one-shot
// RegisterManager hook never fires for a manager that will be rejected;
// the accepted hooks then run in parallel and the survivors are inserted
// serially.
func (e *Engine) RegisterManagersParallel(ctx context.Context, ms []Manager) []error {
	correlationID := uuid.NewString()
	results := make([]error, len(ms))
	accepted := make([]bool, len(ms))

	e.mu.Lock()
	claimed := make(map[string]bool, len(ms))
	for i, m := range ms {
		format := m.Format()
		if _, exists := e.managers[format]; exists || claimed[format] {
			results[i] = &AlreadyOccupiedFormatError{Format: format}
			continue
		}
		claimed[format] = true
		accepted[i] = true
	}
	e.mu.Unlock()

	hookErrs := make([]error, len(ms))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range ms {
		if !accepted[i] {
			continue
		}
		i, m := i, m
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			hookErrs[i] = m.RegisterManager()
			return nil
		})
	}
	_ = g.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, m := range ms {
		if !accepted[i] {
			continue
		}
		if hookErrs[i] != nil {
			results[i] = &RegisterManagerByManagerError{Cause: hookErrs[i]}
			continue
		}
		format := m.Format()
		e.managers[format] = m
		e.logger.Info("manager registered", slog.String("format", format), slog.String("correlation_id", correlationID))
	}
	return nonNilErrors(results)
}

// UnregisterManagersParallel unregisters formats concurrently.
func (e *Engine) UnregisterManagersParallel(ctx context.Context, formats []string) []error {
	correlationID := uuid.NewString()
	results := make([]error, len(formats))

	g, gctx := errgroup.WithContext(ctx)
	for i, format := range formats {
		i, format := i, format
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			e.mu.Lock()
			err := e.unregisterManagerLocked(format)
			e.mu.Unlock()
			results[i] = err
			return nil
		})
	}
	_ = g.Wait()
	e.logger.Info("managers unregistered (parallel)", slog.Int("count", len(formats)), slog.String("correlation_id", correlationID))
	return nonNilErrors(results)
}

// LoadPluginsParallel registers the supplied paths from one goroutine each
// (each registration, including the filesystem stat, bundle parse, and
// manager.RegisterPlugin hook, runs with the engine lock held), then loads
// the non-dependent roots the same way LoadPlugins does.
func (e *Engine) LoadPluginsParallel(ctx context.Context, paths []string) ([]bundle.Bundle, []error) {
	correlationID := uuid.NewString()
	type outcome struct {
		bundle bundle.Bundle
		err    error
	}
	outcomes := make([]outcome, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			e.mu.Lock()
			b, err := e.registerPluginLocked(path)
			e.mu.Unlock()
			outcomes[i] = outcome{bundle: b, err: err}
			return nil
		})
	}
	_ = g.Wait()

	e.mu.Lock()
	var registered []*Plugin
	var errs []error
	for _, o := range outcomes {
		if o.err != nil {
			errs = append(errs, o.err)
			continue
		}
		p, _ := e.findPluginLocked(o.bundle.ID, o.bundle.Version.String())
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
	e.mu.Unlock()

	e.logger.Info("plugins loaded (parallel)", slog.Int("count", len(bundles)), slog.String("correlation_id", correlationID))
	return bundles, errs
}

// UnloadPluginsParallel unloads the named plugins concurrently.
func (e *Engine) UnloadPluginsParallel(ctx context.Context, ids [][2]string) []error {
	correlationID := uuid.NewString()
	results := make([]error, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, idv := range ids {
		i, idv := i, idv
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = e.UnloadPlugin(idv[0], idv[1])
			return nil
		})
	}
	_ = g.Wait()
	e.logger.Info("plugins unloaded (parallel)", slog.Int("count", len(ids)), slog.String("correlation_id", correlationID))
	return nonNilErrors(results)
}

// UnregisterPluginsParallel unregisters the named plugins concurrently.
func (e *Engine) UnregisterPluginsParallel(ctx context.Context, ids [][2]string) []error {
	correlationID := uuid.NewString()
	results := make([]error, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for i, idv := range ids {
		i, idv := i, idv
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = e.UnregisterPlugin(idv[0], idv[1])
			return nil
		})
	}
	_ = g.Wait()
	e.logger.Info("plugins unregistered (parallel)", slog.Int("count", len(ids)), slog.String("correlation_id", correlationID))
	return nonNilErrors(results)
}

// CallRequestParallel is semantically identical to CallRequest: it collects
// the eligible (highest-version, loaded) plugins once under the engine
// lock, then dispatches the Function.Call invocations concurrently,
// writing each result into a pre-sized slice at its original index so the
// result order always matches the sequential iteration order regardless of
// completion order.
func (e *Engine) CallRequestParallel(ctx context.Context, name string, args []Variable) ([]*Variable, error) {
	correlationID := uuid.NewString()

	e.mu.Lock()
	var targets []*Plugin
	for _, p := range e.plugins {
		if p.isLoaded && isHighestForID(p, e.plugins) {
			targets = append(targets, p)
		}
	}
	e.mu.Unlock()

	out := make([]*Variable, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range targets {
		i, p := i, p
		g.Go(func() error {
			v, err := p.CallRequest(gctx, name, args)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.logger.Info("call request (parallel)", slog.String("request", name), slog.Int("targets", len(targets)), slog.String("correlation_id", correlationID))
	return out, nil
}

func nonNilErrors(errs []error) []error {
	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
