package engine

import (
	"context"
	"sync"

	"github.com/GoCodeAlone/pluginrt/function"
	"github.com/GoCodeAlone/pluginrt/variable"
)

// fakeManager is an in-memory Manager double used only by this package's
// own tests. It never executes plugin code or touches the filesystem
// beyond what the engine itself requires (a real directory to register).
type fakeManager struct {
	mu sync.Mutex

	format string

	// metadata is keyed by bundle id; every version sharing an id gets the
	// same dependency declarations, which is all these tests need.
	metadata map[string]Metadata

	// requestFuncs, keyed by bundle id, are attached as request
	// implementations during LoadPlugin.
	requestFuncs map[string][]function.Function

	// privateFuncs, keyed by bundle id, are registered into the plugin's
	// private registry during LoadPlugin.
	privateFuncs map[string][]function.Function

	failLoad map[string]error

	// duringLoad, keyed by bundle id, is invoked with the live Api while
	// still inside the LoadPlugin hook. Used to exercise managers that
	// call back into the engine synchronously before the hook returns,
	// which must not deadlock against the engine's lock.
	duringLoad map[string]func(api *Api)

	registerManagerCalls int

	loadCalls   []string
	unloadCalls []string
}

func newFakeManager(format string) *fakeManager {
	return &fakeManager{
		format:       format,
		metadata:     make(map[string]Metadata),
		requestFuncs: make(map[string][]function.Function),
		privateFuncs: make(map[string][]function.Function),
		failLoad:     make(map[string]error),
	}
}

func (m *fakeManager) Format() string { return m.format }

func (m *fakeManager) RegisterManager() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registerManagerCalls++
	return nil
}

func (m *fakeManager) UnregisterManager() error { return nil }

func (m *fakeManager) RegisterPlugin(ctx *RegisterPluginContext) (Metadata, error) {
	meta, ok := m.metadata[ctx.Bundle.ID]
	if !ok {
		return NewMetadata(nil, nil), nil
	}
	return meta, nil
}

func (m *fakeManager) UnregisterPlugin(p *Plugin) error { return nil }

func (m *fakeManager) LoadPlugin(ctx *LoadPluginContext, api *Api) error {
	id := ctx.Bundle().ID

	m.mu.Lock()
	m.loadCalls = append(m.loadCalls, ctx.Bundle().String())
	failErr := m.failLoad[id]
	reqFns := append([]function.Function(nil), m.requestFuncs[id]...)
	privFns := append([]function.Function(nil), m.privateFuncs[id]...)
	m.mu.Unlock()

	if failErr != nil {
		return failErr
	}
	for _, f := range reqFns {
		// A real manager would typically log and continue rather than
		// abort the whole load when one function fails to satisfy a
		// request signature; the engine's own step-5 coverage check is
		// what ultimately fails the load in that case.
		_ = ctx.RegisterRequest(f)
	}
	for _, f := range privFns {
		if err := ctx.RegisterFunction(f); err != nil {
			return err
		}
	}

	m.mu.Lock()
	cb := m.duringLoad[id]
	m.mu.Unlock()
	if cb != nil {
		cb(api)
	}
	return nil
}

func (m *fakeManager) UnloadPlugin(p *Plugin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unloadCalls = append(m.unloadCalls, p.Bundle().String())
	return nil
}

func (m *fakeManager) registerManagerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registerManagerCalls
}

func (m *fakeManager) loadOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

func (m *fakeManager) unloadOrder() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.unloadCalls...)
}

// echoFunc builds a Function named name taking one input of inType and
// returning one output of outType, echoing its single argument back.
func echoFunc(name string, inType variable.Type, outType variable.Type) *function.DynamicFunction {
	out := function.Param{Name: "out", Type: outType}
	return function.NewDynamicFunction(name, []function.Param{{Name: "in", Type: inType}}, &out,
		func(ctx context.Context, args []Variable) (*Variable, error) {
			v := args[0]
			return &v, nil
		})
}

// noArgFunc builds a Function named name taking no input and returning a
// constant output value.
func noArgFunc(name string, result Variable) *function.DynamicFunction {
	out := function.Param{Name: "out", Type: result.Kind()}
	return function.NewDynamicFunction(name, nil, &out,
		func(ctx context.Context, args []Variable) (*Variable, error) {
			return &result, nil
		})
}
