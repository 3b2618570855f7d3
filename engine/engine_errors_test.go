package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/GoCodeAlone/pluginrt/bundle"
	"github.com/GoCodeAlone/pluginrt/function"
	"github.com/GoCodeAlone/pluginrt/variable"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterPluginPathErrors(t *testing.T) {
	root := t.TempDir()
	e := New()
	require.NoError(t, e.RegisterManager(newFakeManager("vpl")))

	t.Run("missing path", func(t *testing.T) {
		_, err := e.RegisterPlugin(filepath.Join(root, "nope-v1.0.0.vpl"))
		var notFound *RegisterNotFoundError
		require.ErrorAs(t, err, &notFound)
	})

	t.Run("file instead of directory", func(t *testing.T) {
		path := filepath.Join(root, "flat-v1.0.0.vpl")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
		_, err := e.RegisterPlugin(path)
		var notFound *RegisterNotFoundError
		require.ErrorAs(t, err, &notFound)
	})

	t.Run("no extension", func(t *testing.T) {
		_, err := e.RegisterPlugin(mkPluginDir(t, root, "bare-v1"))
		var unknown *RegisterUnknownManagerFormatError
		require.ErrorAs(t, err, &unknown)
		require.Equal(t, "", unknown.Format)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := e.RegisterPlugin(mkPluginDir(t, root, "lua_plugin-v1.0.0.lua"))
		var unknown *RegisterUnknownManagerFormatError
		require.ErrorAs(t, err, &unknown)
		require.Equal(t, "lua", unknown.Format)
	})

	t.Run("unparseable leaf name", func(t *testing.T) {
		_, err := e.RegisterPlugin(mkPluginDir(t, root, "noversion.vpl"))
		var parse *RegisterBundleFromError
		require.ErrorAs(t, err, &parse)
		var from *bundle.FromError
		require.ErrorAs(t, err, &from)
	})

	t.Run("duplicate id and version", func(t *testing.T) {
		_, err := e.RegisterPlugin(mkPluginDir(t, root, "dup-v1.0.0.vpl"))
		require.NoError(t, err)
		other := filepath.Join(root, "elsewhere")
		require.NoError(t, os.MkdirAll(filepath.Join(other, "dup-v1.0.0.vpl"), 0o755))
		_, err = e.RegisterPlugin(filepath.Join(other, "dup-v1.0.0.vpl"))
		var dup *RegisterAlreadyExistsError
		require.ErrorAs(t, err, &dup)
		require.Equal(t, "dup", dup.ID)
	})
}

func TestLoadMissingRequiredDependency(t *testing.T) {
	root := t.TempDir()
	mgr := newFakeManager("vpl")
	mgr.metadata["b"] = NewMetadata([]bundle.Depend{mustDepend(t, "a", "^1")}, nil)

	e := New()
	require.NoError(t, e.RegisterManager(mgr))
	_, err := e.RegisterPlugin(mkPluginDir(t, root, "b-v1.0.0.vpl"))
	require.NoError(t, err)

	err = e.LoadPlugin("b", "1.0.0")
	var missing *LoadNotFoundDependenciesError
	require.ErrorAs(t, err, &missing)
	require.Len(t, missing.Missing, 1)
	require.Equal(t, "a", missing.Missing[0].ID)

	p, _ := e.GetPlugin("b", "1.0.0")
	require.False(t, p.IsLoaded())
}

func TestLoadMissingOptionalDependencySucceeds(t *testing.T) {
	root := t.TempDir()
	mgr := newFakeManager("vpl")
	mgr.metadata["b"] = NewMetadata(nil, []bundle.Depend{mustDepend(t, "a", "^1")})

	e := New()
	require.NoError(t, e.RegisterManager(mgr))
	_, err := e.RegisterPlugin(mkPluginDir(t, root, "b-v1.0.0.vpl"))
	require.NoError(t, err)

	require.NoError(t, e.LoadPlugin("b", "1.0.0"))
	p, _ := e.GetPlugin("b", "1.0.0")
	require.True(t, p.IsLoaded())
}

func TestLoadByManagerErrorPropagates(t *testing.T) {
	root := t.TempDir()
	mgr := newFakeManager("vpl")
	hookErr := errors.New("no interpreter available")
	mgr.failLoad["a"] = hookErr

	e := New()
	require.NoError(t, e.RegisterManager(mgr))
	_, err := e.RegisterPlugin(mkPluginDir(t, root, "a-v1.0.0.vpl"))
	require.NoError(t, err)

	err = e.LoadPlugin("a", "1.0.0")
	var byManager *LoadByManagerError
	require.ErrorAs(t, err, &byManager)
	require.ErrorIs(t, err, hookErr)

	p, _ := e.GetPlugin("a", "1.0.0")
	require.False(t, p.IsLoaded())
}

func TestLoadDependencyFailureWraps(t *testing.T) {
	root := t.TempDir()
	mgr := newFakeManager("vpl")
	mgr.metadata["b"] = NewMetadata([]bundle.Depend{mustDepend(t, "a", "^1")}, nil)
	mgr.failLoad["a"] = errors.New("a refuses to load")

	e := New()
	require.NoError(t, e.RegisterManager(mgr))
	for _, leaf := range []string{"a-v1.0.0.vpl", "b-v1.0.0.vpl"} {
		_, err := e.RegisterPlugin(mkPluginDir(t, root, leaf))
		require.NoError(t, err)
	}

	err := e.LoadPlugin("b", "1.0.0")
	var depErr *LoadDependencyError
	require.ErrorAs(t, err, &depErr)
	require.Equal(t, "a", depErr.Depend.ID)
	var byManager *LoadByManagerError
	require.ErrorAs(t, depErr.Cause, &byManager)
}

func TestUnloadSupersededVersionAllowed(t *testing.T) {
	root := t.TempDir()
	mgr := newFakeManager("vpl")
	mgr.metadata["paint"] = NewMetadata([]bundle.Depend{mustDepend(t, "brush", ">=1.0.0")}, nil)

	e := New()
	require.NoError(t, e.RegisterManager(mgr))
	for _, leaf := range []string{"brush-v1.0.0.vpl", "brush-v2.0.0.vpl", "paint-v1.0.0.vpl"} {
		_, err := e.RegisterPlugin(mkPluginDir(t, root, leaf))
		require.NoError(t, err)
	}
	require.NoError(t, e.LoadPlugin("brush", "1.0.0"))
	require.NoError(t, e.LoadPlugin("paint", "1.0.0"))

	// paint's best match is brush-v2.0.0, so the superseded brush-v1.0.0 is
	// free to go while the best match stays blocked.
	require.NoError(t, e.UnloadPlugin("brush", "1.0.0"))

	err := e.UnloadPlugin("brush", "2.0.0")
	var blocked *UnloadCurrentlyUsesDependError
	require.ErrorAs(t, err, &blocked)
	require.Equal(t, "paint", blocked.Plugin.ID)
}

func TestUnregisterManagerTearsDownItsPlugins(t *testing.T) {
	root := t.TempDir()
	mgr := newFakeManager("vpl")
	mgr.metadata["x"] = NewMetadata([]bundle.Depend{mustDepend(t, "y", "^1")}, nil)

	e := New()
	require.NoError(t, e.RegisterManager(mgr))
	for _, leaf := range []string{"y-v1.0.0.vpl", "x-v1.0.0.vpl"} {
		_, err := e.RegisterPlugin(mkPluginDir(t, root, leaf))
		require.NoError(t, err)
	}
	require.NoError(t, e.LoadPlugin("x", "1.0.0"))

	require.NoError(t, e.UnregisterManager("vpl"))
	assert.Equal(t, []string{"x-v1.0.0.vpl", "y-v1.0.0.vpl"}, mgr.unloadOrder())
	assert.Empty(t, e.Plugins())
	_, ok := e.GetManager("vpl")
	assert.False(t, ok)
}

func TestUnregisterManagerNotFound(t *testing.T) {
	e := New()
	err := e.UnregisterManager("vpl")
	var notFound *UnregisterManagerNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestRegisterManagerDuplicateFormat(t *testing.T) {
	e := New()
	require.NoError(t, e.RegisterManager(newFakeManager("vpl")))
	err := e.RegisterManager(newFakeManager("vpl"))
	var occupied *AlreadyOccupiedFormatError
	require.ErrorAs(t, err, &occupied)
	require.Equal(t, "vpl", occupied.Format)
}

func TestLoadPluginsSelectsNonDependents(t *testing.T) {
	root := t.TempDir()
	mgr := newFakeManager("vpl")
	mgr.metadata["b"] = NewMetadata([]bundle.Depend{mustDepend(t, "a", "^1")}, nil)

	e := New()
	require.NoError(t, e.RegisterManager(mgr))
	paths := []string{
		mkPluginDir(t, root, "a-v1.0.0.vpl"),
		mkPluginDir(t, root, "b-v1.0.0.vpl"),
	}

	bundles, errs := e.LoadPlugins(paths)
	require.Empty(t, errs)
	require.Len(t, bundles, 2)

	// a is only ever loaded transitively through b.
	require.Equal(t, []string{"a-v1.0.0.vpl", "b-v1.0.0.vpl"}, mgr.loadOrder())
	for _, id := range []string{"a", "b"} {
		p, ok := e.GetPlugin(id, "1.0.0")
		require.True(t, ok)
		require.True(t, p.IsLoaded())
	}
}

func TestPluginRegisterFunctionDuplicate(t *testing.T) {
	root := t.TempDir()
	mgr := newFakeManager("vpl")
	mgr.privateFuncs["a"] = []function.Function{
		noArgFunc("greet", variable.NewString("hi")),
		noArgFunc("greet", variable.NewString("hello")),
	}

	e := New()
	require.NoError(t, e.RegisterManager(mgr))
	_, err := e.RegisterPlugin(mkPluginDir(t, root, "a-v1.0.0.vpl"))
	require.NoError(t, err)

	err = e.LoadPlugin("a", "1.0.0")
	var dup *PluginRegisterFunctionAlreadyExistsError
	require.ErrorAs(t, err, &dup)
	require.Equal(t, "greet", dup.Name)
}

func TestHostFunctionCall(t *testing.T) {
	e := New()
	require.NoError(t, e.RegisterFunction(noArgFunc("version", variable.NewString("1.0"))))

	out, err := e.CallHostFunction(context.Background(), "version", nil)
	require.NoError(t, err)
	require.Equal(t, "1.0", out.String())

	_, err = e.CallHostFunction(context.Background(), "missing", nil)
	var notFound *PluginCallFunctionNotFoundError
	require.ErrorAs(t, err, &notFound)

	fns := e.HostFunctions()
	require.Len(t, fns, 1)
	require.Equal(t, "version", fns[0].Name())
}

func TestSequentialBatchUnloadUnregister(t *testing.T) {
	root := t.TempDir()
	mgr := newFakeManager("vpl")
	e := New()
	require.NoError(t, e.RegisterManager(mgr))

	ids := [][2]string{{"p1", "1.0.0"}, {"p2", "1.0.0"}}
	for _, leaf := range []string{"p1-v1.0.0.vpl", "p2-v1.0.0.vpl"} {
		_, err := e.RegisterPlugin(mkPluginDir(t, root, leaf))
		require.NoError(t, err)
	}
	for _, idv := range ids {
		require.NoError(t, e.LoadPlugin(idv[0], idv[1]))
	}

	require.Empty(t, e.UnloadPlugins(ids))
	for _, idv := range ids {
		p, _ := e.GetPlugin(idv[0], idv[1])
		require.False(t, p.IsLoaded())
	}

	errs := e.UnregisterPlugins(append(ids, [2]string{"ghost", "1.0.0"}))
	require.Len(t, errs, 1)
	var notFound *UnregisterPluginNotFoundError
	require.ErrorAs(t, errs[0], &notFound)
	require.Empty(t, e.Plugins())
}
