package engine

import "github.com/GoCodeAlone/pluginrt/bundle"

// Metadata is produced by a Manager's RegisterPlugin hook: the ordered
// dependency declarations the engine needs to resolve the plugin's
// dependency graph. It must not execute plugin code to produce this.
type Metadata interface {
	Depends() []bundle.Depend
	OptionalDepends() []bundle.Depend
}

// staticMetadata is the common Metadata implementation managers return.
// The type is unexported; NewMetadata lets managers outside this package
// build one without a custom type.
type staticMetadata struct {
	depends         []bundle.Depend
	optionalDepends []bundle.Depend
}

// NewMetadata builds a Metadata value from explicit dependency lists.
func NewMetadata(depends, optionalDepends []bundle.Depend) Metadata {
	return staticMetadata{depends: depends, optionalDepends: optionalDepends}
}

func (m staticMetadata) Depends() []bundle.Depend         { return m.depends }
func (m staticMetadata) OptionalDepends() []bundle.Depend { return m.optionalDepends }

// Manager is the format-keyed adapter the engine delegates plugin handling
// to. Manager equality and uniqueness within the engine are by Format().
//
// Ordering contract between the engine and a Manager for any one plugin:
// exactly one RegisterPlugin, zero-or-more matched LoadPlugin/UnloadPlugin
// pairs, exactly one UnregisterPlugin. UnregisterPlugin is never called
// while the plugin is loaded.
type Manager interface {
	// Format is the file extension (without the leading dot) this manager
	// handles. It must be unique across the engine.
	Format() string

	// RegisterManager is a one-shot hook called exactly once when the
	// manager is inserted into the engine.
	RegisterManager() error

	// UnregisterManager is a one-shot hook called exactly once when the
	// manager is removed from the engine.
	UnregisterManager() error

	// RegisterPlugin inspects the on-disk bundle at ctx.Path and returns
	// its dependency metadata. It must not execute plugin code.
	RegisterPlugin(ctx *RegisterPluginContext) (Metadata, error)

	// UnregisterPlugin releases any per-plugin state RegisterPlugin
	// allocated.
	UnregisterPlugin(p *Plugin) error

	// LoadPlugin instantiates the plugin's execution environment and
	// registers its request implementations via ctx.RegisterRequest.
	LoadPlugin(ctx *LoadPluginContext, api *Api) error

	// UnloadPlugin tears down the plugin's execution environment; the
	// plugin must remain loadable afterward.
	UnloadPlugin(p *Plugin) error
}
