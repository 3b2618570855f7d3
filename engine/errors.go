package engine

import (
	"fmt"
	"strings"

	"github.com/GoCodeAlone/pluginrt/bundle"
)

// Each lifecycle failure shape gets its own exported type so callers can
// branch on it with errors.As instead of matching strings.

// --- register_manager ---

type AlreadyOccupiedFormatError struct {
	Format string
}

func (e *AlreadyOccupiedFormatError) Error() string {
	return fmt.Sprintf("register manager: format %q already occupied", e.Format)
}

type RegisterManagerByManagerError struct {
	Cause error
}

func (e *RegisterManagerByManagerError) Error() string {
	return fmt.Sprintf("register manager: manager hook failed: %v", e.Cause)
}
func (e *RegisterManagerByManagerError) Unwrap() error { return e.Cause }

// --- unregister_manager ---

type UnregisterManagerNotFoundError struct {
	Format string
}

func (e *UnregisterManagerNotFoundError) Error() string {
	return fmt.Sprintf("unregister manager: format %q not found", e.Format)
}

type UnregisterManagerUnregisterPluginError struct {
	Cause error
}

func (e *UnregisterManagerUnregisterPluginError) Error() string {
	return fmt.Sprintf("unregister manager: unregister plugin failed: %v", e.Cause)
}
func (e *UnregisterManagerUnregisterPluginError) Unwrap() error { return e.Cause }

type UnregisterManagerByManagerError struct {
	Cause error
}

func (e *UnregisterManagerByManagerError) Error() string {
	return fmt.Sprintf("unregister manager: manager hook failed: %v", e.Cause)
}
func (e *UnregisterManagerByManagerError) Unwrap() error { return e.Cause }

// --- register_plugin ---

type RegisterNotFoundError struct {
	Path string
}

func (e *RegisterNotFoundError) Error() string {
	return fmt.Sprintf("register plugin: path %q not found or not a directory", e.Path)
}

type RegisterBundleFromError struct {
	Cause error
}

func (e *RegisterBundleFromError) Error() string {
	return fmt.Sprintf("register plugin: bundle parse failed: %v", e.Cause)
}
func (e *RegisterBundleFromError) Unwrap() error { return e.Cause }

type RegisterUnknownManagerFormatError struct {
	Format string
}

func (e *RegisterUnknownManagerFormatError) Error() string {
	return fmt.Sprintf("register plugin: unknown manager format %q", e.Format)
}

type RegisterByManagerError struct {
	Cause error
}

func (e *RegisterByManagerError) Error() string {
	return fmt.Sprintf("register plugin: manager hook failed: %v", e.Cause)
}
func (e *RegisterByManagerError) Unwrap() error { return e.Cause }

type RegisterAlreadyExistsError struct {
	ID      string
	Version string
}

func (e *RegisterAlreadyExistsError) Error() string {
	return fmt.Sprintf("register plugin: %s-v%s already registered", e.ID, e.Version)
}

// --- unregister_plugin ---

type UnregisterPluginNotFoundError struct {
	ID      string
	Version string
}

func (e *UnregisterPluginNotFoundError) Error() string {
	return fmt.Sprintf("unregister plugin: %s-v%s not found", e.ID, e.Version)
}

type UnregisterPluginUnloadError struct {
	Cause error
}

func (e *UnregisterPluginUnloadError) Error() string {
	return fmt.Sprintf("unregister plugin: unload failed: %v", e.Cause)
}
func (e *UnregisterPluginUnloadError) Unwrap() error { return e.Cause }

type UnregisterPluginHasUnregisteredManagerError struct {
	Format string
}

func (e *UnregisterPluginHasUnregisteredManagerError) Error() string {
	return fmt.Sprintf("unregister plugin: manager format %q already unregistered", e.Format)
}

type UnregisterPluginByManagerError struct {
	Cause error
}

func (e *UnregisterPluginByManagerError) Error() string {
	return fmt.Sprintf("unregister plugin: manager hook failed: %v", e.Cause)
}
func (e *UnregisterPluginByManagerError) Unwrap() error { return e.Cause }

// --- load_plugin ---

type LoadNotFoundError struct {
	ID      string
	Version string
}

func (e *LoadNotFoundError) Error() string {
	return fmt.Sprintf("load plugin: %s-v%s not found", e.ID, e.Version)
}

type LoadNotFoundDependenciesError struct {
	Missing []bundle.Depend
}

func (e *LoadNotFoundDependenciesError) Error() string {
	ids := make([]string, len(e.Missing))
	for i, d := range e.Missing {
		ids[i] = d.ID
	}
	return fmt.Sprintf("load plugin: missing required dependencies: %s", strings.Join(ids, ", "))
}

type LoadDependencyError struct {
	Depend bundle.Depend
	Cause  error
}

func (e *LoadDependencyError) Error() string {
	return fmt.Sprintf("load plugin: loading dependency %q failed: %v", e.Depend.ID, e.Cause)
}
func (e *LoadDependencyError) Unwrap() error { return e.Cause }

type LoadByManagerError struct {
	Cause error
}

func (e *LoadByManagerError) Error() string {
	return fmt.Sprintf("load plugin: manager hook failed: %v", e.Cause)
}
func (e *LoadByManagerError) Unwrap() error { return e.Cause }

type LoadRequestsNotFoundError struct {
	Names []string
}

func (e *LoadRequestsNotFoundError) Error() string {
	return fmt.Sprintf("load plugin: unsatisfied requests: %s", strings.Join(e.Names, ", "))
}

// --- unload_plugin ---

type UnloadNotFoundError struct {
	ID      string
	Version string
}

func (e *UnloadNotFoundError) Error() string {
	return fmt.Sprintf("unload plugin: %s-v%s not found", e.ID, e.Version)
}

type UnloadCurrentlyUsesDependError struct {
	Plugin bundle.Bundle
	Depend bundle.Depend
}

func (e *UnloadCurrentlyUsesDependError) Error() string {
	return fmt.Sprintf("unload plugin: %s currently uses it via dependency %q", e.Plugin, e.Depend.ID)
}

type UnloadByManagerError struct {
	Cause error
}

func (e *UnloadByManagerError) Error() string {
	return fmt.Sprintf("unload plugin: manager hook failed: %v", e.Cause)
}
func (e *UnloadByManagerError) Unwrap() error { return e.Cause }

// --- register_request (within LoadPluginContext) ---

type RegisterRequestNotFoundError struct {
	Name string
}

func (e *RegisterRequestNotFoundError) Error() string {
	return fmt.Sprintf("register request: no engine request named %q", e.Name)
}

type RegisterRequestArgumentsIncorrectlyError struct {
	Name string
}

func (e *RegisterRequestArgumentsIncorrectlyError) Error() string {
	return fmt.Sprintf("register request: function %q does not satisfy the request signature", e.Name)
}

// --- plugin call surfaces ---

type PluginCallRequestNotFoundError struct {
	Name string
}

func (e *PluginCallRequestNotFoundError) Error() string {
	return fmt.Sprintf("call request: plugin has no implementation for %q", e.Name)
}

type PluginRegisterFunctionAlreadyExistsError struct {
	Name string
}

func (e *PluginRegisterFunctionAlreadyExistsError) Error() string {
	return fmt.Sprintf("register function: %q already registered", e.Name)
}

type PluginCallFunctionNotFoundError struct {
	Name string
}

func (e *PluginCallFunctionNotFoundError) Error() string {
	return fmt.Sprintf("call function: %q not found", e.Name)
}

// --- Api.call_function_depend ---

type CallFunctionDependNotFoundError struct {
	ID      string
	Version string
}

func (e *CallFunctionDependNotFoundError) Error() string {
	return fmt.Sprintf("call function depend: %s-v%s is not a resolved dependency", e.ID, e.Version)
}

type CallFunctionDependFailedError struct {
	Cause error
}

func (e *CallFunctionDependFailedError) Error() string {
	return fmt.Sprintf("call function depend: %v", e.Cause)
}
func (e *CallFunctionDependFailedError) Unwrap() error { return e.Cause }

// --- stop ---

type StopUnregisterPluginFailedError struct {
	Errors []error
}

func (e *StopUnregisterPluginFailedError) Error() string {
	return fmt.Sprintf("stop: %d plugin unregistration(s) failed: %s", len(e.Errors), joinErrors(e.Errors))
}

type StopUnregisterManagerFailedError struct {
	Errors []error
}

func (e *StopUnregisterManagerFailedError) Error() string {
	return fmt.Sprintf("stop: %d manager unregistration(s) failed: %s", len(e.Errors), joinErrors(e.Errors))
}

func joinErrors(errs []error) string {
	parts := make([]string, len(errs))
	for i, err := range errs {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}
