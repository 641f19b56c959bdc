package session

import (
	"errors"
	"fmt"

	"github.com/aretw0/taproot/pkg/engine"
)

// ErrWrongMode is returned when a session type is requested from a factory whose
// binding runs in the other mode.
var ErrWrongMode = errors.New("session: factory binding is in the wrong mode")

// Factory produces sessions bound to a resolved engine binding. It is stateless
// between calls: every call yields a fresh, independent session.
//
// ExpireOnCommit and AutoBegin are pinned to false and true respectively, overriding
// whatever the caller configured (see the package documentation).
type Factory struct {
	binding  *engine.Binding
	settings Settings
}

// NewFactory creates a session factory for the binding.
func NewFactory(binding *engine.Binding, settings Settings) *Factory {
	settings.ExpireOnCommit = false
	settings.AutoBegin = true
	return &Factory{binding: binding, settings: settings}
}

// Settings returns the effective session settings, forced values included.
func (f *Factory) Settings() Settings { return f.settings }

// Binding returns the engine binding the factory is bound to.
func (f *Factory) Binding() *engine.Binding { return f.binding }

// NewSession creates a standard session carrying the given metadata.
// Fails when the binding runs in native mode.
func (f *Factory) NewSession(info map[string]any) (*Session, error) {
	if f.binding.Native() {
		return nil, fmt.Errorf("%w: want standard, have native", ErrWrongMode)
	}
	if info == nil {
		info = map[string]any{}
	}
	return &Session{
		db:       f.binding.DB(),
		settings: f.settings,
		info:     info,
	}, nil
}

// NewNativeSession creates a native session carrying the given metadata.
// Fails when the binding runs in standard mode.
func (f *Factory) NewNativeSession(info map[string]any) (*NativeSession, error) {
	if !f.binding.Native() {
		return nil, fmt.Errorf("%w: want native, have standard", ErrWrongMode)
	}
	if info == nil {
		info = map[string]any{}
	}
	return &NativeSession{
		pool:     f.binding.Pool(),
		settings: f.settings,
		info:     info,
	}, nil
}
