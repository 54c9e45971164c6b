package core

// ModuleID uniquely identifies a module, namespaced by dots
// (e.g. "backend.dremio", "gateway.http").
type ModuleID string

// Namespace returns the portion of the ID before the last dot.
func (id ModuleID) Namespace() string {
	s := string(id)
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return s[:i]
		}
	}
	return ""
}

// ModuleInfo describes a registered module and how to instantiate it.
type ModuleInfo struct {
	// ID is the unique module identifier.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is the minimal interface all modules implement. Lifecycle
// behavior is added through the optional interfaces in lifecycle.go.
type Module interface {
	ModuleInfo() ModuleInfo
}
