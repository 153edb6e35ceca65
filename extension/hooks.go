package extension

import "context"

// HookManager loads all the plugins sharing one well-known name in a
// namespace, so several hooks can be registered under that name and run
// together. Unlike DriverManager there is no cardinality constraint:
// zero hooks and many hooks are both fine.
type HookManager struct {
	*NamedManager
	name string
}

// NewHookManager loads every plugin registered under name in namespace,
// in registration order.
func NewHookManager(ctx context.Context, namespace, name string, opts ...Option) (*HookManager, error) {
	nm, err := NewNamedManager(ctx, namespace, []string{name}, opts...)
	if err != nil {
		return nil, err
	}
	return &HookManager{NamedManager: nm, name: name}, nil
}

// HookName returns the name the hooks were loaded under.
func (m *HookManager) HookName() string {
	return m.name
}

// Hooks returns the loaded hook extensions in load order.
func (m *HookManager) Hooks() []*Extension {
	return m.Extensions()
}
