package extension

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtensionAccessors(t *testing.T) {
	ext := NewExtension("kv", "backends.NewKV", "plugin-value")
	require.Equal(t, "kv", ext.Name())
	require.Equal(t, "backends.NewKV", ext.Target())
	require.Equal(t, "plugin-value", ext.Plugin())
	require.Equal(t, "kv (backends.NewKV)", ext.String())

	obj, invoked := ext.Object()
	require.False(t, invoked)
	require.Nil(t, obj)
	require.Equal(t, "plugin-value", ext.Value())
}

func TestInvokedExtensionValue(t *testing.T) {
	ext := NewInvokedExtension("kv", "backends.NewKV", "plugin-value", 42)

	obj, invoked := ext.Object()
	require.True(t, invoked)
	require.Equal(t, 42, obj)
	require.Equal(t, 42, ext.Value())
	require.Equal(t, "plugin-value", ext.Plugin())
}

func TestInvokedExtensionDistinguishesNilObject(t *testing.T) {
	// Instantiated to nil is not the same as never instantiated.
	ext := NewInvokedExtension("kv", "backends.NewKV", "plugin-value", nil)

	obj, invoked := ext.Object()
	require.True(t, invoked)
	require.Nil(t, obj)
	require.Nil(t, ext.Value())
}
