package discovery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEagerDescriptor(t *testing.T) {
	d := NewDescriptor("kv", "backends.NewKV", "plugin-value")
	require.Equal(t, "kv", d.Name())
	require.Equal(t, "backends.NewKV", d.Target())

	v, err := d.Resolve()
	require.NoError(t, err)
	require.Equal(t, "plugin-value", v)
}

func TestLazyDescriptorResolvesOnUse(t *testing.T) {
	calls := 0
	d := NewLazyDescriptor("kv", "backends.NewKV", func() (any, error) {
		calls++
		return "resolved", nil
	})
	require.Zero(t, calls)

	v, err := d.Resolve()
	require.NoError(t, err)
	require.Equal(t, "resolved", v)
	require.Equal(t, 1, calls)
}

func TestLazyDescriptorPropagatesFailure(t *testing.T) {
	boom := errors.New("import exploded")
	d := NewLazyDescriptor("kv", "backends.NewKV", func() (any, error) {
		return nil, boom
	})

	_, err := d.Resolve()
	require.ErrorIs(t, err, boom)
}

func TestLazyDescriptorWithoutResolver(t *testing.T) {
	d := NewLazyDescriptor("kv", "backends.NewKV", nil)
	_, err := d.Resolve()
	require.ErrorIs(t, err, ErrTargetNotFound)
}
