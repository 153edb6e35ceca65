package extension

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/toolink/gantry/discovery"
	"github.com/toolink/gantry/global"
)

// testRegistry builds a registry holding the given descriptors for one
// namespace.
func testRegistry(namespace string, descs ...discovery.Descriptor) *discovery.Registry {
	reg := discovery.New()
	reg.Register(namespace, descs...)
	return reg
}

type failingSource struct {
	err error
}

func (f failingSource) Discover(context.Context, string) ([]discovery.Descriptor, error) {
	return nil, f.err
}

func TestManagerLoadsAllPlugins(t *testing.T) {
	reg := testRegistry("backends",
		discovery.NewDescriptor("redis", "backends.NewRedis", "redis-plugin"),
		discovery.NewDescriptor("memory", "backends.NewMemory", "memory-plugin"),
	)

	mgr, err := NewManager(context.Background(), "backends", WithSource(reg))
	require.NoError(t, err)
	require.Equal(t, "backends", mgr.Namespace())
	require.Equal(t, []string{"redis", "memory"}, mgr.Names())

	ext, ok := mgr.ByName("memory")
	require.True(t, ok)
	require.Equal(t, "memory-plugin", ext.Plugin())

	_, ok = mgr.ByName("missing")
	require.False(t, ok)
}

func TestManagerDefaultsToGlobalRegistry(t *testing.T) {
	original := global.GetRegistry()
	t.Cleanup(func() { global.SetRegistry(original) })

	reg := discovery.New()
	reg.RegisterPlugin("backends", "only", "plugin")
	global.SetRegistry(reg)

	mgr, err := NewManager(context.Background(), "backends")
	require.NoError(t, err)
	require.Equal(t, []string{"only"}, mgr.Names())
}

func TestManagerFailsWhenDiscoveryFails(t *testing.T) {
	boom := errors.New("discovery down")
	_, err := NewManager(context.Background(), "backends", WithSource(failingSource{err: boom}))
	require.ErrorIs(t, err, boom)
}

func TestManagerInvokeOnLoad(t *testing.T) {
	invocations := 0
	ctor := func(prefix string) string {
		invocations++
		return prefix + "-instance"
	}
	reg := testRegistry("backends", discovery.NewDescriptor("kv", "backends.NewKV", ctor))

	mgr, err := NewManager(context.Background(), "backends", WithSource(reg), WithInvokeOnLoad("kv"))
	require.NoError(t, err)
	require.Equal(t, 1, invocations)

	ext, ok := mgr.ByName("kv")
	require.True(t, ok)
	obj, invoked := ext.Object()
	require.True(t, invoked)
	require.Equal(t, "kv-instance", obj)
	require.Equal(t, "kv-instance", ext.Value())
}

func TestManagerWithoutInvokeKeepsPluginCold(t *testing.T) {
	invocations := 0
	ctor := func() string {
		invocations++
		return "instance"
	}
	reg := testRegistry("backends", discovery.NewDescriptor("kv", "backends.NewKV", ctor))

	mgr, err := NewManager(context.Background(), "backends", WithSource(reg))
	require.NoError(t, err)
	require.Zero(t, invocations)

	ext, ok := mgr.ByName("kv")
	require.True(t, ok)
	_, invoked := ext.Object()
	require.False(t, invoked)
}

func TestManagerInvokeKwds(t *testing.T) {
	var gotKwds map[string]any
	ctor := func(name string, kwds map[string]any) string {
		gotKwds = kwds
		return name
	}
	reg := testRegistry("backends", discovery.NewDescriptor("kv", "backends.NewKV", ctor))

	_, err := NewManager(context.Background(), "backends",
		WithSource(reg),
		WithInvokeOnLoad("kv"),
		WithInvokeKwds(map[string]any{"mode": "fast"}),
	)
	require.NoError(t, err)
	require.Equal(t, "fast", gotKwds["mode"])
}

func TestManagerIsolatesLoadFailures(t *testing.T) {
	boom := errors.New("boom")
	reg := testRegistry("backends",
		discovery.NewLazyDescriptor("broken", "backends.Broken", func() (any, error) { return nil, boom }),
		discovery.NewDescriptor("healthy", "backends.Healthy", "plugin"),
	)

	mgr, err := NewManager(context.Background(), "backends", WithSource(reg))
	require.NoError(t, err)
	require.Equal(t, []string{"healthy"}, mgr.Names())
}

func TestManagerPropagatesLoadFailures(t *testing.T) {
	boom := errors.New("boom")
	reg := testRegistry("backends",
		discovery.NewLazyDescriptor("broken", "backends.Broken", func() (any, error) { return nil, boom }),
		discovery.NewDescriptor("healthy", "backends.Healthy", "plugin"),
	)

	_, err := NewManager(context.Background(), "backends", WithSource(reg), WithPropagateLoadErrors())
	require.ErrorIs(t, err, boom)
}

func TestManagerInvokeFailureIsolated(t *testing.T) {
	reg := testRegistry("backends",
		discovery.NewDescriptor("broken", "backends.Broken", func() (string, error) { return "", errors.New("ctor failed") }),
		discovery.NewDescriptor("healthy", "backends.Healthy", func() string { return "ok" }),
	)

	mgr, err := NewManager(context.Background(), "backends", WithSource(reg), WithInvokeOnLoad())
	require.NoError(t, err)
	require.Equal(t, []string{"healthy"}, mgr.Names())
}

func TestManagerLoadFailureCallback(t *testing.T) {
	boom := errors.New("boom")
	reg := testRegistry("backends",
		discovery.NewLazyDescriptor("broken", "backends.Broken", func() (any, error) { return nil, boom }),
	)

	var failedName string
	var failedErr error
	mgr, err := NewManager(context.Background(), "backends",
		WithSource(reg),
		WithLoadFailureCallback(func(d discovery.Descriptor, err error) {
			failedName = d.Name()
			failedErr = err
		}),
	)
	require.NoError(t, err)
	require.Empty(t, mgr.Names())
	require.Equal(t, "broken", failedName)
	require.ErrorIs(t, failedErr, boom)
}

func TestManagerFromExtensionsSkipsDiscoveryAndLoading(t *testing.T) {
	invocations := 0
	ctor := func() string {
		invocations++
		return "instance"
	}

	// Neither the poisoned source nor the invoke option may be consulted.
	mgr := ManagerFromExtensions("backends", []*Extension{
		NewExtension("probe", "backends.Probe", ctor),
	}, WithSource(failingSource{err: errors.New("must not be consulted")}), WithInvokeOnLoad())

	require.Equal(t, []string{"probe"}, mgr.Names())
	require.Zero(t, invocations)
}

func TestExtensionsReturnsCopy(t *testing.T) {
	mgr := ManagerFromExtensions("backends", []*Extension{NewExtension("a", "backends.NewA", nil)})

	exts := mgr.Extensions()
	exts[0] = nil
	require.Equal(t, []string{"a"}, mgr.Names())
}

func TestMapCollectsResults(t *testing.T) {
	mgr := ManagerFromExtensions("backends", []*Extension{
		NewExtension("a", "backends.NewA", 1),
		NewExtension("b", "backends.NewB", 2),
	})

	results, err := mgr.Map(func(ext *Extension, args ...any) (any, error) {
		return fmt.Sprintf("%s=%v", ext.Name(), ext.Plugin()), nil
	})
	require.NoError(t, err)
	require.Equal(t, []any{"a=1", "b=2"}, results)
}

func TestMapPassesArgs(t *testing.T) {
	mgr := ManagerFromExtensions("backends", []*Extension{NewExtension("a", "backends.NewA", nil)})

	results, err := mgr.Map(func(ext *Extension, args ...any) (any, error) {
		return args[0], nil
	}, "passed-through")
	require.NoError(t, err)
	require.Equal(t, []any{"passed-through"}, results)
}

func TestMapOnEmptyManager(t *testing.T) {
	mgr := ManagerFromExtensions("backends", nil)

	_, err := mgr.Map(func(ext *Extension, args ...any) (any, error) { return nil, nil })
	require.ErrorIs(t, err, ErrNoMatches)
}

func TestMapIsolatesCallbackErrors(t *testing.T) {
	mgr := ManagerFromExtensions("backends", []*Extension{
		NewExtension("bad", "backends.NewBad", nil),
		NewExtension("good", "backends.NewGood", nil),
	})

	results, err := mgr.Map(func(ext *Extension, args ...any) (any, error) {
		if ext.Name() == "bad" {
			return nil, errors.New("callback blew up")
		}
		return ext.Name(), nil
	})
	require.NoError(t, err)
	require.Equal(t, []any{"good"}, results)
}

func TestMapPropagatesCallbackErrors(t *testing.T) {
	mgr := ManagerFromExtensions("backends", []*Extension{
		NewExtension("bad", "backends.NewBad", nil),
		NewExtension("good", "backends.NewGood", nil),
	}, WithPropagateMapErrors())

	boom := errors.New("callback blew up")
	_, err := mgr.Map(func(ext *Extension, args ...any) (any, error) {
		if ext.Name() == "bad" {
			return nil, boom
		}
		return ext.Name(), nil
	})
	require.ErrorIs(t, err, ErrCallback)
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "bad")
}

func TestMapMethod(t *testing.T) {
	mgr := ManagerFromExtensions("widgets", []*Extension{
		NewInvokedExtension("a", "widgets.NewA", nil, &widget{name: "a"}),
		NewInvokedExtension("b", "widgets.NewB", nil, &widget{name: "b"}),
	})

	results, err := mgr.MapMethod("Describe")
	require.NoError(t, err)
	require.Equal(t, []any{"widget a", "widget b"}, results)
}

func TestMapMethodMissingIsolated(t *testing.T) {
	mgr := ManagerFromExtensions("widgets", []*Extension{
		NewInvokedExtension("a", "widgets.NewA", nil, &widget{name: "a"}),
		NewInvokedExtension("b", "widgets.NewB", nil, "not-a-widget"),
	})

	results, err := mgr.MapMethod("Describe")
	require.NoError(t, err)
	require.Equal(t, []any{"widget a"}, results)
}
