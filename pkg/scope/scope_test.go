package scope_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/taproot/pkg/ports"
	"github.com/aretw0/taproot/pkg/scope"
)

func TestScope_AddResourceAndGet(t *testing.T) {
	s := scope.New()
	require.NoError(t, s.AddResource("hello", "greeting"))

	got, err := scope.Get[string](s, "greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}

func TestScope_DuplicateResource(t *testing.T) {
	s := scope.New()
	require.NoError(t, s.AddResource("a", "value"))
	assert.Error(t, s.AddResource("b", "value"))

	// Same name with a different type is a distinct resource.
	require.NoError(t, s.AddResource(42, "value"))
	n, err := scope.Get[int](s, "value")
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestScope_GetNotFound(t *testing.T) {
	s := scope.New()
	_, err := scope.Get[string](s, "missing")
	assert.ErrorIs(t, err, scope.ErrNotFound)
}

func TestScope_ChildSeesParentResources(t *testing.T) {
	parent := scope.New()
	require.NoError(t, parent.AddResource("shared", "config"))

	child := parent.Child()
	got, err := scope.Get[string](child, "config")
	require.NoError(t, err)
	assert.Equal(t, "shared", got)
}

func TestScope_FactoryProductsBelongToRequestingScope(t *testing.T) {
	parent := scope.New()
	calls := 0
	require.NoError(t, parent.AddResourceFactory(func(s ports.Scope) (any, error) {
		calls++
		return calls, nil
	}, "counter"))

	childA := parent.Child()
	childB := parent.Child()

	a1, err := scope.Get[int](childA, "counter")
	require.NoError(t, err)
	a2, err := scope.Get[int](childA, "counter")
	require.NoError(t, err)
	b, err := scope.Get[int](childB, "counter")
	require.NoError(t, err)

	assert.Equal(t, a1, a2, "product is memoized within a scope")
	assert.NotEqual(t, a1, b, "each scope gets its own product")
	assert.Equal(t, 2, calls)
}

func TestScope_FactoryReceivesRequestingScope(t *testing.T) {
	parent := scope.New()
	var seen ports.Scope
	require.NoError(t, parent.AddResourceFactory(func(s ports.Scope) (any, error) {
		seen = s
		return "ok", nil
	}, "probe"))

	child := parent.Child()
	_, err := scope.Get[string](child, "probe")
	require.NoError(t, err)
	assert.Same(t, child, seen)
}

func TestScope_FactoryError(t *testing.T) {
	s := scope.New()
	boom := errors.New("boom")
	require.NoError(t, s.AddResourceFactory(func(ports.Scope) (any, error) {
		return nil, boom
	}, "broken"))

	_, err := scope.Get[string](s, "broken")
	assert.ErrorIs(t, err, boom)
}

func TestScope_EndRunsTeardownsLIFO(t *testing.T) {
	s := scope.New()
	var order []string
	for _, name := range []string{"first", "second", "third"} {
		name := name
		s.AddTeardown(func(ctx context.Context, cause error) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, s.End(context.Background(), nil))
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestScope_EndPassesCauseAndJoinsErrors(t *testing.T) {
	s := scope.New()
	cause := errors.New("request failed")
	errA := errors.New("teardown a failed")
	errB := errors.New("teardown b failed")

	var seen []error
	s.AddTeardown(func(ctx context.Context, c error) error {
		seen = append(seen, c)
		return errA
	})
	s.AddTeardown(func(ctx context.Context, c error) error {
		seen = append(seen, c)
		return errB
	})

	err := s.End(context.Background(), cause)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	require.Len(t, seen, 2)
	assert.Equal(t, cause, seen[0])
	assert.Equal(t, cause, seen[1])
}

func TestScope_EndsOnce(t *testing.T) {
	s := scope.New()
	runs := 0
	s.AddTeardown(func(ctx context.Context, cause error) error {
		runs++
		return nil
	})

	require.NoError(t, s.End(context.Background(), nil))
	assert.ErrorIs(t, s.End(context.Background(), nil), scope.ErrEnded)
	assert.Equal(t, 1, runs)
}

func TestScope_PublishAfterEnd(t *testing.T) {
	s := scope.New()
	require.NoError(t, s.End(context.Background(), nil))

	assert.ErrorIs(t, s.AddResource("late", "value"), scope.ErrEnded)
	assert.ErrorIs(t, s.AddResourceFactory(func(ports.Scope) (any, error) {
		return nil, nil
	}, "late"), scope.ErrEnded)
}

func TestScope_EndingChildLeavesParent(t *testing.T) {
	parent := scope.New()
	child := parent.Child()
	require.NoError(t, child.End(context.Background(), nil))

	require.NoError(t, parent.AddResource("still alive", "value"))
	got, err := scope.Get[string](parent, "value")
	require.NoError(t, err)
	assert.Equal(t, "still alive", got)
}
