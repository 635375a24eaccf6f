package allocator_test

import (
	"context"
	"testing"

	"github.com/moto-nrw/fingerprint-edge/internal/core/domain/counter"
	"github.com/moto-nrw/fingerprint-edge/internal/core/service/allocator"
	"github.com/moto-nrw/fingerprint-edge/internal/testutil"
	"github.com/stretchr/testify/require"
)

func TestAllocator_InitializesDefault(t *testing.T) {
	a := allocator.New(testutil.NewFakeStore())
	ctx := context.Background()

	id, err := a.Peek(ctx)
	require.NoError(t, err)
	require.Equal(t, counter.DefaultStartValue+1, id)
}

func TestAllocator_PeekIsIdempotentWithoutIncrement(t *testing.T) {
	a := allocator.New(testutil.NewFakeStore())
	ctx := context.Background()

	first, err := a.Peek(ctx)
	require.NoError(t, err)
	second, err := a.Peek(ctx)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestAllocator_NoHolesOnFailedEnrollment(t *testing.T) {
	a := allocator.New(testutil.NewFakeStore())
	ctx := context.Background()

	before, err := a.Peek(ctx)
	require.NoError(t, err)

	// Two attempts peek but never commit (enrollment failed).
	_, _ = a.Peek(ctx)
	_, _ = a.Peek(ctx)

	after, err := a.Peek(ctx)
	require.NoError(t, err)
	require.Equal(t, before, after)

	// A third attempt succeeds and commits.
	got, err := a.Increment(ctx)
	require.NoError(t, err)
	require.Equal(t, before, got)

	next, err := a.Peek(ctx)
	require.NoError(t, err)
	require.Equal(t, before+1, next)
}

func TestAllocator_SyncSetsNextPeek(t *testing.T) {
	a := allocator.New(testutil.NewFakeStore())
	ctx := context.Background()

	require.NoError(t, a.Sync(ctx, 20000))

	next, err := a.Peek(ctx)
	require.NoError(t, err)
	require.Equal(t, 20001, next)
}

func TestAllocator_NeverRetreats(t *testing.T) {
	store := testutil.NewFakeStore()
	a := allocator.New(store)
	ctx := context.Background()

	_, err := a.Increment(ctx)
	require.NoError(t, err)
	_, err = a.Increment(ctx)
	require.NoError(t, err)

	c, err := store.FindCounter(ctx, counter.StudentSequenceName)
	require.NoError(t, err)
	require.Equal(t, counter.DefaultStartValue+2, c.Value)
}

func TestAllocator_Exhausted(t *testing.T) {
	store := testutil.NewFakeStore()
	require.NoError(t, store.SaveCounter(context.Background(), &counter.Counter{
		Name: counter.StudentSequenceName, Value: counter.MaxUID,
	}))
	a := allocator.New(store)

	_, err := a.Increment(context.Background())
	require.ErrorIs(t, err, allocator.ErrCounterExhausted)
}

func TestAllocator_Initialize(t *testing.T) {
	a := allocator.New(testutil.NewFakeStore())
	ctx := context.Background()

	require.NoError(t, a.Initialize(ctx, 55000))
	next, err := a.Peek(ctx)
	require.NoError(t, err)
	require.Equal(t, 55001, next)
}
