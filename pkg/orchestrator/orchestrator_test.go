package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vkhangpham/taxonomy-generation/pkg/checkpoint"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
)

func TestWorkerPoolVisitsEveryIndex(t *testing.T) {
	pool := NewWorkerPool(4)

	var mu sync.Mutex
	seen := make(map[int]bool)

	err := pool.Run(context.Background(), 50, func(ctx context.Context, i int) error {
		mu.Lock()
		seen[i] = true
		mu.Unlock()
		return nil
	})

	require.NoError(t, err)
	assert.Len(t, seen, 50)
}

func TestWorkerPoolBoundsConcurrency(t *testing.T) {
	pool := NewWorkerPool(3)

	var current, maxSeen int32
	err := pool.Run(context.Background(), 30, func(ctx context.Context, i int) error {
		n := atomic.AddInt32(&current, 1)
		for {
			prev := atomic.LoadInt32(&maxSeen)
			if n <= prev || atomic.CompareAndSwapInt32(&maxSeen, prev, n) {
				break
			}
		}
		atomic.AddInt32(&current, -1)
		return nil
	})

	require.NoError(t, err)
	assert.LessOrEqual(t, int(maxSeen), 3)
}

func TestWorkerPoolReturnsFirstErrorAndStopsDispatch(t *testing.T) {
	pool := NewWorkerPool(2)
	boom := errors.New("boom")

	var started int32
	err := pool.Run(context.Background(), 100, func(ctx context.Context, i int) error {
		atomic.AddInt32(&started, 1)
		if i == 0 {
			return boom
		}
		<-ctx.Done()
		return ctx.Err()
	})

	require.Error(t, err)
	assert.LessOrEqual(t, int(started), 100)
}

func TestWorkerPoolZeroItemsNoOp(t *testing.T) {
	pool := NewWorkerPool(4)
	called := false
	err := pool.Run(context.Background(), 0, func(ctx context.Context, i int) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestWorkerPoolClampsNonPositiveConcurrency(t *testing.T) {
	pool := NewWorkerPool(0)
	assert.Equal(t, 1, pool.concurrency)
}

func newTestManager(t *testing.T, phases []PhaseSpec) (*Manager, *checkpoint.Manager) {
	t.Helper()
	dir := t.TempDir()
	cp, err := checkpoint.New(dir)
	require.NoError(t, err)
	obs := observability.New()
	return NewManager(cp, obs, phases), cp
}

func TestManagerRunsPhasesInOrderAndSavesCheckpoints(t *testing.T) {
	var order []string
	phases := []PhaseSpec{
		{Name: "phase1_level0", Fn: func(ctx context.Context) (map[string]any, error) {
			order = append(order, "phase1_level0")
			return map[string]any{"count": 1}, nil
		}, RaiseOnError: true},
		{Name: "phase1_level1", Fn: func(ctx context.Context) (map[string]any, error) {
			order = append(order, "phase1_level1")
			return map[string]any{"count": 2}, nil
		}, RaiseOnError: true},
	}

	manager, cp := newTestManager(t, phases)
	require.NoError(t, manager.Run(context.Background(), 0))

	assert.Equal(t, []string{"phase1_level0", "phase1_level1"}, order)
	assert.True(t, cp.Completed("phase1_level0"))
	assert.True(t, cp.Completed("phase1_level1"))
}

func TestManagerSkipsAlreadyCompletedPhases(t *testing.T) {
	dir := t.TempDir()
	cp, err := checkpoint.New(dir)
	require.NoError(t, err)
	require.NoError(t, cp.Save("phase1_level0", map[string]any{"count": 1}))

	var ran []string
	obs := observability.New()
	manager := NewManager(cp, obs, []PhaseSpec{
		{Name: "phase1_level0", Fn: func(ctx context.Context) (map[string]any, error) {
			ran = append(ran, "phase1_level0")
			return nil, nil
		}, RaiseOnError: true},
		{Name: "phase1_level1", Fn: func(ctx context.Context) (map[string]any, error) {
			ran = append(ran, "phase1_level1")
			return nil, nil
		}, RaiseOnError: true},
	})

	require.NoError(t, manager.Run(context.Background(), 0))
	assert.Equal(t, []string{"phase1_level1"}, ran)
}

func TestManagerPropagatesErrorWhenRaiseOnError(t *testing.T) {
	boom := errors.New("boom")
	var ranSecond bool

	phases := []PhaseSpec{
		{Name: "phase1_level0", Fn: func(ctx context.Context) (map[string]any, error) {
			return nil, boom
		}, RaiseOnError: true},
		{Name: "phase1_level1", Fn: func(ctx context.Context) (map[string]any, error) {
			ranSecond = true
			return nil, nil
		}, RaiseOnError: true},
	}

	manager, cp := newTestManager(t, phases)
	err := manager.Run(context.Background(), 0)

	require.Error(t, err)
	assert.False(t, ranSecond)
	assert.False(t, cp.Completed("phase1_level0"))
}

func TestManagerContinuesPastErrorWhenNotRaiseOnError(t *testing.T) {
	boom := errors.New("boom")
	var ranSecond bool

	phases := []PhaseSpec{
		{Name: "phase3_validation", Fn: func(ctx context.Context) (map[string]any, error) {
			return nil, boom
		}, RaiseOnError: false},
		{Name: "phase3_deduplication", Fn: func(ctx context.Context) (map[string]any, error) {
			ranSecond = true
			return nil, nil
		}, RaiseOnError: true},
	}

	manager, cp := newTestManager(t, phases)
	require.NoError(t, manager.Run(context.Background(), 0))

	assert.True(t, ranSecond)
	assert.False(t, cp.Completed("phase3_validation"))
	assert.True(t, cp.Completed("phase3_deduplication"))
}

func TestManagerPhaseNames(t *testing.T) {
	manager, _ := newTestManager(t, []PhaseSpec{
		{Name: "phase1_level0", Fn: func(ctx context.Context) (map[string]any, error) { return nil, nil }},
		{Name: "phase4_finalize", Fn: func(ctx context.Context) (map[string]any, error) { return nil, nil }},
	})
	assert.Equal(t, []string{"phase1_level0", "phase4_finalize"}, manager.PhaseNames())
}
