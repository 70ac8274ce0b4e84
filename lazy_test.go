package relgraph_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relgraph"
)

type item struct{ ID int }

type stubContext struct {
	query  func(context.Context, any) (any, error)
	closed *atomic.Int32
	close  error
}

func (s stubContext) Query(ctx context.Context, parent any) (any, error) {
	return s.query(ctx, parent)
}

func (s stubContext) Close() error {
	s.closed.Add(1)
	return s.close
}

func TestLazy_LoadOnce(t *testing.T) {
	t.Parallel()
	var (
		calls, closed atomic.Int32
		parent        = &struct{ ID int }{ID: 7}
	)
	lz := &relgraph.Lazy[[]*item]{}
	lz.Prepare(func() (relgraph.SecondaryContext, error) {
		return stubContext{
			closed: &closed,
			query: func(_ context.Context, p any) (any, error) {
				calls.Add(1)
				assert.Same(t, parent, p)
				return []*item{{ID: 1}, {ID: 2}}, nil
			},
		}, nil
	}, parent, "Order.OrderItem")

	assert.False(t, lz.IsLoaded())
	assert.Nil(t, lz.Value())
	assert.Equal(t, "Order.OrderItem", lz.Path())

	for range 3 {
		items, err := lz.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, items, 2)
	}
	assert.EqualValues(t, 1, calls.Load())
	assert.EqualValues(t, 1, closed.Load())
	assert.True(t, lz.IsLoaded())
	assert.Len(t, lz.Value(), 2)
}

func TestLazy_Concurrent(t *testing.T) {
	t.Parallel()
	var calls, closed atomic.Int32
	lz := &relgraph.Lazy[*item]{}
	lz.Prepare(func() (relgraph.SecondaryContext, error) {
		return stubContext{
			closed: &closed,
			query: func(context.Context, any) (any, error) {
				calls.Add(1)
				return &item{ID: 9}, nil
			},
		}, nil
	}, nil, "Order.Customer")

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := lz.Load(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 9, v.ID)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, calls.Load())
}

func TestLazy_FailureNotCached(t *testing.T) {
	t.Parallel()
	var (
		calls, closed atomic.Int32
		cause         = errors.New("connection reset")
	)
	lz := &relgraph.Lazy[[]*item]{}
	lz.Prepare(func() (relgraph.SecondaryContext, error) {
		return stubContext{
			closed: &closed,
			query: func(context.Context, any) (any, error) {
				if calls.Add(1) == 1 {
					return nil, cause
				}
				return []*item{{ID: 3}}, nil
			},
		}, nil
	}, nil, "Order.OrderItem")

	_, err := lz.Load(context.Background())
	require.Error(t, err)
	assert.True(t, relgraph.IsRelationLoadError(err))
	assert.ErrorIs(t, err, cause)
	var rerr *relgraph.RelationLoadError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, "Order.OrderItem", rerr.Path)
	assert.False(t, lz.IsLoaded())

	items, err := lz.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.EqualValues(t, 2, calls.Load())
	assert.EqualValues(t, 2, closed.Load())
}

func TestLazy_Errors(t *testing.T) {
	t.Parallel()
	t.Run("NotPrepared", func(t *testing.T) {
		var lz relgraph.Lazy[*item]
		_, err := lz.Load(context.Background())
		assert.ErrorIs(t, err, relgraph.ErrNotPrepared)
		assert.ErrorIs(t, err, relgraph.ErrRelationLoad)
	})
	t.Run("Factory", func(t *testing.T) {
		var lz relgraph.Lazy[*item]
		lz.Prepare(func() (relgraph.SecondaryContext, error) {
			return nil, errors.New("pool exhausted")
		}, nil, "Order.Customer")
		_, err := lz.Load(context.Background())
		assert.EqualError(t, err, "relgraph: loading relationship Order.Customer: pool exhausted")
	})
	t.Run("Close", func(t *testing.T) {
		var closed atomic.Int32
		var lz relgraph.Lazy[*item]
		lz.Prepare(func() (relgraph.SecondaryContext, error) {
			return stubContext{
				closed: &closed,
				close:  errors.New("close failed"),
				query:  func(context.Context, any) (any, error) { return &item{}, nil },
			}, nil
		}, nil, "Order.Customer")
		_, err := lz.Load(context.Background())
		assert.ErrorContains(t, err, "close failed")
		assert.False(t, lz.IsLoaded())
	})
	t.Run("Type", func(t *testing.T) {
		var closed atomic.Int32
		var lz relgraph.Lazy[*item]
		lz.Prepare(func() (relgraph.SecondaryContext, error) {
			return stubContext{
				closed: &closed,
				query:  func(context.Context, any) (any, error) { return "nope", nil },
			}, nil
		}, nil, "Order.Customer")
		_, err := lz.Load(context.Background())
		assert.ErrorContains(t, err, "unexpected relationship value string")
	})
}

func TestLazy_Set(t *testing.T) {
	t.Parallel()
	var lz relgraph.Lazy[[]*item]
	lz.Set([]*item{{ID: 1}})
	assert.True(t, lz.IsLoaded())
	v, err := lz.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, v, 1)

	var d relgraph.Deferred = &lz
	require.NoError(t, d.SetValue([]*item{}))
	assert.Empty(t, lz.Value())
	assert.NotNil(t, d.Peek())
	assert.Error(t, d.SetValue(3))
	require.NoError(t, d.SetValue(nil))
	assert.Nil(t, lz.Value())
	assert.Equal(t, "[]*relgraph_test.item", d.ElemType().String())
}
