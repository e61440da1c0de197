package paginate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagesFetcher serves fixed pages and records the cursors it was asked for
type pagesFetcher struct {
	pages   [][]int
	hasMore func(i int) bool
	failAt  int
	cursors []int
}

func (f *pagesFetcher) fetch(ctx context.Context, cursor int) ([]int, bool, error) {
	i := len(f.cursors)
	f.cursors = append(f.cursors, cursor)
	if f.failAt > 0 && i+1 == f.failAt {
		return nil, true, errors.New("upstream unavailable")
	}
	if i >= len(f.pages) {
		return nil, true, nil
	}
	more := true
	if f.hasMore != nil {
		more = f.hasMore(i)
	}
	return f.pages[i], more, nil
}

func TestCursorAdvancesByPageSize(t *testing.T) {
	f := &pagesFetcher{
		pages:   [][]int{{1, 2}, {3, 4}, {5}},
		hasMore: func(i int) bool { return i < 2 },
	}

	items, err := Collect(context.Background(), New(f.fetch, 2, 0))
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, items)
	assert.Equal(t, []int{0, 2, 4}, f.cursors)
}

func TestStopsWhenHasMoreIsFalse(t *testing.T) {
	f := &pagesFetcher{
		pages:   [][]int{{1}, {2}, {3}},
		hasMore: func(i int) bool { return false },
	}

	items, err := Collect(context.Background(), New(f.fetch, 50, 0))
	require.NoError(t, err)
	assert.Equal(t, []int{1}, items)
	assert.Len(t, f.cursors, 1)
}

func TestTerminatesOnEmptyPageDespiteHasMore(t *testing.T) {
	// upstream claims more data forever; the fourth page is empty
	f := &pagesFetcher{pages: [][]int{{1}, {2}, {3}}}

	p := New(f.fetch, 1, 0)
	items, err := Collect(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, items)
	assert.Equal(t, 4, p.Pages())

	_, ok, err := p.Next(context.Background())
	assert.False(t, ok)
	assert.NoError(t, err)
	assert.Equal(t, 4, p.Pages(), "exhausted paginator must not fetch again")
}

func TestErrorStopsPaginationAndKeepsPartialResults(t *testing.T) {
	f := &pagesFetcher{pages: [][]int{{1, 2}, {3, 4}, {5, 6}}, failAt: 2}

	p := New(f.fetch, 2, 0)
	items, err := Collect(context.Background(), p)

	require.Error(t, err)
	assert.Equal(t, []int{1, 2}, items)
	assert.Equal(t, 2, p.Pages(), "errors are not retried")

	_, ok, err := p.Next(context.Background())
	assert.False(t, ok)
	assert.NoError(t, err)
}

func TestDelayBetweenPagesOnly(t *testing.T) {
	var stamps []time.Time
	fetch := func(ctx context.Context, cursor int) ([]int, bool, error) {
		stamps = append(stamps, time.Now())
		return []int{cursor}, len(stamps) < 3, nil
	}

	start := time.Now()
	_, err := Collect(context.Background(), New(fetch, 1, 30*time.Millisecond))
	require.NoError(t, err)

	require.Len(t, stamps, 3)
	assert.Less(t, stamps[0].Sub(start), 25*time.Millisecond, "first page is not delayed")
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 30*time.Millisecond)
	assert.GreaterOrEqual(t, stamps[2].Sub(stamps[1]), 30*time.Millisecond)
}

func TestDelayRespectsCancellation(t *testing.T) {
	f := &pagesFetcher{pages: [][]int{{1}, {2}}}
	ctx, cancel := context.WithCancel(context.Background())

	p := New(f.fetch, 1, time.Hour)
	items, ok, err := p.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []int{1}, items)

	cancel()
	_, ok, err = p.Next(ctx)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCountedPageWithoutKeptItemsContinues(t *testing.T) {
	var cursors []int
	p := NewCounted(func(ctx context.Context, cursor int) ([]int, int, bool, error) {
		cursors = append(cursors, cursor)
		switch cursor {
		case 0:
			// two records upstream, both dropped
			return nil, 2, true, nil
		case 2:
			return []int{3}, 1, false, nil
		}
		return nil, 0, false, nil
	}, 2, 0)

	items, err := Collect(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, items)
	assert.Equal(t, []int{0, 2}, cursors)
	assert.Equal(t, 2, p.Pages())
}

func TestCountedEmptyUpstreamStops(t *testing.T) {
	calls := 0
	p := NewCounted(func(ctx context.Context, cursor int) ([]int, int, bool, error) {
		calls++
		return nil, 0, true, nil
	}, 5, 0)

	_, ok, err := p.Next(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
}
