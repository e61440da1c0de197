// Package paginate walks cursor/offset paginated endpoints one page at a
// time with a fixed pause between requests.
package paginate

import (
	"context"
	"time"

	"tikscraper/pkg/retry"
)

// FetchFunc fetches the page starting at cursor. hasMore reports whether the
// upstream claims further pages exist.
type FetchFunc[T any] func(ctx context.Context, cursor int) (items []T, hasMore bool, err error)

// CountedFetchFunc is a FetchFunc that also reports how many records the
// upstream page held before the caller dropped unusable ones. A page with
// records upstream does not end iteration even when none of them were kept.
type CountedFetchFunc[T any] func(ctx context.Context, cursor int) (items []T, upstream int, hasMore bool, err error)

// Paginator yields successive pages from a FetchFunc. The cursor advances by
// the page size after every page. Iteration ends when the upstream reports no
// more data, returns an empty page, or a fetch fails. Errors are not retried.
type Paginator[T any] struct {
	fetch    CountedFetchFunc[T]
	pageSize int
	delay    time.Duration

	cursor int
	pages  int
	done   bool
}

// New creates a Paginator. delay is the pause before every page after the
// first.
func New[T any](fetch FetchFunc[T], pageSize int, delay time.Duration) *Paginator[T] {
	return NewCounted(func(ctx context.Context, cursor int) ([]T, int, bool, error) {
		items, hasMore, err := fetch(ctx, cursor)
		return items, len(items), hasMore, err
	}, pageSize, delay)
}

// NewCounted creates a Paginator whose emptiness check uses the upstream
// record count
func NewCounted[T any](fetch CountedFetchFunc[T], pageSize int, delay time.Duration) *Paginator[T] {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Paginator[T]{fetch: fetch, pageSize: pageSize, delay: delay}
}

// Next returns the next non-empty page. ok is false once the sequence is
// exhausted or an error was returned; after that Next keeps returning
// ok == false.
func (p *Paginator[T]) Next(ctx context.Context) (items []T, ok bool, err error) {
	for !p.done {
		if p.pages > 0 {
			if err := retry.Wait(ctx, p.delay); err != nil {
				p.done = true
				return nil, false, err
			}
		}

		items, upstream, hasMore, err := p.fetch(ctx, p.cursor)
		p.pages++
		if err != nil {
			p.done = true
			return nil, false, err
		}
		if upstream < len(items) {
			upstream = len(items)
		}
		if upstream == 0 {
			p.done = true
			return nil, false, nil
		}

		p.cursor += p.pageSize
		if !hasMore {
			p.done = true
		}
		if len(items) > 0 {
			return items, true, nil
		}
	}
	return nil, false, nil
}

// Cursor returns the cursor the next fetch will use
func (p *Paginator[T]) Cursor() int {
	return p.cursor
}

// Pages returns the number of fetches issued so far
func (p *Paginator[T]) Pages() int {
	return p.pages
}

// Collect drains p. On error the items gathered so far are returned along
// with the error so callers can keep partial results.
func Collect[T any](ctx context.Context, p *Paginator[T]) ([]T, error) {
	var all []T
	for {
		items, ok, err := p.Next(ctx)
		if err != nil {
			return all, err
		}
		if !ok {
			return all, nil
		}
		all = append(all, items...)
	}
}
