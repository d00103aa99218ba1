package pagination

import (
	"context"
	"fmt"
	"net/http"
)

type Page struct {
	Number int // 1-based
	Limit  int // number of items in a page
}

func FirstPage(limit int) Page {
	return Page{
		Number: 1,
		Limit:  limit,
	}
}

func (p Page) Next() Page {
	return Page{
		Number: p.Number + 1,
		Limit:  p.Limit,
	}
}

// Result is everything collected before pagination ended.
type Result[T any] struct {
	Items []T
	// Status of the last page fetched.
	Status int
	// Failed is set when the last page came back with a status other than
	// 200 or 500. Items still holds the earlier pages.
	Failed bool
	Calls  int
}

// FetchFunc fetches one page and reports the catalog's status for it.
type FetchFunc[T any] func(ctx context.Context, page Page) (status int, items []T, err error)

// Collect walks pages from the first one until a page comes back short,
// the catalog answers 500 (treated as the end of data) or any other non-200
// status (Result.Failed). The pacer ticks once per page fetched.
//
// When the total is an exact multiple of the page size the end is only
// seen on the empty page after it, so M items take M/limit+1 calls.
func Collect[T any](ctx context.Context, pacer *Pacer, limit int, fetch FetchFunc[T]) (Result[T], error) {
	var res Result[T]
	if limit < 1 {
		return res, fmt.Errorf("page size must be positive, got %d", limit)
	}
	page := FirstPage(limit)
	for {
		status, items, err := fetch(ctx, page)
		if err != nil {
			return res, err
		}
		res.Calls++
		res.Status = status

		done := false
		switch {
		case status == http.StatusOK:
			res.Items = append(res.Items, items...)
			done = len(items) < page.Limit
		case status == http.StatusInternalServerError:
			done = true
		default:
			res.Failed = true
			done = true
		}

		if err := pacer.Tick(ctx); err != nil {
			return res, err
		}
		if done {
			return res, nil
		}
		page = page.Next()
	}
}
