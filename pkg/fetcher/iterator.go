package fetcher

import (
	"context"
	"errors"
	"fmt"

	errs "redditsaver/pkg/errors"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/metrics"
	"redditsaver/pkg/reddit"
	"redditsaver/pkg/retry"
)

// ErrDone is returned by Iterator.Next once the terminal page has been returned
var ErrDone = errors.New("no more pages")

// State is the iterator's position in the fetch state machine
type State int

const (
	// StateFetching means another page request is due
	StateFetching State = iota
	// StateDone means the terminal page was returned
	StateDone
	// StateFailed means a request, cap or cancellation ended the run
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Iterator produces the pages of one fetch run, one request per Next call.
// It is not safe for concurrent use.
type Iterator struct {
	fetcher *Fetcher
	account string
	token   string
	runID   string
	logger  logger.Logger

	state     State
	cursor    *string
	processed int
	pages     int
	err       error
}

// State returns the current state
func (it *Iterator) State() State { return it.state }

// Processed returns the sum of dist over the pages fetched so far
func (it *Iterator) Processed() int { return it.processed }

// Pages returns the number of pages fetched so far
func (it *Iterator) Pages() int { return it.pages }

// RunID identifies this run in logs
func (it *Iterator) RunID() string { return it.runID }

// Err returns the error that moved the iterator to StateFailed
func (it *Iterator) Err() error { return it.err }

// Next requests the next page. It returns ErrDone after the terminal page,
// and the same error on every call after a failure.
func (it *Iterator) Next(ctx context.Context) (*reddit.Listing, error) {
	switch it.state {
	case StateDone:
		return nil, ErrDone
	case StateFailed:
		return nil, it.err
	}

	if it.account == "" {
		return nil, it.fail(errs.New(errs.ErrorTypeValidation, 0, "account is required"))
	}
	if it.token == "" {
		return nil, it.fail(errs.New(errs.ErrorTypeValidation, 0, "access token is required"))
	}

	if err := ctx.Err(); err != nil {
		return nil, it.fail(errs.Wrap(errs.ErrorTypeCancelled, 0,
			fmt.Sprintf("fetch cancelled after %d pages", it.pages), err))
	}

	cfg := it.fetcher.cfg
	if it.pages >= cfg.MaxPages {
		return nil, it.fail(errs.New(errs.ErrorTypeLimitExceeded, 0,
			fmt.Sprintf("page cap of %d reached before the listing ended", cfg.MaxPages)))
	}
	if cfg.MaxItems > 0 && it.processed >= cfg.MaxItems {
		return nil, it.fail(errs.New(errs.ErrorTypeLimitExceeded, 0,
			fmt.Sprintf("item cap of %d reached before the listing ended", cfg.MaxItems)))
	}

	page, err := retry.DoWithResult(ctx, it.fetchPage, cfg.Retry)
	if err != nil {
		if ctx.Err() != nil && !errs.Is(err, errs.ErrorTypeCancelled) {
			err = errs.Wrap(errs.ErrorTypeCancelled, 0, "fetch cancelled", err)
		}
		return nil, it.fail(fmt.Errorf("saved page %d: %w", it.pages+1, err))
	}

	it.pages++
	it.processed += page.Data.Dist
	metrics.ObservePage(page.Data.Dist)

	it.logger.InfoWithFields("Number of items processed", map[string]interface{}{
		"processed": it.processed,
		"page":      it.pages,
	})
	if cfg.OnPage != nil {
		cfg.OnPage(it.pages, it.processed)
	}

	if page.Data.After == nil {
		it.state = StateDone
		it.logger.InfoWithFields("Data gathering complete", map[string]interface{}{
			"pages":     it.pages,
			"processed": it.processed,
		})
	} else {
		it.cursor = page.Data.After
		it.logger.DebugWithFields("Processing till", map[string]interface{}{
			"after": *it.cursor,
		})
	}

	return page, nil
}

// fetchPage issues one request for the current cursor under the page timeout
func (it *Iterator) fetchPage(ctx context.Context) (*reddit.Listing, error) {
	cfg := it.fetcher.cfg
	if cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.PageTimeout)
		defer cancel()
	}
	return it.fetcher.source.FetchSavedPage(ctx, it.account, it.token, it.cursor, cfg.PageLimit)
}

func (it *Iterator) fail(err error) error {
	it.state = StateFailed
	it.err = err
	it.logger.ErrorWithFields("Fetch failed", map[string]interface{}{
		"pages":     it.pages,
		"processed": it.processed,
		"error":     err.Error(),
	})
	return err
}
