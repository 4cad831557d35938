package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"redditsaver/pkg/config"
	errs "redditsaver/pkg/errors"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/metrics"
	"redditsaver/pkg/reddit"
	"redditsaver/pkg/retry"
)

// PageSource fetches one page of a saved listing. *reddit.Client implements it.
type PageSource interface {
	FetchSavedPage(ctx context.Context, account, token string, after *string, limit int) (*reddit.Listing, error)
}

// Config bounds a fetch run
type Config struct {
	// PageLimit is the page size requested on every call
	PageLimit int
	// PageTimeout bounds each page request; 0 disables the per-page deadline
	PageTimeout time.Duration
	// MaxPages caps the number of requests in one run
	MaxPages int
	// MaxItems caps the running processed count; 0 means no cap
	MaxItems int
	// Retry is the per-page retry policy; nil means fail-fast
	Retry *retry.Config
	// OnPage, when set, is called after every successful page
	OnPage func(page, processed int)
}

// DefaultConfig returns fail-fast settings with the standard safety cap
func DefaultConfig() Config {
	return Config{
		PageLimit:   reddit.MaxPageLimit,
		PageTimeout: 30 * time.Second,
		MaxPages:    1000,
	}
}

// ConfigFrom derives fetch settings from the application configuration
func ConfigFrom(cfg *config.Config, log logger.Logger) Config {
	return Config{
		PageLimit:   cfg.Fetch.PageLimit,
		PageTimeout: cfg.Fetch.PageTimeout,
		MaxPages:    cfg.Fetch.MaxPages,
		MaxItems:    cfg.Fetch.MaxItems,
		Retry:       retry.FromConfig(cfg.Retry, log),
	}
}

// Fetcher retrieves every page of an account's saved listing
type Fetcher struct {
	source PageSource
	cfg    Config
	logger logger.Logger
}

// New creates a Fetcher reading pages from source
func New(source PageSource, cfg Config, log logger.Logger) *Fetcher {
	if cfg.PageLimit <= 0 || cfg.PageLimit > reddit.MaxPageLimit {
		cfg.PageLimit = reddit.MaxPageLimit
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = DefaultConfig().MaxPages
	}
	if cfg.Retry == nil {
		cfg.Retry = retry.NoRetry()
	}

	return &Fetcher{
		source: source,
		cfg:    cfg,
		logger: logger.OrNop(log),
	}
}

// FetchAllPages walks the listing from the first page until the server
// returns a null cursor. Pages are returned in fetch order, including the
// terminal page. Any failure, cancellation or cap hit returns a nil
// ResultSet; partial pages are discarded.
func (f *Fetcher) FetchAllPages(ctx context.Context, account, token string) (*ResultSet, error) {
	it := f.Iterate(account, token)

	var pages []reddit.Listing
	for {
		page, err := it.Next(ctx)
		if errors.Is(err, ErrDone) {
			break
		}
		if err != nil {
			metrics.ObserveFetchRun(outcomeOf(err))
			return nil, err
		}
		pages = append(pages, *page)
	}

	metrics.ObserveFetchRun(metrics.OutcomeSuccess)
	return &ResultSet{
		RunID:     it.RunID(),
		Account:   account,
		FetchedAt: time.Now().UTC(),
		Pages:     pages,
		Processed: it.Processed(),
	}, nil
}

// Iterate returns a fresh iterator over account's saved pages. Each call
// gets its own run id and state.
func (f *Fetcher) Iterate(account, token string) *Iterator {
	runID := uuid.NewString()
	return &Iterator{
		fetcher: f,
		account: account,
		token:   token,
		runID:   runID,
		state:   StateFetching,
		logger: f.logger.WithFields(map[string]interface{}{
			"run_id":  runID,
			"account": account,
		}),
	}
}

func outcomeOf(err error) string {
	switch errs.TypeOf(err) {
	case errs.ErrorTypeCancelled:
		return metrics.OutcomeCancelled
	case errs.ErrorTypeLimitExceeded:
		return metrics.OutcomeCapped
	default:
		return metrics.OutcomeFailed
	}
}
