// Package retry runs an operation again after transient failures.
//
// Retrying is opt-in for saved-item fetches: FromConfig turns a disabled
// retry section into a single-attempt policy so that the first page error
// aborts the run. When enabled, network, timeout, rate-limit and 5xx errors
// are retried with exponential backoff; auth, not-found and decode errors
// are returned immediately.
//
//	policy := retry.FromConfig(cfg.Retry, log)
//	listing, err := retry.DoWithResult(ctx, func(ctx context.Context) (*reddit.Listing, error) {
//		return client.FetchSavedPage(ctx, account, after, limit)
//	}, policy)
package retry
