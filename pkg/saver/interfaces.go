package saver

import (
	"context"

	"redditsaver/pkg/reddit"
)

// RedditClient defines the Reddit API operations the service needs
type RedditClient interface {
	FetchSavedPage(ctx context.Context, account, token string, after *string, limit int) (*reddit.Listing, error)
	FetchProfile(ctx context.Context, account, token string) (*reddit.UserAbout, error)
	Unsave(ctx context.Context, fullname, token string) error
}
