// Package reddit is the authenticated transport for Reddit's OAuth API.
//
// It covers the three calls redditsaver needs: one page of a user's saved
// listing, the user's profile, and the unsave mutation. Every call goes to
// the OAuth host with a bearer token and a unique User-Agent; failures come
// back as typed errors from pkg/errors.
//
//	client := reddit.NewClient(reddit.ClientConfig{
//	    UserAgent: reddit.UserAgentString("redditsaver", reddit.Version, "spez"),
//	}, log)
//	page, err := client.FetchSavedPage(ctx, "spez", token, nil, reddit.MaxPageLimit)
package reddit
