package reddit

import (
	"context"
	"fmt"
	"net/url"

	errs "redditsaver/pkg/errors"
)

// FetchSavedPage fetches one page of account's saved listing. after is
// forwarded verbatim as the cursor and omitted when nil.
func (c *Client) FetchSavedPage(ctx context.Context, account, token string, after *string, limit int) (*Listing, error) {
	if account == "" {
		return nil, errs.New(errs.ErrorTypeValidation, 0, "account is required")
	}

	pageURL := SavedURL(c.baseURL, account, after, limit)

	var listing Listing
	if err := c.getJSON(ctx, "saved", pageURL, token, &listing); err != nil {
		c.logger.ErrorWithFields("failed to fetch saved page", map[string]interface{}{
			"account": account,
			"after":   after,
			"error":   err.Error(),
		})
		return nil, err
	}

	if listing.Kind != ListingKind {
		c.logger.ErrorWithFields("unexpected listing envelope", map[string]interface{}{
			"account": account,
			"kind":    listing.Kind,
		})
		return nil, errs.New(errs.ErrorTypeParsing, 200, fmt.Sprintf("unexpected listing kind %q", listing.Kind))
	}

	return &listing, nil
}

// FetchProfile fetches account's profile
func (c *Client) FetchProfile(ctx context.Context, account, token string) (*UserAbout, error) {
	if account == "" {
		return nil, errs.New(errs.ErrorTypeValidation, 0, "account is required")
	}

	var about UserAbout
	if err := c.getJSON(ctx, "about", AboutURL(c.baseURL, account), token, &about); err != nil {
		c.logger.ErrorWithFields("failed to fetch user profile", map[string]interface{}{
			"account": account,
			"error":   err.Error(),
		})
		return nil, err
	}

	if about.Data == nil {
		return nil, errs.New(errs.ErrorTypeParsing, 200, "profile response has no data")
	}

	c.logger.DebugWithFields("About response", map[string]interface{}{
		"account":       account,
		"kind":          about.Kind,
		"name":          about.Data.Name,
		"link_karma":    about.Data.LinkKarma,
		"comment_karma": about.Data.CommentKarma,
	})

	return &about, nil
}

// Unsave removes the item with the given fullname from the user's saved list.
// Any 2xx response is success; the body is not interpreted.
func (c *Client) Unsave(ctx context.Context, fullname, token string) error {
	if fullname == "" {
		return errs.New(errs.ErrorTypeValidation, 0, "item id is required")
	}

	form := url.Values{}
	form.Set("id", fullname)

	status, err := c.postForm(ctx, "unsave", UnsaveURL(c.baseURL), token, form)
	if err != nil {
		return err
	}

	c.logger.DebugWithFields("Unsave response", map[string]interface{}{
		"fullname": fullname,
		"status":   status,
	})
	return nil
}
