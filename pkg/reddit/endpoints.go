package reddit

import (
	"fmt"
	"net/url"
	"runtime"
	"strconv"
	"strings"
)

const (
	// OAuthBaseURL is the host for every bearer-token request
	OAuthBaseURL = "https://oauth.reddit.com"

	// WebBaseURL is the general site host, used only for permalinks
	WebBaseURL = "https://www.reddit.com"

	// SavedEndpoint is the path pattern for a user's saved listing
	SavedEndpoint = "/user/%s/saved"

	// AboutEndpoint is the path pattern for a user's profile
	AboutEndpoint = "/user/%s/about"

	// UnsaveEndpoint is the path for the unsave mutation
	UnsaveEndpoint = "/api/unsave"

	// MaxPageLimit is the largest page the listing endpoint returns
	MaxPageLimit = 100

	// Version is reported in the User-Agent
	Version = "0.3.0"
)

// SavedURL builds the listing URL for account. The after parameter is only
// present when a cursor exists; the cursor is forwarded verbatim.
func SavedURL(baseURL, account string, after *string, limit int) string {
	if limit <= 0 || limit > MaxPageLimit {
		limit = MaxPageLimit
	}

	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if after != nil {
		params.Set("after", *after)
	}

	path := fmt.Sprintf(SavedEndpoint, url.PathEscape(account))
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), path, params.Encode())
}

// AboutURL builds the profile URL for account
func AboutURL(baseURL, account string) string {
	path := fmt.Sprintf(AboutEndpoint, url.PathEscape(account))
	return strings.TrimRight(baseURL, "/") + path
}

// UnsaveURL builds the unsave URL
func UnsaveURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + UnsaveEndpoint
}

// PermalinkURL turns a relative permalink into an absolute site URL
func PermalinkURL(permalink string) string {
	if permalink == "" {
		return ""
	}
	if strings.HasPrefix(permalink, "http://") || strings.HasPrefix(permalink, "https://") {
		return permalink
	}
	return WebBaseURL + permalink
}

// UserAgentString returns a User-Agent in the form Reddit requires:
// <platform>:<app ID>:<version> (by u/<username>)
func UserAgentString(appName, version, username string) string {
	if appName == "" {
		appName = "redditsaver"
	}
	if version == "" {
		version = Version
	}

	ua := fmt.Sprintf("%s:%s:v%s", runtime.GOOS, appName, strings.TrimPrefix(version, "v"))
	if username != "" {
		ua += fmt.Sprintf(" (by u/%s)", username)
	}
	return ua
}

// IsValidUsername checks Reddit's username rules: 3 to 20 letters, digits,
// underscores or hyphens.
func IsValidUsername(username string) bool {
	if len(username) < 3 || len(username) > 20 {
		return false
	}

	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_' || char == '-') {
			return false
		}
	}

	return true
}

// SanitizeUsername strips a leading "u/" or "/u/" and surrounding slashes or spaces
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "/")
	username = strings.TrimPrefix(username, "u/")
	return strings.TrimRight(username, "/ ")
}
