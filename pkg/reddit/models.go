package reddit

import (
	"encoding/json"
	"strings"

	"gopkg.in/yaml.v3"
)

// ListingKind is the kind tag of a listing envelope
const ListingKind = "Listing"

// Thing kinds
const (
	KindComment = "t1"
	KindAccount = "t2"
	KindLink    = "t3"
)

// Listing is one page of the saved listing
type Listing struct {
	Kind string      `json:"kind" yaml:"kind"`
	Data ListingData `json:"data" yaml:"data"`
}

// ListingData holds the page metadata and its items
type ListingData struct {
	// Dist is the number of items in this page
	Dist int `json:"dist" yaml:"dist"`
	// After is the cursor for the next page; nil on the last page
	After    *string `json:"after" yaml:"after"`
	Before   *string `json:"before" yaml:"before"`
	Modhash  string  `json:"modhash,omitempty" yaml:"modhash,omitempty"`
	Children []Thing `json:"children" yaml:"children"`
}

// Terminal reports whether this is the last page
func (l *Listing) Terminal() bool {
	return l.Data.After == nil
}

// Thing is a single saved item. Its payload is kept raw; only Summary looks inside.
type Thing struct {
	Kind string          `json:"kind" yaml:"kind"`
	Data json.RawMessage `json:"data" yaml:"-"`
}

// MarshalYAML encodes the raw payload as a generic YAML mapping
func (t Thing) MarshalYAML() (interface{}, error) {
	var data map[string]interface{}
	if len(t.Data) > 0 {
		if err := json.Unmarshal(t.Data, &data); err != nil {
			return nil, err
		}
	}
	return struct {
		Kind string                 `yaml:"kind"`
		Data map[string]interface{} `yaml:"data"`
	}{t.Kind, data}, nil
}

// UnmarshalYAML restores the raw payload from a YAML mapping
func (t *Thing) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		Kind string                 `yaml:"kind"`
		Data map[string]interface{} `yaml:"data"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}

	t.Kind = aux.Kind
	t.Data = nil
	if aux.Data != nil {
		raw, err := json.Marshal(aux.Data)
		if err != nil {
			return err
		}
		t.Data = raw
	}
	return nil
}

// ItemSummary is the subset of a saved item shown to users
type ItemSummary struct {
	Kind      string `json:"kind" yaml:"kind"`
	Name      string `json:"name" yaml:"name"`
	Subreddit string `json:"subreddit" yaml:"subreddit"`
	Title     string `json:"title" yaml:"title"`
	URL       string `json:"url,omitempty" yaml:"url,omitempty"`
	Permalink string `json:"permalink" yaml:"permalink"`
	IsVideo   bool   `json:"is_video" yaml:"is_video"`
	PostHint  string `json:"post_hint,omitempty" yaml:"post_hint,omitempty"`
}

type thingFields struct {
	Name      string `json:"name"`
	Subreddit string `json:"subreddit"`
	Title     string `json:"title"`
	LinkTitle string `json:"link_title"`
	URL       string `json:"url"`
	Permalink string `json:"permalink"`
	IsVideo   bool   `json:"is_video"`
	PostHint  string `json:"post_hint"`
}

// Summary decodes the displayable fields of the item. Comments carry their
// parent post's title in link_title.
func (t Thing) Summary() (ItemSummary, error) {
	var f thingFields
	if len(t.Data) > 0 {
		if err := json.Unmarshal(t.Data, &f); err != nil {
			return ItemSummary{}, err
		}
	}

	title := f.Title
	if title == "" {
		title = f.LinkTitle
	}

	return ItemSummary{
		Kind:      t.Kind,
		Name:      f.Name,
		Subreddit: f.Subreddit,
		Title:     title,
		URL:       f.URL,
		Permalink: PermalinkURL(f.Permalink),
		IsVideo:   f.IsVideo,
		PostHint:  f.PostHint,
	}, nil
}

// Name returns the item's fullname (e.g. t3_abc123), or "" if it cannot be decoded
func (t Thing) Name() string {
	s, err := t.Summary()
	if err != nil {
		return ""
	}
	return s.Name
}

var mediaExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".gifv", ".mp4", ".webm"}

// HasMedia reports whether the item points at an image or video
func (t Thing) HasMedia() bool {
	s, err := t.Summary()
	if err != nil {
		return false
	}
	if s.IsVideo {
		return true
	}
	switch s.PostHint {
	case "image", "hosted:video", "rich:video":
		return true
	}

	u := strings.ToLower(s.URL)
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	for _, ext := range mediaExtensions {
		if strings.HasSuffix(u, ext) {
			return true
		}
	}
	return strings.Contains(u, "i.redd.it") || strings.Contains(u, "v.redd.it")
}

// UserAbout is the profile envelope returned by the about endpoint
type UserAbout struct {
	Kind string       `json:"kind" yaml:"kind"`
	Data *AccountData `json:"data" yaml:"data"`
}

// AccountData holds the profile attributes
type AccountData struct {
	ID               string  `json:"id" yaml:"id"`
	Name             string  `json:"name" yaml:"name"`
	CreatedUTC       float64 `json:"created_utc" yaml:"created_utc"`
	LinkKarma        int     `json:"link_karma" yaml:"link_karma"`
	CommentKarma     int     `json:"comment_karma" yaml:"comment_karma"`
	TotalKarma       int     `json:"total_karma" yaml:"total_karma"`
	IsGold           bool    `json:"is_gold" yaml:"is_gold"`
	IsMod            bool    `json:"is_mod" yaml:"is_mod"`
	Verified         bool    `json:"verified" yaml:"verified"`
	HasVerifiedEmail bool    `json:"has_verified_email" yaml:"has_verified_email"`
	IconImg          string  `json:"icon_img" yaml:"icon_img"`
}
