package fetcher

import (
	"time"

	"redditsaver/pkg/reddit"
)

// ResultSet holds every page of one fetch run in fetch order
type ResultSet struct {
	RunID     string           `json:"run_id" yaml:"run_id"`
	Account   string           `json:"account" yaml:"account"`
	FetchedAt time.Time        `json:"fetched_at" yaml:"fetched_at"`
	Pages     []reddit.Listing `json:"pages" yaml:"pages"`
	// Processed is the sum of dist over Pages
	Processed int `json:"processed" yaml:"processed"`
}

// Complete reports whether the last page carries a null cursor
func (r *ResultSet) Complete() bool {
	if len(r.Pages) == 0 {
		return false
	}
	return r.Pages[len(r.Pages)-1].Terminal()
}

// Items returns every item across all pages in order. Duplicates are kept.
func (r *ResultSet) Items() []reddit.Thing {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Data.Children)
	}

	items := make([]reddit.Thing, 0, n)
	for _, p := range r.Pages {
		items = append(items, p.Data.Children...)
	}
	return items
}

// UniqueItems returns Items with later repeats of a fullname dropped.
// Items whose fullname cannot be read are kept.
func (r *ResultSet) UniqueItems() []reddit.Thing {
	seen := make(map[string]struct{})
	var unique []reddit.Thing
	for _, item := range r.Items() {
		name := item.Name()
		if name != "" {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
		}
		unique = append(unique, item)
	}
	return unique
}

// MediaCount returns how many items point at an image or video
func (r *ResultSet) MediaCount() int {
	n := 0
	for _, item := range r.Items() {
		if item.HasMedia() {
			n++
		}
	}
	return n
}
