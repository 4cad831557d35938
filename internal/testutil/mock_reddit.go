// Package testutil provides a scripted Reddit OAuth server for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"
)

// MockPage scripts one response of the saved listing endpoint
type MockPage struct {
	Dist  int
	After *string
	// Children are item fullnames. When nil, Dist items are generated.
	Children []string
	// StatusCode other than 0 or 200 is returned instead of the page
	StatusCode int
	// Body overrides the encoded page verbatim
	Body  string
	Delay time.Duration
}

// MockResponse is a fixed response for a single-shot endpoint
type MockResponse struct {
	StatusCode int
	Body       string
}

// RecordedRequest is what the mock server saw
type RecordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Form   url.Values
}

// MockReddit is a configurable mock of the OAuth API
type MockReddit struct {
	server *httptest.Server

	mu          sync.Mutex
	pages       map[string][]MockPage
	pageIndex   map[string]int
	about       map[string]MockResponse
	unsaveFails map[string]int
	requests    []RecordedRequest
	unsaved     []string
}

// Cursor returns a pointer to s, for scripting After values
func Cursor(s string) *string {
	return &s
}

// NewMockReddit starts a new mock server
func NewMockReddit() *MockReddit {
	m := &MockReddit{
		pages:       make(map[string][]MockPage),
		pageIndex:   make(map[string]int),
		about:       make(map[string]MockResponse),
		unsaveFails: make(map[string]int),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock server URL, used as the OAuth base URL
func (m *MockReddit) URL() string {
	return m.server.URL
}

// Close shuts down the mock server
func (m *MockReddit) Close() {
	m.server.Close()
}

// SetSavedPages scripts the saved listing for account. Request i receives
// pages[i]; requests past the end get a 500.
func (m *MockReddit) SetSavedPages(account string, pages ...MockPage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[account] = pages
	m.pageIndex[account] = 0
}

// SetAbout scripts the profile endpoint for account
func (m *MockReddit) SetAbout(account string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.about[account] = resp
}

// SetAboutUser scripts a successful profile response
func (m *MockReddit) SetAboutUser(account string, linkKarma, commentKarma int) {
	body := fmt.Sprintf(`{"kind":"t2","data":{"id":"abc1","name":%q,"created_utc":1134028003.0,"link_karma":%d,"comment_karma":%d,"total_karma":%d,"verified":true}}`,
		account, linkKarma, commentKarma, linkKarma+commentKarma)
	m.SetAbout(account, MockResponse{StatusCode: http.StatusOK, Body: body})
}

// FailUnsave makes unsave of fullname return status
func (m *MockReddit) FailUnsave(fullname string, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unsaveFails[fullname] = status
}

// Requests returns every recorded request in arrival order
func (m *MockReddit) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// SavedRequests returns the recorded listing requests in arrival order
func (m *MockReddit) SavedRequests() []RecordedRequest {
	var out []RecordedRequest
	for _, r := range m.Requests() {
		if strings.HasSuffix(r.Path, "/saved") {
			out = append(out, r)
		}
	}
	return out
}

// Unsaved returns the fullnames successfully unsaved, in arrival order
func (m *MockReddit) Unsaved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.unsaved))
	copy(out, m.unsaved)
	return out
}

func (m *MockReddit) handle(w http.ResponseWriter, r *http.Request) {
	var form url.Values
	if r.Method == http.MethodPost {
		_ = r.ParseForm()
		form = r.PostForm
	}

	m.mu.Lock()
	m.requests = append(m.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Form:   form,
	})
	m.mu.Unlock()

	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, `{"message": "Unauthorized", "error": 401}`, http.StatusUnauthorized)
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "user" && parts[2] == "saved":
		m.handleSaved(w, parts[1])
	case r.Method == http.MethodGet && len(parts) == 3 && parts[0] == "user" && parts[2] == "about":
		m.handleAbout(w, parts[1])
	case r.Method == http.MethodPost && r.URL.Path == "/api/unsave":
		m.handleUnsave(w, form.Get("id"))
	default:
		http.NotFound(w, r)
	}
}

func (m *MockReddit) handleSaved(w http.ResponseWriter, account string) {
	m.mu.Lock()
	pages, ok := m.pages[account]
	idx := m.pageIndex[account]
	m.pageIndex[account] = idx + 1
	m.mu.Unlock()

	if !ok {
		http.NotFound(w, nil)
		return
	}
	if idx >= len(pages) {
		http.Error(w, `{"message": "no more scripted pages"}`, http.StatusInternalServerError)
		return
	}

	page := pages[idx]
	if page.Delay > 0 {
		time.Sleep(page.Delay)
	}
	if page.StatusCode != 0 && page.StatusCode != http.StatusOK {
		http.Error(w, fmt.Sprintf(`{"message": "scripted failure", "error": %d}`, page.StatusCode), page.StatusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if page.Body != "" {
		_, _ = io.WriteString(w, page.Body)
		return
	}
	_ = json.NewEncoder(w).Encode(BuildListing(idx, page))
}

func (m *MockReddit) handleAbout(w http.ResponseWriter, account string) {
	m.mu.Lock()
	resp, ok := m.about[account]
	m.mu.Unlock()

	if !ok {
		http.NotFound(w, nil)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.WriteString(w, resp.Body)
}

func (m *MockReddit) handleUnsave(w http.ResponseWriter, fullname string) {
	m.mu.Lock()
	status, fail := m.unsaveFails[fullname]
	if !fail {
		m.unsaved = append(m.unsaved, fullname)
	}
	m.mu.Unlock()

	if fail {
		http.Error(w, `{"message": "scripted failure"}`, status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, "{}")
}

// BuildListing encodes a scripted page as a listing envelope
func BuildListing(pageIndex int, page MockPage) map[string]interface{} {
	names := page.Children
	if names == nil {
		names = make([]string, page.Dist)
		for i := range names {
			names[i] = fmt.Sprintf("t3_p%di%d", pageIndex, i)
		}
	}

	children := make([]map[string]interface{}, 0, len(names))
	for i, name := range names {
		kind := "t3"
		if strings.HasPrefix(name, "t1_") {
			kind = "t1"
		}
		children = append(children, map[string]interface{}{
			"kind": kind,
			"data": map[string]interface{}{
				"name":      name,
				"subreddit": "golang",
				"title":     fmt.Sprintf("Saved post %d.%d", pageIndex, i),
				"url":       fmt.Sprintf("https://i.redd.it/%s.jpg", strings.TrimPrefix(name, kind+"_")),
				"permalink": fmt.Sprintf("/r/golang/comments/%s/", strings.TrimPrefix(name, kind+"_")),
				"is_video":  false,
				"post_hint": "image",
			},
		})
	}

	var after interface{}
	if page.After != nil {
		after = *page.After
	}

	return map[string]interface{}{
		"kind": "Listing",
		"data": map[string]interface{}{
			"dist":     page.Dist,
			"after":    after,
			"before":   nil,
			"modhash":  "",
			"children": children,
		},
	}
}
