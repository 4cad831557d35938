package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// StatusTracker follows a paginated fetch and renders a one-line status
type StatusTracker struct {
	mu        sync.Mutex
	pages     int
	processed int
	maxPages  int
	startTime time.Time
}

// NewStatusTracker creates a tracker; maxPages scales the bar
func NewStatusTracker(maxPages int) *StatusTracker {
	if maxPages <= 0 {
		maxPages = 1
	}
	return &StatusTracker{maxPages: maxPages, startTime: time.Now()}
}

// Update records the latest page count and running total. Its signature
// matches the fetch progress callback.
func (st *StatusTracker) Update(pages, processed int) {
	st.mu.Lock()
	st.pages = pages
	st.processed = processed
	st.mu.Unlock()
	st.PrintProgress()
}

// Processed returns the running item total
func (st *StatusTracker) Processed() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.processed
}

// Pages returns the number of pages seen
func (st *StatusTracker) Pages() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.pages
}

// GetPageProgress returns a bar of pages against the page cap
func (st *StatusTracker) GetPageProgress() string {
	st.mu.Lock()
	defer st.mu.Unlock()

	const width = 20
	filled := st.pages * width / st.maxPages
	if filled > width {
		filled = width
	}

	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, st.pages, st.maxPages)
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.startTime)
}

// GetRate returns items per second
func (st *StatusTracker) GetRate() float64 {
	elapsed := st.GetElapsedTime().Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(st.Processed()) / elapsed
}

// PrintProgress rewrites the status line in place
func (st *StatusTracker) PrintProgress() {
	write(false, fmt.Sprintf("\r%s items: %d | pages: %s",
		Green("[FETCHING]"),
		st.Processed(),
		st.GetPageProgress()))
}

// Finish ends the status line
func (st *StatusTracker) Finish() {
	write(false, "\n")
}
