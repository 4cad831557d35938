package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redditsaver/internal/testutil"
	errs "redditsaver/pkg/errors"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/reddit"
	"redditsaver/pkg/retry"
)

func newMockFetcher(t *testing.T, mock *testutil.MockReddit, cfg Config) (*Fetcher, *logger.TestLogger) {
	t.Helper()
	tl := logger.NewTestLogger()
	client := reddit.NewClient(reddit.ClientConfig{BaseURL: mock.URL(), Timeout: 5 * time.Second}, logger.NewNopLogger())
	return New(client, cfg, tl), tl
}

// scriptedSource replays canned results and records the cursor of every call
type scriptedSource struct {
	mu     sync.Mutex
	steps  []func(ctx context.Context) (*reddit.Listing, error)
	afters []*string
}

func (s *scriptedSource) FetchSavedPage(ctx context.Context, account, token string, after *string, limit int) (*reddit.Listing, error) {
	s.mu.Lock()
	i := len(s.afters)
	s.afters = append(s.afters, after)
	s.mu.Unlock()

	if i >= len(s.steps) {
		return nil, errs.New(errs.ErrorTypeServerError, 500, "server error")
	}
	return s.steps[i](ctx)
}

func (s *scriptedSource) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.afters)
}

func page(dist int, after *string) func(context.Context) (*reddit.Listing, error) {
	return func(context.Context) (*reddit.Listing, error) {
		return &reddit.Listing{Kind: reddit.ListingKind, Data: reddit.ListingData{Dist: dist, After: after}}, nil
	}
}

func TestFetchAllPagesThreePages(t *testing.T) {
	mock := testutil.NewMockReddit()
	defer mock.Close()
	mock.SetSavedPages("spez",
		testutil.MockPage{Dist: 100, After: testutil.Cursor("t1")},
		testutil.MockPage{Dist: 100, After: testutil.Cursor("t2")},
		testutil.MockPage{Dist: 37},
	)

	f, tl := newMockFetcher(t, mock, DefaultConfig())
	result, err := f.FetchAllPages(context.Background(), "spez", "tok")
	require.NoError(t, err)

	require.Len(t, result.Pages, 3)
	assert.Equal(t, 237, result.Processed)
	assert.True(t, result.Complete())
	assert.Equal(t, "spez", result.Account)
	assert.NotEmpty(t, result.RunID)
	assert.Len(t, result.Items(), 237)

	assert.Equal(t, 100, result.Pages[0].Data.Dist)
	assert.Equal(t, 100, result.Pages[1].Data.Dist)
	assert.Equal(t, 37, result.Pages[2].Data.Dist)
	assert.Nil(t, result.Pages[2].Data.After)

	reqs := mock.SavedRequests()
	require.Len(t, reqs, 3)
	_, firstHasAfter := reqs[0].Query["after"]
	assert.False(t, firstHasAfter)
	assert.Equal(t, "t1", reqs[1].Query.Get("after"))
	assert.Equal(t, "t2", reqs[2].Query.Get("after"))
	for _, r := range reqs {
		assert.Equal(t, "100", r.Query.Get("limit"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
	}

	assert.Equal(t, 3, tl.CountMessages("Number of items processed"))
	assert.Equal(t, 2, tl.CountMessages("Processing till"))
	done, ok := tl.FindMessage("Data gathering complete")
	require.True(t, ok)
	assert.Equal(t, 237, done.Fields["processed"])
	assert.Equal(t, result.RunID, done.Fields["run_id"])
}

func TestFetchAllPagesOnPageHook(t *testing.T) {
	src := &scriptedSource{steps: []func(context.Context) (*reddit.Listing, error){
		page(100, testutil.Cursor("a")),
		page(40, nil),
	}}

	var seen [][2]int
	cfg := DefaultConfig()
	cfg.OnPage = func(page, processed int) {
		seen = append(seen, [2]int{page, processed})
	}

	_, err := New(src, cfg, nil).FetchAllPages(context.Background(), "spez", "tok")
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 100}, {2, 140}}, seen)
}

func TestFetchAllPagesEmpty(t *testing.T) {
	mock := testutil.NewMockReddit()
	defer mock.Close()
	mock.SetSavedPages("spez", testutil.MockPage{Dist: 0})

	f, _ := newMockFetcher(t, mock, DefaultConfig())
	result, err := f.FetchAllPages(context.Background(), "spez", "tok")
	require.NoError(t, err)

	require.Len(t, result.Pages, 1)
	assert.Equal(t, 0, result.Processed)
	assert.Empty(t, result.Items())
	assert.True(t, result.Complete())
	assert.Len(t, mock.SavedRequests(), 1)
}

func TestFetchAllPagesServerErrorOnSecondPage(t *testing.T) {
	mock := testutil.NewMockReddit()
	defer mock.Close()
	mock.SetSavedPages("spez",
		testutil.MockPage{Dist: 100, After: testutil.Cursor("t1")},
		testutil.MockPage{StatusCode: http.StatusInternalServerError},
		testutil.MockPage{Dist: 37},
	)

	f, tl := newMockFetcher(t, mock, DefaultConfig())
	result, err := f.FetchAllPages(context.Background(), "spez", "tok")

	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errs.IsTransport(err))
	assert.Equal(t, errs.ErrorTypeServerError, errs.TypeOf(err))
	assert.Contains(t, err.Error(), "saved page 2")
	assert.Len(t, mock.SavedRequests(), 2)
	assert.True(t, tl.HasMessage("Fetch failed"))
	assert.False(t, tl.HasMessage("Data gathering complete"))
}

func TestFetchAllPagesDecodeErrorIsFatal(t *testing.T) {
	mock := testutil.NewMockReddit()
	defer mock.Close()
	mock.SetSavedPages("spez",
		testutil.MockPage{Body: `{"kind":"Listing","data":{"dist":"oops"}}`},
		testutil.MockPage{Dist: 1},
	)

	f, _ := newMockFetcher(t, mock, DefaultConfig())
	result, err := f.FetchAllPages(context.Background(), "spez", "tok")

	assert.Nil(t, result)
	assert.True(t, errs.IsDecode(err))
	assert.Len(t, mock.SavedRequests(), 1)
}

func TestFetchAllPagesFailFastProperty(t *testing.T) {
	for failAt := 0; failAt < 4; failAt++ {
		src := &scriptedSource{}
		for i := 0; i < 5; i++ {
			if i == failAt {
				src.steps = append(src.steps, func(context.Context) (*reddit.Listing, error) {
					return nil, errs.Wrap(errs.ErrorTypeNetwork, 0, "network error", errors.New("connection reset"))
				})
				continue
			}
			src.steps = append(src.steps, page(10, testutil.Cursor("c")))
		}

		result, err := New(src, DefaultConfig(), nil).FetchAllPages(context.Background(), "spez", "tok")
		assert.Nil(t, result)
		assert.True(t, errs.IsTransport(err))
		assert.Equal(t, failAt+1, src.calls(), "fail at %d", failAt)
	}
}

func TestFetchAllPagesCursorForwardingProperty(t *testing.T) {
	cursors := []string{"t3_a", "t3_b+/=", "opaque cursor with spaces", "t3_a"}
	src := &scriptedSource{}
	for _, c := range cursors {
		src.steps = append(src.steps, page(5, testutil.Cursor(c)))
	}
	src.steps = append(src.steps, page(2, nil))

	result, err := New(src, DefaultConfig(), nil).FetchAllPages(context.Background(), "spez", "tok")
	require.NoError(t, err)
	require.Len(t, result.Pages, len(cursors)+1)
	assert.Equal(t, 5*len(cursors)+2, result.Processed)

	require.Len(t, src.afters, len(cursors)+1)
	assert.Nil(t, src.afters[0])
	for i, c := range cursors {
		require.NotNil(t, src.afters[i+1])
		assert.Equal(t, c, *src.afters[i+1])
	}
}

func TestFetchAllPagesDuplicatesKept(t *testing.T) {
	mock := testutil.NewMockReddit()
	defer mock.Close()
	mock.SetSavedPages("spez",
		testutil.MockPage{Dist: 2, After: testutil.Cursor("t3_b"), Children: []string{"t3_a", "t3_b"}},
		testutil.MockPage{Dist: 2, Children: []string{"t3_b", "t1_c"}},
	)

	f, _ := newMockFetcher(t, mock, DefaultConfig())
	result, err := f.FetchAllPages(context.Background(), "spez", "tok")
	require.NoError(t, err)

	assert.Len(t, result.Items(), 4)
	unique := result.UniqueItems()
	require.Len(t, unique, 3)
	assert.Equal(t, "t3_a", unique[0].Name())
	assert.Equal(t, "t3_b", unique[1].Name())
	assert.Equal(t, "t1_c", unique[2].Name())
}

func TestFetchAllPagesMaxPagesCap(t *testing.T) {
	src := &scriptedSource{}
	for i := 0; i < 10; i++ {
		src.steps = append(src.steps, page(100, testutil.Cursor("same")))
	}

	cfg := DefaultConfig()
	cfg.MaxPages = 3
	result, err := New(src, cfg, nil).FetchAllPages(context.Background(), "spez", "tok")

	assert.Nil(t, result)
	assert.True(t, errs.Is(err, errs.ErrorTypeLimitExceeded))
	assert.Equal(t, 3, src.calls())
}

func TestFetchAllPagesMaxItemsCap(t *testing.T) {
	src := &scriptedSource{steps: []func(context.Context) (*reddit.Listing, error){
		page(100, testutil.Cursor("t1")),
		page(100, testutil.Cursor("t2")),
		page(100, nil),
	}}

	cfg := DefaultConfig()
	cfg.MaxItems = 150
	_, err := New(src, cfg, nil).FetchAllPages(context.Background(), "spez", "tok")

	assert.True(t, errs.Is(err, errs.ErrorTypeLimitExceeded))
	assert.Equal(t, 2, src.calls())
}

func TestFetchAllPagesTerminalPageWithinCap(t *testing.T) {
	src := &scriptedSource{steps: []func(context.Context) (*reddit.Listing, error){
		page(100, testutil.Cursor("t1")),
		page(37, nil),
	}}

	cfg := DefaultConfig()
	cfg.MaxPages = 2
	result, err := New(src, cfg, nil).FetchAllPages(context.Background(), "spez", "tok")
	require.NoError(t, err)
	assert.Len(t, result.Pages, 2)
}

func TestFetchAllPagesCancelledBetweenPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &scriptedSource{steps: []func(context.Context) (*reddit.Listing, error){
		func(context.Context) (*reddit.Listing, error) {
			cancel()
			return &reddit.Listing{Kind: reddit.ListingKind, Data: reddit.ListingData{Dist: 100, After: testutil.Cursor("t1")}}, nil
		},
		page(37, nil),
	}}

	result, err := New(src, DefaultConfig(), nil).FetchAllPages(ctx, "spez", "tok")

	assert.Nil(t, result)
	assert.True(t, errs.Is(err, errs.ErrorTypeCancelled))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, src.calls())
}

func TestFetchAllPagesPageTimeout(t *testing.T) {
	src := &scriptedSource{steps: []func(context.Context) (*reddit.Listing, error){
		func(ctx context.Context) (*reddit.Listing, error) {
			<-ctx.Done()
			return nil, errs.Wrap(errs.ErrorTypeTimeout, 0, "request timeout", ctx.Err())
		},
	}}

	cfg := DefaultConfig()
	cfg.PageTimeout = 20 * time.Millisecond
	result, err := New(src, cfg, nil).FetchAllPages(context.Background(), "spez", "tok")

	assert.Nil(t, result)
	assert.Equal(t, errs.ErrorTypeTimeout, errs.TypeOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchAllPagesOptInRetry(t *testing.T) {
	mock := testutil.NewMockReddit()
	defer mock.Close()
	mock.SetSavedPages("spez",
		testutil.MockPage{Dist: 100, After: testutil.Cursor("t1")},
		testutil.MockPage{StatusCode: http.StatusBadGateway},
		testutil.MockPage{Dist: 37},
	)

	cfg := DefaultConfig()
	cfg.Retry = &retry.Config{
		MaxAttempts: 3,
		Backoff:     &retry.ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     retry.DefaultRetryIf,
	}

	f, _ := newMockFetcher(t, mock, cfg)
	result, err := f.FetchAllPages(context.Background(), "spez", "tok")
	require.NoError(t, err)

	assert.Len(t, result.Pages, 2)
	assert.Equal(t, 137, result.Processed)

	reqs := mock.SavedRequests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "t1", reqs[1].Query.Get("after"))
	assert.Equal(t, "t1", reqs[2].Query.Get("after"))
}

func TestFetchAllPagesRetryDoesNotRetryAuth(t *testing.T) {
	mock := testutil.NewMockReddit()
	defer mock.Close()
	mock.SetSavedPages("spez",
		testutil.MockPage{StatusCode: http.StatusUnauthorized},
		testutil.MockPage{Dist: 1},
	)

	cfg := DefaultConfig()
	cfg.Retry = &retry.Config{MaxAttempts: 3, Backoff: &retry.ConstantBackoff{Delay: time.Millisecond}}

	f, _ := newMockFetcher(t, mock, cfg)
	_, err := f.FetchAllPages(context.Background(), "spez", "expired")

	assert.True(t, errs.IsAuth(err))
	assert.Len(t, mock.SavedRequests(), 1)
}

func TestFetchAllPagesValidation(t *testing.T) {
	src := &scriptedSource{}

	_, err := New(src, DefaultConfig(), nil).FetchAllPages(context.Background(), "", "tok")
	assert.True(t, errs.Is(err, errs.ErrorTypeValidation))

	_, err = New(src, DefaultConfig(), nil).FetchAllPages(context.Background(), "spez", "")
	assert.True(t, errs.Is(err, errs.ErrorTypeValidation))

	assert.Equal(t, 0, src.calls())
}

func TestIteratorStates(t *testing.T) {
	src := &scriptedSource{steps: []func(context.Context) (*reddit.Listing, error){
		page(3, testutil.Cursor("t1")),
		page(0, nil),
	}}
	it := New(src, DefaultConfig(), nil).Iterate("spez", "tok")
	ctx := context.Background()

	assert.Equal(t, StateFetching, it.State())

	p, err := it.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Data.Dist)
	assert.Equal(t, StateFetching, it.State())

	p, err = it.Next(ctx)
	require.NoError(t, err)
	assert.True(t, p.Terminal())
	assert.Equal(t, StateDone, it.State())
	assert.Equal(t, 3, it.Processed())
	assert.Equal(t, 2, it.Pages())

	_, err = it.Next(ctx)
	assert.ErrorIs(t, err, ErrDone)
	assert.Equal(t, 2, src.calls())
}

func TestIteratorFailedIsSticky(t *testing.T) {
	src := &scriptedSource{steps: []func(context.Context) (*reddit.Listing, error){
		func(context.Context) (*reddit.Listing, error) {
			return nil, errs.New(errs.ErrorTypeServerError, 503, "server error")
		},
		page(1, nil),
	}}
	it := New(src, DefaultConfig(), nil).Iterate("spez", "tok")

	_, first := it.Next(context.Background())
	require.Error(t, first)
	assert.Equal(t, StateFailed, it.State())

	_, second := it.Next(context.Background())
	assert.Equal(t, first, second)
	assert.Equal(t, first, it.Err())
	assert.Equal(t, 1, src.calls())
}

func TestIterateGivesEachRunItsOwnState(t *testing.T) {
	f := New(&scriptedSource{}, DefaultConfig(), nil)
	a := f.Iterate("spez", "tok")
	b := f.Iterate("spez", "tok")
	assert.NotEqual(t, a.RunID(), b.RunID())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "fetching", StateFetching.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "failed", StateFailed.String())
}

func TestResultSetHelpers(t *testing.T) {
	empty := &ResultSet{}
	assert.False(t, empty.Complete())
	assert.Empty(t, empty.Items())

	thing := func(name, url string) reddit.Thing {
		data, _ := json.Marshal(map[string]interface{}{"name": name, "url": url})
		return reddit.Thing{Kind: reddit.KindLink, Data: data}
	}
	rs := &ResultSet{Pages: []reddit.Listing{
		{Kind: reddit.ListingKind, Data: reddit.ListingData{Dist: 2, After: testutil.Cursor("x"), Children: []reddit.Thing{
			thing("t3_a", "https://i.redd.it/a.jpg"), thing("t3_b", "https://go.dev"),
		}}},
	}}
	assert.False(t, rs.Complete())
	assert.Equal(t, 1, rs.MediaCount())
}
