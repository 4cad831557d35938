package saver

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redditsaver/internal/testutil"
	"redditsaver/pkg/auth"
	"redditsaver/pkg/config"
	errs "redditsaver/pkg/errors"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/storage"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Reddit.OAuthBaseURL = baseURL
	cfg.Reddit.AccessToken = "config-token"
	cfg.Fetch.PageTimeout = 5 * time.Second
	cfg.Output.Directory = t.TempDir()
	cfg.Unsave.Concurrency = 2
	return cfg
}

func TestSaved(t *testing.T) {
	mock := testutil.NewMockReddit()
	defer mock.Close()
	mock.SetSavedPages("spez",
		testutil.MockPage{Dist: 2, After: testutil.Cursor("t3_p0i1")},
		testutil.MockPage{Dist: 1},
	)

	tl := logger.NewTestLogger()
	svc := New(testConfig(t, mock.URL()), nil, tl)
	var pages []int
	svc.SetProgress(func(page, processed int) { pages = append(pages, processed) })

	rs, err := svc.Saved(context.Background(), "u/spez")
	require.NoError(t, err)
	assert.Equal(t, "spez", rs.Account)
	assert.Equal(t, 3, rs.Processed)
	assert.Len(t, rs.Pages, 2)
	assert.True(t, rs.Complete())

	reqs := mock.SavedRequests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "Bearer config-token", reqs[0].Header.Get("Authorization"))
	assert.Contains(t, reqs[0].Header.Get("User-Agent"), "redditsaver")
	assert.True(t, tl.HasMessage("Starting saved items fetch"))
	assert.Equal(t, []int{2, 3}, pages)
}

func TestSavedInvalidUsername(t *testing.T) {
	svc := New(testConfig(t, "http://127.0.0.1:1"), nil, nil)

	_, err := svc.Saved(context.Background(), "a b")
	assert.True(t, errs.Is(err, errs.ErrorTypeValidation))
}

func TestSavedTransportError(t *testing.T) {
	mock := testutil.NewMockReddit()
	defer mock.Close()
	mock.SetSavedPages("spez",
		testutil.MockPage{Dist: 1, After: testutil.Cursor("t3_x")},
		testutil.MockPage{StatusCode: http.StatusBadGateway},
	)

	svc := New(testConfig(t, mock.URL()), nil, nil)
	rs, err := svc.Saved(context.Background(), "spez")
	assert.Nil(t, rs)
	assert.True(t, errs.IsTransport(err))
}

func TestTokenResolution(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	manager, _ := auth.NewMemoryManager()
	require.NoError(t, manager.Store(&auth.Account{Username: "spez", AccessToken: "stored-token"}))

	svc := NewWithClient(nil, cfg, manager, nil)

	token, err := svc.Token("spez")
	require.NoError(t, err)
	assert.Equal(t, "config-token", token, "configured token wins")

	cfg.Reddit.AccessToken = ""
	token, err = svc.Token("spez")
	require.NoError(t, err)
	assert.Equal(t, "stored-token", token)

	_, err = svc.Token("nobody")
	assert.True(t, errs.IsAuth(err))
	assert.True(t, errors.Is(err, auth.ErrCredentialsNotFound))

	svc.tokens = nil
	_, err = svc.Token("spez")
	assert.True(t, errs.IsAuth(err))
}

func TestTokenExpiredInConfig(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	cfg.Reddit.TokenExpiresAt = now.Add(-time.Second)

	svc := NewWithClient(nil, cfg, nil, nil)
	svc.now = func() time.Time { return now }

	_, err := svc.Token("spez")
	assert.True(t, errs.IsAuth(err))
	assert.True(t, errors.Is(err, auth.ErrTokenExpired))
}

func TestAbout(t *testing.T) {
	mock := testutil.NewMockReddit()
	defer mock.Close()
	mock.SetAboutUser("spez", 1200, 340)

	svc := New(testConfig(t, mock.URL()), nil, nil)
	about, err := svc.About(context.Background(), "spez")
	require.NoError(t, err)
	assert.Equal(t, "spez", about.Name)
	assert.Equal(t, 1200, about.LinkKarma)
	assert.Equal(t, 340, about.CommentKarma)
}

func TestUnsaveAllUsesUniqueItems(t *testing.T) {
	mock := testutil.NewMockReddit()
	defer mock.Close()
	mock.SetSavedPages("spez",
		testutil.MockPage{Dist: 2, Children: []string{"t3_a", "t3_b"}, After: testutil.Cursor("t3_b")},
		testutil.MockPage{Dist: 2, Children: []string{"t3_b", "t1_c"}},
	)
	mock.FailUnsave("t1_c", http.StatusInternalServerError)

	svc := New(testConfig(t, mock.URL()), nil, nil)
	rs, err := svc.Saved(context.Background(), "spez")
	require.NoError(t, err)
	assert.Equal(t, 4, rs.Processed)

	results, err := svc.UnsaveAll(context.Background(), rs)
	require.NoError(t, err)
	assert.Len(t, results, 3)

	unsaved := mock.Unsaved()
	sort.Strings(unsaved)
	assert.Equal(t, []string{"t3_a", "t3_b"}, unsaved)

	for _, r := range results {
		if r.Job.Fullname == "t1_c" {
			assert.False(t, r.Success)
			assert.True(t, errs.IsTransport(r.Error))
		}
	}
}

func TestUnsaveNothing(t *testing.T) {
	svc := NewWithClient(nil, testConfig(t, "http://127.0.0.1:1"), nil, nil)

	results, err := svc.Unsave(context.Background(), "spez", nil)
	assert.NoError(t, err)
	assert.Empty(t, results)

	results, err = svc.UnsaveAll(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestExport(t *testing.T) {
	mock := testutil.NewMockReddit()
	defer mock.Close()
	mock.SetSavedPages("spez", testutil.MockPage{Dist: 3})

	cfg := testConfig(t, mock.URL())
	cfg.Output.Format = "yaml"
	svc := New(cfg, nil, nil)

	rs, err := svc.Saved(context.Background(), "spez")
	require.NoError(t, err)

	path, err := svc.Export(rs, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Output.Directory, "spez_saved.yaml"), path)

	doc, err := storage.Load(path)
	require.NoError(t, err)
	assert.Equal(t, rs.RunID, doc.RunID)
	assert.Equal(t, 3, doc.Processed)
	assert.Equal(t, 3, doc.MediaCount)
}
