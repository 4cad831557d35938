package saver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"redditsaver/internal/unsaver"
	"redditsaver/pkg/auth"
	"redditsaver/pkg/config"
	errs "redditsaver/pkg/errors"
	"redditsaver/pkg/fetcher"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/reddit"
	"redditsaver/pkg/retry"
	"redditsaver/pkg/storage"
)

// Service ties the Reddit client, the paginated fetcher, the export store
// and the unsave pool together for one configuration.
type Service struct {
	client   RedditClient
	fetchCfg fetcher.Config
	fetcher  *fetcher.Fetcher
	tokens  auth.TokenProvider
	config  *config.Config
	logger  logger.Logger
	now     func() time.Time
}

// New creates a Service talking to the configured OAuth host. tokens may be
// nil when the configuration carries an access token.
func New(cfg *config.Config, tokens auth.TokenProvider, log logger.Logger) *Service {
	log = logger.OrNop(log)

	userAgent := cfg.Reddit.UserAgent
	if userAgent == "" {
		userAgent = reddit.UserAgentString(cfg.Reddit.AppName, reddit.Version, cfg.Reddit.Username)
	}

	client := reddit.NewClient(reddit.ClientConfig{
		BaseURL:   cfg.Reddit.OAuthBaseURL,
		UserAgent: userAgent,
		Timeout:   cfg.Fetch.PageTimeout,
	}, log)

	return NewWithClient(client, cfg, tokens, log)
}

// NewWithClient creates a Service over an existing client
func NewWithClient(client RedditClient, cfg *config.Config, tokens auth.TokenProvider, log logger.Logger) *Service {
	log = logger.OrNop(log)
	fetchCfg := fetcher.ConfigFrom(cfg, log)
	return &Service{
		client:   client,
		fetchCfg: fetchCfg,
		fetcher:  fetcher.New(client, fetchCfg, log),
		tokens:   tokens,
		config:   cfg,
		logger:   log,
		now:      time.Now,
	}
}

// SetProgress registers a callback run after every fetched page
func (s *Service) SetProgress(fn func(page, processed int)) {
	s.fetchCfg.OnPage = fn
	s.fetcher = fetcher.New(s.client, s.fetchCfg, s.logger)
}

// Token resolves the bearer token for username. A token in the
// configuration wins over the credential store.
func (s *Service) Token(username string) (string, error) {
	if token := s.config.Reddit.AccessToken; token != "" {
		if exp := s.config.Reddit.TokenExpiresAt; !exp.IsZero() && !s.now().Before(exp) {
			return "", errs.Wrap(errs.ErrorTypeAuth, 0, "configured access token expired", auth.ErrTokenExpired)
		}
		return token, nil
	}

	if s.tokens == nil {
		return "", errs.New(errs.ErrorTypeAuth, 0, "no access token configured")
	}

	token, err := s.tokens.Token(username)
	if err != nil {
		if errors.Is(err, auth.ErrCredentialsNotFound) || errors.Is(err, auth.ErrTokenExpired) {
			return "", errs.Wrap(errs.ErrorTypeAuth, 0, "no usable access token", err)
		}
		return "", fmt.Errorf("failed to load access token: %w", err)
	}
	return token, nil
}

// Saved fetches every page of username's saved items
func (s *Service) Saved(ctx context.Context, username string) (*fetcher.ResultSet, error) {
	username = reddit.SanitizeUsername(username)
	if !reddit.IsValidUsername(username) {
		return nil, errs.New(errs.ErrorTypeValidation, 0, fmt.Sprintf("invalid username: %q", username))
	}

	token, err := s.Token(username)
	if err != nil {
		return nil, err
	}

	s.logger.InfoWithFields("Starting saved items fetch", map[string]interface{}{
		"username":  username,
		"max_pages": s.config.Fetch.MaxPages,
		"retry":     s.config.Retry.Enabled,
	})

	rs, err := s.fetcher.FetchAllPages(ctx, username, token)
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// About fetches username's profile
func (s *Service) About(ctx context.Context, username string) (*reddit.AccountData, error) {
	username = reddit.SanitizeUsername(username)
	if !reddit.IsValidUsername(username) {
		return nil, errs.New(errs.ErrorTypeValidation, 0, fmt.Sprintf("invalid username: %q", username))
	}

	token, err := s.Token(username)
	if err != nil {
		return nil, err
	}

	about, err := s.client.FetchProfile(ctx, username, token)
	if err != nil {
		return nil, err
	}
	return about.Data, nil
}

// Unsave removes the given fullnames from username's saved list using the
// configured number of workers.
func (s *Service) Unsave(ctx context.Context, username string, fullnames []string) ([]unsaver.Result, error) {
	if len(fullnames) == 0 {
		return nil, nil
	}

	token, err := s.Token(reddit.SanitizeUsername(username))
	if err != nil {
		return nil, err
	}

	s.logger.InfoWithFields("Starting unsave", map[string]interface{}{
		"username": username,
		"items":    len(fullnames),
		"workers":  s.config.Unsave.Concurrency,
	})

	results, err := unsaver.Run(ctx, s.client, fullnames, unsaver.Options{
		Workers: s.config.Unsave.Concurrency,
		Token:   token,
		Retry:   retry.FromConfig(s.config.Retry, s.logger),
	}, s.logger)

	succeeded, failed := unsaver.Summarize(results)
	s.logger.InfoWithFields("Unsave finished", map[string]interface{}{
		"username":  username,
		"succeeded": succeeded,
		"failed":    failed,
	})

	if err != nil {
		return results, errs.Wrap(errs.ErrorTypeCancelled, 0, "unsave cancelled", err)
	}
	return results, nil
}

// UnsaveAll unsaves every distinct item in rs
func (s *Service) UnsaveAll(ctx context.Context, rs *fetcher.ResultSet) ([]unsaver.Result, error) {
	if rs == nil {
		return nil, nil
	}

	var names []string
	for _, item := range rs.UniqueItems() {
		if name := item.Name(); name != "" {
			names = append(names, name)
		}
	}
	return s.Unsave(ctx, rs.Account, names)
}

// Export writes rs to the configured output directory and returns its path
func (s *Service) Export(rs *fetcher.ResultSet, format storage.Format) (string, error) {
	if format == "" {
		format = storage.Format(s.config.Output.Format)
	}

	manager, err := storage.NewManager(s.config.Output.Directory, s.config.Output.Pretty, s.logger)
	if err != nil {
		return "", err
	}
	return manager.Save(rs, format)
}
