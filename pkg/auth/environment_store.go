package auth

import (
	"fmt"
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvUsername    = "REDDITSAVER_USERNAME"
	EnvAccessToken = "REDDITSAVER_ACCESS_TOKEN"
	EnvUserAgent   = "REDDITSAVER_USER_AGENT"
	EnvExpiresAt   = "REDDITSAVER_TOKEN_EXPIRES_AT"
)

// EnvironmentStore is a read-only store over REDDITSAVER_* variables
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment token. A non-empty username must match
// REDDITSAVER_USERNAME when that variable is set.
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	token := os.Getenv(EnvAccessToken)
	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	envUser := os.Getenv(EnvUsername)
	switch {
	case username == "" && envUser == "":
		username = "default"
	case username == "":
		username = envUser
	case envUser != "" && envUser != username:
		return nil, ErrCredentialsNotFound
	}

	account := &Account{
		Username:     username,
		AccessToken:  token,
		UserAgent:    os.Getenv(EnvUserAgent),
		LastModified: time.Now(),
	}

	if raw := os.Getenv(EnvExpiresAt); raw != "" {
		expiresAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvExpiresAt, err)
		}
		account.ExpiresAt = expiresAt
	}

	return account, nil
}

// List returns the environment account if one is set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist for username
func (e *EnvironmentStore) Exists(username string) bool {
	_, err := e.Retrieve(username)
	return err == nil
}
