package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCredentialManager(t *testing.T) {
	manager, store := NewMemoryManager()

	account := &Account{
		Username:    "testuser",
		AccessToken: "test_access_token_12345",
		UserAgent:   "linux:test:v1 (by u/testuser)",
	}

	if err := manager.Store(account); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}
	if account.LastModified.IsZero() {
		t.Error("Store should stamp LastModified")
	}

	retrieved, err := manager.Retrieve("testuser")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.AccessToken != account.AccessToken {
		t.Errorf("AccessToken mismatch: got %s, want %s", retrieved.AccessToken, account.AccessToken)
	}

	token, err := manager.Token("testuser")
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if token != account.AccessToken {
		t.Errorf("Token() = %s, want %s", token, account.AccessToken)
	}

	accounts, err := manager.List()
	if err != nil {
		t.Fatalf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("Expected 1 account in list, got %d", len(accounts))
	}

	if err := manager.Delete("testuser"); err != nil {
		t.Errorf("Failed to delete account: %v", err)
	}
	if _, err := manager.Retrieve("testuser"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound after delete, got %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("Expected 0 accounts after deletion, got %d", store.Count())
	}
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMemoryManager()

	if err := manager.Store(&Account{AccessToken: "x"}); err == nil {
		t.Error("Expected error for missing username")
	}
	if err := manager.Store(&Account{Username: "someone"}); err == nil {
		t.Error("Expected error for missing access token")
	}
	if err := manager.Store(nil); err == nil {
		t.Error("Expected error for nil account")
	}
}

func TestManagerTokenExpired(t *testing.T) {
	manager, _ := NewMemoryManager()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	manager.now = func() time.Time { return now }

	err := manager.Store(&Account{
		Username:    "stale",
		AccessToken: "old-token",
		ExpiresAt:   now.Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	if _, err := manager.Token("stale"); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Expected ErrTokenExpired, got %v", err)
	}
	if _, err := manager.Token("missing"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestAccountExpired(t *testing.T) {
	now := time.Now()

	unknown := &Account{}
	if unknown.Expired(now) {
		t.Error("Zero expiry should never be expired")
	}

	fresh := &Account{ExpiresAt: now.Add(time.Hour)}
	if fresh.Expired(now) {
		t.Error("Future expiry should not be expired")
	}

	exact := &Account{ExpiresAt: now}
	if !exact.Expired(now) {
		t.Error("Expiry equal to now should be expired")
	}
}

func TestManagerFallsBackOnStoreError(t *testing.T) {
	broken := NewMemoryStore()
	broken.StoreError = errors.New("keychain locked")
	broken.RetrieveError = errors.New("keychain locked")
	working := NewMemoryStore()

	manager := NewManagerWithStores(broken, working)

	if err := manager.Store(&Account{Username: "fallback", AccessToken: "tok"}); err != nil {
		t.Fatalf("Store() should fall back to second store: %v", err)
	}
	if working.Count() != 1 {
		t.Errorf("Expected account in fallback store, got %d", working.Count())
	}

	token, err := manager.Token("fallback")
	if err != nil || token != "tok" {
		t.Errorf("Token() = %q, %v", token, err)
	}

	working.StoreError = errors.New("disk full")
	if err := manager.Store(&Account{Username: "nowhere", AccessToken: "tok"}); err == nil {
		t.Error("Expected error when every store fails")
	}
}

func TestManagerListNewestFirst(t *testing.T) {
	older := NewMemoryStore()
	newer := NewMemoryStore()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_ = older.Store(&Account{Username: "a", AccessToken: "old", LastModified: base})
	_ = newer.Store(&Account{Username: "a", AccessToken: "new", LastModified: base.Add(time.Hour)})
	_ = older.Store(&Account{Username: "b", AccessToken: "b", LastModified: base.Add(2 * time.Hour)})

	manager := NewManagerWithStores(older, newer)
	accounts, err := manager.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].Username != "b" {
		t.Errorf("Expected newest account first, got %s", accounts[0].Username)
	}
	if accounts[1].AccessToken != "new" {
		t.Errorf("Expected most recent copy of a, got %s", accounts[1].AccessToken)
	}

	def, err := manager.RetrieveDefault()
	if err != nil || def.Username != "b" {
		t.Errorf("RetrieveDefault() = %+v, %v", def, err)
	}
}

func TestSanitizeAccount(t *testing.T) {
	account := &Account{Username: "someone", AccessToken: "abcd1234567890wxyz"}

	sanitized := SanitizeAccount(account)
	if sanitized.AccessToken != "abcd...wxyz" {
		t.Errorf("Unexpected masked token %s", sanitized.AccessToken)
	}
	if account.AccessToken != "abcd1234567890wxyz" {
		t.Error("SanitizeAccount must not modify the original")
	}
	if SanitizeAccount(&Account{AccessToken: "short"}).AccessToken != "********" {
		t.Error("Short tokens should be fully masked")
	}
	if SanitizeAccount(nil) != nil {
		t.Error("SanitizeAccount(nil) should be nil")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(EnvPassphrase, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "creds", "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	if _, err := store.Retrieve("nobody"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound on empty store, got %v", err)
	}

	account := &Account{Username: "encrypted_user", AccessToken: "encrypted_token_value"}
	if err := store.Store(account); err != nil {
		t.Fatalf("Failed to store in encrypted file: %v", err)
	}

	retrieved, err := store.Retrieve("encrypted_user")
	if err != nil {
		t.Fatalf("Failed to retrieve from encrypted file: %v", err)
	}
	if retrieved.AccessToken != account.AccessToken {
		t.Error("AccessToken mismatch after encryption/decryption")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(content, []byte("encrypted_token_value")) {
		t.Error("File contains plaintext access token")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	if err := store.Delete("encrypted_user"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected credentials file removed after last delete")
	}
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(EnvPassphrase, "first")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(&Account{Username: "u", AccessToken: "t"}); err != nil {
		t.Fatal(err)
	}

	t.Setenv(EnvPassphrase, "second")
	other, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Retrieve("u"); err == nil || !strings.Contains(err.Error(), "decrypt") {
		t.Errorf("Expected decrypt error with wrong passphrase, got %v", err)
	}
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(EnvPassphrase, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Store(&Account{Username: "u", AccessToken: "t"}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, passphraseFile)); err != nil {
		t.Fatalf("Expected generated passphrase file: %v", err)
	}

	reopened, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if got, err := reopened.Retrieve("u"); err != nil || got.AccessToken != "t" {
		t.Errorf("Reopened store Retrieve() = %+v, %v", got, err)
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(EnvAccessToken, "env_token")
	t.Setenv(EnvUsername, "envuser")
	t.Setenv(EnvUserAgent, "linux:env:v1")
	t.Setenv(EnvExpiresAt, "2030-01-02T03:04:05Z")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if account.Username != "envuser" || account.AccessToken != "env_token" {
		t.Errorf("Unexpected account %+v", account)
	}
	if account.ExpiresAt.Year() != 2030 {
		t.Errorf("Unexpected expiry %v", account.ExpiresAt)
	}

	if _, err := store.Retrieve("someone_else"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected mismatch to be not found, got %v", err)
	}
	if !store.Exists("envuser") {
		t.Error("Expected envuser to exist")
	}

	if err := store.Store(&Account{}); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}
	if err := store.Delete("envuser"); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment delete")
	}
}

func TestEnvironmentStoreBadExpiry(t *testing.T) {
	t.Setenv(EnvAccessToken, "env_token")
	t.Setenv(EnvExpiresAt, "tomorrow")

	if _, err := NewEnvironmentStore().Retrieve(""); err == nil {
		t.Error("Expected error for malformed expiry")
	}
}

func TestEnvironmentStoreEmpty(t *testing.T) {
	t.Setenv(EnvAccessToken, "")

	accounts, err := NewEnvironmentStore().List()
	if err != nil || len(accounts) != 0 {
		t.Errorf("List() = %v, %v", accounts, err)
	}
}

func TestManagerWithEncryptedStore(t *testing.T) {
	t.Setenv(EnvPassphrase, "test_passphrase_manager")
	t.Setenv(EnvAccessToken, "")

	encrypted, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "credentials.enc"))
	if err != nil {
		t.Fatal(err)
	}
	manager := NewManagerWithStores(encrypted, NewEnvironmentStore())

	if err := manager.Store(&Account{Username: "realuser", AccessToken: "real_token"}); err != nil {
		t.Fatalf("Store() error = %v", err)
	}

	token, err := manager.Token("realuser")
	if err != nil || token != "real_token" {
		t.Errorf("Token() = %q, %v", token, err)
	}

	if err := manager.Delete("realuser"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := manager.Delete("realuser"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Second Delete() = %v, want ErrCredentialsNotFound", err)
	}
}

func TestConfigDirOverride(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "custom")
	t.Setenv("REDDITSAVER_CONFIG_DIR", dir)

	got, err := ConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if got != dir {
		t.Errorf("ConfigDir() = %s, want %s", got, dir)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("ConfigDir should create the directory: %v", err)
	}
}

func TestWriteTokenGuide(t *testing.T) {
	var buf bytes.Buffer
	WriteTokenGuide(&buf)

	out := buf.String()
	for _, want := range []string{"prefs/apps", "access_token", EnvAccessToken, "auth login"} {
		if !strings.Contains(out, want) {
			t.Errorf("Guide missing %q", want)
		}
	}
}
