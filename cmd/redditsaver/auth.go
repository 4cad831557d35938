package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"redditsaver/pkg/auth"
	"redditsaver/pkg/reddit"
	"redditsaver/pkg/ui"
)

var (
	// auth command flags
	expiresIn     int
	loginAgent    string
	showGuide     bool
	logoutAllAccs bool
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage stored Reddit tokens",
	Long: `Store, list and remove the bearer tokens used for the OAuth API.

Tokens are kept in the system keychain. When no keychain is available they
go to an encrypted file in the configuration directory.`,
}

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Store a bearer token for an account",
	Example: `  # Prompt for the token
  redditsaver auth login spez

  # Token valid for one hour
  redditsaver auth login spez --expires-in 3600

  # Show how to obtain a token first
  redditsaver auth login --guide`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Remove a stored token",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLogout,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts with stored tokens",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd, logoutCmd, listCmd)

	loginCmd.Flags().IntVar(&expiresIn, "expires-in", 0, "token lifetime in seconds (0 = no expiry)")
	loginCmd.Flags().StringVar(&loginAgent, "user-agent", "", "User-Agent to send with this account's requests")
	loginCmd.Flags().BoolVar(&showGuide, "guide", false, "print how to obtain a token")

	logoutCmd.Flags().BoolVar(&logoutAllAccs, "all", false, "remove every stored token")
}

func runLogin(cmd *cobra.Command, args []string) error {
	if showGuide {
		auth.WriteTokenGuide(os.Stdout)
		if len(args) == 0 {
			return nil
		}
	}

	reader := bufio.NewReader(os.Stdin)

	username := ""
	if len(args) > 0 {
		username = args[0]
	} else {
		fmt.Print("Reddit username: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
		username = line
	}
	username = reddit.SanitizeUsername(username)
	if !reddit.IsValidUsername(username) {
		return fmt.Errorf("invalid username %q", username)
	}

	token, err := readToken(reader)
	if err != nil {
		return err
	}

	account := &auth.Account{
		Username:    username,
		AccessToken: token,
		UserAgent:   loginAgent,
	}
	if expiresIn > 0 {
		account.ExpiresAt = time.Now().Add(time.Duration(expiresIn) * time.Second)
	}

	manager, err := auth.NewManager()
	if err != nil {
		return err
	}
	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	ui.PrintSuccess(fmt.Sprintf("Token stored for u/%s", username))
	if !account.ExpiresAt.IsZero() {
		ui.PrintInfo("Expires", account.ExpiresAt.Format(time.RFC1123))
	}
	return nil
}

// readToken reads without echo when stdin is a terminal
func readToken(reader *bufio.Reader) (string, error) {
	fd := int(syscall.Stdin)
	if term.IsTerminal(fd) {
		fmt.Print("Access token: ")
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("failed to read token: %w", err)
		}
		return strings.TrimSpace(string(raw)), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	token := strings.TrimSpace(line)
	if token == "" {
		return "", auth.ErrInvalidCredentials
	}
	return token, nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return err
	}

	var usernames []string
	switch {
	case logoutAllAccs:
		accounts, err := manager.List()
		if err != nil {
			return err
		}
		for _, a := range accounts {
			usernames = append(usernames, a.Username)
		}
	case len(args) > 0:
		usernames = []string{reddit.SanitizeUsername(args[0])}
	default:
		return fmt.Errorf("give a username or --all")
	}

	if len(usernames) == 0 {
		ui.PrintWarning("No stored tokens")
		return nil
	}

	for _, username := range usernames {
		if err := manager.Delete(username); err != nil {
			return fmt.Errorf("failed to remove token for %s: %w", username, err)
		}
		ui.PrintSuccess(fmt.Sprintf("Removed token for u/%s", username))
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return err
	}

	accounts, err := manager.List()
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		ui.PrintWarning("No stored tokens. Run 'redditsaver auth login' to add one")
		return nil
	}

	now := time.Now()
	for _, account := range accounts {
		masked := auth.SanitizeAccount(account)
		ui.PrintInfo("u/"+masked.Username, describeAccount(masked, now))
	}
	return nil
}

func describeAccount(a *auth.Account, now time.Time) string {
	status := "no expiry"
	switch {
	case a.Expired(now):
		status = "expired " + a.ExpiresAt.Format(time.RFC3339)
	case !a.ExpiresAt.IsZero():
		status = "expires " + a.ExpiresAt.Format(time.RFC3339)
	}
	return fmt.Sprintf("%s (%s, updated %s)", a.AccessToken, status, a.LastModified.Format("2006-01-02"))
}
