package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	errs "redditsaver/pkg/errors"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/saver"
	"redditsaver/pkg/storage"
	"redditsaver/pkg/ui"
)

var (
	// saved command flags
	maxPages     int
	maxItems     int
	pageTimeout  int
	retryPages   bool
	maxAttempts  int
	exportResult bool
	exportFormat string
	outputDir    string
	showItems    int
	printJSON    bool
	notify       bool
)

// savedCmd represents the saved command
var savedCmd = &cobra.Command{
	Use:   "saved [username]",
	Short: "Fetch every saved item of an account",
	Long: `Fetch the complete saved listing of a Reddit account.

Pages of up to 100 items are requested one after another, each using the
cursor returned by the previous page, until Reddit reports no next page.
Any page failure aborts the run and nothing is returned; use --retry to
retry transient failures of a single page.

The bearer token is taken from, in order:
  - --access-token / REDDITSAVER_ACCESS_TOKEN / reddit.access_token
  - the token stored with 'redditsaver auth login'`,
	Example: `  # Fetch and summarize
  redditsaver saved spez

  # Fetch and write ./saved/spez_saved.yaml
  redditsaver saved spez --export --format yaml

  # Stop after 5 pages, retrying each page up to 4 times
  redditsaver saved spez --max-pages 5 --retry --max-attempts 4

  # Pipe the raw result set
  redditsaver saved spez --json -q | jq '.processed'`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSaved,
}

func init() {
	rootCmd.AddCommand(savedCmd)

	savedCmd.Flags().IntVar(&maxPages, "max-pages", 0, "maximum number of pages to request (default 1000)")
	savedCmd.Flags().IntVar(&maxItems, "max-items", 0, "stop with an error once this many items were processed (0 = no cap)")
	savedCmd.Flags().IntVar(&pageTimeout, "page-timeout", 0, "timeout per page in seconds (default 30)")
	savedCmd.Flags().BoolVar(&retryPages, "retry", false, "retry transient page failures")
	savedCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "attempts per page when --retry is set (default 3)")
	savedCmd.Flags().BoolVarP(&exportResult, "export", "e", false, "write the result set to the output directory")
	savedCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "export format: json or yaml")
	savedCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory for exports")
	savedCmd.Flags().IntVar(&showItems, "show", 20, "number of items to list (0 = all, -1 = none)")
	savedCmd.Flags().BoolVar(&printJSON, "json", false, "print the result set as JSON on stdout")
	savedCmd.Flags().BoolVar(&notify, "notify", false, "send a desktop notification when done")
	savedCmd.Flags().String("access-token", "", "bearer token to use instead of stored credentials")
}

func savedFlags(cmd *cobra.Command) map[string]interface{} {
	flags := map[string]interface{}{
		"max-pages":    maxPages,
		"max-items":    maxItems,
		"page-timeout": pageTimeout,
		"max-attempts": maxAttempts,
		"output":       outputDir,
		"format":       exportFormat,
	}
	if cmd.Flags().Changed("retry") {
		flags["retry"] = retryPages
	}
	if token, _ := cmd.Flags().GetString("access-token"); token != "" {
		flags["access-token"] = token
	}
	return flags
}

func runSaved(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(savedFlags(cmd))
	if err != nil {
		return err
	}

	ctx, stop := commandContext(cfg)
	defer stop()

	manager := credentialManager()
	username, err := resolveUsername(args, cfg, manager)
	if err != nil {
		return err
	}

	log := logger.GetLogger().WithField("username", username)
	svc := saver.New(cfg, manager, log)

	ui.PrintInfo("Account", "u/"+username)
	tracker := ui.NewStatusTracker(cfg.Fetch.MaxPages)
	svc.SetProgress(tracker.Update)

	rs, err := svc.Saved(ctx, username)
	tracker.Finish()
	if err != nil {
		explain(err)
		if notify {
			ui.NewNotifier().SendError("redditsaver", "Fetch failed for u/"+username)
		}
		return err
	}

	if printJSON {
		data, err := json.MarshalIndent(rs, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result set: %w", err)
		}
		ui.PrintRaw(string(data) + "\n")
	}

	ui.PrintRunSummary(rs)
	if showItems >= 0 {
		ui.PrintItems(rs.Items(), showItems)
	}

	if exportResult {
		path, err := svc.Export(rs, storage.Format(strings.ToLower(cfg.Output.Format)))
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		ui.PrintInfo("Exported", path)
	}

	if notify {
		ui.NewNotifier().SendSuccess("redditsaver", fmt.Sprintf("Fetched %d saved items for u/%s", rs.Processed, username))
	}
	return nil
}

// explain prints a hint matching the error kind
func explain(err error) {
	switch {
	case errs.IsAuth(err):
		ui.PrintWarning("The access token was rejected or has expired. Store a fresh one with 'redditsaver auth login'")
	case errs.Is(err, errs.ErrorTypeLimitExceeded):
		ui.PrintWarning("The listing is longer than the configured cap. Raise --max-pages or --max-items")
	case errs.Is(err, errs.ErrorTypeCancelled):
		ui.PrintWarning("Interrupted. No partial results were kept")
	case errs.IsDecode(err):
		ui.PrintWarning("Reddit returned a response that is not a saved listing")
	case errs.IsTransport(err):
		ui.PrintWarning("Reddit could not be reached or returned an error. Try again or pass --retry")
	}
}
