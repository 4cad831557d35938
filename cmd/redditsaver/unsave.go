package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"redditsaver/internal/unsaver"
	"redditsaver/pkg/fetcher"
	"redditsaver/pkg/logger"
	"redditsaver/pkg/saver"
	"redditsaver/pkg/storage"
	"redditsaver/pkg/ui"
)

var (
	// unsave command flags
	unsaveFrom        string
	unsaveAll         bool
	unsaveConcurrency int
	assumeYes         bool
)

// unsaveCmd represents the unsave command
var unsaveCmd = &cobra.Command{
	Use:   "unsave [fullname...]",
	Short: "Remove items from the saved list",
	Long: `Remove items from an account's saved list.

Items are given by fullname (t3_ for posts, t1_ for comments), read from an
export written by 'redditsaver saved --export', or, with --all, taken from a
fresh fetch. Repeated fullnames in an export are unsaved once.`,
	Example: `  # Unsave two items
  redditsaver unsave t3_abc123 t1_def456 --account spez

  # Unsave everything in an export
  redditsaver unsave --from ./saved/spez_saved.json

  # Fetch and unsave everything, without confirmation
  redditsaver unsave --all --account spez --yes`,
	RunE: runUnsave,
}

func init() {
	rootCmd.AddCommand(unsaveCmd)

	unsaveCmd.Flags().StringVar(&unsaveFrom, "from", "", "unsave every item in this export file")
	unsaveCmd.Flags().BoolVar(&unsaveAll, "all", false, "fetch the saved listing and unsave every item")
	unsaveCmd.Flags().IntVar(&unsaveConcurrency, "concurrency", 0, "number of concurrent unsave calls (default 3)")
	unsaveCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	unsaveCmd.Flags().StringP("account", "a", "", "account whose saved list is modified")
}

func runUnsave(cmd *cobra.Command, args []string) error {
	sources := 0
	if len(args) > 0 {
		sources++
	}
	if unsaveFrom != "" {
		sources++
	}
	if unsaveAll {
		sources++
	}
	if sources != 1 {
		return fmt.Errorf("give fullnames, --from or --all (exactly one)")
	}

	cfg, err := loadConfig(map[string]interface{}{"concurrency": unsaveConcurrency})
	if err != nil {
		return err
	}

	ctx, stop := commandContext(cfg)
	defer stop()

	manager := credentialManager()
	var accountArgs []string
	if account, _ := cmd.Flags().GetString("account"); account != "" {
		accountArgs = []string{account}
	}

	svc := saver.New(cfg, manager, logger.GetLogger())

	var (
		username  string
		fullnames []string
	)

	switch {
	case unsaveFrom != "":
		doc, err := storage.Load(unsaveFrom)
		if err != nil {
			return err
		}
		username = doc.Account
		if len(accountArgs) > 0 {
			username = accountArgs[0]
		}
		fullnames = namesOf(&doc.ResultSet)
		ui.PrintInfo("Export", fmt.Sprintf("%s (%d items, run %s)", unsaveFrom, len(fullnames), doc.RunID))

	case unsaveAll:
		username, err = resolveUsername(accountArgs, cfg, manager)
		if err != nil {
			return err
		}
		rs, err := svc.Saved(ctx, username)
		if err != nil {
			explain(err)
			return err
		}
		fullnames = namesOf(rs)

	default:
		username, err = resolveUsername(accountArgs, cfg, manager)
		if err != nil {
			return err
		}
		fullnames = args
	}

	if len(fullnames) == 0 {
		ui.PrintSuccess("Nothing to unsave")
		return nil
	}

	if !assumeYes && !confirm(fmt.Sprintf("Unsave %d items from u/%s?", len(fullnames), username)) {
		ui.PrintWarning("Aborted")
		return nil
	}

	results, err := svc.Unsave(ctx, username, fullnames)
	succeeded, failed := unsaver.Summarize(results)
	ui.PrintInfo("Unsaved", fmt.Sprint(succeeded))
	if failed > 0 {
		ui.PrintInfo("Failed", fmt.Sprint(failed))
		for _, r := range results {
			if !r.Success {
				ui.PrintError(r.Job.Fullname, r.Error)
			}
		}
	}
	if err != nil {
		explain(err)
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d items could not be unsaved", failed, len(fullnames))
	}

	ui.PrintSuccess("All items unsaved")
	return nil
}

// namesOf returns the distinct fullnames in fetch order
func namesOf(rs *fetcher.ResultSet) []string {
	var names []string
	for _, item := range rs.UniqueItems() {
		if name := item.Name(); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func confirm(question string) bool {
	fmt.Printf("%s (y/N): ", question)
	input, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y")
}
