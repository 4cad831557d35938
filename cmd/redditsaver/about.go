package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"redditsaver/pkg/logger"
	"redditsaver/pkg/saver"
	"redditsaver/pkg/ui"
)

var aboutJSON bool

// aboutCmd represents the about command
var aboutCmd = &cobra.Command{
	Use:   "about [username]",
	Short: "Show the profile of an account",
	Example: `  redditsaver about spez
  redditsaver about spez --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAbout,
}

func init() {
	rootCmd.AddCommand(aboutCmd)
	aboutCmd.Flags().BoolVar(&aboutJSON, "json", false, "print the profile as JSON on stdout")
}

func runAbout(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil)
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

	svc := saver.New(cfg, manager, logger.GetLogger())
	profile, err := svc.About(ctx, username)
	if err != nil {
		explain(err)
		return err
	}

	if aboutJSON {
		data, err := json.MarshalIndent(profile, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode profile: %w", err)
		}
		ui.PrintRaw(string(data) + "\n")
		return nil
	}

	ui.PrintProfile(profile)
	return nil
}
