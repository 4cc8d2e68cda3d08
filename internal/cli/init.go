package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/imkarma/studier/internal/config"
)

var initEmail string

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize studier in the current directory",
	Long:  "Creates a .studier/ directory with a default config and an empty database.",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().StringVar(&initEmail, "email", "", "Email used for premium checkout")
}

func runInit(cmd *cobra.Command, args []string) error {
	// Check if already initialized.
	if _, err := os.Stat(studierDirName); err == nil {
		return fmt.Errorf("studier already initialized in this directory (%s/ exists)", studierDirName)
	}

	if err := os.MkdirAll(studierDirName, 0755); err != nil {
		return fmt.Errorf("create %s: %w", studierDirName, err)
	}

	cfg := config.DefaultConfig()
	cfg.Profile.Email = initEmail
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(studierPath(configFileName), cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	// Opening the store runs the migrations.
	store, err := openStore(studierPath(dbFileName))
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	store.Close()

	fmt.Printf("Initialized studier in %s/\n", studierDirName)
	fmt.Println("")
	fmt.Println("Next steps:")
	fmt.Println("  1. Run: studier task add \"Read chapter 1\" --difficulty easy")
	fmt.Println("  2. Run: studier task done <id>")
	fmt.Println("  3. Run: studier board")

	return nil
}
