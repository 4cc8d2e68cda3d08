package cli

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "studier",
	Short: "Gamified study task tracker",
	Long: "studier is a task list that pays out XP, levels, streaks, daily quests and badges.\n" +
		"Everything lives in .studier/ in the current directory.",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadEnv,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(boardCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(questsCmd)
	rootCmd.AddCommand(badgesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(premiumCmd)
	rootCmd.AddCommand(configCmd)
}

// loadEnv picks up secrets such as STRIPE_SECRET_KEY from .studier/.env.
// Variables already set in the environment win.
func loadEnv(cmd *cobra.Command, args []string) error {
	err := godotenv.Load(studierPath(".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
