package cli

import (
	"errors"
	"fmt"

	"github.com/hay-kot/criterio"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check .studier/config.yaml and report every problem",
	RunE:  runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	_, err := loadConfig()
	if err == nil {
		fmt.Printf("%s✓%s %s is valid\n", colorGreen, colorReset, studierPath(configFileName))
		return nil
	}

	var fe criterio.FieldErrors
	if !errors.As(err, &fe) {
		return err
	}
	fmt.Printf("%s✗ %s has %d problem(s):%s\n", colorRed, studierPath(configFileName), len(fe), colorReset)
	for _, f := range fe {
		fmt.Printf("  %s%s%s: %v\n", colorYellow, f.Field, colorReset, f.Err)
	}
	return fmt.Errorf("invalid config")
}
