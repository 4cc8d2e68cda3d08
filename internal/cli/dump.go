package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var dumpJSON bool

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the raw stored state",
	Long:  "Print every stored studier_* value as it sits in the database. Useful for backups and bug reports.",
	Args:  cobra.NoArgs,
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().BoolVar(&dumpJSON, "json", false, "Output as JSON")
}

func runDump(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.Entries(cmd.Context(), "studier_")
	if err != nil {
		return err
	}

	if dumpJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		fmt.Println("Nothing stored yet.")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("%s%-24s%s %s%s%s  %s\n",
			colorCyan, e.Key, colorReset,
			colorDim, e.UpdatedAt.Local().Format("2006-01-02 15:04:05"), colorReset,
			truncate(e.Value, 100))
	}
	return nil
}
