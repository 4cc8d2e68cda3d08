package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var badgesCmd = &cobra.Command{
	Use:   "badges",
	Short: "Show earned and locked badges",
	RunE:  runBadges,
}

func runBadges(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.tracker.Snapshot(cmd.Context())
	if err != nil {
		return err
	}

	for _, b := range snap.Badges {
		if b.Earned {
			fmt.Printf("%s %s%-16s%s %s\n", b.Icon, colorBold+colorGreen, b.Name, colorReset, b.Description)
			continue
		}
		fmt.Printf("🔒 %s%-16s %s (%d/%d)%s\n", colorDim, b.Name, b.Description, min(b.Current, b.Requirement), b.Requirement, colorReset)
	}
	return nil
}
