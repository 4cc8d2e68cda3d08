package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var questsCmd = &cobra.Command{
	Use:   "quests",
	Short: "Show today's daily quests",
	RunE:  runQuests,
}

func runQuests(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.announce()
	snap, err := a.tracker.Snapshot(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("%sDaily quests for %s%s\n\n", colorBold, snap.Today, colorReset)
	for _, q := range snap.Quests {
		mark := colorDim + "○" + colorReset
		if q.Completed {
			mark = colorGreen + "✓" + colorReset
		}
		fmt.Printf("%s %s %s%s%s  %s+%d XP%s\n", mark, q.Icon, colorBold, q.Title, colorReset, colorYellow, q.Reward, colorReset)
		fmt.Printf("    %s%s%s\n", colorDim, q.Description, colorReset)
		fmt.Printf("    %s %d/%d (%d%%)\n", progressBar(q.Progress, q.Target, 20), min(q.Progress, q.Target), q.Target, q.Percent())
	}
	return nil
}
