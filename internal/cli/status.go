package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imkarma/studier/internal/payment"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Quick progress overview",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.announce() // day-change events such as a lost streak
	snap, err := a.tracker.Snapshot(cmd.Context())
	if err != nil {
		return err
	}

	st := snap.State
	p := st.Progression
	into, width := p.LevelProgress()

	fmt.Printf("%sLevel %d%s  %s  %d/%d XP  %s(%d total)%s\n",
		colorBold+colorMagenta, p.Level, colorReset, progressBar(into, width, 24), into, width, colorDim, p.XP, colorReset)

	if p.Streak > 0 {
		fmt.Printf("%s🔥 %d day streak%s", colorYellow, p.Streak, colorReset)
	} else {
		fmt.Printf("%sNo active streak%s", colorDim, colorReset)
	}
	if !p.LastCompletion.IsZero() {
		fmt.Printf("  %slast completion %s%s", colorDim, p.LastCompletion, colorReset)
	}
	fmt.Println()

	open := len(st.Tasks) - st.Tasks.CompletedCount()
	fmt.Printf("\n%sTasks:%s %d open, %s%d done%s (%d hard)\n",
		colorBold, colorReset, open, colorGreen, st.Tasks.CompletedCount(), colorReset, st.Tasks.HardCompletedCount())

	questsDone := 0
	for _, q := range snap.Quests {
		if q.Completed {
			questsDone++
		}
	}
	fmt.Printf("%sQuests:%s %d/%d today, %d XP earned today\n",
		colorBold, colorReset, questsDone, len(snap.Quests), st.Quests.XPEarnedToday)
	fmt.Printf("%sBadges:%s %d/%d\n", colorBold, colorReset, len(st.Badges), len(snap.Badges))

	plan := colorDim + "free" + colorReset
	if snap.Subscription.Plan == payment.PlanPremium {
		plan = colorBlue + colorBold + "premium" + colorReset
	}
	fmt.Printf("%sPlan:%s   %s\n", colorBold, colorReset, plan)

	if len(st.Tasks) == 0 {
		fmt.Printf("\nNo tasks. Run: %sstudier task add \"description\"%s\n", colorCyan, colorReset)
	}
	return nil
}
