package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/imkarma/studier/internal/store"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log [task-id]",
	Short: "Show the activity log, or the events of one task",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLog,
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "Number of recent events to show")
}

func runLog(cmd *cobra.Command, args []string) error {
	s, err := mustStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	var events []store.Event
	if len(args) == 1 {
		id, err := parseTaskID(args[0])
		if err != nil {
			return err
		}
		events, err = s.GetEvents(ctx, id)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Printf("No events for task #%d\n", id)
			return nil
		}
		fmt.Printf("Events for task #%d:\n\n", id)
	} else {
		events, err = s.RecentEvents(ctx, logLimit)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("No activity yet.")
			return nil
		}
	}

	for _, e := range events {
		task := ""
		if e.TaskID != 0 {
			task = fmt.Sprintf("%s#%d%s ", colorCyan, e.TaskID, colorReset)
		}
		fmt.Printf("  %s%s%s  %-18s %s%s\n", colorDim, e.Timestamp.Local().Format("2006-01-02 15:04:05"), colorReset, e.Type, task, e.Content)
	}
	return nil
}
