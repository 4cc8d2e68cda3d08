package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/imkarma/studier/internal/logging"
	"github.com/imkarma/studier/internal/tui"
)

var boardCmd = &cobra.Command{
	Use:     "board",
	Aliases: []string{"ui"},
	Short:   "Open the interactive board",
	Long:    "Opens the interactive board: tasks, level and streak, daily quests and badges.",
	RunE:    runBoard,
}

func runBoard(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	p := tea.NewProgram(tui.New(a.tracker), tea.WithAltScreen())

	// Pick up changes made from another terminal or the web server.
	stop, err := tui.StartWatcher(studierPath(dbFileName), p, logging.Component("watcher"))
	if err != nil {
		log := logging.Component("board")
		log.Warn().Err(err).Msg("file watcher disabled")
	} else {
		defer stop()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
