package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/imkarma/studier/internal/game"
)

var (
	taskDifficulty  string
	taskDescription string
	taskTitle       string
	taskOpenOnly    bool
	taskDoneOnly    bool
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Create or manage tasks",
	Long:  "Create new study tasks, complete them for XP, or tidy up the list.",
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a task (opens a form when no title is given)",
	RunE:  runTaskAdd,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE:  runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show task details",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskDoneCmd = &cobra.Command{
	Use:   "done [id]",
	Short: "Complete a task and collect its XP",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDone,
}

var taskEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Change the title or description of an open task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskEdit,
}

var taskRmCmd = &cobra.Command{
	Use:     "rm [id]",
	Aliases: []string{"delete"},
	Short:   "Delete a task (earned XP and badges are kept)",
	Args:    cobra.ExactArgs(1),
	RunE:    runTaskRm,
}

func init() {
	taskAddCmd.Flags().StringVarP(&taskDifficulty, "difficulty", "x", "medium", "Difficulty: "+game.DifficultyNames())
	taskAddCmd.Flags().StringVarP(&taskDescription, "desc", "d", "", "Task description")

	taskListCmd.Flags().BoolVar(&taskOpenOnly, "open", false, "Only open tasks")
	taskListCmd.Flags().BoolVar(&taskDoneOnly, "done", false, "Only completed tasks")

	taskEditCmd.Flags().StringVarP(&taskTitle, "title", "t", "", "New title")
	taskEditCmd.Flags().StringVarP(&taskDescription, "desc", "d", "", "New description")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskEditCmd)
	taskCmd.AddCommand(taskRmCmd)
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	title := strings.Join(args, " ")
	desc := taskDescription
	diffName := taskDifficulty

	if title == "" {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("no title given (stdin is not a terminal); pass it as an argument")
		}
		if err := runTaskForm(&title, &desc, &diffName); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}

	difficulty, err := game.ParseDifficulty(diffName)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	a.announce()

	task, _, err := a.tracker.AddTask(cmd.Context(), title, desc, difficulty)
	if err != nil {
		return err
	}
	fmt.Printf("  %s%s%s · worth %d XP\n", difficultyColor(task.Difficulty), task.Difficulty, colorReset, task.Difficulty.XP())
	return nil
}

func runTaskForm(title, desc, difficulty *string) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Task").
				Description("What do you need to study?").
				Validate(validateTitle).
				Value(title),
			huh.NewText().
				Title("Description").
				Description("Optional notes").
				Value(desc),
			huh.NewSelect[string]().
				Title("Difficulty").
				Options(difficultyOptions()...).
				Value(difficulty),
		),
	).Run()
}

func difficultyOptions() []huh.Option[string] {
	opts := make([]huh.Option[string], 0, len(game.Difficulties))
	for _, d := range game.Difficulties {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (+%d XP)", d, d.XP()), string(d)))
	}
	return opts
}

func validateTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

func runTaskList(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	snap, err := a.tracker.Snapshot(cmd.Context())
	if err != nil {
		return err
	}

	var shown int
	for _, t := range snap.State.Tasks {
		if (taskOpenOnly && t.Completed) || (taskDoneOnly && !t.Completed) {
			continue
		}
		shown++
		check := "[ ]"
		title := t.Title
		if t.Completed {
			check = colorGreen + "[x]" + colorReset
			title = colorDim + title + colorReset
		}
		fmt.Printf("%s %s#%-13d%s %s%-6s%s %s+%-2d%s %s\n",
			check,
			colorCyan, t.ID, colorReset,
			difficultyColor(t.Difficulty), t.Difficulty, colorReset,
			colorYellow, t.Difficulty.XP(), colorReset,
			truncate(title, 80))
	}

	if shown == 0 {
		fmt.Println("No tasks found.")
	}
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	task, err := a.tracker.Task(cmd.Context(), id)
	if err != nil {
		return err
	}

	status := "open"
	if task.Completed {
		status = "completed"
	}
	fmt.Printf("Task #%d\n", task.ID)
	fmt.Printf("  Title:      %s\n", task.Title)
	if task.Description != "" {
		fmt.Printf("  Desc:       %s\n", task.Description)
	}
	fmt.Printf("  Difficulty: %s%s%s (+%d XP)\n", difficultyColor(task.Difficulty), task.Difficulty, colorReset, task.Difficulty.XP())
	fmt.Printf("  Status:     %s\n", status)
	fmt.Printf("  Created:    %s\n", task.CreatedAt.Local().Format("2006-01-02 15:04"))
	if task.CompletedAt != nil {
		fmt.Printf("  Completed:  %s\n", task.CompletedAt.Local().Format("2006-01-02 15:04"))
	}

	events, err := a.store.GetEvents(cmd.Context(), id)
	if err != nil {
		return err
	}
	if len(events) > 0 {
		fmt.Println("\n  Events:")
		for _, e := range events {
			fmt.Printf("    %s %s: %s\n", e.Timestamp.Local().Format("2006-01-02 15:04"), e.Type, e.Content)
		}
	}

	return nil
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// Subscribe first: the lookup below may be the first load of a new day
	// and carry the quest reset or a lost streak.
	a.announce()

	ctx := cmd.Context()
	task, err := a.tracker.Task(ctx, id)
	if err != nil {
		return err
	}
	if task.Completed {
		fmt.Printf("Task #%d is already done\n", id)
		return nil
	}

	if _, err := a.tracker.CompleteTask(ctx, id); err != nil {
		return err
	}
	return printProgress(ctx, a)
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("title") && !cmd.Flags().Changed("desc") {
		return fmt.Errorf("nothing to change: pass --title and/or --desc")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.announce()

	ctx := cmd.Context()
	task, err := a.tracker.Task(ctx, id)
	if err != nil {
		return err
	}

	title, desc := task.Title, task.Description
	if cmd.Flags().Changed("title") {
		title = taskTitle
	}
	if cmd.Flags().Changed("desc") {
		desc = taskDescription
	}

	_, err = a.tracker.EditTask(ctx, id, title, desc)
	return err
}

func runTaskRm(cmd *cobra.Command, args []string) error {
	id, err := parseTaskID(args[0])
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.announce()
	events, err := a.tracker.DeleteTask(cmd.Context(), id)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Printf("No task #%d, nothing deleted\n", id)
	}
	return nil
}

// printProgress prints the level line shown after a completion.
func printProgress(ctx context.Context, a *app) error {
	snap, err := a.tracker.Snapshot(ctx)
	if err != nil {
		return err
	}
	p := snap.State.Progression
	into, width := p.LevelProgress()
	fmt.Printf("\n%sLevel %d%s %s %d/%d XP", colorBold, p.Level, colorReset, progressBar(into, width, 20), into, width)
	if p.Streak > 0 {
		fmt.Printf("  %s🔥 %d%s", colorYellow, p.Streak, colorReset)
	}
	fmt.Println()
	return nil
}
