package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/jjspscl/hunt-st-assessment/internal/domain"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		tasks, err := a.svc.ListTasks(ctx)
		if err != nil {
			return err
		}
		return printTasks(cmd.OutOrStdout(), tasks)
	},
}

var tasksShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show a task and its notes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		resp, err := a.svc.GetTaskWithDetails(ctx, args[0])
		if err != nil {
			return err
		}
		out, err := renderTask(resp, plainOutput)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

var plainOutput bool

func init() {
	tasksCmd.AddCommand(tasksListCmd, tasksShowCmd)
	tasksShowCmd.Flags().BoolVar(&plainOutput, "plain", false, "Print raw markdown")
}

func printTasks(w io.Writer, tasks []domain.Task) error {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tTITLE\tCREATED")
	for _, t := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Status, t.Title, t.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// taskMarkdown lays a task out as markdown: a heading, the status, then each
// note in order.
func taskMarkdown(resp *domain.TaskDetailResponse) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", resp.Task.Title)
	fmt.Fprintf(&sb, "**Status:** %s  \n**ID:** `%s`\n\n", resp.Task.Status, resp.Task.ID)
	if len(resp.Details) == 0 {
		sb.WriteString("_No notes._\n")
		return sb.String()
	}
	for i, d := range resp.Details {
		fmt.Fprintf(&sb, "## Note %d\n\n%s\n\n", i+1, strings.TrimSpace(d.Content))
	}
	return sb.String()
}

func renderTask(resp *domain.TaskDetailResponse, plain bool) (string, error) {
	md := taskMarkdown(resp)
	if plain {
		return md, nil
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return renderer.Render(md)
}
