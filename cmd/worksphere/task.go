package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tgienger/worksphere/internal/api"
	"github.com/tgienger/worksphere/internal/models"
	"github.com/tgienger/worksphere/internal/store"
)

func (a *app) taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Work with tasks through the API",
	}
	cmd.PersistentFlags().Bool("json", false, "print JSON instead of a table")

	cmd.AddCommand(a.taskListCmd())
	cmd.AddCommand(a.taskShowCmd())
	cmd.AddCommand(a.taskCreateCmd())
	cmd.AddCommand(a.taskUpdateCmd())
	cmd.AddCommand(a.taskHistoryCmd())
	return cmd
}

// caller returns the API client and caller id, or an error when no identity is set
func (a *app) caller() (*api.Client, string, error) {
	if a.cfg.API.UserID == "" {
		return nil, "", errNoUser
	}
	return a.client(a.logger), a.cfg.API.UserID, nil
}

func wantJSON(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) taskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List a project's tasks in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, callerID, err := a.caller()
			if err != nil {
				return err
			}
			tasks, err := client.ListProjectTasks(cmd.Context(), args[0], callerID)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), tasks)
			}
			return writeTaskTable(cmd.OutOrStdout(), tasks)
		},
	}
}

func writeTaskTable(w io.Writer, tasks []models.Task) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPRIORITY\tDUE\tVERSION\tTITLE")
	for _, t := range tasks {
		title := t.Title
		if t.IsLocked {
			title += " (locked)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", t.ID, t.StatusCode, t.PriorityCode, t.DueDate, t.RowVersion, title)
	}
	return tw.Flush()
}

func (a *app) taskShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task with its subtasks and comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, callerID, err := a.caller()
			if err != nil {
				return err
			}
			task, err := client.GetTask(cmd.Context(), args[0], callerID)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), task)
			}
			writeTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
}

func writeTask(w io.Writer, t *models.Task) {
	fmt.Fprintf(w, "%s  %s\n", t.ID, t.Title)
	fmt.Fprintf(w, "status %s · priority %s · type %s · version %d\n", t.StatusCode, t.PriorityCode, t.TypeCode, t.RowVersion)
	if t.IsLocked {
		fmt.Fprintln(w, "locked")
	}
	if t.StartDate != "" || t.DueDate != "" {
		fmt.Fprintf(w, "dates %s → %s\n", t.StartDate, t.DueDate)
	}
	if t.Description != "" {
		fmt.Fprintf(w, "\n%s\n", t.Description)
	}
	if len(t.Subtasks) > 0 {
		fmt.Fprintln(w, "\nSubtasks")
		for _, s := range t.Subtasks {
			mark := " "
			if s.StatusCode == models.StatusDone {
				mark = "x"
			}
			fmt.Fprintf(w, "  [%s] %s\n", mark, s.Title)
		}
	}
	if len(t.Comments) > 0 {
		fmt.Fprintln(w, "\nComments")
		for _, c := range t.Comments {
			fmt.Fprintf(w, "  %s: %s\n", c.CreatorName, c.Content)
		}
	}
	fmt.Fprintf(w, "\nlogged %d minutes\n", t.TotalLoggedMinutes)
}

func (a *app) taskCreateCmd() *cobra.Command {
	var in models.NewTask
	cmd := &cobra.Command{
		Use:   "create <project-id> <title>",
		Short: "Create a task at the end of a project",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, callerID, err := a.caller()
			if err != nil {
				return err
			}
			in.ProjectID, in.Title = args[0], args[1]
			task, err := client.CreateTask(cmd.Context(), callerID, in)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), task)
			}
			fmt.Fprintln(cmd.OutOrStdout(), task.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Description, "description", "", "task description")
	cmd.Flags().StringVar(&in.PriorityCode, "priority", "", "priority code")
	cmd.Flags().StringVar(&in.TypeCode, "type", "", "type code")
	cmd.Flags().StringVar(&in.StartDate, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&in.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringSliceVar(&in.AssigneeIDs, "assignee", nil, "assignee user id (repeatable)")
	return cmd
}

// parseAssignments turns field=value pairs into an update body. List fields
// take comma-separated ids.
func parseAssignments(pairs []string) (map[string]any, error) {
	fields := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected field=value, got %q", pair)
		}
		switch name {
		case "assignee_ids", "tag_ids":
			ids := []string{}
			if value != "" {
				ids = strings.Split(value, ",")
			}
			fields[name] = ids
		default:
			fields[name] = value
		}
	}
	return fields, nil
}

func (a *app) taskUpdateCmd() *cobra.Command {
	var version int64
	cmd := &cobra.Command{
		Use:   "update <task-id> field=value...",
		Short: "Update task fields",
		Long: `Update task fields.

With --version the write only succeeds if the task is still at that
row_version; otherwise the server answers with a conflict. Without it
the write is unconditional.

Examples:
  worksphere task update t-123 status_code=DONE --version 4
  worksphere task update t-123 assignee_ids=u1,u2`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, callerID, err := a.caller()
			if err != nil {
				return err
			}
			fields, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("version") {
				fields[store.RowVersionField] = version
			}
			if err := client.UpdateTask(cmd.Context(), args[0], callerID, fields); err != nil {
				if ce, ok := api.IsConflict(err); ok {
					return fmt.Errorf("task changed since version %d: %s", version, ce.Message)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "updated")
			return nil
		},
	}
	cmd.Flags().Int64Var(&version, "version", 0, "expected row_version")
	return cmd
}

func (a *app) taskHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <task-id>",
		Short: "Show a task's audit trail, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, callerID, err := a.caller()
			if err != nil {
				return err
			}
			items, err := client.TaskHistory(cmd.Context(), args[0], callerID)
			if err != nil {
				return err
			}
			if wantJSON(cmd) {
				return printJSON(cmd.OutOrStdout(), items)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tWHO\tACTION\tDETAILS")
			for _, h := range items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", h.CreatedAt.Local().Format("2006-01-02 15:04"), h.UserName, h.ActionText, h.Details)
			}
			return tw.Flush()
		},
	}
}
