package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/carnet/internal/auth"
	"github.com/pbaille/carnet/internal/domain"
	"github.com/pbaille/carnet/internal/store"
)

func taskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks linked to contacts",
	}
	cmd.AddCommand(taskAddCmd())
	cmd.AddCommand(taskListCmd())
	cmd.AddCommand(taskDoneCmd())
	cmd.AddCommand(taskDeleteCmd())
	cmd.AddCommand(taskAssignCmd())
	return cmd
}

func taskAddCmd() *cobra.Command {
	var in store.TaskInput
	var contacts []string
	var project int64

	cmd := &cobra.Command{
		Use:   "add [title...]",
		Short: "Create a task for one or more contacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			in.Title = strings.Join(args, " ")
			if in.ContactIDs, err = parseIDs(contacts); err != nil {
				return err
			}
			if project != 0 {
				in.ProjectID = &project
			}

			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.store.CreateTask(a.actor(), in)
			if err != nil {
				return err
			}
			printSuccess("Created task %d", id)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&contacts, "contact", "c", nil, "contact id (repeatable, at least one)")
	cmd.Flags().StringVar(&in.DueDate, "due", "", "due date YYYY-MM-DD")
	cmd.Flags().StringVar(&in.Priority, "priority", "", "basse, moyenne or haute")
	cmd.Flags().StringVar(&in.Status, "status", "", "initial status")
	cmd.Flags().StringVar(&in.Description, "description", "", "details")
	cmd.Flags().Int64Var(&project, "project", 0, "project id")
	return cmd
}

func taskListCmd() *cobra.Command {
	var f store.TaskFilter

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks by due date and priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			tasks, err := a.store.ListTasks(f)
			if err != nil {
				return err
			}
			printTasks(tasks)
			return nil
		},
	}

	cmd.Flags().Int64Var(&f.ContactID, "contact", 0, "contact id")
	cmd.Flags().Int64Var(&f.ProjectID, "project", 0, "project id")
	cmd.Flags().StringVar(&f.Priority, "priority", "", "exact priority")
	cmd.Flags().StringVar(&f.Status, "status", "", "exact status")
	cmd.Flags().StringVar(&f.Due, "due", "", "today, week or month")
	return cmd
}

func printTasks(tasks []domain.Task) {
	if len(tasks) == 0 {
		printMuted("No tasks.")
		return
	}
	rows := make([][]string, len(tasks))
	for i, t := range tasks {
		project := ""
		if t.ProjectID != nil {
			project = idString(*t.ProjectID)
		}
		rows[i] = []string{idString(t.ID), t.DueDate, truncate(t.Title, 40), t.Priority, t.Status, project}
	}
	printTable([]string{"ID", "Due", "Title", "Priority", "Status", "Project"}, rows)
}

func taskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done [id]",
		Short: "Mark a task as done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.CompleteTask(a.actor(), id); err != nil {
				return err
			}
			printSuccess("Task %d done", id)
			return nil
		},
	}
}

func taskDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.DeleteTask(a.actor(), id); err != nil {
				return err
			}
			printSuccess("Deleted task %d", id)
			return nil
		},
	}
}

func taskAssignCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assign [task-id] [project-id|none]",
		Short: "Move a task into a project, or out of it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			taskID, err := parseID(args[0])
			if err != nil {
				return err
			}
			var projectID *int64
			if args[1] != "none" {
				id, err := parseID(args[1])
				if err != nil {
					return err
				}
				projectID = &id
			}

			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.AssignTaskToProject(a.actor(), taskID, projectID); err != nil {
				return err
			}
			printSuccess("Task %d moved", taskID)
			return nil
		},
	}
}

func projectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Group tasks into projects",
	}
	cmd.AddCommand(projectAddCmd())
	cmd.AddCommand(projectListCmd())
	cmd.AddCommand(projectShowCmd())
	cmd.AddCommand(projectDeleteCmd())
	return cmd
}

func projectAddCmd() *cobra.Command {
	var in store.ProjectInput

	cmd := &cobra.Command{
		Use:   "add [name...]",
		Short: "Create a project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = strings.Join(args, " ")

			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.store.CreateProject(a.actor(), in)
			if err != nil {
				return err
			}
			printSuccess("Created project %d", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Description, "description", "", "details")
	cmd.Flags().StringVar(&in.Goal, "goal", "", "expected outcome")
	cmd.Flags().StringVar(&in.StartDate, "start", "", "start date YYYY-MM-DD")
	cmd.Flags().StringVar(&in.PlannedEndDate, "end", "", "planned end date YYYY-MM-DD")
	return cmd
}

func progress(st *domain.ProjectStats) string {
	if st == nil {
		return ""
	}
	return fmt.Sprintf("%d/%d (%.0f%%)", st.Done, st.Total, st.Progress)
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects with their progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			projects, err := a.store.ListProjects()
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				printMuted("No projects.")
				return nil
			}
			rows := make([][]string, len(projects))
			for i, p := range projects {
				rows[i] = []string{idString(p.ID), p.Name, p.PlannedEndDate, progress(p.Stats)}
			}
			printTable([]string{"ID", "Project", "Planned end", "Done"}, rows)
			return nil
		},
	}
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a project, its tasks and contacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(auth.ActionView)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := a.store.GetProject(id)
			if err != nil {
				return err
			}
			fmt.Println(primaryStyle.Render(p.Name))
			field("Goal", p.Goal)
			field("Description", p.Description)
			field("Start", p.StartDate)
			field("Planned end", p.PlannedEndDate)
			field("Done", progress(p.Stats))
			if p.Stats != nil {
				field("In progress", strconv.Itoa(p.Stats.InProgress))
				field("To do", strconv.Itoa(p.Stats.Todo))
			}

			tasks, err := a.store.ListTasks(store.TaskFilter{ProjectID: id})
			if err != nil {
				return err
			}
			section("Tasks")
			printTasks(tasks)

			if len(p.Contacts) > 0 {
				names := make([]string, len(p.Contacts))
				for i, c := range p.Contacts {
					names[i] = c.DisplayName()
				}
				section("Contacts")
				fmt.Println("  " + strings.Join(names, ", "))
			}
			return nil
		},
	}
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a project; its tasks are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.DeleteProject(a.actor(), id); err != nil {
				return err
			}
			printSuccess("Deleted project %d", id)
			return nil
		},
	}
}
