package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaille/carnet/internal/auth"
	"github.com/pbaille/carnet/internal/domain"
	"github.com/pbaille/carnet/internal/store"
)

func interactionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "interaction",
		Aliases: []string{"log"},
		Short:   "Log exchanges with contacts",
	}
	cmd.AddCommand(interactionAddCmd())
	cmd.AddCommand(interactionListCmd())
	cmd.AddCommand(interactionDeleteCmd())
	return cmd
}

func interactionAddCmd() *cobra.Command {
	var in store.InteractionInput
	var at string

	cmd := &cobra.Command{
		Use:   "add [contact-id] [kind] [description...]",
		Short: "Log a call, meeting, email...",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if in.ContactID, err = parseID(args[0]); err != nil {
				return err
			}
			in.Kind = args[1]
			in.Description = strings.Join(args[2:], " ")
			if at != "" {
				if in.OccurredAt, err = parseTime(at); err != nil {
					return err
				}
			}

			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.store.CreateInteraction(a.actor(), in)
			if err != nil {
				return err
			}
			printSuccess("Logged interaction %d", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "when it happened (default now)")
	cmd.Flags().StringVar(&in.Status, "status", "", "free-form status")
	return cmd
}

func interactionListCmd() *cobra.Command {
	var f store.InteractionFilter
	var from, to string
	var types bool

	cmd := &cobra.Command{
		Use:   "list [contact-id]",
		Short: "List interactions, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if len(args) == 1 {
				if f.ContactID, err = parseID(args[0]); err != nil {
					return err
				}
			}
			if from != "" {
				if f.From, err = parseTime(from); err != nil {
					return err
				}
			}
			if to != "" {
				if f.To, err = parseTime(to); err != nil {
					return err
				}
			}

			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			if types {
				kinds, err := a.store.InteractionTypes()
				if err != nil {
					return err
				}
				for _, k := range kinds {
					printMuted("%s", k)
				}
				return nil
			}

			interactions, err := a.store.SearchInteractions(f)
			if err != nil {
				return err
			}
			if len(interactions) == 0 {
				printMuted("No interactions found.")
				return nil
			}
			rows := make([][]string, len(interactions))
			for i, in := range interactions {
				rows[i] = []string{
					idString(in.ID), formatTime(in.OccurredAt), in.Contact.DisplayName(),
					in.Kind, in.Status, truncate(in.Description, 50),
				}
			}
			printTable([]string{"ID", "When", "Contact", "Kind", "Status", "Description"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.Text, "text", "", "text in the description or contact name")
	cmd.Flags().StringVar(&f.Kind, "kind", "", "exact kind")
	cmd.Flags().StringVar(&from, "from", "", "earliest date")
	cmd.Flags().StringVar(&to, "to", "", "latest date")
	cmd.Flags().Uint64VarP(&f.Limit, "limit", "n", 50, "maximum results (0 for all)")
	cmd.Flags().BoolVar(&types, "types", false, "list the kinds in use instead")
	return cmd
}

func interactionDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an interaction",
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

			if err := a.store.DeleteInteraction(a.actor(), id); err != nil {
				return err
			}
			printSuccess("Deleted interaction %d", id)
			return nil
		},
	}
}

func reminderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminder",
		Short: "Schedule follow-ups",
	}
	cmd.AddCommand(reminderAddCmd())
	cmd.AddCommand(reminderListCmd())
	cmd.AddCommand(reminderTodayCmd())
	cmd.AddCommand(reminderDoneCmd())
	cmd.AddCommand(reminderDeleteCmd())
	cmd.AddCommand(birthdaysCmd())
	return cmd
}

func reminderAddCmd() *cobra.Command {
	var in store.ReminderInput
	var due string

	cmd := &cobra.Command{
		Use:   "add [contact-id] [title...]",
		Short: "Schedule a reminder",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if in.ContactID, err = parseID(args[0]); err != nil {
				return err
			}
			in.Title = strings.Join(args[1:], " ")
			if in.DueAt, err = parseTime(due); err != nil {
				return err
			}

			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.store.CreateReminder(a.actor(), in)
			if err != nil {
				return err
			}
			printSuccess("Scheduled reminder %d for %s", id, formatTime(in.DueAt))
			return nil
		},
	}

	cmd.Flags().StringVar(&due, "due", time.Now().Format("2006-01-02"), "due date")
	cmd.Flags().StringVar(&in.Priority, "priority", store.PriorityMedium, "basse, moyenne or haute")
	cmd.Flags().StringVar(&in.Kind, "kind", "", "kind of follow-up")
	cmd.Flags().StringVar(&in.Description, "description", "", "details")
	cmd.Flags().StringVar(&in.Repeat, "repeat", "", "recurrence label")
	return cmd
}

func printReminders(reminders []domain.Reminder) {
	if len(reminders) == 0 {
		printMuted("No reminders.")
		return
	}
	rows := make([][]string, len(reminders))
	for i, r := range reminders {
		done := ""
		if r.Done {
			done = "✓"
		}
		rows[i] = []string{
			idString(r.ID), formatTime(r.DueAt), r.Contact.DisplayName(),
			truncate(r.Title, 40), r.Priority, done,
		}
	}
	printTable([]string{"ID", "Due", "Contact", "Title", "Priority", "Done"}, rows)
}

func reminderListCmd() *cobra.Command {
	var f store.ReminderFilter
	var open, done bool

	cmd := &cobra.Command{
		Use:   "list [contact-id]",
		Short: "List reminders by due date",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if len(args) == 1 {
				if f.ContactID, err = parseID(args[0]); err != nil {
					return err
				}
			}
			// --open alone points at false, --done alone at true
			if open != done {
				f.Done = &done
			}

			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			reminders, err := a.store.ListReminders(f)
			if err != nil {
				return err
			}
			printReminders(reminders)
			return nil
		},
	}

	cmd.Flags().BoolVar(&open, "open", false, "only reminders not done")
	cmd.Flags().BoolVar(&done, "done", false, "only reminders done")
	cmd.Flags().IntVar(&f.WithinDays, "within", 0, "only reminders due in the next days")
	return cmd
}

func reminderTodayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "today",
		Short: "Open reminders due today",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			reminders, err := a.store.DueToday()
			if err != nil {
				return err
			}
			printReminders(reminders)
			return nil
		},
	}
}

func reminderDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done [id]",
		Short: "Mark a reminder as handled",
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

			if err := a.store.MarkReminderDone(a.actor(), id); err != nil {
				return err
			}
			printSuccess("Reminder %d done", id)
			return nil
		},
	}
}

func reminderDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a reminder",
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

			if err := a.store.DeleteReminder(a.actor(), id); err != nil {
				return err
			}
			printSuccess("Deleted reminder %d", id)
			return nil
		},
	}
}

func birthdaysCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "birthdays",
		Short: "Birthdays coming up",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			birthdays, err := a.store.UpcomingBirthdays(days)
			if err != nil {
				return err
			}
			if len(birthdays) == 0 {
				printMuted("No birthdays in the next %d days.", days)
				return nil
			}
			rows := make([][]string, len(birthdays))
			for i, b := range birthdays {
				rows[i] = []string{b.Date.Format("2006-01-02"), b.Contact.DisplayName(), strconv.Itoa(b.Age)}
			}
			printTable([]string{"Date", "Contact", "Age"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&days, "days", "d", 30, "days ahead")
	return cmd
}
