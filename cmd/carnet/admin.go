package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/carnet/internal/auth"
	"github.com/pbaille/carnet/internal/domain"
	"github.com/pbaille/carnet/internal/exchange"
	"github.com/pbaille/carnet/internal/store"
)

func statsCmd() *cobra.Command {
	var period string
	var top int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Overview of the book",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionView)
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.store.GlobalStats()
			if err != nil {
				return err
			}
			printTable([]string{"Contacts", "Tags", "Relations", "Interactions", "Open reminders", "Open tasks", "Projects"},
				[][]string{{
					strconv.Itoa(st.Contacts), strconv.Itoa(st.Tags), strconv.Itoa(st.Relations),
					strconv.Itoa(st.Interactions), strconv.Itoa(st.OpenReminders),
					strconv.Itoa(st.OpenTasks), strconv.Itoa(st.Projects),
				}})

			lastBackup, err := a.store.Setting("last_backup", "never")
			if err != nil {
				return err
			}
			field("Last backup", lastBackup)

			groups := []struct {
				title string
				load  func() ([]domain.Count, error)
			}{
				{"By category", a.store.ContactsByCategory},
				{"By city", a.store.ContactsByCity},
				{"By country", a.store.ContactsByCountry},
				{"By tag", a.store.ContactsByTag},
				{"By " + period, func() ([]domain.Count, error) { return a.store.ContactsPerPeriod(period) }},
			}
			for _, g := range groups {
				counts, err := g.load()
				if err != nil {
					return err
				}
				if len(counts) == 0 {
					continue
				}
				section(g.title)
				rows := make([][]string, len(counts))
				for i, c := range counts {
					rows[i] = []string{c.Label, strconv.Itoa(c.Count)}
				}
				printTable([]string{"", "Contacts"}, rows)
			}

			active, err := a.store.MostActiveContacts(top)
			if err != nil {
				return err
			}
			if len(active) > 0 {
				section("Most active")
				rows := make([][]string, len(active))
				for i, ac := range active {
					rows[i] = []string{ac.Contact.DisplayName(), strconv.Itoa(ac.Interactions)}
				}
				printTable([]string{"Contact", "Interactions"}, rows)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&period, "period", store.PeriodMonth, "contacts created per month or year")
	cmd.Flags().IntVar(&top, "top", 10, "number of most active contacts")
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import contacts from CSV or vCard",
	}
	cmd.AddCommand(importCSVCmd())
	cmd.AddCommand(importVCardCmd())
	return cmd
}

func printReport(r *exchange.ImportReport) {
	printSuccess("Imported %d contact(s), skipped %d duplicate(s)", r.Imported, r.Duplicates)
	for _, e := range r.Errors {
		printWarning("%s", e)
	}
}

func importCSVCmd() *cobra.Command {
	var maps []string

	cmd := &cobra.Command{
		Use:   "csv [file]",
		Short: "Import a CSV file",
		Long: `Import a CSV file.

Columns are matched to fields by header name unless --map column=field is
given. Targets are contact fields plus email, phone and tags (';'-separated).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mapping exchange.Mapping
			if len(maps) > 0 {
				mapping = make(exchange.Mapping, len(maps))
				for _, m := range maps {
					col, target, ok := strings.Cut(m, "=")
					if !ok {
						return fmt.Errorf("--map %q: want column=field", m)
					}
					mapping[col] = target
				}
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.exchange.ImportCSV(a.actor(), f, mapping)
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&maps, "map", nil, "column=field (repeatable)")
	return cmd
}

func importVCardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vcard [file]",
		Short: "Import a vCard file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.exchange.ImportVCard(a.actor(), f)
			if err != nil {
				return err
			}
			printReport(report)
			return nil
		},
	}
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export contacts to CSV or vCard",
	}
	cmd.AddCommand(exportFormatCmd("csv", "Export contacts as CSV", func(a *app, w io.Writer, ids []int64) (int, error) {
		return a.exchange.ExportCSV(a.actor(), w, ids)
	}))
	cmd.AddCommand(exportFormatCmd("vcard", "Export contacts as vCard 3.0", func(a *app, w io.Writer, ids []int64) (int, error) {
		return a.exchange.ExportVCard(a.actor(), w, ids)
	}))
	return cmd
}

func exportFormatCmd(format, short string, export func(a *app, w io.Writer, ids []int64) (int, error)) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   format + " [contact-id...]",
		Short: short + " (all when no id is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			a, err := openApp(auth.ActionExport)
			if err != nil {
				return err
			}
			defer a.Close()

			if out == "" {
				_, err := export(a, os.Stdout, ids)
				return err
			}

			f, err := os.OpenFile(out, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
			if err != nil {
				return err
			}
			n, err := export(a, f, ids)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(out)
				return err
			}
			printSuccess("Exported %d contact(s) to %s", n, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "file to create (default stdout)")
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}
	cmd.AddCommand(userInitCmd())
	cmd.AddCommand(userAddCmd())
	cmd.AddCommand(userPasswdCmd())
	cmd.AddCommand(userListCmd())
	return cmd
}

func userInitCmd() *cobra.Command {
	var initial string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the " + auth.DefaultOwner + " owner account on a book without accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if initial == "" {
				return fmt.Errorf("--initial-password is required")
			}
			a, err := openApp(auth.ActionCreateUser)
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.auth.EnsureDefaultOwner(initial)
			if err != nil {
				return err
			}
			if !created {
				printWarning("This book already has accounts")
				return nil
			}
			printSuccess("Created owner account %q", auth.DefaultOwner)
			return nil
		},
	}

	cmd.Flags().StringVar(&initial, "initial-password", "", "password of the owner account")
	return cmd
}

func userAddCmd() *cobra.Command {
	var role, newPassword string

	cmd := &cobra.Command{
		Use:   "add [username]",
		Short: "Create an account (owners only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionCreateUser)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.user == nil {
				return fmt.Errorf("run 'carnet user init' first")
			}
			id, err := a.auth.CreateUser(a.user, args[0], newPassword, role)
			if err != nil {
				return err
			}
			printSuccess("Created %s account %d: %s", role, id, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", domain.RoleConsultant, "proprietaire or consultant")
	cmd.Flags().StringVar(&newPassword, "new-password", "", "password of the new account")
	return cmd
}

func userPasswdCmd() *cobra.Command {
	var newPassword string

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change the password of the current account",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.user == nil {
				return fmt.Errorf("this book has no accounts")
			}
			if err := a.auth.ChangePassword(a.user, firstNonEmpty(password, os.Getenv("CARNET_PASSWORD")), newPassword); err != nil {
				return err
			}
			printSuccess("Password changed")
			return nil
		},
	}

	cmd.Flags().StringVar(&newPassword, "new-password", "", "new password")
	return cmd
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionCreateUser)
			if err != nil {
				return err
			}
			defer a.Close()

			users, err := a.store.ListUsers()
			if err != nil {
				return err
			}
			rows := make([][]string, len(users))
			for i, u := range users {
				last := ""
				if u.LastLoginAt != nil {
					last = formatTime(*u.LastLoginAt)
				}
				rows[i] = []string{idString(u.ID), u.Username, u.Role, strconv.FormatBool(u.Active), last}
			}
			printTable([]string{"ID", "Username", "Role", "Active", "Last login"}, rows)
			return nil
		},
	}
}

func auditCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the latest changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.store.AuditLog(limit)
			if err != nil {
				return err
			}
			users, err := a.store.ListUsers()
			if err != nil {
				return err
			}
			names := make(map[int64]string, len(users))
			for _, u := range users {
				names[u.ID] = u.Username
			}

			rows := make([][]string, len(entries))
			for i, e := range entries {
				who, target := "system", ""
				if e.UserID != nil {
					who = names[*e.UserID]
				}
				if e.TargetID != nil {
					target = idString(*e.TargetID)
				}
				rows[i] = []string{formatTime(e.CreatedAt), who, e.Action, e.TargetTable, target, truncate(e.Details, 40)}
			}
			printTable([]string{"When", "Who", "Action", "Table", "ID", "Details"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "number of entries")
	return cmd
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [file]",
		Short: "Write a consistent copy of the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Backup(args[0]); err != nil {
				return err
			}
			if err := a.store.SetSetting("last_backup", args[0]); err != nil {
				return err
			}
			printSuccess("Backed up to %s", args[0])
			return nil
		},
	}
}
