package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pbaille/carnet/internal/auth"
	"github.com/pbaille/carnet/internal/domain"
	"github.com/pbaille/carnet/internal/exchange"
	"github.com/pbaille/carnet/internal/store"
)

// contactFlags binds one flag per editable contact field
type contactFlags struct {
	values map[domain.Field]*string
	emails []string
	phones []string
	mobile []string
}

func newContactFlags(cmd *cobra.Command) *contactFlags {
	cf := &contactFlags{values: make(map[domain.Field]*string)}
	for _, f := range domain.MergeableFields {
		name := strings.ReplaceAll(string(f), "_", "-")
		cf.values[f] = cmd.Flags().String(name, "", strings.ReplaceAll(string(f), "_", " "))
	}
	cmd.Flags().StringSliceVar(&cf.emails, "email", nil, "email address (repeatable)")
	cmd.Flags().StringSliceVar(&cf.phones, "phone", nil, "phone number (repeatable)")
	cmd.Flags().StringSliceVar(&cf.mobile, "mobile", nil, "mobile number (repeatable)")
	return cf
}

// apply copies the flags the user set onto in. Coordinates replace the
// existing ones only when at least one was given.
func (cf *contactFlags) apply(cmd *cobra.Command, in *domain.ContactInput) {
	for f, v := range cf.values {
		if cmd.Flags().Changed(strings.ReplaceAll(string(f), "_", "-")) {
			*in.Field(f) = *v
		}
	}

	var coords []domain.Coordinate
	add := func(kind string, values []string) {
		for _, v := range values {
			coords = append(coords, domain.Coordinate{Kind: kind, Value: v, Primary: len(coords) == 0})
		}
	}
	add(exchange.KindEmail, cf.emails)
	add(exchange.KindPhone, cf.phones)
	add(exchange.KindCell, cf.mobile)
	if len(coords) > 0 {
		in.Coordinates = coords
	}
}

func contactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "contact",
		Aliases: []string{"c"},
		Short:   "Manage contacts",
	}
	cmd.AddCommand(contactAddCmd())
	cmd.AddCommand(contactShowCmd())
	cmd.AddCommand(contactListCmd())
	cmd.AddCommand(contactSearchCmd())
	cmd.AddCommand(contactUpdateCmd())
	cmd.AddCommand(contactDeleteCmd())
	cmd.AddCommand(contactNoteCmd())
	cmd.AddCommand(contactLinkCmd())
	return cmd
}

func contactAddCmd() *cobra.Command {
	var cf *contactFlags
	var tags []string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a contact",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			var in domain.ContactInput
			cf.apply(cmd, &in)
			id, err := a.store.CreateContact(a.actor(), in)
			if err != nil {
				return err
			}
			for _, name := range tags {
				tag, err := a.store.EnsureTag(a.actor(), name)
				if err != nil {
					return err
				}
				if err := a.store.AssignTag(a.actor(), tag.ID, id); err != nil {
					return err
				}
			}

			printSuccess("Added contact %d: %s", id, domain.ContactRef{Surname: in.Surname, GivenName: in.GivenName}.DisplayName())
			return nil
		},
	}

	cf = newContactFlags(cmd)
	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag to assign, created if missing (repeatable)")
	return cmd
}

func contactShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show contact details",
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

			c, err := a.store.GetContact(id)
			if err != nil {
				return err
			}

			fmt.Println(primaryStyle.Render(strings.TrimSpace(c.Civility + " " + c.DisplayName())))
			field("ID", idString(c.ID))
			field("Organization", c.Organization)
			field("Title", c.Title)
			field("Category", c.Category)
			field("Birth date", c.BirthDate)
			field("Website", c.Website)
			field("Address", strings.TrimSpace(strings.Join([]string{c.Street, c.PostalCode, c.City, c.Country}, " ")))
			field("Created", formatTime(c.CreatedAt))

			if len(c.Coordinates) > 0 {
				section("Coordinates")
				for _, co := range c.Coordinates {
					mark := ""
					if co.Primary {
						mark = " *"
					}
					fmt.Printf("  %-10s %s%s\n", co.Kind, co.Value, mark)
				}
			}
			if len(c.SocialLinks) > 0 {
				section("Links")
				for _, l := range c.SocialLinks {
					fmt.Printf("  %-10s %s\n", l.Platform, l.URL)
				}
			}
			if len(c.Tags) > 0 {
				names := make([]string, len(c.Tags))
				for i, t := range c.Tags {
					names[i] = t.Name
				}
				section("Tags")
				fmt.Println("  " + strings.Join(names, ", "))
			}

			relations, err := a.store.RelationsOf(id)
			if err != nil {
				return err
			}
			if len(relations) > 0 {
				section("Relations")
				for _, r := range relations {
					fmt.Printf("  %s -[%s]-> %s\n", r.SourceDisplayName, r.Kind, r.TargetDisplayName)
				}
			}

			interactions, err := a.store.ListInteractions(id, 5)
			if err != nil {
				return err
			}
			if len(interactions) > 0 {
				section("Recent interactions")
				for _, i := range interactions {
					fmt.Printf("  %s  %-10s %s\n", formatTime(i.OccurredAt), i.Kind, truncate(i.Description, 50))
				}
			}

			if c.Notes != "" {
				section("Notes")
				fmt.Println(c.Notes)
			}
			return nil
		},
	}
}

func printContacts(contacts []domain.Contact) {
	if len(contacts) == 0 {
		printMuted("No contacts found.")
		return
	}
	rows := make([][]string, len(contacts))
	for i, c := range contacts {
		rows[i] = []string{idString(c.ID), c.Surname, c.GivenName, truncate(c.Organization, 30), c.City, c.Category}
	}
	printTable([]string{"ID", "Surname", "Given name", "Organization", "City", "Category"}, rows)
}

func contactListCmd() *cobra.Command {
	var limit, offset uint64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contacts by name",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			contacts, err := a.store.ListContacts(limit, offset)
			if err != nil {
				return err
			}
			printContacts(contacts)
			return nil
		},
	}

	cmd.Flags().Uint64VarP(&limit, "limit", "n", 50, "number of contacts to show (0 for all)")
	cmd.Flags().Uint64Var(&offset, "offset", 0, "contacts to skip")
	return cmd
}

func contactSearchCmd() *cobra.Command {
	var f store.ContactFilter

	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search contacts by text and attributes",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				f.Text = args[0]
			}
			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			contacts, err := a.store.SearchContacts(f)
			if err != nil {
				return err
			}
			printContacts(contacts)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.City, "city", "", "exact city")
	cmd.Flags().StringVar(&f.Category, "category", "", "exact category")
	cmd.Flags().StringVar(&f.Organization, "organization", "", "exact organization")
	cmd.Flags().Uint64VarP(&f.Limit, "limit", "n", 0, "maximum results (0 for all)")
	return cmd
}

func contactUpdateCmd() *cobra.Command {
	var cf *contactFlags

	cmd := &cobra.Command{
		Use:   "update [id]",
		Short: "Change the fields given as flags",
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

			c, err := a.store.GetContact(id)
			if err != nil {
				return err
			}
			in := domain.InputOf(*c)
			cf.apply(cmd, &in)
			if err := a.store.UpdateContact(a.actor(), id, in); err != nil {
				return err
			}
			printSuccess("Updated contact %d", id)
			return nil
		},
	}

	cf = newContactFlags(cmd)
	return cmd
}

func contactDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a contact and everything attached to it",
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

			if err := a.store.DeleteContact(a.actor(), id); err != nil {
				return err
			}
			printSuccess("Deleted contact %d", id)
			return nil
		},
	}
}

func contactNoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "note [id] [text]",
		Short: "Replace the notes of a contact",
		Args:  cobra.MinimumNArgs(2),
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

			if err := a.store.SetNotes(a.actor(), id, strings.Join(args[1:], " ")); err != nil {
				return err
			}
			printSuccess("Notes saved")
			return nil
		},
	}
}

func contactLinkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "link [id] [platform] [url]",
		Short: "Attach a web or social profile",
		Args:  cobra.ExactArgs(3),
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

			linkID, err := a.store.AddSocialLink(a.actor(), id, domain.SocialLink{Platform: args[1], URL: args[2]})
			if err != nil {
				return err
			}
			printSuccess("Added link %d", linkID)
			return nil
		},
	}
}

func findCmd() *cobra.Command {
	var tags []string
	var mode string

	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find contacts holding all or any of the given tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := domain.MatchMode(mode)
			if m != domain.MatchAll && m != domain.MatchAny {
				return fmt.Errorf("mode must be %q or %q", domain.MatchAll, domain.MatchAny)
			}
			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			ids := make([]int64, 0, len(tags))
			for _, name := range tags {
				tag, err := resolveTag(a, name)
				if err != nil {
					return err
				}
				ids = append(ids, tag.ID)
			}
			contacts, err := a.store.QueryByTags(ids, m)
			if err != nil {
				return err
			}
			printContacts(contacts)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&tags, "tag", "t", nil, "tag name or id (repeatable)")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(domain.MatchAll), "all or any")
	return cmd
}

func duplicatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates",
		Short: "List contacts sharing a normalized name",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			pairs, err := a.store.FindDuplicates()
			if err != nil {
				return err
			}
			if len(pairs) == 0 {
				printMuted("No duplicates found.")
				return nil
			}

			rows := make([][]string, len(pairs))
			for i, p := range pairs {
				rows[i] = []string{
					idString(p.First.ID), p.First.DisplayName(),
					idString(p.Second.ID), p.Second.DisplayName(),
				}
			}
			printTable([]string{"ID", "Contact", "ID", "Duplicate"}, rows)
			printMuted("Merge with: carnet merge KEEP DELETE")
			return nil
		},
	}
}

func mergeCmd() *cobra.Command {
	var takes []string
	var opts store.MergeOptions

	cmd := &cobra.Command{
		Use:   "merge [keep-id] [delete-id]",
		Short: "Fold a duplicate into the contact kept",
		Long: `Fold a duplicate into the contact kept.

Fields keep the value of the kept contact unless --take field=ID names the
contact to take them from. Interactions, reminders and task links move to the
kept contact. Tags and relations of the deleted contact are dropped unless
--carry-tags or --carry-relations is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			choices, err := parseChoices(takes)
			if err != nil {
				return err
			}
			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.Merge(a.actor(), ids[0], ids[1], choices, opts); err != nil {
				return err
			}
			printSuccess("Merged contact %d into %d", ids[1], ids[0])
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&takes, "take", nil, "field=contact-id to take a field from (repeatable)")
	cmd.Flags().BoolVar(&opts.CarryTags, "carry-tags", false, "copy the deleted contact's tags")
	cmd.Flags().BoolVar(&opts.CarryRelations, "carry-relations", false, "move the deleted contact's relations")
	return cmd
}

func parseChoices(takes []string) (store.FieldChoices, error) {
	choices := make(store.FieldChoices, len(takes))
	for _, take := range takes {
		name, value, ok := strings.Cut(take, "=")
		if !ok {
			return nil, fmt.Errorf("--take %q: want field=id", take)
		}
		id, err := parseID(value)
		if err != nil {
			return nil, fmt.Errorf("--take %q: %w", take, err)
		}
		f := domain.Field(strings.ReplaceAll(strings.TrimSpace(name), "-", "_"))
		if !domain.IsMergeable(f) {
			return nil, fmt.Errorf("--take %q: %q is not a mergeable field", take, name)
		}
		choices[f] = id
	}
	return choices, nil
}
