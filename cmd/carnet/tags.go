package main

import (
	"encoding/json"
	"errors"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pbaille/carnet/internal/auth"
	"github.com/pbaille/carnet/internal/domain"
	"github.com/pbaille/carnet/internal/store"
)

// resolveTag accepts a tag id or name
func resolveTag(a *app, arg string) (*domain.Tag, error) {
	tag, err := a.store.TagByName(arg)
	if err == nil || !errors.Is(err, store.ErrNotFound) {
		return tag, err
	}
	if id, perr := strconv.ParseInt(arg, 10, 64); perr == nil {
		return a.store.TagByID(id)
	}
	return nil, err
}

func tagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags",
	}
	cmd.AddCommand(tagCreateCmd())
	cmd.AddCommand(tagDeleteCmd())
	cmd.AddCommand(tagListCmd())
	cmd.AddCommand(tagAssignCmd(true))
	cmd.AddCommand(tagAssignCmd(false))
	cmd.AddCommand(tagContactsCmd())
	return cmd
}

func tagCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.store.CreateTag(a.actor(), args[0])
			if err != nil {
				return err
			}
			printSuccess("Created tag %d: %s", id, args[0])
			return nil
		},
	}
}

func tagDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [tag]",
		Short: "Delete a tag and its assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			tag, err := resolveTag(a, args[0])
			if err != nil {
				return err
			}
			if err := a.store.DeleteTag(a.actor(), tag.ID); err != nil {
				return err
			}
			printSuccess("Deleted tag %s", tag.Name)
			return nil
		},
	}
}

func tagListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"stats"},
		Short:   "List tags with their number of contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			counts, err := a.store.TagStatistics()
			if err != nil {
				return err
			}
			if len(counts) == 0 {
				printMuted("No tags yet. Use 'carnet tag create' to add one.")
				return nil
			}

			rows := make([][]string, len(counts))
			for i, tc := range counts {
				rows[i] = []string{idString(tc.Tag.ID), tc.Tag.Name, strconv.Itoa(tc.Count)}
			}
			printTable([]string{"ID", "Tag", "Contacts"}, rows)
			return nil
		},
	}
}

func tagAssignCmd(assign bool) *cobra.Command {
	use, short := "assign [tag] [contact-id...]", "Tag contacts"
	if !assign {
		use, short = "unassign [tag] [contact-id...]", "Remove a tag from contacts"
	}

	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			tag, err := resolveTag(a, args[0])
			if err != nil {
				return err
			}
			for _, id := range ids {
				if assign {
					err = a.store.AssignTag(a.actor(), tag.ID, id)
				} else {
					err = a.store.UnassignTag(a.actor(), tag.ID, id)
				}
				if err != nil {
					return err
				}
			}
			printSuccess("%s: %d contact(s) updated", tag.Name, len(ids))
			return nil
		},
	}
}

func tagContactsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contacts [tag]",
		Short: "List the contacts holding a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			tag, err := resolveTag(a, args[0])
			if err != nil {
				return err
			}
			contacts, err := a.store.ContactsOf(tag.ID)
			if err != nil {
				return err
			}
			printContacts(contacts)
			return nil
		},
	}
}

func relationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relation",
		Short: "Manage relations between contacts",
	}
	cmd.AddCommand(relationAddCmd())
	cmd.AddCommand(relationListCmd())
	cmd.AddCommand(relationDeleteCmd())
	cmd.AddCommand(relationTypesCmd())
	cmd.AddCommand(relationGraphCmd())
	return cmd
}

func relationAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [source-id] [target-id] [kind]",
		Short: "Link two contacts",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[:2])
			if err != nil {
				return err
			}
			a, err := openApp(auth.ActionWrite)
			if err != nil {
				return err
			}
			defer a.Close()

			id, err := a.store.CreateRelation(a.actor(), ids[0], ids[1], args[2])
			if err != nil {
				return err
			}
			printSuccess("Added relation %d", id)
			return nil
		},
	}
}

func relationListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [contact-id]",
		Short: "List the relations of a contact, or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			var relations []domain.Relation
			if len(args) == 1 {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				relations, err = a.store.RelationsOf(id)
				if err != nil {
					return err
				}
			} else if relations, err = a.store.AllRelations(); err != nil {
				return err
			}

			if len(relations) == 0 {
				printMuted("No relations found.")
				return nil
			}
			rows := make([][]string, len(relations))
			for i, r := range relations {
				rows[i] = []string{idString(r.ID), r.SourceDisplayName, r.Kind, r.TargetDisplayName}
			}
			printTable([]string{"ID", "From", "Relation", "To"}, rows)
			return nil
		},
	}
}

func relationDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a relation",
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

			if err := a.store.DeleteRelation(a.actor(), id); err != nil {
				return err
			}
			printSuccess("Deleted relation %d", id)
			return nil
		},
	}
}

func relationTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List the relation kinds in use",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			kinds, err := a.store.RelationTypes()
			if err != nil {
				return err
			}
			for _, k := range kinds {
				printMuted("%s", k)
			}
			return nil
		},
	}
}

func relationGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print contacts and relations as JSON nodes and edges",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(auth.ActionRead)
			if err != nil {
				return err
			}
			defer a.Close()

			g, err := a.store.Graph()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(g)
		},
	}
}
