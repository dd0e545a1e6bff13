package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/pbaille/carnet/internal/domain"
)

// FieldChoices maps a mergeable field to the contact id its value is taken
// from. Fields left out keep the value of the kept contact.
type FieldChoices map[domain.Field]int64

// MergeOptions extends a merge beyond the default re-pointing of
// interactions, reminders and task links.
type MergeOptions struct {
	// CarryTags copies the removed contact's tags onto the kept one
	CarryTags bool
	// CarryRelations re-points the removed contact's relations to the kept
	// one. Relations that would link the kept contact to itself are dropped.
	CarryRelations bool
}

// Merge folds deleteID into keepID in a single transaction:
// update the kept contact with the chosen fields, re-point interactions,
// reminders and task links, then delete the other contact.
//
// Without options, tags and relations of the removed contact are lost with it.
// Any failure rolls the whole merge back and matches ErrMergeIntegrity.
func (s *Store) Merge(actor domain.Actor, keepID, deleteID int64, choices FieldChoices, opts MergeOptions) error {
	if keepID == deleteID {
		return invalid("cannot merge contact %d into itself", keepID)
	}
	for f, src := range choices {
		if !domain.IsMergeable(f) {
			return invalid("field %q cannot be merged", f)
		}
		if src != keepID && src != deleteID {
			return invalid("field %q: contact %d is not part of the merge", f, src)
		}
	}

	err := s.withTx("merge contacts", func(tx *sql.Tx) error {
		keep, err := s.getContact(tx, keepID)
		if err != nil {
			return err
		}
		removed, err := s.getContact(tx, deleteID)
		if err != nil {
			return err
		}

		merged := mergedInput(keep, removed, choices, deleteID)
		if err := s.updateContact(tx, keepID, merged); err != nil {
			return &MergeError{Step: "update kept contact", Err: err}
		}
		if err := s.repointInteractions(tx, deleteID, keepID); err != nil {
			return &MergeError{Step: "re-point interactions", Err: err}
		}
		if err := s.repointReminders(tx, deleteID, keepID); err != nil {
			return &MergeError{Step: "re-point reminders", Err: err}
		}
		if err := s.repointTaskContacts(tx, deleteID, keepID); err != nil {
			return &MergeError{Step: "re-point task links", Err: err}
		}
		if opts.CarryTags {
			if err := s.copyTags(tx, deleteID, keepID); err != nil {
				return &MergeError{Step: "carry tags", Err: err}
			}
		}
		if opts.CarryRelations {
			if err := s.repointRelations(tx, deleteID, keepID); err != nil {
				return &MergeError{Step: "carry relations", Err: err}
			}
		}
		if err := s.deleteContact(tx, deleteID); err != nil {
			return &MergeError{Step: "delete merged contact", Err: err}
		}

		details := fmt.Sprintf("%d (%s) -> %d", deleteID, removed.DisplayName(), keepID)
		if err := s.audit(tx, actor, ActionMerge, "contacts", keepID, details); err != nil {
			return &MergeError{Step: "audit", Err: err}
		}
		return nil
	})

	var me *MergeError
	if err == nil || errors.As(err, &me) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return &MergeError{Step: se.Op, Err: se.Err}
	}
	return err
}

func mergedInput(keep, removed domain.Contact, choices FieldChoices, deleteID int64) domain.ContactInput {
	merged := domain.InputOf(keep)
	other := domain.InputOf(removed)
	for f, src := range choices {
		if src == deleteID {
			*merged.Field(f) = *other.Field(f)
		}
	}
	return merged
}

func (s *Store) copyTags(q querier, from, to int64) error {
	_, err := s.exec(q, `
		INSERT OR IGNORE INTO contact_tags (contact_id, tag_id)
		SELECT ?, tag_id FROM contact_tags WHERE contact_id = ?
	`, to, from)
	return err
}

func (s *Store) repointRelations(q querier, from, to int64) error {
	if _, err := s.exec(q, "UPDATE relations SET source_contact_id = ? WHERE source_contact_id = ?", to, from); err != nil {
		return err
	}
	if _, err := s.exec(q, "UPDATE relations SET target_contact_id = ? WHERE target_contact_id = ?", to, from); err != nil {
		return err
	}
	_, err := s.exec(q, "DELETE FROM relations WHERE source_contact_id = ? AND target_contact_id = ?", to, to)
	return err
}
