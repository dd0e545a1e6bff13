package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pbaille/carnet/internal/domain"
)

// CreateTag creates a tag. Names are unique and case-sensitive.
func (s *Store) CreateTag(actor domain.Actor, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, invalid("tag name is required")
	}

	var id int64
	err := s.withTx("create tag", func(tx *sql.Tx) error {
		var err error
		id, err = s.insertTag(tx, name)
		if err != nil {
			return err
		}
		return s.audit(tx, actor, ActionCreate, "tags", id, name)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *Store) insertTag(q querier, name string) (int64, error) {
	res, err := s.exec(q, "INSERT INTO tags (name, created_at) VALUES (?, ?)", name, s.unixNow())
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("tag %q: %w", name, ErrDuplicateName)
	}
	if err != nil {
		return 0, storageErr("insert tag", err)
	}
	return lastID(res, "insert tag")
}

// EnsureTag finds a tag by name or creates it
func (s *Store) EnsureTag(actor domain.Actor, name string) (*domain.Tag, error) {
	tag, err := s.TagByName(name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if _, err := s.CreateTag(actor, name); err != nil && !errors.Is(err, ErrDuplicateName) {
		return nil, err
	}
	// Lost a race with another writer, or just created: either way it exists now
	return s.TagByName(name)
}

// TagByName looks a tag up by its exact name
func (s *Store) TagByName(name string) (*domain.Tag, error) {
	tag, err := s.findTag("name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tag %q: %w", name, ErrNotFound)
	}
	return tag, err
}

// TagByID looks a tag up by id
func (s *Store) TagByID(id int64) (*domain.Tag, error) {
	tag, err := s.findTag("id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tag %d: %w", id, ErrNotFound)
	}
	return tag, err
}

// findTag returns sql.ErrNoRows unwrapped so callers can name the missing tag
func (s *Store) findTag(where string, arg any) (*domain.Tag, error) {
	var tag domain.Tag
	var createdAt int64
	err := s.db.QueryRow(
		"SELECT id, name, created_at FROM tags WHERE "+where,
		arg,
	).Scan(&tag.ID, &tag.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, storageErr("find tag", err)
	}
	tag.CreatedAt = fromUnix(createdAt)
	return &tag, nil
}

// DeleteTag removes a tag and all its contact links. Contacts are untouched.
func (s *Store) DeleteTag(actor domain.Actor, id int64) error {
	return s.withTx("delete tag", func(tx *sql.Tx) error {
		var name string
		err := tx.QueryRow("SELECT name FROM tags WHERE id = ?", id).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("tag %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return storageErr("delete tag", err)
		}

		if _, err := s.exec(tx, "DELETE FROM tags WHERE id = ?", id); err != nil {
			return storageErr("delete tag", err)
		}
		return s.audit(tx, actor, ActionDelete, "tags", id, name)
	})
}

// AssignTag links a tag to a contact. Assigning twice is a no-op.
func (s *Store) AssignTag(actor domain.Actor, tagID, contactID int64) error {
	return s.withTx("assign tag", func(tx *sql.Tx) error {
		if err := s.requireExists(tx, "assign tag", "tags", "tag", tagID); err != nil {
			return err
		}
		if err := s.requireExists(tx, "assign tag", "contacts", "contact", contactID); err != nil {
			return err
		}

		res, err := s.exec(tx,
			"INSERT OR IGNORE INTO contact_tags (contact_id, tag_id) VALUES (?, ?)",
			contactID, tagID,
		)
		if err != nil {
			return storageErr("assign tag", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.audit(tx, actor, ActionAssign, "contact_tags", contactID, fmt.Sprintf("+tag %d", tagID))
	})
}

// UnassignTag removes a tag from a contact. Removing an absent link is a no-op.
func (s *Store) UnassignTag(actor domain.Actor, tagID, contactID int64) error {
	return s.withTx("unassign tag", func(tx *sql.Tx) error {
		res, err := s.exec(tx,
			"DELETE FROM contact_tags WHERE contact_id = ? AND tag_id = ?",
			contactID, tagID,
		)
		if err != nil {
			return storageErr("unassign tag", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		return s.audit(tx, actor, ActionUnassign, "contact_tags", contactID, fmt.Sprintf("-tag %d", tagID))
	})
}

// TagsOf returns the tags of a contact, ordered by name
func (s *Store) TagsOf(contactID int64) ([]domain.Tag, error) {
	rows, err := s.db.Query(`
		SELECT t.id, t.name, t.created_at
		FROM tags t
		JOIN contact_tags ct ON t.id = ct.tag_id
		WHERE ct.contact_id = ?
		ORDER BY t.name
	`, contactID)
	if err != nil {
		return nil, storageErr("get contact tags", err)
	}
	return scanTags(rows)
}

// ListTags returns all tags
func (s *Store) ListTags() ([]domain.Tag, error) {
	rows, err := s.db.Query(
		"SELECT id, name, created_at FROM tags ORDER BY name",
	)
	if err != nil {
		return nil, storageErr("list tags", err)
	}
	return scanTags(rows)
}

func scanTags(rows *sql.Rows) ([]domain.Tag, error) {
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.Name, &createdAt); err != nil {
			return nil, storageErr("scan tag", err)
		}
		t.CreatedAt = fromUnix(createdAt)
		tags = append(tags, t)
	}
	return tags, storageErr("iterate tags", rows.Err())
}

// ContactsOf returns the contacts holding a tag, ordered by surname then given name
func (s *Store) ContactsOf(tagID int64) ([]domain.Contact, error) {
	rows, err := s.db.Query(`
		SELECT `+contactColumns+`
		FROM contacts c
		JOIN contact_tags ct ON c.id = ct.contact_id
		WHERE ct.tag_id = ?
		ORDER BY `+strings.Join(contactOrder, ", "),
		tagID,
	)
	if err != nil {
		return nil, storageErr("get tagged contacts", err)
	}
	return scanContacts(rows, "get tagged contacts")
}

// CountContacts returns the number of contacts holding a tag
func (s *Store) CountContacts(tagID int64) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM contact_tags WHERE tag_id = ?", tagID).Scan(&n); err != nil {
		return 0, storageErr("count tagged contacts", err)
	}
	return n, nil
}

// TagStatistics returns every tag with its contact count, most used first
func (s *Store) TagStatistics() ([]domain.TagCount, error) {
	rows, err := s.db.Query(`
		SELECT t.id, t.name, t.created_at, COUNT(ct.contact_id) AS n
		FROM tags t
		LEFT JOIN contact_tags ct ON t.id = ct.tag_id
		GROUP BY t.id, t.name, t.created_at
		ORDER BY n DESC, t.name
	`)
	if err != nil {
		return nil, storageErr("tag statistics", err)
	}
	defer rows.Close()

	var stats []domain.TagCount
	for rows.Next() {
		var tc domain.TagCount
		var createdAt int64
		if err := rows.Scan(&tc.Tag.ID, &tc.Tag.Name, &createdAt, &tc.Count); err != nil {
			return nil, storageErr("scan tag statistics", err)
		}
		tc.Tag.CreatedAt = fromUnix(createdAt)
		stats = append(stats, tc)
	}
	return stats, storageErr("iterate tag statistics", rows.Err())
}
