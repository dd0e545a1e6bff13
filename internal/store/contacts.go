package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/pbaille/carnet/internal/domain"
)

const contactColumns = `c.id, c.civility, c.surname, c.given_name, c.organization, c.title,
	c.category, c.notes, c.photo_path, c.birth_date, c.website, c.street,
	c.postal_code, c.city, c.country, c.created_at, c.updated_at`

// contactOrder sorts by surname then given name, case-insensitively
var contactOrder = []string{
	"c.surname COLLATE NOCASE",
	"c.given_name COLLATE NOCASE",
	"c.id",
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(sc scanner) (domain.Contact, error) {
	var c domain.Contact
	var createdAt, updatedAt int64
	err := sc.Scan(
		&c.ID, &c.Civility, &c.Surname, &c.GivenName, &c.Organization, &c.Title,
		&c.Category, &c.Notes, &c.PhotoPath, &c.BirthDate, &c.Website, &c.Street,
		&c.PostalCode, &c.City, &c.Country, &createdAt, &updatedAt,
	)
	c.CreatedAt = fromUnix(createdAt)
	c.UpdatedAt = fromUnix(updatedAt)
	return c, err
}

func scanContacts(rows *sql.Rows, op string) ([]domain.Contact, error) {
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, storageErr(op+": scan contact", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, storageErr(op, rows.Err())
}

func validateContact(in domain.ContactInput) error {
	if strings.TrimSpace(in.Surname) == "" {
		return invalid("surname is required")
	}
	return nil
}

// CreateContact inserts a contact with its coordinates and social links
func (s *Store) CreateContact(actor domain.Actor, in domain.ContactInput) (int64, error) {
	if err := validateContact(in); err != nil {
		return 0, err
	}

	var id int64
	err := s.withTx("create contact", func(tx *sql.Tx) error {
		now := s.unixNow()
		res, err := s.exec(tx, `
			INSERT INTO contacts (
				civility, surname, given_name, organization, title, category,
				photo_path, birth_date, website, street, postal_code, city, country,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, in.Civility, in.Surname, in.GivenName, in.Organization, in.Title, in.Category,
			in.PhotoPath, in.BirthDate, in.Website, in.Street, in.PostalCode, in.City, in.Country,
			now, now)
		if err != nil {
			return storageErr("insert contact", err)
		}
		if id, err = lastID(res, "insert contact"); err != nil {
			return err
		}

		if err := s.insertCoordinates(tx, id, in.Coordinates); err != nil {
			return err
		}
		if err := s.insertSocialLinks(tx, id, in.SocialLinks); err != nil {
			return err
		}

		return s.audit(tx, actor, ActionCreate, "contacts", id, displayName(in.GivenName, in.Surname))
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateContact overwrites the editable fields of a contact. Coordinates and
// social links are replaced only when the input carries a non-nil slice.
func (s *Store) UpdateContact(actor domain.Actor, id int64, in domain.ContactInput) error {
	if err := validateContact(in); err != nil {
		return err
	}

	return s.withTx("update contact", func(tx *sql.Tx) error {
		if err := s.updateContact(tx, id, in); err != nil {
			return err
		}
		if in.Coordinates != nil {
			if _, err := s.exec(tx, "DELETE FROM coordinates WHERE contact_id = ?", id); err != nil {
				return storageErr("clear coordinates", err)
			}
			if err := s.insertCoordinates(tx, id, in.Coordinates); err != nil {
				return err
			}
		}
		if in.SocialLinks != nil {
			if _, err := s.exec(tx, "DELETE FROM social_links WHERE contact_id = ?", id); err != nil {
				return storageErr("clear social links", err)
			}
			if err := s.insertSocialLinks(tx, id, in.SocialLinks); err != nil {
				return err
			}
		}
		return s.audit(tx, actor, ActionUpdate, "contacts", id, "")
	})
}

func (s *Store) updateContact(q querier, id int64, in domain.ContactInput) error {
	res, err := s.exec(q, `
		UPDATE contacts SET
			civility = ?, surname = ?, given_name = ?, organization = ?, title = ?,
			category = ?, photo_path = ?, birth_date = ?, website = ?, street = ?,
			postal_code = ?, city = ?, country = ?, updated_at = ?
		WHERE id = ?
	`, in.Civility, in.Surname, in.GivenName, in.Organization, in.Title,
		in.Category, in.PhotoPath, in.BirthDate, in.Website, in.Street,
		in.PostalCode, in.City, in.Country, s.unixNow(), id)
	if err != nil {
		return storageErr("update contact", err)
	}
	return requireAffected(res, "update contact", "contact", id)
}

// DeleteContact removes a contact. Coordinates, social links, tag links,
// relations, interactions, reminders and task links cascade.
func (s *Store) DeleteContact(actor domain.Actor, id int64) error {
	return s.withTx("delete contact", func(tx *sql.Tx) error {
		c, err := s.getContact(tx, id)
		if err != nil {
			return err
		}
		if err := s.deleteContact(tx, id); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionDelete, "contacts", id, c.DisplayName())
	})
}

func (s *Store) deleteContact(q querier, id int64) error {
	res, err := s.exec(q, "DELETE FROM contacts WHERE id = ?", id)
	if err != nil {
		return storageErr("delete contact", err)
	}
	return requireAffected(res, "delete contact", "contact", id)
}

// GetContact retrieves a contact with its coordinates, social links and tags
func (s *Store) GetContact(id int64) (*domain.Contact, error) {
	c, err := s.getContact(s.db, id)
	if err != nil {
		return nil, err
	}

	if c.Coordinates, err = s.coordinatesOf(id); err != nil {
		return nil, err
	}
	if c.SocialLinks, err = s.socialLinksOf(id); err != nil {
		return nil, err
	}
	if c.Tags, err = s.TagsOf(id); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) getContact(q querier, id int64) (domain.Contact, error) {
	c, err := scanContact(q.QueryRow("SELECT "+contactColumns+" FROM contacts c WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("contact %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return c, storageErr("get contact", err)
	}
	return c, nil
}

// ListContacts returns contacts ordered by name. A zero limit returns all.
func (s *Store) ListContacts(limit, offset uint64) ([]domain.Contact, error) {
	return s.SearchContacts(ContactFilter{Limit: limit, Offset: offset})
}

// ContactFilter narrows SearchContacts. Empty fields do not filter.
type ContactFilter struct {
	Text         string
	Category     string
	City         string
	Organization string
	Limit        uint64
	Offset       uint64
}

func (f ContactFilter) toSQL() (string, []any, error) {
	qb := sq.Select(contactColumns).From("contacts c")

	if text := strings.TrimSpace(f.Text); text != "" {
		like := "%" + text + "%"
		qb = qb.Where(sq.Or{
			sq.Like{"c.surname": like},
			sq.Like{"c.given_name": like},
			sq.Like{"c.organization": like},
			sq.Like{"c.city": like},
			sq.Like{"c.title": like},
		})
	}
	if f.Category != "" {
		qb = qb.Where(sq.Eq{"c.category": f.Category})
	}
	if f.City != "" {
		qb = qb.Where(sq.Eq{"c.city": f.City})
	}
	if f.Organization != "" {
		qb = qb.Where(sq.Eq{"c.organization": f.Organization})
	}

	qb = qb.OrderBy(contactOrder...)
	if f.Limit > 0 {
		qb = qb.Limit(f.Limit).Offset(f.Offset)
	}
	return qb.ToSql()
}

// SearchContacts returns the contacts matching every non-empty filter field
func (s *Store) SearchContacts(f ContactFilter) ([]domain.Contact, error) {
	query, args, err := f.toSQL()
	if err != nil {
		return nil, fmt.Errorf("build contact query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("search contacts", err)
	}
	return scanContacts(rows, "search contacts")
}

// Categories returns the distinct non-empty categories
func (s *Store) Categories() ([]string, error) {
	return s.distinctContactValues("category")
}

// Cities returns the distinct non-empty cities
func (s *Store) Cities() ([]string, error) {
	return s.distinctContactValues("city")
}

// Organizations returns the distinct non-empty organizations
func (s *Store) Organizations() ([]string, error) {
	return s.distinctContactValues("organization")
}

func (s *Store) distinctContactValues(column string) ([]string, error) {
	query, args, err := sq.Select("DISTINCT " + column).
		From("contacts").
		Where(sq.NotEq{column: ""}).
		OrderBy(column).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build distinct %s query: %w", column, err)
	}
	return s.queryStrings(query, args...)
}

func (s *Store) queryStrings(query string, args ...any) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("query values", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, storageErr("scan value", err)
		}
		values = append(values, v)
	}
	return values, storageErr("iterate values", rows.Err())
}

// SetNotes replaces the free-text notes of a contact
func (s *Store) SetNotes(actor domain.Actor, id int64, notes string) error {
	return s.withTx("set notes", func(tx *sql.Tx) error {
		res, err := s.exec(tx, "UPDATE contacts SET notes = ?, updated_at = ? WHERE id = ?", notes, s.unixNow(), id)
		if err != nil {
			return storageErr("set notes", err)
		}
		if err := requireAffected(res, "set notes", "contact", id); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionUpdate, "contacts", id, "notes")
	})
}

// AddCoordinate attaches a phone number or email to a contact
func (s *Store) AddCoordinate(actor domain.Actor, contactID int64, c domain.Coordinate) (int64, error) {
	if strings.TrimSpace(c.Value) == "" {
		return 0, invalid("coordinate value is required")
	}

	var id int64
	err := s.withTx("add coordinate", func(tx *sql.Tx) error {
		if err := s.requireExists(tx, "add coordinate", "contacts", "contact", contactID); err != nil {
			return err
		}
		res, err := s.exec(tx,
			"INSERT INTO coordinates (contact_id, kind, value, is_primary) VALUES (?, ?, ?, ?)",
			contactID, c.Kind, c.Value, c.Primary)
		if err != nil {
			return storageErr("insert coordinate", err)
		}
		if id, err = lastID(res, "insert coordinate"); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionCreate, "coordinates", id, c.Kind)
	})
	return id, err
}

// DeleteCoordinate removes one coordinate
func (s *Store) DeleteCoordinate(actor domain.Actor, id int64) error {
	return s.deleteByID(actor, "coordinates", "coordinate", id)
}

// AddSocialLink attaches a social profile to a contact
func (s *Store) AddSocialLink(actor domain.Actor, contactID int64, l domain.SocialLink) (int64, error) {
	if strings.TrimSpace(l.URL) == "" {
		return 0, invalid("social link url is required")
	}

	var id int64
	err := s.withTx("add social link", func(tx *sql.Tx) error {
		if err := s.requireExists(tx, "add social link", "contacts", "contact", contactID); err != nil {
			return err
		}
		res, err := s.exec(tx,
			"INSERT INTO social_links (contact_id, platform, url) VALUES (?, ?, ?)",
			contactID, l.Platform, l.URL)
		if err != nil {
			return storageErr("insert social link", err)
		}
		if id, err = lastID(res, "insert social link"); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionCreate, "social_links", id, l.Platform)
	})
	return id, err
}

// DeleteSocialLink removes one social link
func (s *Store) DeleteSocialLink(actor domain.Actor, id int64) error {
	return s.deleteByID(actor, "social_links", "social link", id)
}

// deleteByID deletes one row of a package-owned table and audits it
func (s *Store) deleteByID(actor domain.Actor, table, what string, id int64) error {
	op := "delete " + what
	return s.withTx(op, func(tx *sql.Tx) error {
		res, err := s.exec(tx, "DELETE FROM "+table+" WHERE id = ?", id)
		if err != nil {
			return storageErr(op, err)
		}
		if err := requireAffected(res, op, what, id); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionDelete, table, id, "")
	})
}

func (s *Store) insertCoordinates(q querier, contactID int64, coords []domain.Coordinate) error {
	for _, c := range coords {
		if strings.TrimSpace(c.Value) == "" {
			continue
		}
		_, err := s.exec(q,
			"INSERT INTO coordinates (contact_id, kind, value, is_primary) VALUES (?, ?, ?, ?)",
			contactID, c.Kind, c.Value, c.Primary)
		if err != nil {
			return storageErr("insert coordinate", err)
		}
	}
	return nil
}

func (s *Store) insertSocialLinks(q querier, contactID int64, links []domain.SocialLink) error {
	for _, l := range links {
		if strings.TrimSpace(l.URL) == "" {
			continue
		}
		_, err := s.exec(q,
			"INSERT INTO social_links (contact_id, platform, url) VALUES (?, ?, ?)",
			contactID, l.Platform, l.URL)
		if err != nil {
			return storageErr("insert social link", err)
		}
	}
	return nil
}

func (s *Store) coordinatesOf(contactID int64) ([]domain.Coordinate, error) {
	rows, err := s.db.Query(`
		SELECT id, contact_id, kind, value, is_primary
		FROM coordinates
		WHERE contact_id = ?
		ORDER BY is_primary DESC, kind, id
	`, contactID)
	if err != nil {
		return nil, storageErr("get coordinates", err)
	}
	defer rows.Close()

	var coords []domain.Coordinate
	for rows.Next() {
		var c domain.Coordinate
		if err := rows.Scan(&c.ID, &c.ContactID, &c.Kind, &c.Value, &c.Primary); err != nil {
			return nil, storageErr("scan coordinate", err)
		}
		coords = append(coords, c)
	}
	return coords, storageErr("iterate coordinates", rows.Err())
}

func (s *Store) socialLinksOf(contactID int64) ([]domain.SocialLink, error) {
	rows, err := s.db.Query(
		"SELECT id, contact_id, platform, url FROM social_links WHERE contact_id = ? ORDER BY platform, id",
		contactID,
	)
	if err != nil {
		return nil, storageErr("get social links", err)
	}
	defer rows.Close()

	var links []domain.SocialLink
	for rows.Next() {
		var l domain.SocialLink
		if err := rows.Scan(&l.ID, &l.ContactID, &l.Platform, &l.URL); err != nil {
			return nil, storageErr("scan social link", err)
		}
		links = append(links, l)
	}
	return links, storageErr("iterate social links", rows.Err())
}

func displayName(given, surname string) string {
	return domain.Contact{GivenName: given, Surname: surname}.DisplayName()
}
