package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pbaille/carnet/internal/domain"
)

// InteractionInput carries the fields of a new interaction
type InteractionInput struct {
	ContactID   int64
	Kind        string
	OccurredAt  time.Time // zero means now
	Description string
	Status      string
}

// InteractionFilter narrows SearchInteractions. Zero fields do not filter.
type InteractionFilter struct {
	ContactID int64
	Text      string
	Kind      string
	From      time.Time
	To        time.Time
	Limit     uint64
}

func (f InteractionFilter) toSQL() (string, []any, error) {
	qb := sq.Select(
		"i.id", "i.contact_id", "i.kind", "i.occurred_at", "i.description", "i.status",
		"c.surname", "c.given_name",
	).
		From("interactions i").
		Join("contacts c ON i.contact_id = c.id")

	if f.ContactID != 0 {
		qb = qb.Where(sq.Eq{"i.contact_id": f.ContactID})
	}
	if text := strings.TrimSpace(f.Text); text != "" {
		like := "%" + text + "%"
		qb = qb.Where(sq.Or{
			sq.Like{"i.description": like},
			sq.Like{"c.surname": like},
			sq.Like{"c.given_name": like},
		})
	}
	if f.Kind != "" {
		qb = qb.Where(sq.Eq{"i.kind": f.Kind})
	}
	if !f.From.IsZero() {
		qb = qb.Where(sq.GtOrEq{"i.occurred_at": f.From.Unix()})
	}
	if !f.To.IsZero() {
		qb = qb.Where(sq.LtOrEq{"i.occurred_at": f.To.Unix()})
	}

	qb = qb.OrderBy("i.occurred_at DESC", "i.id DESC")
	if f.Limit > 0 {
		qb = qb.Limit(f.Limit)
	}
	return qb.ToSql()
}

// CreateInteraction logs an exchange with a contact
func (s *Store) CreateInteraction(actor domain.Actor, in InteractionInput) (int64, error) {
	if strings.TrimSpace(in.Kind) == "" {
		return 0, invalid("interaction type is required")
	}
	occurred := in.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}

	var id int64
	err := s.withTx("create interaction", func(tx *sql.Tx) error {
		if err := s.requireExists(tx, "create interaction", "contacts", "contact", in.ContactID); err != nil {
			return err
		}
		res, err := s.exec(tx, `
			INSERT INTO interactions (contact_id, kind, occurred_at, description, status)
			VALUES (?, ?, ?, ?, ?)
		`, in.ContactID, in.Kind, occurred.Unix(), in.Description, in.Status)
		if err != nil {
			return storageErr("insert interaction", err)
		}
		if id, err = lastID(res, "insert interaction"); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionCreate, "interactions", id,
			fmt.Sprintf("contact %d - %s", in.ContactID, in.Kind))
	})
	return id, err
}

// DeleteInteraction removes one interaction
func (s *Store) DeleteInteraction(actor domain.Actor, id int64) error {
	return s.deleteByID(actor, "interactions", "interaction", id)
}

// ListInteractions returns interactions newest first, for one contact when
// contactID is non-zero. A zero limit returns all.
func (s *Store) ListInteractions(contactID int64, limit uint64) ([]domain.Interaction, error) {
	return s.SearchInteractions(InteractionFilter{ContactID: contactID, Limit: limit})
}

// SearchInteractions returns the interactions matching every non-zero filter field
func (s *Store) SearchInteractions(f InteractionFilter) ([]domain.Interaction, error) {
	query, args, err := f.toSQL()
	if err != nil {
		return nil, fmt.Errorf("build interaction query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("search interactions", err)
	}
	defer rows.Close()

	var out []domain.Interaction
	for rows.Next() {
		var i domain.Interaction
		var occurred int64
		err := rows.Scan(&i.ID, &i.ContactID, &i.Kind, &occurred, &i.Description, &i.Status,
			&i.Contact.Surname, &i.Contact.GivenName)
		if err != nil {
			return nil, storageErr("scan interaction", err)
		}
		i.OccurredAt = fromUnix(occurred)
		i.Contact.ID = i.ContactID
		out = append(out, i)
	}
	return out, storageErr("iterate interactions", rows.Err())
}

// InteractionTypes returns the distinct interaction kinds, sorted
func (s *Store) InteractionTypes() ([]string, error) {
	return s.queryStrings("SELECT DISTINCT kind FROM interactions ORDER BY kind")
}

func (s *Store) repointInteractions(q querier, from, to int64) error {
	_, err := s.exec(q, "UPDATE interactions SET contact_id = ? WHERE contact_id = ?", to, from)
	return err
}
