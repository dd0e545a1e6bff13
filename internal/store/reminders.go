package store

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/pbaille/carnet/internal/domain"
)

// Reminder priorities
const (
	PriorityLow    = "basse"
	PriorityMedium = "moyenne"
	PriorityHigh   = "haute"
)

// ReminderInput carries the fields of a new reminder
type ReminderInput struct {
	ContactID   int64
	Kind        string
	Title       string
	DueAt       time.Time
	Description string
	Priority    string
	Repeat      string
}

// ReminderFilter narrows ListReminders
type ReminderFilter struct {
	ContactID int64
	// Done filters on completion when non-nil
	Done *bool
	// WithinDays keeps reminders due from today up to that many days ahead
	WithinDays int
}

// CreateReminder schedules a follow-up on a contact
func (s *Store) CreateReminder(actor domain.Actor, in ReminderInput) (int64, error) {
	if strings.TrimSpace(in.Title) == "" {
		return 0, invalid("reminder title is required")
	}
	if in.DueAt.IsZero() {
		return 0, invalid("reminder due date is required")
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}

	var id int64
	err := s.withTx("create reminder", func(tx *sql.Tx) error {
		if err := s.requireExists(tx, "create reminder", "contacts", "contact", in.ContactID); err != nil {
			return err
		}
		res, err := s.exec(tx, `
			INSERT INTO reminders (contact_id, kind, title, due_at, description, priority, repeat, done)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0)
		`, in.ContactID, in.Kind, in.Title, in.DueAt.Unix(), in.Description, in.Priority, in.Repeat)
		if err != nil {
			return storageErr("insert reminder", err)
		}
		if id, err = lastID(res, "insert reminder"); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionCreate, "reminders", id, in.Title)
	})
	return id, err
}

// ListReminders returns reminders ordered by due date
func (s *Store) ListReminders(f ReminderFilter) ([]domain.Reminder, error) {
	qb := reminderSelect()
	if f.ContactID != 0 {
		qb = qb.Where(sq.Eq{"r.contact_id": f.ContactID})
	}
	if f.Done != nil {
		qb = qb.Where(sq.Eq{"r.done": *f.Done})
	}
	if f.WithinDays > 0 {
		start := startOfDay(s.now())
		end := start.AddDate(0, 0, f.WithinDays+1)
		qb = qb.Where(sq.GtOrEq{"r.due_at": start.Unix()}).Where(sq.Lt{"r.due_at": end.Unix()})
	}
	return s.queryReminders(qb.OrderBy("r.due_at", "r.id"))
}

// DueToday returns the open reminders due on the current day
func (s *Store) DueToday() ([]domain.Reminder, error) {
	start := startOfDay(s.now())
	qb := reminderSelect().
		Where(sq.Eq{"r.done": false}).
		Where(sq.GtOrEq{"r.due_at": start.Unix()}).
		Where(sq.Lt{"r.due_at": start.AddDate(0, 0, 1).Unix()}).
		OrderBy("r.due_at", "r.id")
	return s.queryReminders(qb)
}

func reminderSelect() sq.SelectBuilder {
	return sq.Select(
		"r.id", "r.contact_id", "r.kind", "r.title", "r.due_at", "r.description",
		"r.priority", "r.repeat", "r.done", "c.surname", "c.given_name",
	).
		From("reminders r").
		Join("contacts c ON r.contact_id = c.id")
}

func (s *Store) queryReminders(qb sq.SelectBuilder) ([]domain.Reminder, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build reminder query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("list reminders", err)
	}
	defer rows.Close()

	var out []domain.Reminder
	for rows.Next() {
		var r domain.Reminder
		var due int64
		err := rows.Scan(&r.ID, &r.ContactID, &r.Kind, &r.Title, &due, &r.Description,
			&r.Priority, &r.Repeat, &r.Done, &r.Contact.Surname, &r.Contact.GivenName)
		if err != nil {
			return nil, storageErr("scan reminder", err)
		}
		r.DueAt = fromUnix(due)
		r.Contact.ID = r.ContactID
		out = append(out, r)
	}
	return out, storageErr("iterate reminders", rows.Err())
}

// MarkReminderDone flags a reminder as handled
func (s *Store) MarkReminderDone(actor domain.Actor, id int64) error {
	return s.withTx("mark reminder done", func(tx *sql.Tx) error {
		res, err := s.exec(tx, "UPDATE reminders SET done = 1 WHERE id = ?", id)
		if err != nil {
			return storageErr("mark reminder done", err)
		}
		if err := requireAffected(res, "mark reminder done", "reminder", id); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionDone, "reminders", id, "")
	})
}

// DeleteReminder removes one reminder
func (s *Store) DeleteReminder(actor domain.Actor, id int64) error {
	return s.deleteByID(actor, "reminders", "reminder", id)
}

// UpcomingBirthdays returns the birthdays falling within the next days,
// today included, soonest first. Birth dates are YYYY-MM-DD; others are skipped.
func (s *Store) UpcomingBirthdays(days int) ([]domain.Birthday, error) {
	rows, err := s.db.Query(
		"SELECT id, surname, given_name, birth_date FROM contacts WHERE birth_date != ''",
	)
	if err != nil {
		return nil, storageErr("list birth dates", err)
	}
	defer rows.Close()

	today := startOfDay(s.now())
	limit := today.AddDate(0, 0, days)

	var out []domain.Birthday
	for rows.Next() {
		var ref domain.ContactRef
		var raw string
		if err := rows.Scan(&ref.ID, &ref.Surname, &ref.GivenName, &raw); err != nil {
			return nil, storageErr("scan birth date", err)
		}
		born, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(raw), today.Location())
		if err != nil {
			continue
		}
		next := nextAnniversary(born, today)
		if next.After(limit) {
			continue
		}
		out = append(out, domain.Birthday{Contact: ref, Date: next, Age: next.Year() - born.Year()})
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate birth dates", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return strings.ToLower(out[i].Contact.Surname) < strings.ToLower(out[j].Contact.Surname)
	})
	return out, nil
}

// nextAnniversary returns the first anniversary of born on or after today.
// February 29 falls on March 1 in common years.
func nextAnniversary(born, today time.Time) time.Time {
	next := time.Date(today.Year(), born.Month(), born.Day(), 0, 0, 0, 0, today.Location())
	if next.Before(today) {
		next = time.Date(today.Year()+1, born.Month(), born.Day(), 0, 0, 0, 0, today.Location())
	}
	return next
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (s *Store) repointReminders(q querier, from, to int64) error {
	_, err := s.exec(q, "UPDATE reminders SET contact_id = ? WHERE contact_id = ?", to, from)
	return err
}
