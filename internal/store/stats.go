package store

import (
	"github.com/pbaille/carnet/internal/domain"
)

// Periods accepted by ContactsPerPeriod
const (
	PeriodMonth = "month"
	PeriodYear  = "year"
)

// GlobalStats counts the main entities of the book
func (s *Store) GlobalStats() (*domain.Stats, error) {
	var st domain.Stats
	err := s.db.QueryRow(`
		SELECT
			(SELECT COUNT(*) FROM contacts),
			(SELECT COUNT(*) FROM tags),
			(SELECT COUNT(*) FROM relations),
			(SELECT COUNT(*) FROM interactions),
			(SELECT COUNT(*) FROM reminders WHERE done = 0),
			(SELECT COUNT(*) FROM tasks WHERE status != ?),
			(SELECT COUNT(*) FROM projects)
	`, domain.StatusDone).Scan(
		&st.Contacts, &st.Tags, &st.Relations, &st.Interactions,
		&st.OpenReminders, &st.OpenTasks, &st.Projects,
	)
	if err != nil {
		return nil, storageErr("global stats", err)
	}
	return &st, nil
}

// ContactsByCategory counts contacts per non-empty category, largest first
func (s *Store) ContactsByCategory() ([]domain.Count, error) {
	return s.countContactsBy("category")
}

// ContactsByCity counts contacts per non-empty city, largest first
func (s *Store) ContactsByCity() ([]domain.Count, error) {
	return s.countContactsBy("city")
}

// ContactsByCountry counts contacts per non-empty country, largest first
func (s *Store) ContactsByCountry() ([]domain.Count, error) {
	return s.countContactsBy("country")
}

// column is always a package constant
func (s *Store) countContactsBy(column string) ([]domain.Count, error) {
	return s.queryCounts(`
		SELECT ` + column + `, COUNT(*) AS n
		FROM contacts
		WHERE ` + column + ` != ''
		GROUP BY ` + column + `
		ORDER BY n DESC, ` + column)
}

// ContactsByTag counts contacts per tag, tags without contacts included
func (s *Store) ContactsByTag() ([]domain.Count, error) {
	return s.queryCounts(`
		SELECT t.name, COUNT(ct.contact_id) AS n
		FROM tags t
		LEFT JOIN contact_tags ct ON t.id = ct.tag_id
		GROUP BY t.id
		ORDER BY n DESC, t.name
	`)
}

// ContactsPerPeriod counts contacts by creation month (YYYY-MM) or year (YYYY),
// oldest first
func (s *Store) ContactsPerPeriod(period string) ([]domain.Count, error) {
	var format string
	switch period {
	case PeriodMonth:
		format = "%Y-%m"
	case PeriodYear:
		format = "%Y"
	default:
		return nil, invalid("unknown period %q", period)
	}
	return s.queryCounts(`
		SELECT strftime(?, created_at, 'unixepoch', 'localtime') AS period, COUNT(*)
		FROM contacts
		GROUP BY period
		ORDER BY period
	`, format)
}

// MostActiveContacts ranks contacts by number of interactions
func (s *Store) MostActiveContacts(limit int) ([]domain.ActiveContact, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.Query(`
		SELECT c.id, c.surname, c.given_name, COUNT(i.id) AS n
		FROM contacts c
		JOIN interactions i ON c.id = i.contact_id
		GROUP BY c.id
		ORDER BY n DESC, c.surname COLLATE NOCASE, c.id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, storageErr("most active contacts", err)
	}
	defer rows.Close()

	var out []domain.ActiveContact
	for rows.Next() {
		var a domain.ActiveContact
		if err := rows.Scan(&a.Contact.ID, &a.Contact.Surname, &a.Contact.GivenName, &a.Interactions); err != nil {
			return nil, storageErr("scan active contact", err)
		}
		out = append(out, a)
	}
	return out, storageErr("iterate active contacts", rows.Err())
}

func (s *Store) queryCounts(query string, args ...any) ([]domain.Count, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("count contacts", err)
	}
	defer rows.Close()

	var out []domain.Count
	for rows.Next() {
		var c domain.Count
		if err := rows.Scan(&c.Label, &c.Count); err != nil {
			return nil, storageErr("scan count", err)
		}
		out = append(out, c)
	}
	return out, storageErr("iterate counts", rows.Err())
}
