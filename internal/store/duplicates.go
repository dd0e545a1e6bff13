package store

import (
	"strings"

	"github.com/pbaille/carnet/internal/domain"
)

// FindDuplicates returns every pair of contacts whose trimmed, lower-cased
// surname and given name are equal. Each pair is reported once, lower id first.
func (s *Store) FindDuplicates() ([]domain.DuplicatePair, error) {
	rows, err := s.db.Query(`
		SELECT a.id, a.surname, a.given_name, b.id, b.surname, b.given_name
		FROM contacts a
		JOIN contacts b
		  ON LOWER(TRIM(a.surname)) = LOWER(TRIM(b.surname))
		 AND LOWER(TRIM(a.given_name)) = LOWER(TRIM(b.given_name))
		 AND a.id < b.id
		ORDER BY LOWER(TRIM(a.surname)), LOWER(TRIM(a.given_name)), a.id, b.id
	`)
	if err != nil {
		return nil, storageErr("find duplicates", err)
	}
	defer rows.Close()

	var pairs []domain.DuplicatePair
	for rows.Next() {
		var p domain.DuplicatePair
		err := rows.Scan(
			&p.First.ID, &p.First.Surname, &p.First.GivenName,
			&p.Second.ID, &p.Second.Surname, &p.Second.GivenName,
		)
		if err != nil {
			return nil, storageErr("scan duplicate pair", err)
		}
		pairs = append(pairs, p)
	}
	return pairs, storageErr("iterate duplicates", rows.Err())
}

// IsDuplicate reports whether a contact with the same normalized surname and
// given name already exists. It is the import-time check.
//
// With blankGivenMatchesAny, an empty given name matches any contact with the
// same surname. FindDuplicates never does this; callers choose the policy.
func (s *Store) IsDuplicate(surname, givenName string, blankGivenMatchesAny bool) (bool, error) {
	if strings.TrimSpace(surname) == "" {
		return false, nil
	}

	query := `
		SELECT EXISTS(
			SELECT 1 FROM contacts
			WHERE LOWER(TRIM(surname)) = LOWER(TRIM(?))
			  AND LOWER(TRIM(given_name)) = LOWER(TRIM(?))
		)`
	args := []any{surname, givenName}
	if blankGivenMatchesAny && strings.TrimSpace(givenName) == "" {
		query = "SELECT EXISTS(SELECT 1 FROM contacts WHERE LOWER(TRIM(surname)) = LOWER(TRIM(?)))"
		args = args[:1]
	}

	var found bool
	if err := s.db.QueryRow(query, args...).Scan(&found); err != nil {
		return false, storageErr("check duplicate", err)
	}
	return found, nil
}
