package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/carnet/internal/domain"
)

var system = domain.Actor{}

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "carnet.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func fixedClock(t time.Time) Option {
	return WithClock(func() time.Time { return t })
}

func mustContact(t *testing.T, s *Store, surname, given string) int64 {
	t.Helper()
	id, err := s.CreateContact(system, domain.ContactInput{Surname: surname, GivenName: given})
	require.NoError(t, err)
	return id
}

func mustTag(t *testing.T, s *Store, name string) int64 {
	t.Helper()
	id, err := s.CreateTag(system, name)
	require.NoError(t, err)
	return id
}

func contactIDs(contacts []domain.Contact) []int64 {
	out := make([]int64, len(contacts))
	for i, c := range contacts {
		out[i] = c.ID
	}
	return out
}

func countRows(t *testing.T, s *Store, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow(query, args...).Scan(&n))
	return n
}

// snapshot dumps every data table so two states can be compared
func snapshot(t *testing.T, s *Store) map[string][][]any {
	t.Helper()
	tables := []string{
		"contacts", "coordinates", "social_links", "tags", "contact_tags", "relations",
		"interactions", "reminders", "projects", "tasks", "task_contacts", "audit_log",
	}

	out := make(map[string][][]any)
	for _, table := range tables {
		rows, err := s.db.Query("SELECT * FROM " + table + " ORDER BY 1, 2")
		require.NoError(t, err)
		cols, err := rows.Columns()
		require.NoError(t, err)
		for rows.Next() {
			vals := make([]any, len(cols))
			ptrs := make([]any, len(cols))
			for i := range vals {
				ptrs[i] = &vals[i]
			}
			require.NoError(t, rows.Scan(ptrs...))
			out[table] = append(out[table], vals)
		}
		require.NoError(t, rows.Err())
		rows.Close()
	}
	return out
}

func TestDrivers(t *testing.T) {
	for _, driver := range []string{DriverCGo, DriverPureGo} {
		t.Run(driver, func(t *testing.T) {
			s := newTestStore(t, WithDriver(driver))

			tagID := mustTag(t, s, "VIP")
			_, err := s.CreateTag(system, "VIP")
			assert.ErrorIs(t, err, ErrDuplicateName)

			id := mustContact(t, s, "Smith", "John")
			require.NoError(t, s.AssignTag(system, tagID, id))
			require.NoError(t, s.DeleteContact(system, id))

			// foreign keys are on for every pooled connection
			assert.Zero(t, countRows(t, s, "SELECT COUNT(*) FROM contact_tags"))
		})
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "carnet.db")

	s, err := New(path)
	require.NoError(t, err)
	id, err := s.CreateContact(system, domain.ContactInput{Surname: "Durand"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(path)
	require.NoError(t, err)
	defer s.Close()

	c, err := s.GetContact(id)
	require.NoError(t, err)
	assert.Equal(t, "Durand", c.Surname)
}
