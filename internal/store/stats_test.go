package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/carnet/internal/domain"
)

func TestStatistics(t *testing.T) {
	clock := time.Date(2025, 11, 15, 12, 0, 0, 0, time.Local)
	s := newTestStore(t, WithClock(func() time.Time { return clock }))

	create := func(in domain.ContactInput) int64 {
		id, err := s.CreateContact(system, in)
		require.NoError(t, err)
		return id
	}
	paul := create(domain.ContactInput{Surname: "Martin", GivenName: "Paul", City: "Paris", Country: "France", Category: "client"})
	clock = time.Date(2026, 1, 15, 12, 0, 0, 0, time.Local)
	claire := create(domain.ContactInput{Surname: "Durand", GivenName: "Claire", City: "Lyon", Country: "France", Category: "client"})
	create(domain.ContactInput{Surname: "Leroy", City: "Paris", Category: "fournisseur"})

	vip := mustTag(t, s, "vip")
	mustTag(t, s, "unused")
	require.NoError(t, s.AssignTag(system, vip, paul))

	for range 3 {
		_, err := s.CreateInteraction(system, InteractionInput{ContactID: claire, Kind: "call"})
		require.NoError(t, err)
	}
	_, err := s.CreateInteraction(system, InteractionInput{ContactID: paul, Kind: "email"})
	require.NoError(t, err)

	_, err = s.CreateReminder(system, ReminderInput{ContactID: paul, Title: "Follow up", DueAt: clock})
	require.NoError(t, err)
	task, err := s.CreateTask(system, TaskInput{Title: "Offer", ContactIDs: []int64{paul}})
	require.NoError(t, err)
	_, err = s.CreateTask(system, TaskInput{Title: "Invoice", ContactIDs: []int64{claire}})
	require.NoError(t, err)
	require.NoError(t, s.CompleteTask(system, task))
	_, err = s.CreateRelation(system, paul, claire, "colleague")
	require.NoError(t, err)

	global, err := s.GlobalStats()
	require.NoError(t, err)
	assert.Equal(t, domain.Stats{
		Contacts: 3, Tags: 2, Relations: 1, Interactions: 4,
		OpenReminders: 1, OpenTasks: 1, Projects: 0,
	}, *global)

	byCity, err := s.ContactsByCity()
	require.NoError(t, err)
	assert.Equal(t, []domain.Count{{Label: "Paris", Count: 2}, {Label: "Lyon", Count: 1}}, byCity)

	byCountry, err := s.ContactsByCountry()
	require.NoError(t, err)
	assert.Equal(t, []domain.Count{{Label: "France", Count: 2}}, byCountry, "empty values are left out")

	byCategory, err := s.ContactsByCategory()
	require.NoError(t, err)
	assert.Equal(t, []domain.Count{{Label: "client", Count: 2}, {Label: "fournisseur", Count: 1}}, byCategory)

	byTag, err := s.ContactsByTag()
	require.NoError(t, err)
	assert.Equal(t, []domain.Count{{Label: "vip", Count: 1}, {Label: "unused", Count: 0}}, byTag)

	perMonth, err := s.ContactsPerPeriod(PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, []domain.Count{{Label: "2025-11", Count: 1}, {Label: "2026-01", Count: 2}}, perMonth)

	perYear, err := s.ContactsPerPeriod(PeriodYear)
	require.NoError(t, err)
	assert.Equal(t, []domain.Count{{Label: "2025", Count: 1}, {Label: "2026", Count: 2}}, perYear)

	_, err = s.ContactsPerPeriod("week")
	assert.ErrorIs(t, err, ErrInvalid)

	active, err := s.MostActiveContacts(1)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, claire, active[0].Contact.ID)
	assert.Equal(t, 3, active[0].Interactions)

	active, err = s.MostActiveContacts(0)
	require.NoError(t, err)
	assert.Len(t, active, 2, "contacts without interactions are not ranked")
}
