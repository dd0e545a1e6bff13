package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/carnet/internal/domain"
)

func TestAuditAttributesActor(t *testing.T) {
	s := newTestStore(t)

	userID, err := s.CreateUser(system, UserInput{Username: "alice", PasswordHash: "x", Role: domain.RoleOwner})
	require.NoError(t, err)
	alice, err := s.GetUser(userID)
	require.NoError(t, err)

	contactID, err := s.CreateContact(alice.Actor(), domain.ContactInput{Surname: "Martin"})
	require.NoError(t, err)

	entries, err := s.AuditLog(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	latest := entries[0]
	assert.Equal(t, ActionCreate, latest.Action)
	assert.Equal(t, "contacts", latest.TargetTable)
	require.NotNil(t, latest.TargetID)
	assert.Equal(t, contactID, *latest.TargetID)
	require.NotNil(t, latest.UserID)
	assert.Equal(t, userID, *latest.UserID)
	assert.NotEmpty(t, latest.ID)

	assert.Nil(t, entries[1].UserID, "the account was created by the system")
	assert.Equal(t, "users", entries[1].TargetTable)
}

func TestFailedMutationIsNotAudited(t *testing.T) {
	s := newTestStore(t)
	mustTag(t, s, "vip")
	before := countRows(t, s, "SELECT COUNT(*) FROM audit_log")

	_, err := s.CreateContact(system, domain.ContactInput{})
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = s.CreateTag(system, "vip")
	assert.ErrorIs(t, err, ErrDuplicateName)
	assert.ErrorIs(t, s.DeleteContact(system, 404), ErrNotFound)

	assert.Equal(t, before, countRows(t, s, "SELECT COUNT(*) FROM audit_log"))
}

func TestAuditFailureRollsBackMutation(t *testing.T) {
	s := newTestStore(t)

	// no user row 99, so the audit insert violates its foreign key
	ghost := domain.Actor{UserID: 99, Username: "ghost"}
	_, err := s.CreateContact(ghost, domain.ContactInput{Surname: "Martin"})
	require.Error(t, err)

	assert.Zero(t, countRows(t, s, "SELECT COUNT(*) FROM contacts"))
	assert.Zero(t, countRows(t, s, "SELECT COUNT(*) FROM audit_log"))
}

func TestRecordAndUsers(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Record(system, ActionExport, "contacts", 0, "csv 3 contacts"))
	entries, err := s.AuditLog(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].TargetID)
	assert.Equal(t, "csv 3 contacts", entries[0].Details)

	for _, name := range []string{"zoe", "bob"} {
		_, err := s.CreateUser(system, UserInput{Username: name, PasswordHash: "x", Role: domain.RoleConsultant})
		require.NoError(t, err)
	}
	users, err := s.ListUsers()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Username)
	assert.True(t, users[0].Active)
	assert.Nil(t, users[0].LastLoginAt)

	n, err := s.CountUsers()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, s.RecordLogin(users[0].ID, users[0].Username))
	bob, err := s.GetUser(users[0].ID)
	require.NoError(t, err)
	assert.NotNil(t, bob.LastLoginAt)

	_, hash, err := s.UserCredentials("zoe")
	require.NoError(t, err)
	assert.Equal(t, "x", hash)
	_, _, err = s.UserCredentials("nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}
