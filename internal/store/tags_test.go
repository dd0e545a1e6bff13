package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTagRejectsDuplicateName(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateTag(system, "VIP")
	require.NoError(t, err)

	_, err = s.CreateTag(system, "VIP")
	assert.ErrorIs(t, err, ErrDuplicateName)

	tags, err := s.ListTags()
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "VIP", tags[0].Name)

	// names are case-sensitive
	_, err = s.CreateTag(system, "vip")
	assert.NoError(t, err)
}

func TestCreateTagRejectsBlankName(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateTag(system, "  ")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestEnsureTag(t *testing.T) {
	s := newTestStore(t)
	id := mustTag(t, s, "client")

	tag, err := s.EnsureTag(system, "client")
	require.NoError(t, err)
	assert.Equal(t, id, tag.ID)

	tag, err = s.EnsureTag(system, "prospect")
	require.NoError(t, err)
	assert.NotEqual(t, id, tag.ID)

	_, err = s.TagByName("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignTagIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	tagID := mustTag(t, s, "VIP")
	contactID := mustContact(t, s, "Smith", "John")

	require.NoError(t, s.AssignTag(system, tagID, contactID))
	require.NoError(t, s.AssignTag(system, tagID, contactID))

	tags, err := s.TagsOf(contactID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, tagID, tags[0].ID)

	n, err := s.CountContacts(tagID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, 1, countRows(t, s, "SELECT COUNT(*) FROM audit_log WHERE action = ?", ActionAssign))
}

func TestAssignTagRequiresBothEnds(t *testing.T) {
	s := newTestStore(t)
	tagID := mustTag(t, s, "VIP")
	contactID := mustContact(t, s, "Smith", "John")

	assert.ErrorIs(t, s.AssignTag(system, tagID, contactID+100), ErrNotFound)
	assert.ErrorIs(t, s.AssignTag(system, tagID+100, contactID), ErrNotFound)
	assert.Zero(t, countRows(t, s, "SELECT COUNT(*) FROM contact_tags"))
}

func TestUnassignTag(t *testing.T) {
	s := newTestStore(t)
	tagID := mustTag(t, s, "VIP")
	contactID := mustContact(t, s, "Smith", "John")

	// absent pair
	require.NoError(t, s.UnassignTag(system, tagID, contactID))

	require.NoError(t, s.AssignTag(system, tagID, contactID))
	require.NoError(t, s.UnassignTag(system, tagID, contactID))

	tags, err := s.TagsOf(contactID)
	require.NoError(t, err)
	assert.Empty(t, tags)

	entries, err := s.AuditLog(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ActionUnassign, entries[0].Action)
	assert.Equal(t, ActionAssign, entries[1].Action)
}

func TestTagByID(t *testing.T) {
	s := newTestStore(t)
	id := mustTag(t, s, "VIP")

	tag, err := s.TagByID(id)
	require.NoError(t, err)
	assert.Equal(t, "VIP", tag.Name)
	assert.False(t, tag.CreatedAt.IsZero())

	_, err = s.TagByID(id + 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTag(t *testing.T) {
	s := newTestStore(t)
	tagID := mustTag(t, s, "VIP")
	contactID := mustContact(t, s, "Smith", "John")
	require.NoError(t, s.AssignTag(system, tagID, contactID))

	require.NoError(t, s.DeleteTag(system, tagID))

	assert.Zero(t, countRows(t, s, "SELECT COUNT(*) FROM contact_tags"))
	_, err := s.GetContact(contactID)
	assert.NoError(t, err, "contacts survive tag deletion")

	assert.ErrorIs(t, s.DeleteTag(system, tagID), ErrNotFound)
}

func TestContactsOfOrdersByName(t *testing.T) {
	s := newTestStore(t)
	tagID := mustTag(t, s, "team")
	zed := mustContact(t, s, "zola", "Emile")
	adam := mustContact(t, s, "Adam", "Bob")
	adamA := mustContact(t, s, "adam", "Alice")
	other := mustContact(t, s, "Other", "")
	for _, id := range []int64{zed, adam, adamA} {
		require.NoError(t, s.AssignTag(system, tagID, id))
	}

	contacts, err := s.ContactsOf(tagID)
	require.NoError(t, err)
	assert.Equal(t, []int64{adamA, adam, zed}, contactIDs(contacts))
	assert.NotContains(t, contactIDs(contacts), other)
}

func TestTagStatistics(t *testing.T) {
	s := newTestStore(t)
	popular := mustTag(t, s, "popular")
	mustTag(t, s, "unused")
	a := mustContact(t, s, "A", "")
	b := mustContact(t, s, "B", "")
	require.NoError(t, s.AssignTag(system, popular, a))
	require.NoError(t, s.AssignTag(system, popular, b))

	stats, err := s.TagStatistics()
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "popular", stats[0].Tag.Name)
	assert.Equal(t, 2, stats[0].Count)
	assert.Equal(t, "unused", stats[1].Tag.Name)
	assert.Zero(t, stats[1].Count)
}
