package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/carnet/internal/domain"
)

func TestCreateAndGetContact(t *testing.T) {
	s := newTestStore(t)

	id, err := s.CreateContact(system, domain.ContactInput{
		Civility:     "M.",
		Surname:      "Martin",
		GivenName:    "Paul",
		Organization: "Acme",
		City:         "Paris",
		Coordinates: []domain.Coordinate{
			{Kind: "email", Value: "paul@example.com", Primary: true},
			{Kind: "mobile", Value: "0600"},
			{Kind: "fixe", Value: "  "},
		},
		SocialLinks: []domain.SocialLink{{Platform: "linkedin", URL: "https://linkedin.com/in/paul"}},
	})
	require.NoError(t, err)

	c, err := s.GetContact(id)
	require.NoError(t, err)
	assert.Equal(t, "Paul Martin", c.DisplayName())
	assert.Equal(t, "Acme", c.Organization)
	require.Len(t, c.Coordinates, 2, "blank values are skipped")
	assert.True(t, c.Coordinates[0].Primary)
	assert.Equal(t, "paul@example.com", c.Coordinates[0].Value)
	require.Len(t, c.SocialLinks, 1)
	assert.Equal(t, "linkedin", c.SocialLinks[0].Platform)
	assert.False(t, c.CreatedAt.IsZero())
}

func TestCreateContactRequiresSurname(t *testing.T) {
	s := newTestStore(t)

	_, err := s.CreateContact(system, domain.ContactInput{GivenName: "Paul"})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Zero(t, countRows(t, s, "SELECT COUNT(*) FROM contacts"))
}

func TestUpdateContact(t *testing.T) {
	s := newTestStore(t)
	id, err := s.CreateContact(system, domain.ContactInput{
		Surname:     "Martin",
		Coordinates: []domain.Coordinate{{Kind: "email", Value: "old@example.com"}},
	})
	require.NoError(t, err)

	// nil slices leave coordinates alone
	require.NoError(t, s.UpdateContact(system, id, domain.ContactInput{Surname: "Martin", City: "Lyon"}))
	c, err := s.GetContact(id)
	require.NoError(t, err)
	assert.Equal(t, "Lyon", c.City)
	require.Len(t, c.Coordinates, 1)

	require.NoError(t, s.UpdateContact(system, id, domain.ContactInput{
		Surname:     "Martin",
		Coordinates: []domain.Coordinate{{Kind: "email", Value: "new@example.com"}},
	}))
	c, err = s.GetContact(id)
	require.NoError(t, err)
	require.Len(t, c.Coordinates, 1)
	assert.Equal(t, "new@example.com", c.Coordinates[0].Value)
	assert.Empty(t, c.City)

	assert.ErrorIs(t, s.UpdateContact(system, id+100, domain.ContactInput{Surname: "X"}), ErrNotFound)
	assert.ErrorIs(t, s.UpdateContact(system, id, domain.ContactInput{}), ErrInvalid)
}

func TestDeleteContactCascades(t *testing.T) {
	s := newTestStore(t)
	id, err := s.CreateContact(system, domain.ContactInput{
		Surname:     "Martin",
		Coordinates: []domain.Coordinate{{Kind: "email", Value: "paul@example.com"}},
	})
	require.NoError(t, err)
	other := mustContact(t, s, "Durand", "")
	tag := mustTag(t, s, "vip")
	require.NoError(t, s.AssignTag(system, tag, id))
	_, err = s.CreateRelation(system, id, other, "friend")
	require.NoError(t, err)
	_, err = s.CreateInteraction(system, InteractionInput{ContactID: id, Kind: "call"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteContact(system, id))

	assert.Zero(t, referencesTo(t, s, id))
	_, err = s.GetContact(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteContact(system, id), ErrNotFound)

	tags, err := s.ListTags()
	require.NoError(t, err)
	assert.Len(t, tags, 1, "tags outlive their contacts")
}

func TestSearchContacts(t *testing.T) {
	s := newTestStore(t)
	inputs := []domain.ContactInput{
		{Surname: "Martin", GivenName: "Paul", City: "Paris", Category: "client", Organization: "Acme"},
		{Surname: "Durand", GivenName: "Claire", City: "Lyon", Category: "client"},
		{Surname: "Leroy", GivenName: "Anne", City: "Paris", Category: "fournisseur", Organization: "Martinez SA"},
	}
	ids := make([]int64, len(inputs))
	for i, in := range inputs {
		var err error
		ids[i], err = s.CreateContact(system, in)
		require.NoError(t, err)
	}

	tests := []struct {
		name   string
		filter ContactFilter
		want   []int64
	}{
		{"all", ContactFilter{}, []int64{ids[1], ids[2], ids[0]}},
		{"text in surname or organization", ContactFilter{Text: "martin"}, []int64{ids[2], ids[0]}},
		{"city", ContactFilter{City: "Paris"}, []int64{ids[2], ids[0]}},
		{"city and category", ContactFilter{City: "Paris", Category: "client"}, []int64{ids[0]}},
		{"organization", ContactFilter{Organization: "Acme"}, []int64{ids[0]}},
		{"paged", ContactFilter{Limit: 1, Offset: 1}, []int64{ids[2]}},
		{"injection is a literal", ContactFilter{Text: "' OR 1=1 --"}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.SearchContacts(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, contactIDs(got))
		})
	}

	categories, err := s.Categories()
	require.NoError(t, err)
	assert.Equal(t, []string{"client", "fournisseur"}, categories)

	cities, err := s.Cities()
	require.NoError(t, err)
	assert.Equal(t, []string{"Lyon", "Paris"}, cities)

	orgs, err := s.Organizations()
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Martinez SA"}, orgs)
}

func TestNotesCoordinatesAndLinks(t *testing.T) {
	s := newTestStore(t)
	id := mustContact(t, s, "Martin", "Paul")

	require.NoError(t, s.SetNotes(system, id, "met at the fair"))
	assert.ErrorIs(t, s.SetNotes(system, id+100, "x"), ErrNotFound)

	coordID, err := s.AddCoordinate(system, id, domain.Coordinate{Kind: "email", Value: "paul@example.com"})
	require.NoError(t, err)
	linkID, err := s.AddSocialLink(system, id, domain.SocialLink{Platform: "github", URL: "https://github.com/paul"})
	require.NoError(t, err)

	_, err = s.AddCoordinate(system, id+100, domain.Coordinate{Kind: "email", Value: "x@example.com"})
	assert.ErrorIs(t, err, ErrNotFound)

	c, err := s.GetContact(id)
	require.NoError(t, err)
	assert.Equal(t, "met at the fair", c.Notes)
	assert.Len(t, c.Coordinates, 1)
	assert.Len(t, c.SocialLinks, 1)

	require.NoError(t, s.DeleteCoordinate(system, coordID))
	require.NoError(t, s.DeleteSocialLink(system, linkID))
	assert.ErrorIs(t, s.DeleteCoordinate(system, coordID), ErrNotFound)

	c, err = s.GetContact(id)
	require.NoError(t, err)
	assert.Empty(t, c.Coordinates)
	assert.Empty(t, c.SocialLinks)
}
