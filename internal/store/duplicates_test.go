package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindDuplicatesNormalizesNames(t *testing.T) {
	s := newTestStore(t)
	first := mustContact(t, s, "Smith", " John ")
	mustContact(t, s, "Smith", "Jane")
	second := mustContact(t, s, "SMITH", "john")

	pairs, err := s.FindDuplicates()
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, first, pairs[0].First.ID)
	assert.Equal(t, second, pairs[0].Second.ID)
	assert.Equal(t, " John ", pairs[0].First.GivenName)
}

func TestFindDuplicatesReportsEachPairOnce(t *testing.T) {
	s := newTestStore(t)
	a := mustContact(t, s, "Martin", "Paul")
	b := mustContact(t, s, "martin", "paul")
	c := mustContact(t, s, " MARTIN", "Paul ")

	pairs, err := s.FindDuplicates()
	require.NoError(t, err)
	require.Len(t, pairs, 3)

	seen := make(map[[2]int64]bool)
	for _, p := range pairs {
		assert.Less(t, p.First.ID, p.Second.ID)
		seen[[2]int64{p.First.ID, p.Second.ID}] = true
	}
	assert.Equal(t, map[[2]int64]bool{{a, b}: true, {a, c}: true, {b, c}: true}, seen)
}

func TestFindDuplicatesBlankGivenNameIsNotWildcard(t *testing.T) {
	s := newTestStore(t)
	mustContact(t, s, "Martin", "")
	mustContact(t, s, "Martin", "Paul")

	pairs, err := s.FindDuplicates()
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestIsDuplicate(t *testing.T) {
	s := newTestStore(t)
	mustContact(t, s, "Martin", "Paul")

	tests := []struct {
		name       string
		surname    string
		given      string
		blankIsAny bool
		want       bool
	}{
		{"exact", "Martin", "Paul", true, true},
		{"case and spaces", " martin ", "PAUL", false, true},
		{"other given name", "Martin", "Pierre", true, false},
		{"blank given matches any", "Martin", "", true, true},
		{"blank given exact", "Martin", " ", false, false},
		{"blank surname", "", "Paul", true, false},
		{"other surname", "Durand", "Paul", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.IsDuplicate(tt.surname, tt.given, tt.blankIsAny)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
