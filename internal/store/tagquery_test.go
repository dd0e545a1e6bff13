package store

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/carnet/internal/domain"
)

type tagFixture struct {
	store    *Store
	tags     map[string]int64
	contacts map[string]int64
	// holds maps contact name to tag names
	holds map[string][]string
}

func newTagFixture(t *testing.T) *tagFixture {
	s := newTestStore(t)
	f := &tagFixture{
		store:    s,
		tags:     make(map[string]int64),
		contacts: make(map[string]int64),
		holds: map[string][]string{
			"Alpha":   {"x", "y"},
			"Bravo":   {"x"},
			"Charlie": {"y", "z"},
			"Delta":   {},
			"Echo":    {"x", "y", "z"},
		},
	}
	for _, name := range []string{"x", "y", "z"} {
		f.tags[name] = mustTag(t, s, name)
	}
	for _, name := range []string{"Alpha", "Bravo", "Charlie", "Delta", "Echo"} {
		id := mustContact(t, s, name, "")
		f.contacts[name] = id
		for _, tag := range f.holds[name] {
			require.NoError(t, s.AssignTag(system, f.tags[tag], id))
		}
	}
	return f
}

func (f *tagFixture) ids(tags ...string) []int64 {
	out := make([]int64, len(tags))
	for i, name := range tags {
		out[i] = f.tags[name]
	}
	return out
}

func (f *tagFixture) contactIDs(names ...string) []int64 {
	out := make([]int64, len(names))
	for i, name := range names {
		out[i] = f.contacts[name]
	}
	return out
}

func TestQueryByTags(t *testing.T) {
	f := newTagFixture(t)

	tests := []struct {
		name string
		tags []string
		mode domain.MatchMode
		want []string
	}{
		{"all of one", []string{"x"}, domain.MatchAll, []string{"Alpha", "Bravo", "Echo"}},
		{"all of two", []string{"x", "y"}, domain.MatchAll, []string{"Alpha", "Echo"}},
		{"all of three", []string{"x", "y", "z"}, domain.MatchAll, []string{"Echo"}},
		{"all with repeats", []string{"x", "x", "y"}, domain.MatchAll, []string{"Alpha", "Echo"}},
		{"any of two", []string{"x", "z"}, domain.MatchAny, []string{"Alpha", "Bravo", "Charlie", "Echo"}},
		{"any of one", []string{"z"}, domain.MatchAny, []string{"Charlie", "Echo"}},
		{"all of none", nil, domain.MatchAll, nil},
		{"any of none", nil, domain.MatchAny, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.store.QueryByTags(f.ids(tt.tags...), tt.mode)
			require.NoError(t, err)
			assert.Equal(t, f.contactIDs(tt.want...), contactIDs(got))
		})
	}
}

func TestQueryByTagsUnknownTag(t *testing.T) {
	f := newTagFixture(t)

	got, err := f.store.QueryByTags([]int64{f.tags["x"], 9999}, domain.MatchAll)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = f.store.QueryByTags([]int64{f.tags["z"], 9999}, domain.MatchAny)
	require.NoError(t, err)
	assert.Equal(t, f.contactIDs("Charlie", "Echo"), contactIDs(got))
}

func TestQueryByTagsRejectsUnknownMode(t *testing.T) {
	s := newTestStore(t)
	_, err := s.QueryByTags([]int64{1}, "some")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestTagQueryBindsEveryID(t *testing.T) {
	ids := []int64{41, 42, 43}

	tests := []struct {
		mode     domain.MatchMode
		wantArgs []any
		wantExpr string
	}{
		{domain.MatchAll, []any{int64(41), int64(42), int64(43), 3}, "COUNT(DISTINCT ct.tag_id)"},
		{domain.MatchAny, []any{int64(41), int64(42), int64(43)}, "EXISTS ("},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			query, args, err := tagQuery(ids, tt.mode)
			require.NoError(t, err)
			assert.Equal(t, tt.wantArgs, args)
			assert.Contains(t, query, tt.wantExpr)
			assert.Contains(t, query, "ct.tag_id IN (?,?,?)")
			assert.Equal(t, len(args), strings.Count(query, "?"))
			for _, id := range []string{"41", "42", "43"} {
				assert.NotContains(t, query, id)
			}
		})
	}
}

// Every subset of tags: ALL is the superset filter, ANY is the union of ContactsOf.
func TestQueryByTagsMatchesSetSemantics(t *testing.T) {
	f := newTagFixture(t)
	names := []string{"x", "y", "z"}

	for mask := 0; mask < 1<<len(names); mask++ {
		var subset []string
		for i, name := range names {
			if mask&(1<<i) != 0 {
				subset = append(subset, name)
			}
		}

		var wantAll []int64
		for contact, held := range f.holds {
			if len(subset) > 0 && containsAll(held, subset) {
				wantAll = append(wantAll, f.contacts[contact])
			}
		}

		union := make(map[int64]bool)
		for _, tag := range subset {
			members, err := f.store.ContactsOf(f.tags[tag])
			require.NoError(t, err)
			for _, c := range members {
				union[c.ID] = true
			}
		}
		var wantAny []int64
		for id := range union {
			wantAny = append(wantAny, id)
		}

		all, err := f.store.QueryByTags(f.ids(subset...), domain.MatchAll)
		require.NoError(t, err)
		assert.Equal(t, sorted(wantAll), sorted(contactIDs(all)), "ALL %v", subset)

		anyOf, err := f.store.QueryByTags(f.ids(subset...), domain.MatchAny)
		require.NoError(t, err)
		assert.Equal(t, sorted(wantAny), sorted(contactIDs(anyOf)), "ANY %v", subset)
	}
}

func containsAll(held, want []string) bool {
	set := make(map[string]bool, len(held))
	for _, h := range held {
		set[h] = true
	}
	for _, w := range want {
		if !set[w] {
			return false
		}
	}
	return true
}

func sorted(ids []int64) []int64 {
	out := append([]int64{}, ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
