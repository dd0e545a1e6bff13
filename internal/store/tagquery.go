package store

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/pbaille/carnet/internal/domain"
)

// QueryByTags returns the contacts holding all (MatchAll) or at least one
// (MatchAny) of the given tags. An empty tag set matches nothing.
func (s *Store) QueryByTags(tagIDs []int64, mode domain.MatchMode) ([]domain.Contact, error) {
	if mode != domain.MatchAll && mode != domain.MatchAny {
		return nil, invalid("unknown match mode %q", mode)
	}

	ids := uniqueIDs(tagIDs)
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := tagQuery(ids, mode)
	if err != nil {
		return nil, storageErr("build tag query", err)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("query contacts by tags", err)
	}
	return scanContacts(rows, "query contacts by tags")
}

// tagQuery builds the set query for a non-empty, duplicate-free id list
func tagQuery(ids []int64, mode domain.MatchMode) (string, []any, error) {
	held := func(columns string) sq.SelectBuilder {
		return sq.Select(columns).
			From("contact_tags ct").
			Where("ct.contact_id = c.id").
			Where(sq.Eq{"ct.tag_id": ids})
	}

	qb := sq.Select(contactColumns).From("contacts c")
	if mode == domain.MatchAll {
		qb = qb.Where(sq.Expr("(?) = ?", held("COUNT(DISTINCT ct.tag_id)"), len(ids)))
	} else {
		qb = qb.Where(sq.Expr("EXISTS (?)", held("1")))
	}
	return qb.OrderBy(contactOrder...).ToSql()
}

// uniqueIDs drops duplicates and keeps first-seen order
func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
