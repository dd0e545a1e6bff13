package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/pbaille/carnet/internal/domain"
)

const relationSelect = `
	SELECT r.id, r.source_contact_id, r.target_contact_id, r.kind, r.created_at,
	       cs.surname, cs.given_name, ct.surname, ct.given_name
	FROM relations r
	JOIN contacts cs ON r.source_contact_id = cs.id
	JOIN contacts ct ON r.target_contact_id = ct.id
`

const relationOrder = " ORDER BY r.created_at DESC, r.id DESC"

// CreateRelation adds a directed edge source -> target labelled kind
func (s *Store) CreateRelation(actor domain.Actor, sourceID, targetID int64, kind string) (int64, error) {
	kind = strings.TrimSpace(kind)
	if sourceID == targetID {
		return 0, fmt.Errorf("contact %d: %w", sourceID, ErrSelfRelation)
	}
	if kind == "" {
		return 0, invalid("relation type is required")
	}

	var id int64
	err := s.withTx("create relation", func(tx *sql.Tx) error {
		if err := s.requireExists(tx, "create relation", "contacts", "contact", sourceID); err != nil {
			return err
		}
		if err := s.requireExists(tx, "create relation", "contacts", "contact", targetID); err != nil {
			return err
		}

		res, err := s.exec(tx, `
			INSERT INTO relations (source_contact_id, target_contact_id, kind, created_at)
			VALUES (?, ?, ?, ?)
		`, sourceID, targetID, kind, s.unixNow())
		if err != nil {
			return storageErr("insert relation", err)
		}
		if id, err = lastID(res, "insert relation"); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionCreate, "relations", id,
			fmt.Sprintf("%d -> %d: %s", sourceID, targetID, kind))
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// RelationsOf returns the relations where the contact is source or target, newest first
func (s *Store) RelationsOf(contactID int64) ([]domain.Relation, error) {
	rows, err := s.db.Query(
		relationSelect+" WHERE r.source_contact_id = ? OR r.target_contact_id = ?"+relationOrder,
		contactID, contactID,
	)
	if err != nil {
		return nil, storageErr("get contact relations", err)
	}
	return scanRelations(rows)
}

// AllRelations returns every relation with both endpoint names, newest first
func (s *Store) AllRelations() ([]domain.Relation, error) {
	rows, err := s.db.Query(relationSelect + relationOrder)
	if err != nil {
		return nil, storageErr("list relations", err)
	}
	return scanRelations(rows)
}

func scanRelations(rows *sql.Rows) ([]domain.Relation, error) {
	defer rows.Close()

	var relations []domain.Relation
	for rows.Next() {
		var r domain.Relation
		var createdAt int64
		var srcSurname, srcGiven, dstSurname, dstGiven string
		err := rows.Scan(&r.ID, &r.SourceID, &r.TargetID, &r.Kind, &createdAt,
			&srcSurname, &srcGiven, &dstSurname, &dstGiven)
		if err != nil {
			return nil, storageErr("scan relation", err)
		}
		r.CreatedAt = fromUnix(createdAt)
		r.SourceDisplayName = displayName(srcGiven, srcSurname)
		r.TargetDisplayName = displayName(dstGiven, dstSurname)
		relations = append(relations, r)
	}
	return relations, storageErr("iterate relations", rows.Err())
}

// DeleteRelation removes one relation
func (s *Store) DeleteRelation(actor domain.Actor, id int64) error {
	return s.deleteByID(actor, "relations", "relation", id)
}

// RelationTypes returns the distinct relation labels, sorted
func (s *Store) RelationTypes() ([]string, error) {
	return s.queryStrings("SELECT DISTINCT kind FROM relations ORDER BY kind")
}

// Graph returns all contacts as nodes and all relations as edges
func (s *Store) Graph() (*domain.Graph, error) {
	rows, err := s.db.Query("SELECT id, surname, given_name FROM contacts ORDER BY id")
	if err != nil {
		return nil, storageErr("graph nodes", err)
	}
	defer rows.Close()

	// Empty slices encode as [] rather than null
	g := &domain.Graph{Nodes: []domain.GraphNode{}}
	for rows.Next() {
		var n domain.GraphNode
		if err := rows.Scan(&n.ID, &n.Surname, &n.GivenName); err != nil {
			return nil, storageErr("scan graph node", err)
		}
		g.Nodes = append(g.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate graph nodes", err)
	}
	rows.Close()

	if g.Edges, err = s.AllRelations(); err != nil {
		return nil, err
	}
	if g.Edges == nil {
		g.Edges = []domain.Relation{}
	}
	return g, nil
}
