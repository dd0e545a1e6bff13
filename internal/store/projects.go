package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pbaille/carnet/internal/domain"
)

// ProjectInput carries the editable fields of a project
type ProjectInput struct {
	Name           string
	Description    string
	Goal           string
	StartDate      string
	PlannedEndDate string
}

const projectColumns = "id, name, description, goal, start_date, planned_end_date, created_at"

func scanProject(sc scanner) (domain.Project, error) {
	var p domain.Project
	var createdAt int64
	err := sc.Scan(&p.ID, &p.Name, &p.Description, &p.Goal, &p.StartDate, &p.PlannedEndDate, &createdAt)
	p.CreatedAt = fromUnix(createdAt)
	return p, err
}

// CreateProject creates a project
func (s *Store) CreateProject(actor domain.Actor, in ProjectInput) (int64, error) {
	if strings.TrimSpace(in.Name) == "" {
		return 0, invalid("project name is required")
	}

	var id int64
	err := s.withTx("create project", func(tx *sql.Tx) error {
		res, err := s.exec(tx, `
			INSERT INTO projects (name, description, goal, start_date, planned_end_date, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, in.Name, in.Description, in.Goal, in.StartDate, in.PlannedEndDate, s.unixNow())
		if err != nil {
			return storageErr("insert project", err)
		}
		if id, err = lastID(res, "insert project"); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionCreate, "projects", id, in.Name)
	})
	return id, err
}

// UpdateProject overwrites the fields of a project
func (s *Store) UpdateProject(actor domain.Actor, id int64, in ProjectInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("project name is required")
	}

	return s.withTx("update project", func(tx *sql.Tx) error {
		res, err := s.exec(tx, `
			UPDATE projects SET name = ?, description = ?, goal = ?, start_date = ?, planned_end_date = ?
			WHERE id = ?
		`, in.Name, in.Description, in.Goal, in.StartDate, in.PlannedEndDate, id)
		if err != nil {
			return storageErr("update project", err)
		}
		if err := requireAffected(res, "update project", "project", id); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionUpdate, "projects", id, in.Name)
	})
}

// DeleteProject removes a project. Its tasks survive without a project.
func (s *Store) DeleteProject(actor domain.Actor, id int64) error {
	return s.deleteByID(actor, "projects", "project", id)
}

// GetProject retrieves a project with its task statistics and the contacts
// linked through its tasks
func (s *Store) GetProject(id int64) (*domain.Project, error) {
	p, err := scanProject(s.db.QueryRow("SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get project", err)
	}

	if p.Stats, err = s.projectStats(id); err != nil {
		return nil, err
	}
	p.Contacts, err = s.contactRefs(`
		SELECT DISTINCT c.id, c.surname, c.given_name
		FROM contacts c
		JOIN task_contacts tc ON c.id = tc.contact_id
		JOIN tasks t ON tc.task_id = t.id
		WHERE t.project_id = ?
		ORDER BY c.surname COLLATE NOCASE, c.given_name COLLATE NOCASE
	`, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns every project with its task statistics, newest first
func (s *Store) ListProjects() ([]domain.Project, error) {
	rows, err := s.db.Query("SELECT " + projectColumns + " FROM projects ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, storageErr("list projects", err)
	}

	var projects []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			rows.Close()
			return nil, storageErr("scan project", err)
		}
		projects = append(projects, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate projects", err)
	}

	for i := range projects {
		if projects[i].Stats, err = s.projectStats(projects[i].ID); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func (s *Store) projectStats(projectID int64) (*domain.ProjectStats, error) {
	var st domain.ProjectStats
	err := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(status = ?), 0),
			COALESCE(SUM(status = ?), 0),
			COALESCE(SUM(status = ?), 0)
		FROM tasks WHERE project_id = ?
	`, domain.StatusDone, domain.StatusInProgress, domain.StatusTodo, projectID).
		Scan(&st.Total, &st.Done, &st.InProgress, &st.Todo)
	if err != nil {
		return nil, storageErr("project stats", err)
	}
	if st.Total > 0 {
		st.Progress = float64(st.Done) / float64(st.Total) * 100
	}
	return &st, nil
}
