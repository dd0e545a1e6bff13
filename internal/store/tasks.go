package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/pbaille/carnet/internal/domain"
)

// Due windows accepted by TaskFilter.Due
const (
	DueToday = "today"
	DueWeek  = "week"
	DueMonth = "month"
)

// TaskInput carries the editable fields of a task
type TaskInput struct {
	Title       string
	Description string
	DueDate     string
	Priority    string
	Status      string
	ProjectID   *int64
	ContactIDs  []int64
}

// TaskFilter narrows ListTasks. Zero fields do not filter.
type TaskFilter struct {
	ContactID int64
	Priority  string
	Status    string
	ProjectID int64
	Due       string
}

// priorityRank orders high priority first; unknown values sort last
var priorityRank = fmt.Sprintf("CASE t.priority WHEN '%s' THEN 0 WHEN '%s' THEN 1 WHEN '%s' THEN 2 ELSE 3 END",
	PriorityHigh, PriorityMedium, PriorityLow)

const taskColumns = "t.id, t.title, t.description, t.due_date, t.priority, t.status, t.project_id, t.created_at, t.updated_at"

func scanTask(sc scanner) (domain.Task, error) {
	var t domain.Task
	var projectID sql.NullInt64
	var createdAt, updatedAt int64
	err := sc.Scan(&t.ID, &t.Title, &t.Description, &t.DueDate, &t.Priority, &t.Status,
		&projectID, &createdAt, &updatedAt)
	if projectID.Valid {
		t.ProjectID = &projectID.Int64
	}
	t.CreatedAt = fromUnix(createdAt)
	t.UpdatedAt = fromUnix(updatedAt)
	return t, err
}

// CreateTask creates a task linked to at least one contact
func (s *Store) CreateTask(actor domain.Actor, in TaskInput) (int64, error) {
	if strings.TrimSpace(in.Title) == "" {
		return 0, invalid("task title is required")
	}
	contactIDs := uniqueIDs(in.ContactIDs)
	if len(contactIDs) == 0 {
		return 0, invalid("a task needs at least one contact")
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if in.Status == "" {
		in.Status = domain.StatusTodo
	}

	var id int64
	err := s.withTx("create task", func(tx *sql.Tx) error {
		if in.ProjectID != nil {
			if err := s.requireExists(tx, "create task", "projects", "project", *in.ProjectID); err != nil {
				return err
			}
		}

		now := s.unixNow()
		res, err := s.exec(tx, `
			INSERT INTO tasks (title, description, due_date, priority, status, project_id, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, in.Title, in.Description, in.DueDate, in.Priority, in.Status, in.ProjectID, now, now)
		if err != nil {
			return storageErr("insert task", err)
		}
		if id, err = lastID(res, "insert task"); err != nil {
			return err
		}

		for _, contactID := range contactIDs {
			if err := s.requireExists(tx, "create task", "contacts", "contact", contactID); err != nil {
				return err
			}
			if _, err := s.exec(tx, "INSERT INTO task_contacts (task_id, contact_id) VALUES (?, ?)", id, contactID); err != nil {
				return storageErr("link task contact", err)
			}
		}
		return s.audit(tx, actor, ActionCreate, "tasks", id, in.Title)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateTask overwrites the fields of a task, with the same defaults as
// CreateTask. Contact links are replaced when ContactIDs is non-empty.
func (s *Store) UpdateTask(actor domain.Actor, id int64, in TaskInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return invalid("task title is required")
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	if in.Status == "" {
		in.Status = domain.StatusTodo
	}

	return s.withTx("update task", func(tx *sql.Tx) error {
		if in.ProjectID != nil {
			if err := s.requireExists(tx, "update task", "projects", "project", *in.ProjectID); err != nil {
				return err
			}
		}

		res, err := s.exec(tx, `
			UPDATE tasks SET
				title = ?, description = ?, due_date = ?, priority = ?,
				status = ?, project_id = ?, updated_at = ?
			WHERE id = ?
		`, in.Title, in.Description, in.DueDate, in.Priority, in.Status, in.ProjectID, s.unixNow(), id)
		if err != nil {
			return storageErr("update task", err)
		}
		if err := requireAffected(res, "update task", "task", id); err != nil {
			return err
		}

		if ids := uniqueIDs(in.ContactIDs); len(ids) > 0 {
			for _, contactID := range ids {
				if err := s.requireExists(tx, "update task", "contacts", "contact", contactID); err != nil {
					return err
				}
			}
			if _, err := s.exec(tx, "DELETE FROM task_contacts WHERE task_id = ?", id); err != nil {
				return storageErr("clear task contacts", err)
			}
			for _, contactID := range ids {
				if _, err := s.exec(tx, "INSERT INTO task_contacts (task_id, contact_id) VALUES (?, ?)", id, contactID); err != nil {
					return storageErr("link task contact", err)
				}
			}
		}
		return s.audit(tx, actor, ActionUpdate, "tasks", id, "")
	})
}

// DeleteTask removes a task and its contact links
func (s *Store) DeleteTask(actor domain.Actor, id int64) error {
	return s.deleteByID(actor, "tasks", "task", id)
}

// CompleteTask sets a task's status to done
func (s *Store) CompleteTask(actor domain.Actor, id int64) error {
	return s.withTx("complete task", func(tx *sql.Tx) error {
		res, err := s.exec(tx, "UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?",
			domain.StatusDone, s.unixNow(), id)
		if err != nil {
			return storageErr("complete task", err)
		}
		if err := requireAffected(res, "complete task", "task", id); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionDone, "tasks", id, "")
	})
}

// AssignTaskToProject moves a task into a project, or out of any when projectID is nil
func (s *Store) AssignTaskToProject(actor domain.Actor, taskID int64, projectID *int64) error {
	return s.withTx("assign task project", func(tx *sql.Tx) error {
		if projectID != nil {
			if err := s.requireExists(tx, "assign task project", "projects", "project", *projectID); err != nil {
				return err
			}
		}
		res, err := s.exec(tx, "UPDATE tasks SET project_id = ?, updated_at = ? WHERE id = ?", projectID, s.unixNow(), taskID)
		if err != nil {
			return storageErr("assign task project", err)
		}
		if err := requireAffected(res, "assign task project", "task", taskID); err != nil {
			return err
		}
		return s.audit(tx, actor, ActionUpdate, "tasks", taskID, "project")
	})
}

// GetTask retrieves a task with its contacts
func (s *Store) GetTask(id int64) (*domain.Task, error) {
	t, err := scanTask(s.db.QueryRow("SELECT "+taskColumns+" FROM tasks t WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storageErr("get task", err)
	}

	t.Contacts, err = s.contactRefs(`
		SELECT c.id, c.surname, c.given_name
		FROM contacts c
		JOIN task_contacts tc ON c.id = tc.contact_id
		WHERE tc.task_id = ?
		ORDER BY c.surname COLLATE NOCASE, c.given_name COLLATE NOCASE
	`, id)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTasks returns tasks by due date then priority
func (s *Store) ListTasks(f TaskFilter) ([]domain.Task, error) {
	qb := sq.Select(taskColumns).From("tasks t")

	if f.ContactID != 0 {
		qb = qb.Join("task_contacts tc ON t.id = tc.task_id").Where(sq.Eq{"tc.contact_id": f.ContactID})
	}
	if f.Priority != "" {
		qb = qb.Where(sq.Eq{"t.priority": f.Priority})
	}
	if f.Status != "" {
		qb = qb.Where(sq.Eq{"t.status": f.Status})
	}
	if f.ProjectID != 0 {
		qb = qb.Where(sq.Eq{"t.project_id": f.ProjectID})
	}
	if f.Due != "" {
		days, ok := map[string]int{DueToday: 0, DueWeek: 7, DueMonth: 30}[f.Due]
		if !ok {
			return nil, invalid("unknown due window %q", f.Due)
		}
		today := startOfDay(s.now())
		qb = qb.Where(sq.And{
			sq.NotEq{"t.due_date": ""},
			sq.GtOrEq{"t.due_date": today.Format("2006-01-02")},
			sq.LtOrEq{"t.due_date": today.AddDate(0, 0, days).Format("2006-01-02")},
		})
	}

	query, args, err := qb.OrderBy("t.due_date = ''", "t.due_date", priorityRank, "t.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task query: %w", err)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("list tasks", err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, storageErr("scan task", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, storageErr("iterate tasks", rows.Err())
}

func (s *Store) contactRefs(query string, args ...any) ([]domain.ContactRef, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, storageErr("list contact refs", err)
	}
	defer rows.Close()

	var refs []domain.ContactRef
	for rows.Next() {
		var r domain.ContactRef
		if err := rows.Scan(&r.ID, &r.Surname, &r.GivenName); err != nil {
			return nil, storageErr("scan contact ref", err)
		}
		refs = append(refs, r)
	}
	return refs, storageErr("iterate contact refs", rows.Err())
}

// repointTaskContacts moves task links from one contact to another. A task
// already linked to both keeps its single link to "to"; the leftover row
// goes away when "from" is deleted.
func (s *Store) repointTaskContacts(q querier, from, to int64) error {
	_, err := s.exec(q, "UPDATE OR IGNORE task_contacts SET contact_id = ? WHERE contact_id = ?", to, from)
	return err
}
