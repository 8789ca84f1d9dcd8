package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskhive/internal/db"
)

// Store manages persistence of tasks and comments.
type Store struct {
	db *db.DB
}

// NewStore creates a new task store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a task into its phase.
func (s *Store) Create(ctx context.Context, t Task) (*Task, error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = StatusPending
	}
	t.CreatedAt = time.Now().UTC()

	var leader, parent any
	if t.LeaderID != "" {
		leader = t.LeaderID
	}
	if t.ParentID != "" {
		parent = t.ParentID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, phase_id, title, description, status, priority, leader_id, parent_id, due_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.PhaseID, t.Title, t.Description, t.Status, t.Priority, leader, parent, t.DueDate, t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting task: %w", err)
	}

	if len(t.DependencyIDs) > 0 {
		if err := s.replaceDependencies(ctx, t.ID, t.DependencyIDs); err != nil {
			return nil, err
		}
	} else {
		t.DependencyIDs = []string{}
	}
	t.MemberIDs = []string{}
	t.SubtaskIDs = []string{}
	return &t, nil
}

func (s *Store) scanTask(row interface{ Scan(...any) error }) (*Task, error) {
	var t Task
	var leader, parent sql.NullString
	var due sql.NullTime
	err := row.Scan(&t.ID, &t.PhaseID, &t.Title, &t.Description, &t.Status, &t.Priority, &leader, &parent, &due, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.LeaderID = leader.String
	t.ParentID = parent.String
	if due.Valid {
		t.DueDate = &due.Time
	}
	return &t, nil
}

const taskColumns = `id, phase_id, title, description, status, priority, leader_id, parent_id, due_date, created_at`

// GetByID retrieves a task with its member, dependency, and subtask lists.
// Returns nil when not found.
func (s *Store) GetByID(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := s.scanTask(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting task: %w", err)
	}

	if t.MemberIDs, err = s.idList(ctx, `SELECT user_id FROM task_members WHERE task_id = ?`, id); err != nil {
		return nil, err
	}
	if t.DependencyIDs, err = s.idList(ctx, `SELECT depends_on FROM task_dependencies WHERE task_id = ?`, id); err != nil {
		return nil, err
	}
	if t.SubtaskIDs, err = s.idList(ctx, `SELECT id FROM tasks WHERE parent_id = ?`, id); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) idList(ctx context.Context, query string, arg any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("listing ids: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) listTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	defer rows.Close()

	var out []Task
	for rows.Next() {
		t, err := s.scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ListByPhase returns the phase's tasks ordered by priority then creation.
func (s *Store) ListByPhase(ctx context.Context, phaseID string) ([]Task, error) {
	return s.listTasks(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE phase_id = ? ORDER BY priority DESC, created_at`, phaseID)
}

// ListFor returns tasks assigned to the user, ordered by due date.
func (s *Store) ListFor(ctx context.Context, userID string, filter AssignmentFilter) ([]Task, error) {
	switch filter {
	case AssignedLeader:
		return s.listTasks(ctx,
			`SELECT `+taskColumns+` FROM tasks WHERE leader_id = ? ORDER BY due_date`, userID)
	case AssignedMember:
		return s.listTasks(ctx,
			`SELECT `+taskColumns+` FROM tasks
			 WHERE id IN (SELECT task_id FROM task_members WHERE user_id = ?)
			 ORDER BY due_date`, userID)
	default:
		return s.listTasks(ctx,
			`SELECT `+taskColumns+` FROM tasks
			 WHERE leader_id = ? OR id IN (SELECT task_id FROM task_members WHERE user_id = ?)
			 ORDER BY due_date`, userID, userID)
	}
}

// Update applies the non-nil fields of upd to the task.
func (s *Store) Update(ctx context.Context, id string, upd TaskUpdate) error {
	sets := []string{}
	args := []any{}
	if upd.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *upd.Title)
	}
	if upd.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *upd.Description)
	}
	if upd.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *upd.Status)
	}
	if upd.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *upd.Priority)
	}
	if upd.LeaderID != nil {
		sets = append(sets, "leader_id = ?")
		if *upd.LeaderID == "" {
			args = append(args, nil)
		} else {
			args = append(args, *upd.LeaderID)
		}
	}
	if upd.DueDate != nil {
		sets = append(sets, "due_date = ?")
		args = append(args, *upd.DueDate)
	}

	if len(sets) > 0 {
		args = append(args, id)
		result, err := s.db.ExecContext(ctx,
			`UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
		if err != nil {
			return fmt.Errorf("updating task: %w", err)
		}
		n, _ := result.RowsAffected()
		if n == 0 {
			return fmt.Errorf("task not found: %s", id)
		}
	}

	if upd.DependencyIDs != nil {
		if err := s.replaceDependencies(ctx, id, *upd.DependencyIDs); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) replaceDependencies(ctx context.Context, taskID string, deps []string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM task_dependencies WHERE task_id = ?`, taskID); err != nil {
		return fmt.Errorf("clearing dependencies: %w", err)
	}
	for _, dep := range deps {
		if dep == taskID {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO task_dependencies (task_id, depends_on) VALUES (?, ?)`, taskID, dep); err != nil {
			return fmt.Errorf("adding dependency: %w", err)
		}
	}
	return nil
}

// Delete removes a task and, via cascades, its subtasks and comments.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	return nil
}

// AddMembers adds project members to the task, skipping users already on
// the task or serving as its leader. Returns the users actually added.
func (s *Store) AddMembers(ctx context.Context, taskID, projectID string, userIDs []string) ([]string, error) {
	task, err := s.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}
	current := map[string]bool{}
	for _, m := range task.MemberIDs {
		current[m] = true
	}
	if task.LeaderID != "" {
		current[task.LeaderID] = true
	}

	added := []string{}
	for _, uid := range userIDs {
		if current[uid] {
			continue
		}
		var n int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM project_members WHERE project_id = ? AND user_id = ?`,
			projectID, uid).Scan(&n); err != nil {
			return added, fmt.Errorf("checking project membership: %w", err)
		}
		if n == 0 {
			continue
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO task_members (task_id, user_id) VALUES (?, ?)`, taskID, uid); err != nil {
			return added, fmt.Errorf("adding task member: %w", err)
		}
		current[uid] = true
		added = append(added, uid)
	}
	return added, nil
}

// RemoveMembers removes users from the task. Returns the users actually removed.
func (s *Store) RemoveMembers(ctx context.Context, taskID string, userIDs []string) ([]string, error) {
	removed := []string{}
	for _, uid := range userIDs {
		result, err := s.db.ExecContext(ctx,
			`DELETE FROM task_members WHERE task_id = ? AND user_id = ?`, taskID, uid)
		if err != nil {
			return removed, fmt.Errorf("removing task member: %w", err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			removed = append(removed, uid)
		}
	}
	return removed, nil
}

// ProjectIDForTask resolves a task to its project. Empty when unknown.
func (s *Store) ProjectIDForTask(ctx context.Context, taskID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT p.project_id FROM tasks t JOIN phases p ON p.id = t.phase_id WHERE t.id = ?`,
		taskID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolving task: %w", err)
	}
	return id, nil
}

// ProjectCrew returns the project's owner, title, and supervisor IDs, used
// to build notification recipient lists.
func (s *Store) ProjectCrew(ctx context.Context, projectID string) (owner, title string, supervisors []string, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT owner_id, title FROM projects WHERE id = ?`, projectID).Scan(&owner, &title)
	if err != nil {
		return "", "", nil, fmt.Errorf("getting project crew: %w", err)
	}
	supervisors, err = s.idList(ctx, `SELECT user_id FROM project_supervisors WHERE project_id = ?`, projectID)
	return owner, title, supervisors, err
}

// CreateComment inserts a comment on a task.
func (s *Store) CreateComment(ctx context.Context, c Comment) (*Comment, error) {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (id, task_id, author_id, content, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.TaskID, c.AuthorID, c.Content, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting comment: %w", err)
	}
	return &c, nil
}

// GetComment retrieves a comment scoped to its task. Returns nil when not found.
func (s *Store) GetComment(ctx context.Context, taskID, id string) (*Comment, error) {
	var c Comment
	err := s.db.QueryRowContext(ctx,
		`SELECT id, task_id, author_id, content, created_at, updated_at
		 FROM comments WHERE id = ? AND task_id = ?`, id, taskID,
	).Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Content, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting comment: %w", err)
	}
	return &c, nil
}

// ListComments returns the task's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, taskID string) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, author_id, content, created_at, updated_at
		 FROM comments WHERE task_id = ? ORDER BY created_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer rows.Close()

	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Content, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateComment replaces the comment's content.
func (s *Store) UpdateComment(ctx context.Context, id, content string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE comments SET content = ?, updated_at = ? WHERE id = ?`,
		content, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("updating comment: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("comment not found: %s", id)
	}
	return nil
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("comment not found: %s", id)
	}
	return nil
}
