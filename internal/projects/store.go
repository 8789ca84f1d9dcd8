package projects

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskhive/internal/db"
)

// Store manages persistence of projects and their phases.
type Store struct {
	db *db.DB
}

// NewStore creates a new project store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Create inserts a project and its chat room atomically. The caller becomes
// the owner.
func (s *Store) Create(ctx context.Context, p Project) (*Project, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.RoomID = uuid.New().String()
	p.CreatedAt = time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO rooms (id) VALUES (?)`, p.RoomID); err != nil {
		return nil, fmt.Errorf("creating chat room: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO projects (id, title, description, owner_id, room_id, start_date, finish_date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, p.OwnerID, p.RoomID, p.StartDate, p.FinishDate, p.CreatedAt,
	); err != nil {
		return nil, fmt.Errorf("inserting project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing project: %w", err)
	}

	p.Supervisors = []string{}
	p.Members = []string{}
	p.FileIDs = []string{}
	return &p, nil
}

// GetByID retrieves a project with its participant and file lists.
// Returns nil when not found.
func (s *Store) GetByID(ctx context.Context, id string) (*Project, error) {
	var p Project
	var start, finish sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, description, owner_id, room_id, start_date, finish_date, created_at
		 FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.Description, &p.OwnerID, &p.RoomID, &start, &finish, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting project: %w", err)
	}
	if start.Valid {
		p.StartDate = &start.Time
	}
	if finish.Valid {
		p.FinishDate = &finish.Time
	}

	if p.Supervisors, err = s.idList(ctx, `SELECT user_id FROM project_supervisors WHERE project_id = ?`, id); err != nil {
		return nil, err
	}
	if p.Members, err = s.idList(ctx, `SELECT user_id FROM project_members WHERE project_id = ?`, id); err != nil {
		return nil, err
	}
	if p.FileIDs, err = s.idList(ctx, `SELECT file_id FROM project_files WHERE project_id = ?`, id); err != nil {
		return nil, err
	}
	return &p, nil
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

// ListFor returns summaries of every project the user participates in,
// in any role.
func (s *Store) ListFor(ctx context.Context, userID string) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT p.id, p.title, p.description, p.owner_id, p.created_at
		 FROM projects p
		 LEFT JOIN project_supervisors ps ON ps.project_id = p.id
		 LEFT JOIN project_members pm ON pm.project_id = p.id
		 WHERE p.owner_id = ? OR ps.user_id = ? OR pm.user_id = ?
		 ORDER BY p.created_at DESC`,
		userID, userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var p Summary
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update applies the non-nil fields of upd to the project.
func (s *Store) Update(ctx context.Context, id string, upd ProjectUpdate) error {
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
	if upd.StartDate != nil {
		sets = append(sets, "start_date = ?")
		args = append(args, *upd.StartDate)
	}
	if upd.FinishDate != nil {
		sets = append(sets, "finish_date = ?")
		args = append(args, *upd.FinishDate)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE projects SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating project: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("project not found: %s", id)
	}
	return nil
}

// Delete removes a project and, via cascades, its phases, tasks, and chat.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("project not found: %s", id)
	}
	return nil
}

// RoleOf returns the user's role in the project.
func (s *Store) RoleOf(ctx context.Context, projectID, userID string) (Role, error) {
	var owner string
	err := s.db.QueryRowContext(ctx,
		`SELECT owner_id FROM projects WHERE id = ?`, projectID).Scan(&owner)
	if err == sql.ErrNoRows {
		return RoleNone, nil
	}
	if err != nil {
		return RoleNone, fmt.Errorf("getting project owner: %w", err)
	}
	if owner == userID {
		return RoleOwner, nil
	}

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_supervisors WHERE project_id = ? AND user_id = ?`,
		projectID, userID).Scan(&n); err != nil {
		return RoleNone, fmt.Errorf("checking supervisor: %w", err)
	}
	if n > 0 {
		return RoleSupervisor, nil
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM project_members WHERE project_id = ? AND user_id = ?`,
		projectID, userID).Scan(&n); err != nil {
		return RoleNone, fmt.Errorf("checking member: %w", err)
	}
	if n > 0 {
		return RoleMember, nil
	}
	return RoleNone, nil
}

// setMembership adds or removes rows in a (project_id, user_id) join table.
func (s *Store) setMembership(ctx context.Context, table, projectID string, userIDs []string, add bool) error {
	for _, uid := range userIDs {
		var err error
		if add {
			_, err = s.db.ExecContext(ctx,
				`INSERT OR IGNORE INTO `+table+` (project_id, user_id) VALUES (?, ?)`, projectID, uid)
		} else {
			_, err = s.db.ExecContext(ctx,
				`DELETE FROM `+table+` WHERE project_id = ? AND user_id = ?`, projectID, uid)
		}
		if err != nil {
			return fmt.Errorf("updating %s: %w", table, err)
		}
	}
	return nil
}

// AddMembers adds users as project members.
func (s *Store) AddMembers(ctx context.Context, projectID string, userIDs []string) error {
	return s.setMembership(ctx, "project_members", projectID, userIDs, true)
}

// RemoveMembers removes users from the project's members.
func (s *Store) RemoveMembers(ctx context.Context, projectID string, userIDs []string) error {
	return s.setMembership(ctx, "project_members", projectID, userIDs, false)
}

// AddSupervisors adds users as project supervisors.
func (s *Store) AddSupervisors(ctx context.Context, projectID string, userIDs []string) error {
	return s.setMembership(ctx, "project_supervisors", projectID, userIDs, true)
}

// RemoveSupervisors removes users from the project's supervisors.
func (s *Store) RemoveSupervisors(ctx context.Context, projectID string, userIDs []string) error {
	return s.setMembership(ctx, "project_supervisors", projectID, userIDs, false)
}

// AttachFiles links uploaded files to the project.
func (s *Store) AttachFiles(ctx context.Context, projectID string, fileIDs []string) error {
	for _, fid := range fileIDs {
		if _, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO project_files (project_id, file_id) VALUES (?, ?)`, projectID, fid); err != nil {
			return fmt.Errorf("attaching file: %w", err)
		}
	}
	return nil
}

// DetachFiles unlinks files from the project.
func (s *Store) DetachFiles(ctx context.Context, projectID string, fileIDs []string) error {
	for _, fid := range fileIDs {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM project_files WHERE project_id = ? AND file_id = ?`, projectID, fid); err != nil {
			return fmt.Errorf("detaching file: %w", err)
		}
	}
	return nil
}

// ProjectIDForRoom resolves a chat room to its project. Empty when unknown.
func (s *Store) ProjectIDForRoom(ctx context.Context, roomID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM projects WHERE room_id = ?`, roomID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolving room: %w", err)
	}
	return id, nil
}

// ProjectIDForPhase resolves a phase to its project. Empty when unknown.
func (s *Store) ProjectIDForPhase(ctx context.Context, phaseID string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT project_id FROM phases WHERE id = ?`, phaseID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolving phase: %w", err)
	}
	return id, nil
}

// CreatePhase inserts a phase under a project.
func (s *Store) CreatePhase(ctx context.Context, p Phase) (*Phase, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}
	if p.Color == "" {
		p.Color = "#FFFFFF"
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO phases (id, project_id, title, description, status, color, begin_date, end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ProjectID, p.Title, p.Description, p.Status, p.Color, p.BeginDate, p.EndDate,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting phase: %w", err)
	}
	p.Members = []string{}
	return &p, nil
}

// GetPhase retrieves a phase with its member list. Returns nil when not found.
func (s *Store) GetPhase(ctx context.Context, id string) (*Phase, error) {
	var p Phase
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, title, description, status, color, begin_date, end_date
		 FROM phases WHERE id = ?`, id,
	).Scan(&p.ID, &p.ProjectID, &p.Title, &p.Description, &p.Status, &p.Color, &p.BeginDate, &p.EndDate)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting phase: %w", err)
	}
	if p.Members, err = s.idList(ctx, `SELECT user_id FROM phase_members WHERE phase_id = ?`, id); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPhases returns the project's phases ordered by begin date.
func (s *Store) ListPhases(ctx context.Context, projectID string) ([]Phase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, title, description, status, color, begin_date, end_date
		 FROM phases WHERE project_id = ? ORDER BY begin_date`, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing phases: %w", err)
	}
	defer rows.Close()

	var out []Phase
	for rows.Next() {
		var p Phase
		if err := rows.Scan(&p.ID, &p.ProjectID, &p.Title, &p.Description, &p.Status, &p.Color, &p.BeginDate, &p.EndDate); err != nil {
			return nil, fmt.Errorf("scanning phase: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePhase applies the non-nil fields of upd to the phase.
func (s *Store) UpdatePhase(ctx context.Context, id string, upd PhaseUpdate) error {
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
	if upd.Color != nil {
		sets = append(sets, "color = ?")
		args = append(args, *upd.Color)
	}
	if upd.BeginDate != nil {
		sets = append(sets, "begin_date = ?")
		args = append(args, *upd.BeginDate)
	}
	if upd.EndDate != nil {
		sets = append(sets, "end_date = ?")
		args = append(args, *upd.EndDate)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		`UPDATE phases SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("updating phase: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("phase not found: %s", id)
	}
	return nil
}

// DeletePhase removes a phase and its tasks.
func (s *Store) DeletePhase(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM phases WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting phase: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("phase not found: %s", id)
	}
	return nil
}

// AddPhaseMembers adds users to the phase, silently skipping anyone who is
// not a member of the parent project. Returns how many were added.
func (s *Store) AddPhaseMembers(ctx context.Context, phaseID, projectID string, userIDs []string) (int, error) {
	added := 0
	for _, uid := range userIDs {
		var n int
		if err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM project_members WHERE project_id = ? AND user_id = ?`,
			projectID, uid).Scan(&n); err != nil {
			return added, fmt.Errorf("checking project membership: %w", err)
		}
		if n == 0 {
			continue
		}
		result, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO phase_members (phase_id, user_id) VALUES (?, ?)`, phaseID, uid)
		if err != nil {
			return added, fmt.Errorf("adding phase member: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			added++
		}
	}
	return added, nil
}

// RemovePhaseMembers removes users from the phase. Returns how many were removed.
func (s *Store) RemovePhaseMembers(ctx context.Context, phaseID string, userIDs []string) (int, error) {
	removed := 0
	for _, uid := range userIDs {
		result, err := s.db.ExecContext(ctx,
			`DELETE FROM phase_members WHERE phase_id = ? AND user_id = ?`, phaseID, uid)
		if err != nil {
			return removed, fmt.Errorf("removing phase member: %w", err)
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			removed++
		}
	}
	return removed, nil
}
