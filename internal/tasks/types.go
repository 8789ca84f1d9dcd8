package tasks

import "time"

// Status is the lifecycle stage of a task.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ValidStatus reports whether s is a recognized task status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a unit of work inside a phase.
type Task struct {
	ID            string     `json:"id"`
	PhaseID       string     `json:"phase_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Status        Status     `json:"status"`
	Priority      int        `json:"priority"`
	LeaderID      string     `json:"leader_id,omitempty"`
	ParentID      string     `json:"parent_id,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	MemberIDs     []string   `json:"member_ids"`
	DependencyIDs []string   `json:"dependency_ids"`
	SubtaskIDs    []string   `json:"subtask_ids"`
	CreatedAt     time.Time  `json:"created_at"`
}

// TaskUpdate carries the mutable task fields. A non-nil DependencyIDs
// replaces the full dependency set.
type TaskUpdate struct {
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Status        *Status    `json:"status,omitempty"`
	Priority      *int       `json:"priority,omitempty"`
	LeaderID      *string    `json:"leader_id,omitempty"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	DependencyIDs *[]string  `json:"dependency_ids,omitempty"`
}

// Comment is a remark on a task.
type Comment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AssignmentFilter selects which of the caller's tasks to list.
type AssignmentFilter string

const (
	AssignedAny    AssignmentFilter = "any"    // leader or member
	AssignedLeader AssignmentFilter = "leader" // tasks the user leads
	AssignedMember AssignmentFilter = "member" // tasks the user is a member of
)
