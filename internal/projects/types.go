package projects

import "time"

// Role is a user's relationship to a project. Owners can do everything a
// supervisor can, supervisors everything a member can.
type Role int

const (
	RoleNone Role = iota
	RoleMember
	RoleSupervisor
	RoleOwner
)

// String returns the wire name of the role.
func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleSupervisor:
		return "supervisor"
	case RoleMember:
		return "member"
	default:
		return "none"
	}
}

// PhaseStatus is the lifecycle stage of a phase.
type PhaseStatus string

const (
	StatusPending    PhaseStatus = "pending"
	StatusInProgress PhaseStatus = "in_progress"
	StatusCompleted  PhaseStatus = "completed"
)

// ValidStatus reports whether s is a recognized phase status.
func ValidStatus(s PhaseStatus) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ValidColor reports whether s is a #RRGGBB hex color.
func ValidColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Project is a collaboration space owning phases, tasks, and a chat room.
type Project struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	OwnerID     string     `json:"owner_id"`
	RoomID      string     `json:"room_id"`
	Supervisors []string   `json:"supervisors"`
	Members     []string   `json:"members"`
	FileIDs     []string   `json:"file_ids"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	FinishDate  *time.Time `json:"finish_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Summary is the reduced project view used in listings.
type Summary struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	OwnerID     string    `json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProjectUpdate carries the mutable project fields.
type ProjectUpdate struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	FinishDate  *time.Time `json:"finish_date,omitempty"`
}

// Phase is a stage of a project with its own member subset.
type Phase struct {
	ID          string      `json:"id"`
	ProjectID   string      `json:"project_id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Status      PhaseStatus `json:"status"`
	Color       string      `json:"color"`
	BeginDate   time.Time   `json:"begin_date"`
	EndDate     time.Time   `json:"end_date"`
	Members     []string    `json:"members"`
}

// PhaseUpdate carries the mutable phase fields.
type PhaseUpdate struct {
	Title       *string      `json:"title,omitempty"`
	Description *string      `json:"description,omitempty"`
	Status      *PhaseStatus `json:"status,omitempty"`
	Color       *string      `json:"color,omitempty"`
	BeginDate   *time.Time   `json:"begin_date,omitempty"`
	EndDate     *time.Time   `json:"end_date,omitempty"`
}
