package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the board column a task sits in. The set is closed: values
// outside the three constants are rejected by ParseTaskStatus and by JSON or
// text decoding.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusDoing     TaskStatus = "doing"
	TaskStatusCompleted TaskStatus = "completed"
)

// TaskStatuses returns the board columns in display order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusPending, TaskStatusDoing, TaskStatusCompleted}
}

// ParseTaskStatus converts s into a TaskStatus.
func ParseTaskStatus(s string) (TaskStatus, error) {
	st := TaskStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// Valid reports whether s is one of the three board statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusDoing, TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// ValidTransition checks if a task state transition is allowed.
// Every status is reachable from every other; moving to the current status is not a transition.
func (s TaskStatus) ValidTransition(to TaskStatus) bool {
	return s.Valid() && to.Valid() && s != to
}

// Title is the column heading shown on the board.
func (s TaskStatus) Title() string {
	switch s {
	case TaskStatusPending:
		return "Pending"
	case TaskStatusDoing:
		return "In Progress"
	case TaskStatusCompleted:
		return "Completed"
	default:
		return string(s)
	}
}

func (s TaskStatus) String() string { return string(s) }

// UnmarshalText rejects anything but the three board statuses.
func (s *TaskStatus) UnmarshalText(text []byte) error {
	st, err := ParseTaskStatus(string(text))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s TaskStatus) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

type Task struct {
	ID          uuid.UUID  `json:"task_id"`
	TeamID      uuid.UUID  `json:"team_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      TaskStatus `json:"status"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	AssignedTo  *uuid.UUID `json:"assigned_to"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	c := *t
	if t.AssignedTo != nil {
		a := *t.AssignedTo
		c.AssignedTo = &a
	}
	return &c
}

// NewTask is the input for creating a task. It carries no status: new tasks
// always start in TaskStatusPending.
type NewTask struct {
	TeamID      uuid.UUID
	CreatedBy   uuid.UUID
	Title       string
	Description string
	AssignedTo  *uuid.UUID
}

// Validate reports every missing required field.
func (n NewTask) Validate() error {
	verr := &ValidationError{}
	if strings.TrimSpace(n.Title) == "" {
		verr.Add("title", MsgTitleRequired)
	}
	if strings.TrimSpace(n.Description) == "" {
		verr.Add("description", MsgDescriptionRequired)
	}
	if n.TeamID == uuid.Nil {
		verr.Add("team_id", "Team is required")
	}
	if n.CreatedBy == uuid.Nil {
		verr.Add("created_by", "Creator is required")
	}
	return verr.ErrOrNil()
}

// Task builds the pending task a backend persists for n. ID and timestamps
// are left for the backend to assign.
func (n NewTask) Task() *Task {
	return &Task{
		TeamID:      n.TeamID,
		Title:       n.Title,
		Description: n.Description,
		Status:      TaskStatusPending,
		CreatedBy:   n.CreatedBy,
		AssignedTo:  n.AssignedTo,
	}
}

// TaskPatch is a partial update. Nil fields are left unchanged. AssignedTo is
// only applied when SetAssignee is true, so a task can be unassigned by
// setting SetAssignee with a nil AssignedTo.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	SetAssignee bool
	AssignedTo  *uuid.UUID
}

// StatusPatch is the patch issued by a column move.
func StatusPatch(s TaskStatus) TaskPatch {
	return TaskPatch{Status: &s}
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && !p.SetAssignee
}

func (p TaskPatch) Validate() error {
	verr := &ValidationError{}
	if p.IsEmpty() {
		verr.Add("patch", "At least one field must be changed")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		verr.Add("title", MsgTitleRequired)
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		verr.Add("description", MsgDescriptionRequired)
	}
	if p.Status != nil && !p.Status.Valid() {
		verr.Add("status", fmt.Sprintf("Unknown status %q", string(*p.Status)))
	}
	return verr.ErrOrNil()
}

// Apply writes the patch onto t and stamps UpdatedAt with now, never earlier
// than CreatedAt.
func (p TaskPatch) Apply(t *Task, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.SetAssignee {
		if p.AssignedTo == nil {
			t.AssignedTo = nil
		} else {
			a := *p.AssignedTo
			t.AssignedTo = &a
		}
	}
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}

type TaskRepository interface {
	// Create persists t, assigning its ID, CreatedAt and UpdatedAt.
	Create(ctx context.Context, t *Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*Task, error)
	ListByTeam(ctx context.Context, teamID uuid.UUID) ([]*Task, error)
	Update(ctx context.Context, id uuid.UUID, patch TaskPatch) (*Task, error)
	// Delete removes the task and returns the row as it was.
	Delete(ctx context.Context, id uuid.UUID) (*Task, error)
}
