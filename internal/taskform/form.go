// Package taskform is the create/edit task dialog model: field state,
// required-field validation and submission through the task store client.
package taskform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/board"
	"github.com/gosuda/taskboard/internal/domain"
)

const (
	MsgCreated    = "Task created successfully"
	MsgUpdated    = "Task updated successfully"
	MsgSaveFailed = "Failed to save task. Please try again."

	titleSuccess = "Success"
	titleError   = "Error"
)

var (
	ErrClosed     = errors.New("taskform: form is closed")
	ErrSubmitting = errors.New("taskform: submit already in progress")
)

// Tasks is the part of taskstore.Client the form submits through.
type Tasks interface {
	CreateTask(ctx context.Context, in domain.NewTask) (*domain.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)
}

type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

// Values are the editable fields.
type Values struct {
	Title       string
	Description string
	AssignedTo  *uuid.UUID
}

// Form is open from construction until a submit succeeds or Close is called.
type Form struct {
	tasks  Tasks
	notify board.Notifier
	mode   Mode
	author auth.Identity
	taskID uuid.UUID

	mu         sync.Mutex
	values     Values
	fieldErrs  *domain.ValidationError
	open       bool
	submitting bool
}

// NewCreate opens an empty form that creates a task in the author's team.
func NewCreate(tasks Tasks, notify board.Notifier, author auth.Identity) *Form {
	return &Form{
		tasks:  tasks,
		notify: notify,
		mode:   ModeCreate,
		author: author,
		open:   true,
	}
}

// NewEdit opens a form pre-filled from task. Submitting never touches status.
func NewEdit(tasks Tasks, notify board.Notifier, task *domain.Task) *Form {
	v := Values{Title: task.Title, Description: task.Description}
	if task.AssignedTo != nil {
		a := *task.AssignedTo
		v.AssignedTo = &a
	}

	return &Form{
		tasks:  tasks,
		notify: notify,
		mode:   ModeEdit,
		taskID: task.ID,
		values: v,
		open:   true,
	}
}

func (f *Form) Mode() Mode { return f.mode }

// Heading is the dialog title.
func (f *Form) Heading() string {
	if f.mode == ModeEdit {
		return "Edit Task"
	}
	return "Create New Task"
}

func (f *Form) Values() Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values
}

func (f *Form) SetTitle(s string) {
	f.mu.Lock()
	f.values.Title = s
	f.mu.Unlock()
}

func (f *Form) SetDescription(s string) {
	f.mu.Lock()
	f.values.Description = s
	f.mu.Unlock()
}

// SetAssignee sets or, with nil, clears the assignee.
func (f *Form) SetAssignee(id *uuid.UUID) {
	f.mu.Lock()
	f.values.AssignedTo = id
	f.mu.Unlock()
}

func (f *Form) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *Form) Close() {
	f.mu.Lock()
	f.open = false
	f.mu.Unlock()
}

// Validate checks the required fields and remembers the messages for
// FieldError. It returns nil or a *domain.ValidationError.
func (f *Form) Validate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateLocked()
}

func (f *Form) validateLocked() error {
	verr := &domain.ValidationError{}
	if strings.TrimSpace(f.values.Title) == "" {
		verr.Add("title", domain.MsgTitleRequired)
	}
	if strings.TrimSpace(f.values.Description) == "" {
		verr.Add("description", domain.MsgDescriptionRequired)
	}
	f.fieldErrs = verr
	return verr.ErrOrNil()
}

// FieldError is the message shown under a field after the last validation.
func (f *Form) FieldError(field string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fieldErrs == nil {
		return ""
	}
	return f.fieldErrs.Message(field)
}

// Submit validates and saves. On success the form closes and a success
// notification is shown. On a save failure the form stays open with its
// values intact and an error notification is shown. Validation failures only
// set field errors.
func (f *Form) Submit(ctx context.Context) (*domain.Task, error) {
	f.mu.Lock()
	switch {
	case !f.open:
		f.mu.Unlock()
		return nil, ErrClosed
	case f.submitting:
		f.mu.Unlock()
		return nil, ErrSubmitting
	}
	if err := f.validateLocked(); err != nil {
		f.mu.Unlock()
		return nil, fmt.Errorf("taskform.Form.Submit: %w", err)
	}
	f.submitting = true
	values := f.values
	f.mu.Unlock()

	task, msg, err := f.save(ctx, values)

	f.mu.Lock()
	f.submitting = false
	if err == nil {
		f.open = false
	}
	f.mu.Unlock()

	if err != nil {
		f.notify.Error(titleError, MsgSaveFailed)
		return nil, fmt.Errorf("taskform.Form.Submit: %w", err)
	}

	f.notify.Success(titleSuccess, msg)
	return task, nil
}

func (f *Form) save(ctx context.Context, v Values) (*domain.Task, string, error) {
	if f.mode == ModeEdit {
		patch := domain.TaskPatch{
			Title:       &v.Title,
			Description: &v.Description,
			SetAssignee: true,
			AssignedTo:  v.AssignedTo,
		}
		task, err := f.tasks.UpdateTask(ctx, f.taskID, patch)
		return task, MsgUpdated, err
	}

	task, err := f.tasks.CreateTask(ctx, domain.NewTask{
		TeamID:      f.author.TeamID,
		CreatedBy:   f.author.ID,
		Title:       v.Title,
		Description: v.Description,
		AssignedTo:  v.AssignedTo,
	})
	return task, MsgCreated, err
}
