package domain

import (
	"bytes"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Snapshot is the complete current task set of one team. Live feeds deliver a
// fresh Snapshot on every change; there are no diffs.
type Snapshot struct {
	TeamID uuid.UUID `json:"team_id"`
	Tasks  []*Task   `json:"tasks"`
	At     time.Time `json:"at"`
}

// Find returns the task with the given ID.
func (s Snapshot) Find(id uuid.UUID) (*Task, bool) {
	for _, t := range s.Tasks {
		if t.ID == id {
			return t, true
		}
	}
	return nil, false
}

// Column is one status lane of the board.
type Column struct {
	Status TaskStatus `json:"status"`
	Title  string     `json:"title"`
	Count  int        `json:"count"`
	Tasks  []*Task    `json:"tasks"`
}

// Columns groups tasks into the three board columns, oldest first.
func Columns(tasks []*Task) []Column {
	statuses := TaskStatuses()
	cols := make([]Column, len(statuses))
	index := make(map[TaskStatus]int, len(statuses))
	for i, st := range statuses {
		cols[i] = Column{Status: st, Title: st.Title(), Tasks: make([]*Task, 0)}
		index[st] = i
	}

	for _, t := range tasks {
		i, ok := index[t.Status]
		if !ok {
			continue
		}
		cols[i].Tasks = append(cols[i].Tasks, t)
	}

	for i := range cols {
		slices.SortStableFunc(cols[i].Tasks, compareTasks)
		cols[i].Count = len(cols[i].Tasks)
	}
	return cols
}

// Columns groups the snapshot's tasks into board columns.
func (s Snapshot) Columns() []Column {
	return Columns(s.Tasks)
}

func compareTasks(a, b *Task) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return bytes.Compare(a.ID[:], b.ID[:])
}
