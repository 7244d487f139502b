package ws

import (
	"github.com/gosuda/taskboard/internal/domain"
)

const FrameSnapshot = "snapshot"

// Frame is one message on the board websocket. Every frame carries the team's
// complete task set; clients replace their cache with it.
type Frame struct {
	Type     string          `json:"type"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

func snapshotFrame(s domain.Snapshot) Frame {
	if s.Tasks == nil {
		s.Tasks = make([]*domain.Task, 0)
	}
	return Frame{Type: FrameSnapshot, Snapshot: s}
}
