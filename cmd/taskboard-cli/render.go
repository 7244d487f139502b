package main

import (
	"fmt"
	"io"

	"github.com/gosuda/taskboard/internal/domain"
)

func renderBoard(w io.Writer, cols []domain.Column) {
	for i, col := range cols {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "%s (%d)\n", col.Title, col.Count)
		for _, t := range col.Tasks {
			line := fmt.Sprintf("  %s  %s", t.ID, t.Title)
			if t.AssignedTo != nil {
				line += "  @" + t.AssignedTo.String()
			}
			_, _ = fmt.Fprintln(w, line)
		}
	}
}
