package historycmd

import (
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"testbox/internal/adapter/sqlite"
)

func TestRunRows(t *testing.T) {
	lipgloss.SetColorProfile(termenv.Ascii)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := runRows([]sqlite.Run{
		{ID: "a", Manifest: "suite.yaml", Status: sqlite.StatusPassed, StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond)},
		{ID: "b", Manifest: "suite.yaml", Status: sqlite.StatusRunning, StartedAt: start},
	})
	if len(rows) != 2 {
		t.Fatalf("runRows() len = %d", len(rows))
	}
	if rows[0][2] != "passed" || rows[0][3] != "1.5s" {
		t.Fatalf("row 0 = %q", rows[0])
	}
	if rows[1][3] != "-" {
		t.Fatalf("unfinished duration = %q, want -", rows[1][3])
	}
}
