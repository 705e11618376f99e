package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"testbox/internal/execute"
)

// Tone is the outcome a piece of output reports. It picks both the colour
// and the leading mark.
type Tone uint8

const (
	ToneInfo Tone = iota
	TonePass
	ToneWarn
	ToneFail
)

type toneStyle struct {
	mark  string
	style lipgloss.Style
}

var tones = [...]toneStyle{
	ToneInfo: {"●", lipgloss.NewStyle().Foreground(lipgloss.Color("99"))},
	TonePass: {"✓", lipgloss.NewStyle().Foreground(lipgloss.Color("76"))},
	ToneWarn: {"!", lipgloss.NewStyle().Foreground(lipgloss.Color("214"))},
	ToneFail: {"✗", lipgloss.NewStyle().Foreground(lipgloss.Color("204"))},
}

var (
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	headingStyle = lipgloss.NewStyle().Bold(true)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

// ToneOf is the tone a node result is reported in. Aborted units warn;
// every phase other than succeeded, inconclusive ones included, fails.
func ToneOf(p execute.Phase) Tone {
	switch p {
	case execute.PhaseSucceeded:
		return TonePass
	case execute.PhaseAborted:
		return ToneWarn
	case execute.PhaseStarted:
		return ToneInfo
	default:
		return ToneFail
	}
}

func (t Tone) get() toneStyle {
	if int(t) >= len(tones) {
		return tones[ToneInfo]
	}
	return tones[t]
}

// Mark renders a message behind the tone's symbol.
func Mark(t Tone, format string, a ...any) string {
	ts := t.get()
	return ts.style.Render(ts.mark) + " " + fmt.Sprintf(format, a...)
}

// Paint colours s without a symbol.
func Paint(t Tone, s string) string {
	return t.get().style.Render(s)
}

// Note renders secondary detail: elapsed times, container names, run ids.
func Note(s string) string { return noteStyle.Render(s) }

func Heading(s string) string { return headingStyle.Render(s) }

// Row is one line of a Rows block.
type Row struct {
	label string
	value string
}

func Labelled(label, value string) Row {
	return Row{label: label, value: value}
}

// Rows renders "label:  value" lines with the values aligned.
func Rows(rows ...Row) string {
	width := 0
	for _, r := range rows {
		width = max(width, len(r.label)+1)
	}
	var sb strings.Builder
	for _, r := range rows {
		sb.WriteString(noteStyle.Render(fmt.Sprintf("%-*s", width, r.label+":")))
		sb.WriteString(" " + r.value + "\n")
	}
	return sb.String()
}

// Table renders rows under bold headers inside a light border.
func Table(headers []string, rows [][]string) string {
	head := headingStyle.Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return head
			}
			return cell
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}
