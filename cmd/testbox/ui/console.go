package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"testbox/internal/execute"
	"testbox/internal/suite"
)

var _ execute.Listener = (*Console)(nil)

// Console prints execution progress: a header per group and one line per
// unit.
type Console struct {
	w io.Writer

	Succeeded int
	Failed    int
	Aborted   int
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) ExecutionStarted(n suite.Node) {
	if n.Kind() == suite.KindGroup {
		spec := ""
		if s, ok := n.ContainerSpec(); ok {
			spec = " " + Note(s.String())
		}
		fmt.Fprintf(c.w, "%s%s\n", Heading(n.DisplayName()), spec)
	}
}

func (c *Console) ExecutionFinished(n suite.Node, r execute.Result) {
	if n.Kind() != suite.KindUnit {
		return
	}
	tone := ToneOf(r.Phase)
	switch tone {
	case TonePass:
		c.Succeeded++
	case ToneWarn:
		c.Aborted++
	default:
		c.Failed++
	}
	elapsed := Note("(" + r.Elapsed.Round(time.Millisecond).String() + ")")
	fmt.Fprintf(c.w, "  %s %s\n", Mark(tone, "%s", n.DisplayName()), elapsed)
	if tone != TonePass {
		c.detail(n, r)
	}
}

func (c *Console) detail(n suite.Node, r execute.Result) {
	if r.Err == nil {
		return
	}
	msg := r.Err.Error()
	if spec, ok := n.ContainerSpec(); ok {
		msg += " " + Note("["+spec.Name+"]")
	}
	fmt.Fprintf(c.w, "      %s\n", msg)
}

// Summary renders the final tally.
func (c *Console) Summary(elapsed time.Duration) string {
	parts := []string{Paint(TonePass, fmt.Sprintf("%d passed", c.Succeeded))}
	if c.Failed > 0 {
		parts = append(parts, Paint(ToneFail, fmt.Sprintf("%d failed", c.Failed)))
	}
	if c.Aborted > 0 {
		parts = append(parts, Paint(ToneWarn, fmt.Sprintf("%d aborted", c.Aborted)))
	}
	return strings.Join(parts, ", ") + " " + Note("in "+elapsed.Round(time.Millisecond).String())
}

// Tree renders a discovery tree, one group per header line.
func Tree(tree *suite.Tree) string {
	var sb strings.Builder
	sb.WriteString(Heading(tree.ID()) + "\n")
	for _, g := range tree.Groups() {
		line := "  " + Paint(ToneInfo, g.Identifier())
		if spec, ok := g.ContainerSpec(); ok {
			line += " " + Note(spec.String())
		}
		sb.WriteString(line + "\n")
		for _, u := range g.Units() {
			sb.WriteString("    " + u.Name() + " " + Note("→ "+u.Spec().Name) + "\n")
		}
	}
	return sb.String()
}
