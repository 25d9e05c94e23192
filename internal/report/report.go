// Package report renders a completed test iteration into the two
// persisted-state artifacts spec.md §6 calls for: a human-readable textual
// trace (operation identities, events, state transitions, monitor
// verdicts) and, for the CLI's `--report` flag, an HTML rendering of that
// same trace written as Markdown first.
//
// Grounded directly on the teacher's own markdownToHTML helper
// (internal/web/server.go): same goldmark.New(GFM extension,
// html.WithHardWraps, html.WithXHTML) construction, reused here instead of
// hand-rolling an HTML trace template.
package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/roasbeef/loom/internal/runstore"
)

// StepEvent is one line of the textual trace: the scheduler handed the
// baton to Operation, which did something worth recording (an event
// delivered, a state transition, an assert). Detail is free text appended
// after the operation identity.
type StepEvent struct {
	Step      int
	Operation string
	Kind      string
	Detail    string
}

// String renders a single trace line, e.g. "   42  Client(3)        event      Ping delivered".
func (e StepEvent) String() string {
	return fmt.Sprintf("%5d  %-16s %-10s %s", e.Step, e.Operation, e.Kind, e.Detail)
}

// MonitorVerdict is a registered monitor's final state at the end of an
// iteration, used for the verdict table in both the text and Markdown
// renderings.
type MonitorVerdict struct {
	Name  string
	State string
	Hot   bool
}

// Report is everything needed to render both artifacts for one iteration.
type Report struct {
	Iteration runstore.Iteration
	Steps     []StepEvent
	Monitors  []MonitorVerdict
}

// WriteText writes the plain-text trace: a header line with the iteration
// index, verdict, step count and duration, the step log, and a monitor verdict table. This is the
// format persisted alongside the machine-replay trace (spec.md §6).
func (r Report) WriteText(w io.Writer) error {
	it := r.Iteration

	if _, err := fmt.Fprintf(w, "iteration %d: verdict=%s steps=%d duration=%s\n",
		it.Index, it.Verdict, it.StepsTaken, it.Duration); err != nil {
		return err
	}
	if it.ErrorKind != "" {
		if _, err := fmt.Fprintf(w, "  %s: %s\n", it.ErrorKind, it.ErrorMessage); err != nil {
			return err
		}
	}

	if len(r.Steps) > 0 {
		if _, err := fmt.Fprintln(w, "\nsteps:"); err != nil {
			return err
		}
		for _, s := range r.Steps {
			if _, err := fmt.Fprintln(w, s.String()); err != nil {
				return err
			}
		}
	}

	if len(r.Monitors) > 0 {
		if _, err := fmt.Fprintln(w, "\nmonitors:"); err != nil {
			return err
		}
		for _, m := range r.Monitors {
			temp := "cold"
			if m.Hot {
				temp = "hot"
			}
			if _, err := fmt.Fprintf(w, "  %-20s %-20s %s\n", m.Name, m.State, temp); err != nil {
				return err
			}
		}
	}
	return nil
}

// Markdown renders the same report as GitHub-flavored Markdown: an
// iteration heading, a "Scheduling steps" section with a numbered list of
// steps, and a table of monitor verdicts, matching
// SPEC_FULL.md §2's description of the `--report` rendering.
func (r Report) Markdown() string {
	it := r.Iteration
	var b strings.Builder

	fmt.Fprintf(&b, "# Iteration %d: %s\n\n", it.Index, it.Verdict)
	fmt.Fprintf(&b, "- Steps taken: %d\n", it.StepsTaken)
	fmt.Fprintf(&b, "- Duration: %s\n", it.Duration)
	if it.ErrorKind != "" {
		fmt.Fprintf(&b, "- Error: `%s`: %s\n", it.ErrorKind, it.ErrorMessage)
	}
	if it.TextTracePath != "" {
		fmt.Fprintf(&b, "- Text trace: `%s`\n", it.TextTracePath)
	}
	if it.ReplayTracePath != "" {
		fmt.Fprintf(&b, "- Replay trace: `%s`\n", it.ReplayTracePath)
	}

	if len(r.Steps) > 0 {
		b.WriteString("\n## Scheduling steps\n\n")
		for _, s := range r.Steps {
			fmt.Fprintf(&b, "%d. **%s** (%s): %s\n", s.Step, s.Operation, s.Kind, s.Detail)
		}
	}

	if len(r.Monitors) > 0 {
		b.WriteString("\n## Monitor verdicts\n\n")
		b.WriteString("| Monitor | State | Temperature |\n")
		b.WriteString("|---|---|---|\n")
		for _, m := range r.Monitors {
			temp := "cold"
			if m.Hot {
				temp = "hot"
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", m.Name, m.State, temp)
		}
	}

	return b.String()
}

// renderer is built once; goldmark.Markdown is safe for concurrent Convert
// calls.
var renderer = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(
		html.WithHardWraps(),
		html.WithXHTML(),
	),
)

// RenderHTML converts md (as produced by Report.Markdown) to an HTML
// fragment for the CLI's --report flag.
func RenderHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("rendering report to HTML: %w", err)
	}
	return buf.String(), nil
}

// HTML is a convenience wrapper combining Markdown and RenderHTML.
func (r Report) HTML() (string, error) {
	return RenderHTML(r.Markdown())
}
