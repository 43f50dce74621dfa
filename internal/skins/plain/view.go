// Package plain is the line oriented skin: prompts on stdin, hand-rolled
// colours on stdout.
package plain

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/mrlokans/loginflow/internal/authflow"
)

// View prints what changed between renders. It never prints input values.
type View struct {
	out io.Writer

	mu    sync.Mutex
	last  authflow.State
	drawn bool

	title   *color.Color
	muted   *color.Color
	errText *color.Color
	warn    *color.Color
	ok      *color.Color
}

// NewView writes to out. noColor strips ANSI sequences, which is what tests
// and pipes want.
func NewView(out io.Writer, noColor bool) *View {
	v := &View{
		out:     out,
		title:   color.New(color.FgCyan, color.Bold),
		muted:   color.New(color.Faint),
		errText: color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		ok:      color.New(color.FgGreen),
	}
	if noColor {
		for _, c := range []*color.Color{v.title, v.muted, v.errText, v.warn, v.ok} {
			c.DisableColor()
		}
	}
	return v
}

// Render implements authflow.View.
func (v *View) Render(s authflow.State, _ authflow.Callbacks) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.drawn && s.Version <= v.last.Version {
		return
	}
	prev, first := v.last, !v.drawn
	v.last, v.drawn = s, true

	switch s.Phase {
	case authflow.PhaseChecking:
		if first || prev.Phase != authflow.PhaseChecking {
			v.muted.Fprintln(v.out, "Checking for an existing session...")
		}
	case authflow.PhaseRedirecting:
		if prev.Phase != authflow.PhaseRedirecting {
			v.ok.Fprintln(v.out, "Already signed in.")
		}
	case authflow.PhaseForm:
		if first || prev.Phase != authflow.PhaseForm || prev.Mode != s.Mode {
			v.header(s.Mode)
		}
		if s.Busy() && !prev.Busy() {
			v.muted.Fprintln(v.out, s.SubmitLabel())
		}
		if !s.Notice.Empty() && (s.Notice != prev.Notice || s.Attempt != prev.Attempt) {
			v.notice(s.Notice)
		}
	}
}

func (v *View) header(mode authflow.Mode) {
	fmt.Fprintln(v.out)
	v.title.Fprintf(v.out, "== %s ==", mode.Title())
	v.muted.Fprintf(v.out, "  (type %s to switch, %s to exit)\n", switchCommand(mode.Other()), cmdQuit)
}

func (v *View) notice(n authflow.Notice) {
	switch n.Kind {
	case authflow.NoticeError:
		v.errText.Fprintf(v.out, "error: %s\n", n.Text)
	case authflow.NoticeWarning:
		v.warn.Fprintf(v.out, "warning: %s\n", n.Text)
	case authflow.NoticeSuccess:
		v.ok.Fprintln(v.out, n.Text)
	}
}
