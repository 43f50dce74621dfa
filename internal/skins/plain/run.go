package plain

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/mrlokans/loginflow/internal/authflow"
)

const (
	cmdLogin    = ":login"
	cmdRegister = ":register"
	cmdQuit     = ":quit"
)

// ErrQuit is returned when the user leaves with :quit.
var ErrQuit = errors.New("quit")

// ErrInputClosed is returned when input ends before the flow finished.
var ErrInputClosed = errors.New("input closed")

// Flow is the part of the controller the prompt loop drives.
type Flow interface {
	State() authflow.State
	Callbacks() authflow.Callbacks
}

// Options configure Run.
type Options struct {
	In  io.Reader
	Out io.Writer
	// ReadPassword reads the password without echo. When nil the password is
	// read as an ordinary line.
	ReadPassword func() (string, error)
	// Done is closed once the flow has navigated away.
	Done <-chan struct{}
}

type prompter struct {
	flow    Flow
	cb      authflow.Callbacks
	opts    Options
	scanner *bufio.Scanner
}

// Run prompts for credentials until the flow navigates away. The probe must
// already have run. Enter on the username line moves to the password prompt;
// Enter on the password line submits. Typing :login or :register at either
// prompt switches the form, :quit leaves.
func Run(ctx context.Context, flow Flow, opts Options) error {
	p := &prompter{
		flow:    flow,
		cb:      flow.Callbacks(),
		opts:    opts,
		scanner: bufio.NewScanner(opts.In),
	}

	for {
		if p.navigated() {
			return nil
		}
		if p.finished() {
			return p.waitDone(ctx)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		switchedMode, err := p.promptUsername()
		if err != nil {
			return err
		}
		if switchedMode {
			continue
		}

		switchedMode, err = p.promptPassword()
		if err != nil {
			return err
		}
		if switchedMode {
			continue
		}

		p.cb.Submit(ctx)
	}
}

func (p *prompter) navigated() bool {
	if p.opts.Done == nil {
		return false
	}
	select {
	case <-p.opts.Done:
		return true
	default:
		return false
	}
}

func (p *prompter) finished() bool {
	s := p.flow.State()
	return s.Phase == authflow.PhaseRedirecting || s.Status == authflow.StatusSucceeded
}

func (p *prompter) waitDone(ctx context.Context) error {
	if p.opts.Done == nil {
		return nil
	}
	select {
	case <-p.opts.Done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// promptUsername keeps the current value when the line is empty.
func (p *prompter) promptUsername() (bool, error) {
	current := p.flow.State().Username
	if current != "" {
		fmt.Fprintf(p.opts.Out, "Username [%s]: ", current)
	} else {
		fmt.Fprint(p.opts.Out, "Username: ")
	}

	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	if handled, err := p.command(line); handled || err != nil {
		return handled, err
	}
	if line != "" {
		p.cb.SetUsername(line)
	}
	return false, nil
}

func (p *prompter) promptPassword() (bool, error) {
	fmt.Fprint(p.opts.Out, "Password: ")

	var (
		line string
		err  error
	)
	if p.opts.ReadPassword != nil {
		line, err = p.opts.ReadPassword()
		fmt.Fprintln(p.opts.Out)
	} else {
		line, err = p.readLine()
	}
	if err != nil {
		return false, err
	}
	if handled, err := p.command(line); handled || err != nil {
		return handled, err
	}
	p.cb.SetPassword(line)
	return false, nil
}

func (p *prompter) command(line string) (bool, error) {
	switch strings.TrimSpace(line) {
	case cmdLogin:
		p.cb.SetMode(authflow.ModeLogin)
		return true, nil
	case cmdRegister:
		p.cb.SetMode(authflow.ModeRegister)
		return true, nil
	case cmdQuit:
		return true, ErrQuit
	}
	return false, nil
}

func (p *prompter) readLine() (string, error) {
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return "", ErrInputClosed
	}
	return strings.TrimRight(p.scanner.Text(), "\r"), nil
}

func switchCommand(m authflow.Mode) string {
	if m == authflow.ModeRegister {
		return cmdRegister
	}
	return cmdLogin
}
