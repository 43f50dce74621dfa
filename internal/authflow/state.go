package authflow

// Mode selects which endpoint a submission targets.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

func (m Mode) String() string {
	switch m {
	case ModeLogin:
		return "login"
	case ModeRegister:
		return "register"
	default:
		return "unknown"
	}
}

// Title is the tab and heading label.
func (m Mode) Title() string {
	if m == ModeRegister {
		return "Register"
	}
	return "Login"
}

// SubmitLabel is the submit control label, which changes while busy.
func (m Mode) SubmitLabel(busy bool) string {
	switch {
	case m == ModeRegister && busy:
		return "Registering..."
	case m == ModeRegister:
		return "Register"
	case busy:
		return "Logging in..."
	default:
		return "Login"
	}
}

// Other returns the opposite mode.
func (m Mode) Other() Mode {
	if m == ModeRegister {
		return ModeLogin
	}
	return ModeRegister
}

// ParseMode accepts "login" and "register".
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "login":
		return ModeLogin, true
	case "register":
		return ModeRegister, true
	default:
		return ModeLogin, false
	}
}

// Phase is where the page is in its lifecycle.
type Phase int

const (
	// PhaseChecking: the session probe has not resolved, only a loading
	// indicator is shown.
	PhaseChecking Phase = iota
	PhaseForm
	// PhaseRedirecting is terminal.
	PhaseRedirecting
)

func (p Phase) String() string {
	switch p {
	case PhaseChecking:
		return "checking"
	case PhaseForm:
		return "form"
	case PhaseRedirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// Status tracks the current submission.
type Status int

const (
	StatusIdle Status = iota
	StatusInFlight
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusInFlight:
		return "in_flight"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// NoticeKind classifies the displayed message.
type NoticeKind int

const (
	NoticeNone NoticeKind = iota
	NoticeError
	NoticeWarning
	NoticeSuccess
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeNone:
		return "none"
	case NoticeError:
		return "error"
	case NoticeWarning:
		return "warning"
	case NoticeSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// Notice is the single message shown to the user. Transient notices are
// meant for toast style presentation.
type Notice struct {
	Kind      NoticeKind
	Text      string
	Transient bool
}

// Empty reports whether there is nothing to show.
func (n Notice) Empty() bool {
	return n.Kind == NoticeNone
}

// State is a snapshot of everything a view needs to draw the form.
type State struct {
	// Version increases with every change; views rendering asynchronously
	// drop snapshots older than the last one they drew.
	Version uint64
	// Attempt counts accepted submissions, so a repeated identical notice
	// can still be told apart from the previous one.
	Attempt  uint64
	Phase    Phase
	Mode     Mode
	Username string
	Password string
	Status   Status
	Notice   Notice
}

// Busy is true while a submission is in flight. Inputs and the submit
// control are disabled.
func (s State) Busy() bool {
	return s.Status == StatusInFlight
}

// ShowForm is false while checking and once redirecting.
func (s State) ShowForm() bool {
	return s.Phase == PhaseForm
}

// SubmitLabel is the label of the submit control for the current state.
func (s State) SubmitLabel() string {
	return s.Mode.SubmitLabel(s.Busy())
}
