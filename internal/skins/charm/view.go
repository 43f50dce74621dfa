package charm

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mrlokans/loginflow/internal/authflow"
)

// View forwards controller renders and navigation into a running program.
// Messages are sent from their own goroutine: the controller may render from
// inside Update, and tea.Program.Send would block on its own event loop.
type View struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

// NewView returns a view that drops messages until Attach is called.
func NewView() *View {
	return &View{}
}

// Attach connects the view to a program, normally (*tea.Program).Send.
func (v *View) Attach(send func(tea.Msg)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.send = send
}

// Render implements authflow.View.
func (v *View) Render(state authflow.State, cb authflow.Callbacks) {
	v.dispatch(stateMsg{state: state, cb: cb})
}

// Navigate implements authflow.Navigator. The program quits and the caller
// reads the target from Model.NavigatedTo.
func (v *View) Navigate(target string) {
	v.dispatch(navigatedMsg{target: target})
}

func (v *View) dispatch(msg tea.Msg) {
	v.mu.RLock()
	send := v.send
	v.mu.RUnlock()
	if send == nil {
		return
	}
	go send(msg)
}
