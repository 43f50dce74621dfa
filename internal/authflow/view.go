package authflow

import (
	"context"
	"net/url"
	"strings"
)

// Callbacks are the user actions a view may trigger. They are safe to call
// from any goroutine.
type Callbacks struct {
	SetMode     func(Mode)
	SetUsername func(string)
	SetPassword func(string)
	// Submit blocks until the attempt finishes. The Enter key in either
	// input maps here too.
	Submit func(ctx context.Context)
}

// View draws the form. Render is called after every state change, from
// whichever goroutine caused it, so implementations must not block on
// their own event loop.
type View interface {
	Render(state State, cb Callbacks)
}

// ViewFunc adapts a function to View.
type ViewFunc func(State, Callbacks)

func (f ViewFunc) Render(state State, cb Callbacks) {
	f(state, cb)
}

// Navigator performs the full navigation away from the form. Everything
// the flow holds is normally discarded afterwards. If Navigate returns and
// the flow keeps running, the form is unlocked again.
type Navigator interface {
	Navigate(target string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(string)

func (f NavigatorFunc) Navigate(target string) {
	f(target)
}

// ResolveTarget joins a home path onto the server origin. Absolute targets
// are returned untouched.
func ResolveTarget(serverURL, target string) (string, error) {
	t, err := url.Parse(target)
	if err != nil {
		return "", err
	}
	if t.IsAbs() {
		return target, nil
	}
	base, err := url.Parse(strings.TrimRight(serverURL, "/") + "/")
	if err != nil {
		return "", err
	}
	return base.ResolveReference(t).String(), nil
}
