package cli

import (
	"fmt"
	"io"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/mrlokans/loginflow/internal/authflow"
)

// TerminalNavigator ends the flow by printing the home URL and, optionally,
// opening it in a browser.
type TerminalNavigator struct {
	ServerURL   string
	Out         io.Writer
	OpenBrowser bool
	Opener      func(url string) error // defaults to browser.OpenURL
	Logger      *zap.Logger
}

var openURL = browser.OpenURL

// Navigate implements authflow.Navigator.
func (n *TerminalNavigator) Navigate(target string) {
	url, err := authflow.ResolveTarget(n.ServerURL, target)
	if err != nil {
		url = target
	}
	fmt.Fprintf(n.Out, "Redirecting to %s\n", url)

	if !n.OpenBrowser {
		return
	}
	opener := n.Opener
	if opener == nil {
		opener = openURL
	}
	if err := opener(url); err != nil {
		if n.Logger != nil {
			n.Logger.Warn("failed to open browser", zap.String("url", url), zap.Error(err))
		}
		fmt.Fprintf(n.Out, "Could not open a browser, visit the URL above.\n")
	}
}
