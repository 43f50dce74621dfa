// Package authflow implements the client side of the login/registration flow.
//
// A Controller runs three phases against the authentication API:
//
//   - Start probes whoami once. An existing session navigates straight to the
//     home route; any failure is treated as an anonymous visitor and the form
//     is revealed.
//   - SetMode, SetUsername and SetPassword manage the form. Switching mode
//     clears the displayed notice.
//   - Submit posts the credentials to the login or register endpoint. One
//     submission may be in flight at a time; success navigates home after a
//     short delay, failures become a readable notice.
//
// Presentation lives behind the View interface, so the same controller drives
// every skin:
//
//	ctrl := authflow.New(client, navigator, view, authflow.Options{RequireFields: true})
//	ctrl.Start(ctx)
package authflow
