package cli

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/loginflow/internal/authtest"
	"github.com/mrlokans/loginflow/internal/config"
)

func newWhoAmICommand(t *testing.T, args ...string) (*WhoAmICommand, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := &WhoAmICommand{Config: config.NewConfig(), Version: "test", Out: out, Err: io.Discard}
	require.NoError(t, cmd.ParseFlags(args))
	return cmd, out
}

func TestWhoAmICommand_SignedIn(t *testing.T) {
	srv := authtest.NewServer(t)
	srv.AddUser(t, "alice", "correct horse")
	session, err := srv.SessionFor("alice")
	require.NoError(t, err)

	cmd, out := newWhoAmICommand(t,
		"-server", srv.URL,
		"-api-prefix", authtest.Prefix,
		"-cookie", session.Name+"="+session.Value,
	)

	require.NoError(t, cmd.Run())
	assert.Equal(t, "Signed in as alice\n", out.String())
}

func TestWhoAmICommand_Anonymous(t *testing.T) {
	srv := authtest.NewServer(t)
	cmd, out := newWhoAmICommand(t, "-server", srv.URL, "-api-prefix", authtest.Prefix)

	err := cmd.Run()
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.Empty(t, out.String())
}

func TestWhoAmICommand_Unreachable(t *testing.T) {
	srv := authtest.NewServer(t)
	url := srv.URL
	srv.Close()

	cmd, _ := newWhoAmICommand(t, "-server", url, "-api-prefix", authtest.Prefix)

	err := cmd.Run()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotSignedIn)
	assert.Contains(t, err.Error(), "could not reach")
}
