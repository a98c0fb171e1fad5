package testing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/treetop/pkg/sshutil"
)

var _ sshutil.SSHClient = (*MockClient)(nil)

func TestMockClient_CustomResponse(t *testing.T) {
	client := NewMockClient("testhost")

	client.SetCommandResponse("custom-cmd", CommandResponse{
		Stdout:   []byte("custom output"),
		ExitCode: 42,
	})

	stdout, _, code, err := client.Exec("custom-cmd")
	require.NoError(t, err)
	assert.Equal(t, 42, code)
	assert.Equal(t, "custom output", string(stdout))
	assert.Equal(t, []string{"custom-cmd"}, client.History())
}

func TestMockClient_RegexPattern(t *testing.T) {
	client := NewMockClient("testhost")

	client.SetCommandResponse("^'pminfo' '-f' .*", CommandResponse{
		Stdout: []byte("matched"),
	})

	stdout, _, code, err := client.Exec("'pminfo' '-f' 'hinv.ncpu'")
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "matched", string(stdout))
}

func TestMockClient_UnknownCommand(t *testing.T) {
	client := NewMockClient("testhost")

	_, stderr, code, err := client.Exec("nonexistent")
	require.NoError(t, err)
	assert.Equal(t, 127, code)
	assert.Contains(t, string(stderr), "not found")
}

func TestMockClient_CustomError(t *testing.T) {
	client := NewMockClient("testhost")

	client.SetCommandResponse("fail-cmd", CommandResponse{
		Error: assert.AnError,
	})

	_, _, _, err := client.Exec("fail-cmd")
	assert.Error(t, err)
}

func TestMockClient_Close(t *testing.T) {
	client := NewMockClient("testhost")
	client.SetCommandResponse("echo test", CommandResponse{Stdout: []byte("test\n")})

	_, _, _, err := client.Exec("echo test")
	require.NoError(t, err)

	require.NoError(t, client.Close())
	assert.True(t, client.Closed())

	_, _, _, err = client.Exec("echo test")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "closed")
}

func TestMockClient_GetHostAndAddress(t *testing.T) {
	client := NewMockClient("myserver")

	assert.Equal(t, "myserver", client.GetHost())
	assert.Equal(t, "myserver:22", client.GetAddress())
}
