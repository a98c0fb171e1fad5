package sshutil

import (
	"bytes"
	"fmt"

	"github.com/rileyhilliard/treetop/internal/errors"
	"golang.org/x/crypto/ssh"
)

// Exec runs cmd on the host. A command that ran and exited non-zero is
// reported through exitCode with a nil error; exitCode is -1 when the
// command could not be run at all.
func (c *Client) Exec(cmd string) (stdout, stderr []byte, exitCode int, err error) {
	if c.conn == nil {
		return nil, nil, -1, errors.New(errors.ErrSSH, "SSH connection is closed", "Restart treetop to reconnect.")
	}
	session, err := c.conn.NewSession()
	if err != nil {
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to open an SSH session",
			"The connection may have dropped. Restart treetop to reconnect.")
	}
	defer session.Close()

	var out, errOut bytes.Buffer
	session.Stdout = &out
	session.Stderr = &errOut
	if err := session.Run(cmd); err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return out.Bytes(), errOut.Bytes(), exitErr.ExitStatus(), nil
		}
		return nil, nil, -1, errors.WrapWithCode(err, errors.ErrExec,
			fmt.Sprintf("Failed to run: %s", cmd),
			"Check that the PCP tools are installed on the remote host.")
	}
	return out.Bytes(), errOut.Bytes(), 0, nil
}
