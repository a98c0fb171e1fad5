package pcp

import (
	"context"
	stderrors "errors"
	"net/http/httptest"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/pkg/sshutil"
	sshtest "github.com/rileyhilliard/treetop/pkg/sshutil/testing"
)

func TestOpen_Host(t *testing.T) {
	srv := httptest.NewServer(newFakePMProxy())
	t.Cleanup(srv.Close)

	src, err := Open(context.Background(), config.SourceConfig{Kind: config.SourceHost, Host: srv.URL, Timeout: time.Second}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	assert.IsType(t, &WebAPI{}, src)
	assert.Equal(t, "lab-box", src.Hostname())
}

func TestOpen_Archive(t *testing.T) {
	src, err := Open(context.Background(), config.SourceConfig{Kind: config.SourceArchive, Archive: writeArchive(t, sampleArchive)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "lab-box", src.Hostname())
}

func TestOpen_SSH(t *testing.T) {
	orig := dialSSH
	t.Cleanup(func() { dialSSH = orig })

	var tried []string
	dialSSH = func(host string, _ config.SourceConfig) (sshutil.SSHClient, error) {
		tried = append(tried, host)
		if host == "down" {
			return nil, stderrors.New("connection refused")
		}
		return sshtest.NewMockClient(host), nil
	}

	cfg := config.SourceConfig{Kind: config.SourceSSH, SSH: []string{"down", "lab", "spare"}, PMInfo: "pminfo"}
	src, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"down", "lab"}, tried)
	assert.Equal(t, "ssh lab", src.Name())
	assert.Equal(t, "lab", src.Hostname())

	cfg.SSH = []string{"down"}
	_, err = Open(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrSource))
	assert.Contains(t, err.Error(), "connection refused")

	cfg.SSH = nil
	_, err = Open(context.Background(), cfg, nil)
	assert.True(t, errors.IsCode(err, errors.ErrSource))
}

func TestOpen_Local(t *testing.T) {
	origLook, origHost := lookPath, hostname
	t.Cleanup(func() { lookPath, hostname = origLook, origHost })
	hostname = func() (string, error) { return "workstation", nil }

	lookPath = func(string) (string, error) { return "/usr/bin/pminfo", nil }
	src, err := Open(context.Background(), config.SourceConfig{Kind: config.SourceLocal, PMInfo: "pminfo"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "workstation", src.Hostname())

	lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	_, err = Open(context.Background(), config.SourceConfig{Kind: config.SourceLocal, PMInfo: "pminfo"}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrSource))
}

func TestOpen_UnknownKind(t *testing.T) {
	_, err := Open(context.Background(), config.SourceConfig{Kind: "carrier-pigeon"}, nil)
	assert.True(t, errors.IsCode(err, errors.ErrSource))
}
