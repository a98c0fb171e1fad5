package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/kevinburke/ssh_config"
	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/logger"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Environment overrides for hosts without an ~/.ssh/config entry, such as CI.
const (
	EnvUser = "TREETOP_SSH_USER"
	EnvKey  = "TREETOP_SSH_KEY"
)

// Client is an SSH connection to a host that runs pminfo. It owns the
// ssh-agent socket used to authenticate, which Close releases.
type Client struct {
	conn  *ssh.Client
	agent net.Conn

	Host    string // alias or address as given to Dial
	Address string // resolved host:port
}

// Dial connects to host, which may be an ~/.ssh/config alias, a hostname,
// user@hostname or hostname:port. Host keys are always checked against
// ~/.ssh/known_hosts.
func Dial(host string, timeout time.Duration) (*Client, error) {
	settings := resolveSSHSettings(host)
	c := &Client{Host: host, Address: settings.address()}

	config, err := c.clientConfig(settings, timeout)
	if err != nil {
		c.closeAgent()
		var structured *errors.Error
		if stderrors.As(err, &structured) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't prepare SSH for '%s'", host),
			"Check your keys are loaded: ssh-add -l")
	}

	tcp, err := net.DialTimeout("tcp", c.Address, timeout)
	if err != nil {
		c.closeAgent()
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", host, c.Address),
			suggestionForDialError(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(tcp, c.Address, config)
	if err != nil {
		tcp.Close()
		c.closeAgent()
		var mismatch *HostKeyMismatchError
		if stderrors.As(err, &mismatch) {
			return nil, errors.New(errors.ErrSSH, mismatch.Error(), mismatch.Suggestion())
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' failed", host),
			suggestionForHandshakeError(err, settings.encryptedKeys))
	}

	c.conn = ssh.NewClient(sshConn, chans, reqs)
	return c, nil
}

// Close ends the session with the host and releases the agent socket.
func (c *Client) Close() error {
	c.closeAgent()
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) closeAgent() {
	if c.agent != nil {
		c.agent.Close()
		c.agent = nil
	}
}

// GetHost returns the host as given to Dial.
func (c *Client) GetHost() string { return c.Host }

// GetAddress returns the resolved host:port.
func (c *Client) GetAddress() string { return c.Address }

// sshSettings are the connection parameters for one host.
type sshSettings struct {
	hostname      string
	port          string
	user          string
	identityFile  string
	encryptedKeys []string
}

func (s *sshSettings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

var matchWarningOnce sync.Once

// resolveSSHSettings splits user@host:port and fills the gaps from
// ~/.ssh/config.
func resolveSSHSettings(host string) *sshSettings {
	settings := &sshSettings{port: "22", user: currentUser()}

	if user, rest, ok := strings.Cut(host, "@"); ok {
		settings.user = user
		host = rest
	} else if u := os.Getenv(EnvUser); u != "" {
		settings.user = u
	}
	if i := strings.LastIndex(host, ":"); i != -1 && isDigits(host[i+1:]) {
		settings.port = host[i+1:]
		host = host[:i]
	}
	settings.hostname = host

	// ssh_config cannot decode Match blocks; everything after the first one
	// is ignored.
	content, matchLine, err := preprocessSSHConfig(filepath.Join(homeDir(), ".ssh", "config"))
	if err != nil {
		return settings
	}
	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return settings
	}

	found := false
	set := func(key string, dst *string, conv func(string) string) {
		if v, _ := cfg.Get(host, key); v != "" {
			*dst = conv(v)
			found = true
		}
	}
	same := func(s string) string { return s }
	set("HostName", &settings.hostname, same)
	set("Port", &settings.port, same)
	set("User", &settings.user, same)
	set("IdentityFile", &settings.identityFile, expandPath)

	if matchLine > 0 && !found {
		matchWarningOnce.Do(func() {
			logger.Default().Warn("no ~/.ssh/config entry for '%s'; entries after the Match block at line %d are not read", host, matchLine)
		})
	}
	return settings
}

// clientConfig gathers agent and key file auth, remembering any encrypted
// keys it had to skip so the error can say how to load them.
func (c *Client) clientConfig(settings *sshSettings, timeout time.Duration) (*ssh.ClientConfig, error) {
	var methods []ssh.AuthMethod
	if auth := c.agentAuth(); auth != nil {
		methods = append(methods, auth)
	}

	tried := make(map[string]bool)
	keys := []string{os.Getenv(EnvKey), settings.identityFile}
	for _, name := range []string{"id_ed25519", "id_rsa", "id_ecdsa"} {
		keys = append(keys, filepath.Join(homeDir(), ".ssh", name))
	}
	for _, path := range keys {
		if path == "" || tried[path] {
			continue
		}
		tried[path] = true
		auth, err := keyFileAuth(path)
		var encrypted *EncryptedKeyError
		switch {
		case stderrors.As(err, &encrypted):
			settings.encryptedKeys = append(settings.encryptedKeys, path)
		case err == nil:
			methods = append(methods, auth)
		}
	}

	if len(methods) == 0 {
		if len(settings.encryptedKeys) > 0 {
			return nil, errors.New(errors.ErrSSH,
				fmt.Sprintf("Only passphrase-protected SSH keys found: %s", strings.Join(settings.encryptedKeys, ", ")),
				addKeysHint(settings.encryptedKeys))
		}
		return nil, errors.New(errors.ErrSSH,
			"No SSH keys or agent available",
			"Check your keys are loaded: ssh-add -l")
	}

	hostKeys, err := createHostKeyCallback(filepath.Join(homeDir(), ".ssh", "known_hosts"))
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts: %w", err)
	}
	return &ssh.ClientConfig{
		User:            settings.user,
		Auth:            methods,
		HostKeyCallback: hostKeys,
		Timeout:         timeout,
	}, nil
}

// agentAuth connects to ssh-agent and returns its signers, or nil when
// there is no agent or it holds no keys. An empty agent listed first would
// make the server reject the later methods.
func (c *Client) agentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}
	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil
	}
	ag := agent.NewClient(conn)
	if signers, err := ag.Signers(); err != nil || len(signers) == 0 {
		conn.Close()
		return nil
	}
	c.agent = conn
	return ssh.PublicKeysCallback(ag.Signers)
}

// keyFileAuth loads a private key, returning EncryptedKeyError when it
// needs a passphrase.
func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if stderrors.As(err, &missing) || bytes.Contains(key, []byte("ENCRYPTED")) {
			return nil, &EncryptedKeyError{Path: keyPath}
		}
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.Getenv("HOME")
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func addKeysHint(keys []string) string {
	cmd := "ssh-add"
	if runtime.GOOS == "darwin" {
		cmd = "ssh-add --apple-use-keychain"
	}
	var sb strings.Builder
	sb.WriteString("Load the key(s) into ssh-agent, then rerun treetop:\n")
	for _, key := range keys {
		fmt.Fprintf(&sb, "  %s %s\n", cmd, key)
	}
	return sb.String()
}

func suggestionForDialError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "Nothing is listening on the SSH port. Is sshd running on the metrics host?"
	case strings.Contains(msg, "no route to host"), strings.Contains(msg, "network is unreachable"):
		return "The host can't be routed to. Check the network or use --host with pmproxy instead."
	case strings.Contains(msg, "timeout"):
		return "The connection timed out. Raise source.timeout or check the host is up."
	}
	return "Check the host is reachable with: ssh <host> pminfo -h"
}

func suggestionForHandshakeError(err error, encryptedKeys []string) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "unable to authenticate"), strings.Contains(msg, "no supported methods"):
		if len(encryptedKeys) > 0 {
			return addKeysHint(encryptedKeys)
		}
		return "Authentication failed. Check your keys are loaded: ssh-add -l"
	case strings.Contains(msg, "host key"):
		return "The host key was rejected. Connect once with plain ssh to record it."
	}
	return "Try the connection by hand: ssh <host> pminfo -h"
}

// EncryptedKeyError is returned for a key that needs a passphrase.
type EncryptedKeyError struct {
	Path string
}

func (e *EncryptedKeyError) Error() string {
	return fmt.Sprintf("SSH key %s is passphrase protected", e.Path)
}

// HostKeyMismatchError reports a host key that differs from known_hosts.
type HostKeyMismatchError struct {
	Hostname     string
	ReceivedType string
	KnownHosts   string
	Want         []knownhosts.KnownKey
}

func (e *HostKeyMismatchError) Error() string {
	return fmt.Sprintf("host key mismatch for %s: server sent %s key", e.Hostname, e.ReceivedType)
}

// Suggestion returns the commands that replace the stale known_hosts entry.
func (e *HostKeyMismatchError) Suggestion() string {
	host := e.Hostname
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	known := make([]string, 0, len(e.Want))
	for _, k := range e.Want {
		known = append(known, k.Key.Type())
	}
	if len(known) == 0 {
		known = []string{"unknown"}
	}
	return fmt.Sprintf("known_hosts has %s, the server sent %s.\n"+
		"  If the host was reinstalled, replace the entry:\n"+
		"    ssh-keygen -R %s\n"+
		"    ssh-keyscan %s >> %s",
		strings.Join(known, ", "), e.ReceivedType, host, host, e.KnownHosts)
}

// preprocessSSHConfig returns the config up to the first Match directive
// and the 1-based line of that directive, or 0 when there is none.
func preprocessSSHConfig(configPath string) ([]byte, int, error) {
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, 0, err
	}
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.ToLower(strings.TrimSpace(line)), "match ") {
			return []byte(strings.Join(lines[:i], "\n")), i + 1, nil
		}
	}
	return content, 0, nil
}

// createHostKeyCallback checks keys against knownHostsPath, creating an
// empty file when there is none. Mismatches carry the key types on record.
func createHostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, nil, 0600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, err
	}
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := callback(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if stderrors.As(err, &keyErr) && len(keyErr.Want) > 0 {
			return &HostKeyMismatchError{
				Hostname:     hostname,
				ReceivedType: key.Type(),
				KnownHosts:   knownHostsPath,
				Want:         keyErr.Want,
			}
		}
		return err
	}, nil
}
