package sshutil

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// SSHHostEntry is one concrete Host alias from an SSH config, offered as a
// metrics source by 'treetop init'.
type SSHHostEntry struct {
	Alias    string
	Hostname string
	User     string
	Port     string
}

// Description summarizes where the alias points, for picker labels.
func (h SSHHostEntry) Description() string {
	target := h.Alias
	if h.Hostname != "" {
		target = h.Hostname
	}
	if h.User != "" {
		target = h.User + "@" + target
	}
	if h.Port != "" && h.Port != "22" {
		target += ":" + h.Port
	}
	return target
}

// Target is the string handed to the ssh source. The alias is enough since
// Dial resolves it through the same config.
func (h SSHHostEntry) Target() string {
	return h.Alias
}

// ParseSSHConfig reads ~/.ssh/config. A missing file yields no hosts.
func ParseSSHConfig() ([]SSHHostEntry, error) {
	return ParseSSHConfigFile(filepath.Join(homeDir(), ".ssh", "config"))
}

// ParseSSHConfigFile returns the concrete aliases in configPath, sorted.
// Wildcard patterns and everything after the first Match block are ignored.
func ParseSSHConfigFile(configPath string) ([]SSHHostEntry, error) {
	content, _, err := preprocessSSHConfig(configPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var hosts []SSHHostEntry
	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			alias := pattern.String()
			if strings.ContainsAny(alias, "*?!") {
				continue
			}
			if _, dup := seen[alias]; dup {
				continue
			}
			seen[alias] = struct{}{}
			hosts = append(hosts, lookupEntry(cfg, alias))
		}
	}

	slices.SortFunc(hosts, func(a, b SSHHostEntry) int { return strings.Compare(a.Alias, b.Alias) })
	return hosts, nil
}

func lookupEntry(cfg *ssh_config.Config, alias string) SSHHostEntry {
	get := func(key string) string {
		v, _ := cfg.Get(alias, key)
		return v
	}
	return SSHHostEntry{
		Alias:    alias,
		Hostname: get("HostName"),
		User:     get("User"),
		Port:     get("Port"),
	}
}
