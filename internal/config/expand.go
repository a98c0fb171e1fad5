package config

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// ExpandTilde replaces a leading ~ with the home directory. ~user is left
// alone.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// ExpandPath expands ~ and the ${USER}, ${HOME} and ${HOST} variables in
// an archive or log path. Other variables are kept verbatim.
func ExpandPath(path string) string {
	if !strings.Contains(path, "${") {
		return ExpandTilde(path)
	}
	r := strings.NewReplacer(
		"${USER}", currentUser(),
		"${HOME}", ExpandTilde("~"),
		"${HOST}", hostname(),
	)
	return ExpandTilde(r.Replace(path))
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}

func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "localhost"
}
