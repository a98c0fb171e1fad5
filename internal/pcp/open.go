package pcp

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/rileyhilliard/treetop/internal/config"
	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/pkg/sshutil"
)

// Replaceable in tests.
var (
	dialSSH = func(host string, cfg config.SourceConfig) (sshutil.SSHClient, error) {
		return sshutil.Dial(host, cfg.Timeout)
	}
	lookPath = exec.LookPath
	hostname = os.Hostname
)

// Open connects to the metric source cfg selects. Every failure is a
// SourceUnavailable error.
func Open(ctx context.Context, cfg config.SourceConfig, log logger.Logger) (metric.Source, error) {
	if log == nil {
		log = logger.Noop()
	}

	switch cfg.Kind {
	case config.SourceHost, "":
		w, err := DialWebAPI(ctx, cfg.Host, "", cfg.Timeout, log)
		if err != nil {
			return nil, err
		}
		return w, nil

	case config.SourceArchive:
		a, err := OpenArchive(cfg.Archive, cfg.Loop)
		if err != nil {
			return nil, err
		}
		return a, nil

	case config.SourceSSH:
		return openSSH(cfg, log)

	case config.SourceLocal:
		bin, err := lookPath(cfg.PMInfo)
		if err != nil {
			return nil, errors.SourceUnavailable(err, "local pminfo")
		}
		host, err := hostname()
		if err != nil {
			host = "localhost"
		}
		return NewPMInfo("local", host, LocalRunner{Binary: bin}, log), nil
	}
	return nil, errors.SourceUnavailable(fmt.Errorf("unknown source kind %q", cfg.Kind), cfg.Kind)
}

// openSSH tries each configured host in order and keeps the first that
// answers.
func openSSH(cfg config.SourceConfig, log logger.Logger) (metric.Source, error) {
	if len(cfg.SSH) == 0 {
		return nil, errors.SourceUnavailable(stderrors.New("no ssh hosts configured"), "ssh")
	}

	var failures []error
	for _, host := range cfg.SSH {
		client, err := dialSSH(host, cfg)
		if err != nil {
			log.Debug("ssh %s: %v", host, err)
			failures = append(failures, fmt.Errorf("%s: %w", host, err))
			continue
		}
		log.Info("connected to %s", client.GetAddress())
		runner := SSHRunner{Client: client, Binary: cfg.PMInfo}
		return NewPMInfo("ssh "+host, client.GetHost(), runner, log), nil
	}
	return nil, errors.SourceUnavailable(stderrors.Join(failures...), "ssh")
}
