package pcp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/metric"
	"github.com/rileyhilliard/treetop/internal/util"
	"github.com/rileyhilliard/treetop/pkg/sshutil"
)

// Runner runs the pminfo binary with args and returns its standard output.
// Output is returned alongside an error when pminfo exits non-zero, which it
// does whenever one of several names is unknown.
type Runner interface {
	Run(ctx context.Context, args []string) ([]byte, error)
}

// LocalRunner runs pminfo on this machine.
type LocalRunner struct {
	Binary string
}

func (r LocalRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.Binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil && stderr.Len() > 0 {
		err = fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return out, err
}

// SSHRunner runs pminfo on a remote host.
type SSHRunner struct {
	Client sshutil.SSHClient
	Binary string
}

func (r SSHRunner) Run(ctx context.Context, args []string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, util.ShellQuote(r.Binary))
	for _, a := range args {
		quoted = append(quoted, util.ShellQuote(a))
	}
	cmd := strings.Join(quoted, " ")

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		stdout, stderr, code, err := r.Client.Exec(cmd)
		if err == nil && code != 0 {
			err = fmt.Errorf("pminfo exited with status %d: %s", code, strings.TrimSpace(string(stderr)))
		}
		done <- result{out: stdout, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.out, res.err
	}
}

// PMInfo is a metric source that shells out to pminfo for every lookup and
// fetch. It needs no pmproxy, only the PCP command line tools.
type PMInfo struct {
	name     string
	hostname string
	runner   Runner
	log      logger.Logger

	mu    sync.Mutex
	names map[metric.PMID]string
	descs map[metric.PMID]metric.Descriptor
}

// NewPMInfo returns a source running pminfo through runner. name identifies
// the source in messages and hostname is the host the metrics describe.
func NewPMInfo(name, hostname string, runner Runner, log logger.Logger) *PMInfo {
	if log == nil {
		log = logger.Noop()
	}
	return &PMInfo{
		name:     name,
		hostname: hostname,
		runner:   runner,
		log:      log,
		names:    make(map[metric.PMID]string),
		descs:    make(map[metric.PMID]metric.Descriptor),
	}
}

func (p *PMInfo) Name() string     { return p.name }
func (p *PMInfo) Hostname() string { return p.hostname }

// run executes pminfo and tolerates a failing exit status as long as some
// output was produced.
func (p *PMInfo) run(ctx context.Context, args []string) (map[string]*pminfoEntry, error) {
	out, err := p.runner.Run(ctx, args)
	if err != nil {
		if ctx.Err() != nil || len(bytes.TrimSpace(out)) == 0 {
			return nil, err
		}
		p.log.Debug("pminfo %s: %v", args[0], err)
	}
	return parsePMInfo(out), nil
}

func (p *PMInfo) Lookup(ctx context.Context, names []string) ([]metric.Descriptor, error) {
	out := make([]metric.Descriptor, len(names))
	for i := range out {
		out[i] = metric.Descriptor{PMID: metric.NullPMID, InDom: metric.NullInDom}
	}
	if len(names) == 0 {
		return out, nil
	}

	entries, err := p.run(ctx, append([]string{"-m", "-d"}, names...))
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for i, name := range names {
		e, ok := entries[name]
		if !ok || e.err != "" || e.pmid == metric.NullPMID {
			continue
		}
		out[i] = e.desc
		p.names[e.pmid] = name
		p.descs[e.pmid] = e.desc
	}
	return out, nil
}

func (p *PMInfo) Fetch(ctx context.Context, pmids []metric.PMID) (*metric.Snapshot, error) {
	p.mu.Lock()
	names := make([]string, 0, len(pmids))
	snap := metric.NewSnapshot(time.Now())
	for _, id := range pmids {
		name, ok := p.names[id]
		if !ok {
			snap.Errors[id] = fmt.Errorf("pmid %s was never looked up", FormatPMID(id))
			continue
		}
		names = append(names, name)
	}
	p.mu.Unlock()

	if len(names) == 0 {
		return snap, nil
	}

	entries, err := p.run(ctx, append([]string{"-f"}, names...))
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range pmids {
		name, ok := p.names[id]
		if !ok {
			continue
		}
		e, ok := entries[name]
		switch {
		case !ok:
			snap.Errors[id] = fmt.Errorf("%s missing from pminfo output", name)
		case e.err != "":
			snap.Errors[id] = fmt.Errorf("%s: %s", name, e.err)
		default:
			vals, err := e.values(p.descs[id].Type)
			if err != nil {
				snap.Errors[id] = fmt.Errorf("%s: %w", name, err)
				continue
			}
			snap.Values[id] = vals
		}
	}
	return snap, nil
}

func (p *PMInfo) Close() error {
	if c, ok := p.runner.(SSHRunner); ok && c.Client != nil {
		return c.Client.Close()
	}
	return nil
}

// pminfoEntry is one metric block of pminfo output.
type pminfoEntry struct {
	name string
	pmid metric.PMID
	desc metric.Descriptor
	raw  []rawValue
	err  string
}

type rawValue struct {
	inst int
	text string
}

func (e *pminfoEntry) values(t metric.Type) ([]metric.InstanceValue, error) {
	out := make([]metric.InstanceValue, 0, len(e.raw))
	for _, r := range e.raw {
		v, err := metric.ParseValue(t, r.text)
		if err != nil {
			return nil, err
		}
		out = append(out, metric.InstanceValue{Inst: r.inst, Value: v})
	}
	return out, nil
}

// pminfoTypes maps the "Data Type:" text to value types.
var pminfoTypes = map[string]metric.Type{
	"32-bit int":          metric.TypeInt32,
	"32-bit unsigned int": metric.TypeUint32,
	"64-bit int":          metric.TypeInt64,
	"64-bit unsigned int": metric.TypeUint64,
	"float":               metric.TypeFloat,
	"double":              metric.TypeDouble,
	"string":              metric.TypeString,
}

// parsePMInfo reads the output of pminfo -m -d and pminfo -f. Blocks are
// separated by blank lines and start with the metric name at column 0:
//
//	kernel.all.load PMID: 60.2.0
//	    Data Type: float  InDom: 60.2 0xf000002
//	    Semantics: instant  Units: none
//	    inst [1 or "1 minute"] value 0.1
//
// An unknown name is reported as "name: Unknown metric name".
func parsePMInfo(out []byte) map[string]*pminfoEntry {
	entries := make(map[string]*pminfoEntry)
	var cur *pminfoEntry

	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			cur = nil
			continue
		}

		if line[0] != ' ' && line[0] != '\t' {
			cur = parseHeader(line)
			if cur != nil {
				entries[cur.name] = cur
			}
			continue
		}
		if cur == nil {
			continue
		}
		parseDetail(cur, strings.TrimSpace(line))
	}
	return entries
}

func parseHeader(line string) *pminfoEntry {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name := fields[0]
	e := &pminfoEntry{
		pmid: metric.NullPMID,
		desc: metric.Descriptor{PMID: metric.NullPMID, InDom: metric.NullInDom},
	}

	if strings.HasSuffix(name, ":") {
		e.name = strings.TrimSuffix(name, ":")
		e.err = strings.TrimSpace(strings.TrimPrefix(line, name))
		if e.err == "" {
			e.err = "unknown error"
		}
		return e
	}
	e.name = name
	for i := 1; i+1 < len(fields); i++ {
		if fields[i] == "PMID:" {
			if id, err := ParsePMID(fields[i+1]); err == nil {
				e.pmid = id
				e.desc.PMID = id
			}
		}
	}
	return e
}

func parseDetail(e *pminfoEntry, line string) {
	switch {
	case strings.HasPrefix(line, "Data Type:"):
		rest := strings.TrimPrefix(line, "Data Type:")
		typ, indom, _ := strings.Cut(rest, "InDom:")
		e.desc.Type = pminfoTypes[strings.TrimSpace(typ)]
		if fs := strings.Fields(indom); len(fs) > 0 {
			if id, err := ParseInDom(fs[0]); err == nil {
				e.desc.InDom = id
			}
		}
	case strings.HasPrefix(line, "Semantics:"):
		rest := strings.TrimPrefix(line, "Semantics:")
		sem, units, _ := strings.Cut(rest, "Units:")
		e.desc.Semantics = strings.TrimSpace(sem)
		e.desc.Units = strings.TrimSpace(units)
	case strings.HasPrefix(line, "value "):
		e.raw = append(e.raw, rawValue{inst: metric.NoInstance, text: strings.TrimPrefix(line, "value ")})
	case strings.HasPrefix(line, "inst ["):
		rest := strings.TrimPrefix(line, "inst [")
		end := strings.Index(rest, "] value ")
		if end < 0 {
			return
		}
		fields := strings.Fields(rest[:end])
		if len(fields) == 0 {
			return
		}
		inst, err := strconv.Atoi(fields[0])
		if err != nil {
			return
		}
		e.raw = append(e.raw, rawValue{inst: inst, text: rest[end+len("] value "):]})
	case strings.HasPrefix(line, "Error:"):
		e.err = strings.TrimSpace(strings.TrimPrefix(line, "Error:"))
	}
}
