package pcp

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/rileyhilliard/treetop/internal/errors"
	"github.com/rileyhilliard/treetop/internal/logger"
	"github.com/rileyhilliard/treetop/internal/metric"
)

// maxResponseBytes caps how much of a pmproxy response is read.
const maxResponseBytes = 16 << 20

// WebAPI reads metrics from a pmproxy REST endpoint (/pmapi/*). A pmproxy
// context expires after its poll timeout without requests; WebAPI creates a
// new one and retries when that happens.
type WebAPI struct {
	base     string
	client   *http.Client
	timeout  time.Duration
	log      logger.Logger
	hostspec string

	mu       sync.Mutex
	ctxID    int
	hostname string
	names    map[metric.PMID]string
	descs    map[metric.PMID]metric.Descriptor
	closed   bool
}

type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("pmproxy returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("pmproxy returned HTTP %d: %s", e.Status, e.Message)
}

// expired reports whether the error means the context is no longer known.
func (e *apiError) expired() bool {
	return strings.Contains(strings.ToLower(e.Message), "context")
}

type errorResponse struct {
	Message string `json:"message"`
}

type contextResponse struct {
	Context  int    `json:"context"`
	Hostname string `json:"hostname"`
	Hostspec string `json:"hostspec"`
}

type metricDesc struct {
	Name  string `json:"name"`
	PMID  string `json:"pmid"`
	InDom string `json:"indom"`
	Type  string `json:"type"`
	Sem   string `json:"sem"`
	Units string `json:"units"`
}

type metricResponse struct {
	Context int          `json:"context"`
	Metrics []metricDesc `json:"metrics"`
}

type fetchInstance struct {
	Instance *int            `json:"instance"`
	Value    json.RawMessage `json:"value"`
}

type fetchValue struct {
	PMID      string          `json:"pmid"`
	Name      string          `json:"name"`
	Instances []fetchInstance `json:"instances"`
}

type fetchResponse struct {
	Context   int          `json:"context"`
	Timestamp pmTimestamp  `json:"timestamp"`
	Values    []fetchValue `json:"values"`
}

// pmTimestamp accepts both the float seconds form and the older {s, us} object.
type pmTimestamp struct {
	time.Time
}

func (t *pmTimestamp) UnmarshalJSON(data []byte) error {
	var secs float64
	if err := json.Unmarshal(data, &secs); err == nil {
		whole := int64(secs)
		t.Time = time.Unix(whole, int64((secs-float64(whole))*1e9))
		return nil
	}
	var obj struct {
		S  int64 `json:"s"`
		US int64 `json:"us"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("unrecognised timestamp %s", string(data))
	}
	t.Time = time.Unix(obj.S, obj.US*1000)
	return nil
}

// DialWebAPI connects to the pmproxy at baseURL and creates a context for
// hostspec (the pmcd host pmproxy should talk to, "localhost" when empty).
func DialWebAPI(ctx context.Context, baseURL, hostspec string, timeout time.Duration, log logger.Logger) (*WebAPI, error) {
	if log == nil {
		log = logger.Noop()
	}
	if hostspec == "" {
		hostspec = "localhost"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	w := &WebAPI{
		base:     strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		log:      log,
		hostspec: hostspec,
		names:    make(map[metric.PMID]string),
		descs:    make(map[metric.PMID]metric.Descriptor),
	}
	if err := w.connect(ctx); err != nil {
		return nil, errors.SourceUnavailable(err, w.base)
	}
	return w, nil
}

func (w *WebAPI) Name() string { return w.base }

func (w *WebAPI) Hostname() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.hostname
}

// connect creates a new pmproxy context. The poll timeout is kept well above
// the refresh interval so an idle UI does not lose its context.
func (w *WebAPI) connect(ctx context.Context) error {
	q := url.Values{}
	q.Set("hostspec", w.hostspec)
	q.Set("polltimeout", strconv.Itoa(int((w.timeout*12)/time.Second)))

	var resp contextResponse
	if err := w.get(ctx, "/pmapi/context", q, &resp); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.ctxID = resp.Context
	w.hostname = resp.Hostname
	if w.hostname == "" {
		w.hostname = w.hostspec
	}
	w.log.Debug("pmproxy %s: context %d for %s", w.base, resp.Context, w.hostname)
	return nil
}

func (w *WebAPI) contextID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return strconv.Itoa(w.ctxID)
}

// call performs a context-scoped request, reconnecting once when the
// context has expired.
func (w *WebAPI) call(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("context", w.contextID())
	err := w.get(ctx, path, q, out)

	var apiErr *apiError
	if stderrors.As(err, &apiErr) && apiErr.expired() {
		w.log.Debug("pmproxy context expired, reconnecting: %v", err)
		if cerr := w.connect(ctx); cerr != nil {
			return cerr
		}
		q.Set("context", w.contextID())
		err = w.get(ctx, path, q, out)
	}
	return err
}

func (w *WebAPI) get(ctx context.Context, path string, q url.Values, out any) error {
	u := w.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		_ = json.Unmarshal(body, &e)
		return &apiError{Status: resp.StatusCode, Message: e.Message}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

// Lookup resolves names with one /pmapi/metric request. pmproxy rejects the
// whole request when any name is unknown, so a rejected batch is retried
// one name at a time to find the ones that do resolve.
func (w *WebAPI) Lookup(ctx context.Context, names []string) ([]metric.Descriptor, error) {
	out := make([]metric.Descriptor, len(names))
	for i := range out {
		out[i] = metric.Descriptor{PMID: metric.NullPMID, InDom: metric.NullInDom}
	}
	if len(names) == 0 {
		return out, nil
	}

	found, err := w.lookup(ctx, names)
	var apiErr *apiError
	switch {
	case err == nil:
	case stderrors.As(err, &apiErr):
		found = make(map[string]metric.Descriptor)
		for _, name := range names {
			one, err := w.lookup(ctx, []string{name})
			if err != nil {
				if !stderrors.As(err, &apiErr) {
					return nil, err
				}
				continue
			}
			for k, v := range one {
				found[k] = v
			}
		}
	default:
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for i, name := range names {
		d, ok := found[name]
		if !ok {
			continue
		}
		out[i] = d
		w.names[d.PMID] = name
		w.descs[d.PMID] = d
	}
	return out, nil
}

func (w *WebAPI) lookup(ctx context.Context, names []string) (map[string]metric.Descriptor, error) {
	q := url.Values{}
	q.Set("names", strings.Join(names, ","))

	var resp metricResponse
	if err := w.call(ctx, "/pmapi/metric", q, &resp); err != nil {
		return nil, err
	}

	found := make(map[string]metric.Descriptor, len(resp.Metrics))
	for _, m := range resp.Metrics {
		pmid, err := ParsePMID(m.PMID)
		if err != nil {
			w.log.Debug("skipping %s: %v", m.Name, err)
			continue
		}
		indom, err := ParseInDom(m.InDom)
		if err != nil {
			w.log.Debug("skipping %s: %v", m.Name, err)
			continue
		}
		found[m.Name] = metric.Descriptor{
			PMID:      pmid,
			Type:      metric.ParseType(m.Type),
			InDom:     indom,
			Semantics: m.Sem,
			Units:     m.Units,
		}
	}
	return found, nil
}

// Fetch samples pmids with one /pmapi/fetch request. If pmproxy rejects the
// batch, each metric is fetched alone so a single vanished metric is
// reported in Snapshot.Errors instead of failing the cycle.
func (w *WebAPI) Fetch(ctx context.Context, pmids []metric.PMID) (*metric.Snapshot, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, fmt.Errorf("source %s is closed", w.base)
	}
	names := make([]string, 0, len(pmids))
	byName := make(map[string]metric.PMID, len(pmids))
	unknown := make([]metric.PMID, 0)
	for _, id := range pmids {
		name, ok := w.names[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		names = append(names, name)
		byName[name] = id
	}
	w.mu.Unlock()

	snap := metric.NewSnapshot(time.Now())
	for _, id := range unknown {
		snap.Errors[id] = fmt.Errorf("pmid %s was never looked up", FormatPMID(id))
	}
	if len(names) == 0 {
		return snap, nil
	}

	err := w.fetch(ctx, names, byName, snap)
	var apiErr *apiError
	if err == nil || !stderrors.As(err, &apiErr) || len(names) == 1 {
		return snap, err
	}

	for _, name := range names {
		if err := w.fetch(ctx, []string{name}, byName, snap); err != nil {
			if !stderrors.As(err, &apiErr) {
				return nil, err
			}
			snap.Errors[byName[name]] = err
		}
	}
	return snap, nil
}

func (w *WebAPI) fetch(ctx context.Context, names []string, byName map[string]metric.PMID, snap *metric.Snapshot) error {
	q := url.Values{}
	q.Set("names", strings.Join(names, ","))

	var resp fetchResponse
	if err := w.call(ctx, "/pmapi/fetch", q, &resp); err != nil {
		return err
	}
	if !resp.Timestamp.IsZero() {
		snap.Timestamp = resp.Timestamp.Time
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, v := range resp.Values {
		id, ok := byName[v.Name]
		if !ok {
			continue
		}
		desc := w.descs[id]
		vals := make([]metric.InstanceValue, 0, len(v.Instances))
		for _, in := range v.Instances {
			val, err := decodeValue(desc.Type, in.Value)
			if err != nil {
				w.log.Debug("%s: %v", v.Name, err)
				continue
			}
			inst := metric.NoInstance
			if in.Instance != nil {
				inst = *in.Instance
			}
			vals = append(vals, metric.InstanceValue{Inst: inst, Value: val})
		}
		snap.Values[id] = vals
	}
	for _, name := range names {
		if _, ok := snap.Values[byName[name]]; !ok {
			snap.Values[byName[name]] = nil
		}
	}
	return nil
}

// decodeValue converts one JSON value using the metric's descriptor type.
func decodeValue(t metric.Type, raw json.RawMessage) (metric.Value, error) {
	if t == metric.TypeString {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return metric.Value{}, err
		}
		return metric.StringValue(s), nil
	}
	text := strings.Trim(string(raw), `"`)
	if t == metric.TypeUnknown {
		t = metric.TypeDouble
	}
	return metric.ParseValue(t, text)
}

func (w *WebAPI) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	w.client.CloseIdleConnections()
	return nil
}
