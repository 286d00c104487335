// Package loader fetches and decodes assets on a worker pool and hands the
// results back to the frame thread.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/google/uuid"
)

// Kind selects the content check applied to fetched bytes.
type Kind int

const (
	KindRaw Kind = iota
	KindTexture
	KindModel
	KindFont
)

func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "texture"
	case KindModel:
		return "model"
	case KindFont:
		return "font"
	}
	return "raw"
}

// Progress is reported once per settled request.
type Progress struct {
	URL    string
	Loaded int
	Failed int
	Total  int
}

// DecodeFunc turns fetched bytes into a value. It runs on a worker.
type DecodeFunc func(data []byte) (any, error)

type requestState int

const (
	statePending requestState = iota
	stateLoaded
	stateFailed
)

// Request is one registered asset.
type Request struct {
	ID   uuid.UUID
	URL  string
	Kind Kind

	decode   DecodeFunc
	complete func(v any) error
	future   *Future
	state    requestState
}

type result struct {
	id    uuid.UUID
	value any
	err   error
}

// Manager tracks every request it was given. Callbacks run inside Poll, on
// the caller's goroutine; workers never touch them. OnLoad fires once when
// every request loaded. OnFailed fires once instead when at least one
// request failed or the timeout expired. A completion callback that returns
// an error fails its request like a fetch error does.
type Manager struct {
	OnProgress func(Progress)
	OnLoad     func()
	OnError    func(url string, err error)
	OnFailed   func(err error)

	fsys    fs.FS
	pool    worker.DynamicWorkerPool
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	results []result
	notify  chan struct{}

	// Frame thread only.
	requests []*Request
	byID     map[uuid.UUID]*Request
	loaded   int
	failed   int
	errs     []error
	started  time.Time
	finished bool
	taskID   int
	closed   bool
}

type options struct {
	logger  *slog.Logger
	timeout time.Duration
	workers int
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTimeout bounds the whole batch; zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithClock replaces time.Now for timeout bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewManager serves requests from fsys. URLs are rooted: a leading slash is
// ignored.
func NewManager(fsys fs.FS, opts ...Option) *Manager {
	o := options{
		logger:  slog.Default(),
		timeout: 30 * time.Second,
		workers: 4,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		fsys:    fsys,
		pool:    worker.NewDynamicWorkerPool(o.workers, 64, time.Second),
		logger:  o.logger,
		timeout: o.timeout,
		now:     o.now,
		ctx:     ctx,
		cancel:  cancel,
		notify:  make(chan struct{}, 1),
		byID:    make(map[uuid.UUID]*Request),
	}
}

// Load registers url and starts fetching it. complete receives the decoded
// value inside Poll and may be nil; its error fails the request.
func (m *Manager) Load(url string, kind Kind, decode DecodeFunc, complete func(v any) error) *Future {
	req := &Request{
		ID:       uuid.New(),
		URL:      url,
		Kind:     kind,
		decode:   decode,
		complete: complete,
	}
	req.future = newFuture(req.ID, url)

	if len(m.requests) == 0 {
		m.started = m.now()
	}
	m.requests = append(m.requests, req)
	m.byID[req.ID] = req

	if m.closed {
		m.push(result{id: req.ID, err: ErrClosed})
		return req.future
	}

	m.logger.Debug("asset requested", "url", url, "kind", kind, "id", req.ID)
	m.taskID++
	m.pool.SubmitTask(worker.Task{
		ID:      m.taskID,
		Payload: url,
		Do: func() (any, error) {
			v, err := m.fetch(req)
			m.push(result{id: req.ID, value: v, err: err})
			return v, err
		},
	})
	return req.future
}

func (m *Manager) fetch(req *Request) (any, error) {
	if err := m.ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(m.fsys, assetPath(req.URL))
	if err != nil {
		return nil, err
	}
	if err := checkContent(req.Kind, data); err != nil {
		return nil, err
	}
	if req.decode == nil {
		return data, nil
	}
	return req.decode(data)
}

func assetPath(url string) string {
	return strings.TrimPrefix(path.Clean("/"+url), "/")
}

func (m *Manager) push(r result) {
	m.mu.Lock()
	m.results = append(m.results, r)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Poll delivers finished requests, applies the timeout and fires the
// completion callbacks. It returns the number of requests settled.
func (m *Manager) Poll() int {
	m.mu.Lock()
	batch := m.results
	m.results = nil
	m.mu.Unlock()

	settled := 0
	for _, r := range batch {
		req, ok := m.byID[r.id]
		if !ok || req.state != statePending {
			m.logger.Debug("late asset result dropped", "id", r.id)
			continue
		}
		settled++
		if r.err != nil {
			m.fail(req, r.err)
			continue
		}
		if req.complete != nil {
			if err := req.complete(r.value); err != nil {
				m.fail(req, err)
				continue
			}
		}
		req.state = stateLoaded
		m.loaded++
		req.future.settle(r.value, nil)
		m.logger.Debug("asset loaded", "url", req.URL, "loaded", m.loaded, "total", len(m.requests))
		m.progress(req.URL)
	}

	if m.timeout > 0 && !m.finished && len(m.requests) > 0 && m.now().Sub(m.started) >= m.timeout {
		for _, req := range m.requests {
			if req.state == statePending {
				settled++
				m.fail(req, ErrLoadTimeout)
			}
		}
	}

	m.finish()
	return settled
}

func (m *Manager) fail(req *Request, cause error) {
	err := &AssetLoadFailedError{URL: req.URL, Err: cause}
	req.state = stateFailed
	m.failed++
	m.errs = append(m.errs, err)
	req.future.settle(nil, err)

	m.logger.Error("asset load failed", "url", req.URL, "err", cause)
	if m.OnError != nil {
		m.OnError(req.URL, err)
	}
	m.progress(req.URL)
}

func (m *Manager) progress(url string) {
	if m.OnProgress != nil {
		m.OnProgress(Progress{URL: url, Loaded: m.loaded, Failed: m.failed, Total: len(m.requests)})
	}
}

func (m *Manager) finish() {
	if m.finished || len(m.requests) == 0 || m.loaded+m.failed < len(m.requests) {
		return
	}
	m.finished = true
	if m.failed == 0 {
		m.logger.Info("all assets loaded", "total", len(m.requests))
		if m.OnLoad != nil {
			m.OnLoad()
		}
		return
	}
	err := m.Err()
	m.logger.Warn("asset loading finished with failures", "failed", m.failed, "total", len(m.requests))
	if m.OnFailed != nil {
		m.OnFailed(err)
	}
}

// Settled reports whether every registered request loaded or failed.
func (m *Manager) Settled() bool {
	return len(m.requests) > 0 && m.loaded+m.failed == len(m.requests)
}

// Err joins the failures seen so far.
func (m *Manager) Err() error {
	return errors.Join(m.errs...)
}

// Wait polls until every request settled or ctx ends. It must run on the
// goroutine that owns Poll.
func (m *Manager) Wait(ctx context.Context) error {
	for {
		m.Poll()
		if m.Settled() || len(m.requests) == 0 {
			return m.Err()
		}

		var deadline <-chan time.Time
		var timer *time.Timer
		if m.timeout > 0 {
			remaining := m.timeout - m.now().Sub(m.started)
			timer = time.NewTimer(max(remaining, time.Millisecond))
			deadline = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return fmt.Errorf("wait for assets: %w", ctx.Err())
		case <-m.notify:
		case <-deadline:
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Close stops the workers. Requests still in flight are dropped.
func (m *Manager) Close() {
	if m.closed {
		return
	}
	m.closed = true
	m.cancel()
	m.pool.Stop()
}

// Future is the completion of a single request. It settles inside Poll.
type Future struct {
	ID  uuid.UUID
	URL string

	once  sync.Once
	done  chan struct{}
	value any
	err   error
}

func newFuture(id uuid.UUID, url string) *Future {
	return &Future{ID: id, URL: url, done: make(chan struct{})}
}

func (f *Future) settle(v any, err error) {
	f.once.Do(func() {
		f.value, f.err = v, err
		close(f.done)
	})
}

// Done is closed once the request settled.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the future settles or ctx ends. Something else must be
// calling Poll meanwhile.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
