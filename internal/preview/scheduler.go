// Package preview turns a stream of document edits into debounced,
// single-flight preview renders with bounded linear retry.
package preview

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/gravitrone/ledgerdesk/internal/api"
	"github.com/gravitrone/ledgerdesk/internal/bus"
	"github.com/gravitrone/ledgerdesk/internal/config"
	"github.com/gravitrone/ledgerdesk/internal/logging"
)

// ErrRetryExhausted wraps the last render error once automatic retry
// has given up on a request chain.
var ErrRetryExhausted = errors.New("preview retries exhausted")

// State is the scheduler's position in its render cycle.
type State int

const (
	Idle State = iota
	Scheduled
	Generating
	Retrying
)

func (s State) String() string {
	switch s {
	case Scheduled:
		return "scheduled"
	case Generating:
		return "generating"
	case Retrying:
		return "retrying"
	default:
		return "idle"
	}
}

// Preview formats, in the order the format key cycles through them.
var Formats = []string{"a4", "letter", "legal"}

const (
	MinZoom     = 25
	MaxZoom     = 400
	DefaultZoom = 100
	ZoomStep    = 25
)

// RenderFunc renders one document snapshot and returns the artifact URL.
type RenderFunc func(req api.PreviewRenderRequest) (string, error)

// ClientRenderer renders through the REST API.
func ClientRenderer(client *api.Client) RenderFunc {
	return func(req api.PreviewRenderRequest) (string, error) {
		resp, err := client.RenderPreview(req)
		if err != nil {
			return "", err
		}
		return resp.PreviewURL, nil
	}
}

// AfterFunc delivers msg after d.
type AfterFunc func(d time.Duration, msg tea.Msg) tea.Cmd

// TickAfter is the production AfterFunc.
func TickAfter(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

// Request is one render attempt's input.
type Request struct {
	ID          string
	Payload     any
	Options     api.PreviewOptions
	RequestedAt time.Time
}

// ErrorEntry is one failed render in the error log.
type ErrorEntry struct {
	RequestID string
	Message   string
	At        time.Time
}

// Options configures a Scheduler. Zero durations and sizes take the
// config defaults; MaxRetries is used as given (0 disables retry).
type Options struct {
	Bus          *bus.Bus
	Logger       *slog.Logger
	Debounce     time.Duration
	MaxRetries   int
	RetryStep    time.Duration
	ErrorLogSize int
	Preview      api.PreviewOptions
	After        AfterFunc
	Now          func() time.Time
}

// ConfigOptions maps the preview config section onto scheduler options.
func ConfigOptions(p config.PreviewConfig) Options {
	return Options{
		Debounce:     p.Debounce(),
		MaxRetries:   p.Retries(),
		RetryStep:    p.RetryStep(),
		ErrorLogSize: p.ErrorLogSize,
	}
}

type debounceFiredMsg struct {
	source int
	seq    uint64
}

type retryFiredMsg struct {
	source int
	seq    uint64
}

type renderedMsg struct {
	source    int
	requestID string
	url       string
	err       error
}

var schedulerSeq atomic.Int64

// Scheduler owns the preview pipeline for one editing session. Like
// every model it is driven from Update and is not safe for concurrent use.
type Scheduler struct {
	id     int
	render RenderFunc
	bus    *bus.Bus
	logger *slog.Logger
	after  AfterFunc
	now    func() time.Time

	debounce   time.Duration
	maxRetries int
	policy     backoff.BackOff

	latest  any
	options api.PreviewOptions

	debounceSeq     uint64
	debouncePending bool
	retrySeq        uint64
	retryReq        *Request

	inFlight *Request
	queued   *Request

	url        string
	updatedAt  time.Time
	retryCount int
	errors     *Ring[ErrorEntry]
	lastErr    error
	exhausted  bool
	calls      int
}

// NewScheduler builds a scheduler around render.
func NewScheduler(render RenderFunc, opts Options) *Scheduler {
	if opts.Debounce <= 0 {
		opts.Debounce = config.DefaultDebounceMS * time.Millisecond
	}
	if opts.RetryStep <= 0 {
		opts.RetryStep = config.DefaultRetryStepMS * time.Millisecond
	}
	if opts.ErrorLogSize <= 0 {
		opts.ErrorLogSize = config.DefaultErrorLogSize
	}
	if opts.After == nil {
		opts.After = TickAfter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Preview.Zoom == 0 {
		opts.Preview.Zoom = DefaultZoom
	}
	if opts.Preview.Format == "" {
		opts.Preview.Format = Formats[0]
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}

	return &Scheduler{
		id:         int(schedulerSeq.Add(1)),
		render:     render,
		bus:        opts.Bus,
		logger:     logging.OrDefault(opts.Logger).With("component", "preview"),
		after:      opts.After,
		now:        opts.Now,
		debounce:   opts.Debounce,
		maxRetries: opts.MaxRetries,
		policy:     RetryPolicy(opts.RetryStep, opts.MaxRetries),
		options:    opts.Preview,
		errors:     NewRing[ErrorEntry](opts.ErrorLogSize),
	}
}

// --- Accessors ---

// State derives the current state. A render in flight wins over a
// pending timer.
func (s *Scheduler) State() State {
	switch {
	case s.inFlight != nil:
		return Generating
	case s.retryReq != nil:
		return Retrying
	case s.debouncePending:
		return Scheduled
	}
	return Idle
}

func (s *Scheduler) InFlight() bool              { return s.inFlight != nil }
func (s *Scheduler) Queued() *Request            { return s.queued }
func (s *Scheduler) URL() string                 { return s.url }
func (s *Scheduler) UpdatedAt() time.Time        { return s.updatedAt }
func (s *Scheduler) RetryCount() int             { return s.retryCount }
func (s *Scheduler) MaxRetries() int             { return s.maxRetries }
func (s *Scheduler) Options() api.PreviewOptions { return s.options }
func (s *Scheduler) Errors() []ErrorEntry        { return s.errors.Items() }
func (s *Scheduler) ErrorCount() int             { return s.errors.Total() }
func (s *Scheduler) LastError() error            { return s.lastErr }
func (s *Scheduler) Exhausted() bool             { return s.exhausted }
func (s *Scheduler) Calls() int                  { return s.calls }
func (s *Scheduler) Debounce() time.Duration     { return s.debounce }
func (s *Scheduler) HasDocument() bool           { return s.latest != nil }

// --- Change intake ---

// NotifyChange records payload as the latest snapshot and restarts the
// debounce timer. A superseded timer's tick is ignored when it fires.
func (s *Scheduler) NotifyChange(payload any) tea.Cmd {
	s.latest = payload
	if s.exhausted && s.retryReq == nil && s.inFlight == nil {
		// A fresh edit starts a new chain.
		s.resetChain()
	}
	s.debounceSeq++
	s.debouncePending = true
	return s.after(s.debounce, debounceFiredMsg{source: s.id, seq: s.debounceSeq})
}

// Subscribe feeds DocumentChanged events into NotifyChange.
func (s *Scheduler) Subscribe(b *bus.Bus) func() {
	if b == nil {
		return func() {}
	}
	return bus.On(b, func(e bus.DocumentChanged) tea.Cmd {
		return s.NotifyChange(e.Payload)
	})
}

// --- Manual controls ---

// Zoom changes the zoom level by delta percent and renders immediately.
func (s *Scheduler) Zoom(delta int) tea.Cmd {
	zoom := s.options.Zoom + delta
	if zoom < MinZoom {
		zoom = MinZoom
	}
	if zoom > MaxZoom {
		zoom = MaxZoom
	}
	if zoom == s.options.Zoom {
		return nil
	}
	s.options.Zoom = zoom
	return s.Refresh()
}

// ToggleGrid flips the layout grid overlay and renders immediately.
func (s *Scheduler) ToggleGrid() tea.Cmd {
	s.options.ShowGrid = !s.options.ShowGrid
	return s.Refresh()
}

// SetFormat switches the page format and renders immediately.
func (s *Scheduler) SetFormat(format string) tea.Cmd {
	if format == "" || format == s.options.Format {
		return nil
	}
	s.options.Format = format
	return s.Refresh()
}

// CycleFormat moves to the next entry of Formats.
func (s *Scheduler) CycleFormat() tea.Cmd {
	next := Formats[0]
	for i, f := range Formats {
		if f == s.options.Format {
			next = Formats[(i+1)%len(Formats)]
			break
		}
	}
	return s.SetFormat(next)
}

// Refresh renders the latest snapshot now, cancelling any pending
// debounce. It still queues behind a render in flight.
func (s *Scheduler) Refresh() tea.Cmd {
	if s.latest == nil {
		return nil
	}
	if s.debouncePending {
		s.debounceSeq++
		s.debouncePending = false
	}
	return s.submit(s.newRequest())
}

// DismissError hides the exhausted-retries error. The last rendered
// artifact stays.
func (s *Scheduler) DismissError() {
	s.exhausted = false
}

// ClearErrors empties the error log.
func (s *Scheduler) ClearErrors() {
	s.errors.Clear()
}

// --- Update ---

// Update consumes the scheduler's own timer and render messages.
func (s *Scheduler) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case debounceFiredMsg:
		if msg.source != s.id || msg.seq != s.debounceSeq || !s.debouncePending {
			return nil
		}
		s.debouncePending = false
		return s.submit(s.newRequest())
	case retryFiredMsg:
		if msg.source != s.id || msg.seq != s.retrySeq || s.retryReq == nil {
			return nil
		}
		req := s.retryReq
		s.retryReq = nil
		s.logger.Info("retrying preview render", "request_id", req.ID, "attempt", s.retryCount)
		return s.start(req)
	case renderedMsg:
		if msg.source != s.id || s.inFlight == nil || msg.requestID != s.inFlight.ID {
			return nil
		}
		if msg.err != nil {
			return s.onFailure(msg.err)
		}
		return s.onSuccess(msg.url)
	}
	return nil
}

func (s *Scheduler) newRequest() *Request {
	return &Request{
		ID:          uuid.NewString(),
		Payload:     s.latest,
		Options:     s.options,
		RequestedAt: s.now(),
	}
}

func (s *Scheduler) submit(req *Request) tea.Cmd {
	if s.inFlight != nil {
		if s.queued != nil {
			s.logger.Debug("superseding queued preview request", "dropped", s.queued.ID, "request_id", req.ID)
		}
		s.queued = req
		return nil
	}
	if s.retryReq != nil {
		// The pending retry carries an older snapshot.
		s.retrySeq++
		s.retryReq = nil
	}
	s.resetChain()
	return s.start(req)
}

func (s *Scheduler) start(req *Request) tea.Cmd {
	s.inFlight = req
	s.calls++
	s.logger.Debug("rendering preview", "request_id", req.ID, "zoom", req.Options.Zoom, "format", req.Options.Format)

	render := s.render
	source := s.id
	body := api.PreviewRenderRequest{
		Document:  req.Payload,
		Options:   req.Options,
		Timestamp: req.RequestedAt,
	}
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = renderedMsg{source: source, requestID: req.ID, err: fmt.Errorf("render panic: %v", r)}
			}
		}()
		url, err := render(body)
		return renderedMsg{source: source, requestID: req.ID, url: url, err: err}
	}
}

func (s *Scheduler) onSuccess(url string) tea.Cmd {
	req := s.inFlight
	s.inFlight = nil
	s.url = url
	s.updatedAt = s.now()
	s.resetChain()
	s.exhausted = false
	s.lastErr = nil
	s.logger.Info("preview updated", "request_id", req.ID, "url", url)

	cmds := []tea.Cmd{s.bus.Publish(bus.PreviewUpdated{URL: url, At: s.updatedAt})}
	if next := s.takeQueued(); next != nil {
		cmds = append(cmds, s.start(next))
	}
	return tea.Batch(cmds...)
}

func (s *Scheduler) onFailure(err error) tea.Cmd {
	req := s.inFlight
	s.inFlight = nil
	s.lastErr = err
	s.errors.Push(ErrorEntry{RequestID: req.ID, Message: err.Error(), At: s.now()})

	wait := s.policy.NextBackOff()
	if wait == backoff.Stop {
		s.exhausted = true
		failure := fmt.Errorf("%w after %d retries: %v", ErrRetryExhausted, s.retryCount, err)
		s.logger.Error("preview render failed", "request_id", req.ID, "retries", s.retryCount, "err", err)

		cmds := []tea.Cmd{s.bus.Publish(bus.PreviewFailed{Err: failure, At: s.now()})}
		if next := s.takeQueued(); next != nil {
			s.resetChain()
			cmds = append(cmds, s.start(next))
		}
		return tea.Batch(cmds...)
	}

	s.retryCount++
	retry := req
	if next := s.takeQueued(); next != nil {
		retry = next
	}
	s.retryReq = retry
	s.retrySeq++
	s.logger.Warn("preview render failed, scheduling retry",
		"request_id", req.ID,
		"attempt", s.retryCount,
		"max_retries", s.maxRetries,
		"wait", wait,
		"err", err,
	)
	return s.after(wait, retryFiredMsg{source: s.id, seq: s.retrySeq})
}

func (s *Scheduler) takeQueued() *Request {
	next := s.queued
	s.queued = nil
	return next
}

func (s *Scheduler) resetChain() {
	s.retryCount = 0
	s.policy.Reset()
}
