// Package app wires a form view to the analyzer: it runs one submission at
// a time and renders the outcome back into the view.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/atscheck/internal/domain/analysis"
	"github.com/okian/atscheck/pkg/logger"
	"github.com/okian/atscheck/pkg/metrics"
)

// DefaultBusyLabel is shown on the submit control while a request is running.
const DefaultBusyLabel = "Analyzing..."

// Form reads the user's inputs.
type Form interface {
	// ResumeFile returns the selected file, or nil when none is selected.
	ResumeFile() *analysis.ResumeFile
	JobDescription() string
}

// SubmitControl is the button that starts a submission.
type SubmitControl interface {
	SetSubmitEnabled(enabled bool)
	SetSubmitLabel(label string)
	SubmitLabel() string
}

// View is everything the controller touches on the page.
type View interface {
	analysis.Page
	Form
	SubmitControl
	Alert(message string)
}

// Analyzer performs a single analysis request.
type Analyzer interface {
	Analyze(ctx context.Context, req *analysis.SubmissionRequest) (*analysis.Result, error)
}

// State is the controller lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateSubmitting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Controller owns one view for its lifetime.
type Controller struct {
	analyzer Analyzer
	view     View
	logger   logger.Logger

	idleLabel   string
	busyLabel   string
	maxKeywords int
	newToken    func() string

	state atomic.Int32

	mu     sync.Mutex
	cancel context.CancelCauseFunc
}

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithLogger sets a custom logger for the controller.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBusyLabel sets the label shown while a submission is running.
func WithBusyLabel(label string) Option {
	return func(c *Controller) {
		if label != "" {
			c.busyLabel = label
		}
	}
}

// WithMaxKeywords caps the rendered missing-keyword list.
func WithMaxKeywords(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxKeywords = n
		}
	}
}

// WithTokenSource sets the function producing a submission token per request.
func WithTokenSource(fn func() string) Option {
	return func(c *Controller) {
		if fn != nil {
			c.newToken = fn
		}
	}
}

// New binds a controller to view. The submit label present now is the one
// restored after every submission.
func New(a Analyzer, view View, opts ...Option) *Controller {
	c := &Controller{
		analyzer:    a,
		view:        view,
		logger:      logger.Nop(),
		idleLabel:   view.SubmitLabel(),
		busyLabel:   DefaultBusyLabel,
		maxKeywords: analysis.DefaultMaxKeywords,
		newToken:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State reports the current lifecycle state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Submit runs one submission. It returns nil when a result was rendered,
// a *analysis.Report when a failure was alerted, or one of ErrSubmissionInFlight,
// ErrClosed, ErrCancelled when nothing was alerted.
func (c *Controller) Submit(ctx context.Context) error {
	subCtx, cancel := context.WithCancelCause(ctx)
	if err := c.begin(cancel); err != nil {
		cancel(nil)
		if errors.Is(err, ErrSubmissionInFlight) {
			metrics.RecordSubmission(metrics.OutcomeRejected, 0)
			c.logger.Warn(ctx, "submission rejected, another one is in flight")
		}
		return err
	}

	start := time.Now()
	metrics.SubmissionStarted()

	c.view.SetSubmitEnabled(false)
	c.view.SetSubmitLabel(c.busyLabel)
	defer func() {
		cancel(nil)
		c.setCancel(nil)
		c.view.SetSubmitEnabled(true)
		c.view.SetSubmitLabel(c.idleLabel)
		metrics.SubmissionFinished()
		c.state.CompareAndSwap(int32(StateSubmitting), int32(StateIdle))
	}()

	file := c.view.ResumeFile()
	if file == nil {
		return c.fail(ctx, subCtx, analysis.NewInputReport(analysis.MissingResumeMessage), start)
	}

	req := &analysis.SubmissionRequest{
		Resume:         file,
		JobDescription: c.view.JobDescription(),
		Token:          c.newToken(),
	}
	c.logger.Info(ctx, "submitting resume",
		logger.String("file", file.Name),
		logger.String("size", file.HumanSize()),
		logger.String("token", req.Token))

	res, err := c.analyzer.Analyze(subCtx, req)
	if err != nil {
		return c.fail(ctx, subCtx, err, start)
	}

	analysis.Render(c.view, res, c.maxKeywords)
	elapsed := time.Since(start)
	metrics.RecordSubmission(metrics.OutcomeSuccess, float64(elapsed.Milliseconds()))
	c.logger.Info(ctx, "submission rendered",
		logger.String("token", req.Token),
		logger.String("score", analysis.FormatScore(res.ATSScore)),
		logger.Duration("elapsed", elapsed))
	return nil
}

func (c *Controller) fail(ctx, subCtx context.Context, err error, start time.Time) error {
	ms := float64(time.Since(start).Milliseconds())

	if errors.Is(context.Cause(subCtx), ErrCancelled) {
		metrics.RecordSubmission(metrics.OutcomeCancelled, ms)
		c.logger.Info(ctx, "submission cancelled", logger.Error(err))
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}

	report := analysis.AsReport(err)
	metrics.RecordSubmission(outcome(report.Kind), ms)
	c.logger.Error(ctx, "submission failed",
		logger.String("kind", string(report.Kind)),
		logger.Int("status", report.StatusCode),
		logger.Error(err))
	c.view.Alert(report.Message)
	return report
}

func outcome(k analysis.Kind) string {
	switch k {
	case analysis.KindInput:
		return metrics.OutcomeInput
	case analysis.KindHTTP:
		return metrics.OutcomeHTTP
	case analysis.KindApplication:
		return metrics.OutcomeApplication
	default:
		return metrics.OutcomeUnexpected
	}
}

// begin moves idle to submitting and registers cancel under the same lock
// Cancel takes, so a Close racing with Submit always reaches the request.
func (c *Controller) begin(cancel context.CancelCauseFunc) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateSubmitting)) {
		if c.State() == StateClosed {
			return ErrClosed
		}
		return ErrSubmissionInFlight
	}
	c.cancel = cancel
	return nil
}

func (c *Controller) setCancel(fn context.CancelCauseFunc) {
	c.mu.Lock()
	c.cancel = fn
	c.mu.Unlock()
}

// Cancel aborts the in-flight submission, if any. It reports whether one was running.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.cancel(ErrCancelled)
	return true
}

// Close cancels any in-flight submission and rejects further ones.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Store(int32(StateClosed))
	if c.cancel != nil {
		c.cancel(ErrCancelled)
	}
	return nil
}
