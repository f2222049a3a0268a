// Package terminal renders submissions to a terminal: result regions go to
// stdout and alerts to stderr.
package terminal

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/okian/atscheck/internal/domain/analysis"
	"github.com/okian/atscheck/pkg/logger"
)

// Region headings printed before each list.
const (
	scoreHeading       = "ATS Score: "
	sectionsHeading    = "Section Scores:"
	keywordsHeading    = "Missing Keywords:"
	suggestionsHeading = "Suggestions:"
	debugHeading       = "Debug:"
	warningHeading     = "Warning: "
)

// View is a write-only page backed by two writers.
type View struct {
	mu sync.Mutex

	out    io.Writer
	errOut io.Writer
	logger logger.Logger

	resume *analysis.ResumeFile
	jd     string

	enabled bool
	label   string
}

// ViewOption applies a configuration option to the View.
type ViewOption func(*View)

// WithLogger sets the logger receiving submit-control transitions.
func WithLogger(l logger.Logger) ViewOption {
	return func(v *View) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithSubmitLabel sets the initial label of the submit control.
func WithSubmitLabel(label string) ViewOption {
	return func(v *View) {
		v.label = label
	}
}

// NewView creates a view whose form holds resume (nil when none was given) and jd.
func NewView(out, errOut io.Writer, resume *analysis.ResumeFile, jd string, opts ...ViewOption) *View {
	v := &View{
		out:     out,
		errOut:  errOut,
		logger:  logger.Nop(),
		resume:  resume,
		jd:      jd,
		enabled: true,
		label:   "Analyze",
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *View) ResumeFile() *analysis.ResumeFile { return v.resume }
func (v *View) JobDescription() string           { return v.jd }

func (v *View) SetSubmitEnabled(enabled bool) {
	v.mu.Lock()
	v.enabled = enabled
	v.mu.Unlock()
	v.logger.Debug(context.Background(), "submit control", logger.Bool("enabled", enabled))
}

func (v *View) SetSubmitLabel(label string) {
	v.mu.Lock()
	v.label = label
	v.mu.Unlock()
	v.logger.Debug(context.Background(), "submit control", logger.String("label", label))
}

func (v *View) SubmitLabel() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.label
}

// SubmitEnabled reports whether the submit control is enabled.
func (v *View) SubmitEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enabled
}

// Alert writes message to the error writer.
func (v *View) Alert(message string) {
	v.write(v.errOut, message+"\n")
}

// ShowResult is a no-op: the terminal has no hidden region.
func (v *View) ShowResult() {}

func (v *View) SetScore(text string) {
	v.write(v.out, scoreHeading+text+"\n")
}

func (v *View) SetSectionScores(lines []string) {
	v.writeList(sectionsHeading, "  - ", lines)
}

func (v *View) SetMissingKeywords(lines []string) {
	v.writeList(keywordsHeading, "  ", lines)
}

func (v *View) SetSuggestions(lines []string) {
	v.writeList(suggestionsHeading, "  ", lines)
}

func (v *View) SetDebugText(text string) {
	v.write(v.out, debugHeading+"\n"+text+"\n")
}

// SetWarning prints the notice only when there is one.
func (v *View) SetWarning(text string) {
	if text == "" {
		return
	}
	v.write(v.out, warningHeading+text+"\n")
}

func (v *View) writeList(heading, prefix string, lines []string) {
	s := heading + "\n"
	for _, l := range lines {
		s += prefix + l + "\n"
	}
	v.write(v.out, s)
}

func (v *View) write(w io.Writer, s string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, err := fmt.Fprint(w, s); err != nil {
		v.logger.Warn(context.Background(), "failed to write output", logger.Error(err))
	}
}
