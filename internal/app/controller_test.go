package app_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/atscheck/internal/adapters/http/analyzer"
	"github.com/okian/atscheck/internal/app"
	"github.com/okian/atscheck/internal/domain/analysis"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeView records every call the controller makes.
type fakeView struct {
	mu sync.Mutex

	file *analysis.ResumeFile
	jd   string

	enabled bool
	label   string

	shown       bool
	score       string
	sections    []string
	keywords    []string
	suggestions []string
	debug       string
	warning     string
	alerts      []string
	calls       []string

	onDisable func()
}

func newFakeView(file *analysis.ResumeFile, jd string) *fakeView {
	return &fakeView{file: file, jd: jd, enabled: true, label: "Analyze"}
}

func (v *fakeView) record(call string) {
	v.mu.Lock()
	v.calls = append(v.calls, call)
	v.mu.Unlock()
}

func (v *fakeView) ResumeFile() *analysis.ResumeFile { return v.file }
func (v *fakeView) JobDescription() string           { return v.jd }

func (v *fakeView) SetSubmitEnabled(enabled bool) {
	v.mu.Lock()
	v.enabled = enabled
	v.mu.Unlock()
	if enabled {
		v.record("enable")
		return
	}
	v.record("disable")
	if v.onDisable != nil {
		v.onDisable()
	}
}

func (v *fakeView) SetSubmitLabel(label string) {
	v.mu.Lock()
	v.label = label
	v.mu.Unlock()
	v.record("label:" + label)
}

func (v *fakeView) SubmitLabel() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.label
}

func (v *fakeView) Alert(message string) {
	v.mu.Lock()
	v.alerts = append(v.alerts, message)
	v.mu.Unlock()
	v.record("alert")
}

func (v *fakeView) ShowResult()                       { v.shown = true; v.record("show") }
func (v *fakeView) SetScore(text string)              { v.score = text; v.record("score") }
func (v *fakeView) SetSectionScores(lines []string)   { v.sections = lines; v.record("sections") }
func (v *fakeView) SetMissingKeywords(lines []string) { v.keywords = lines; v.record("keywords") }
func (v *fakeView) SetSuggestions(lines []string)     { v.suggestions = lines; v.record("suggestions") }
func (v *fakeView) SetDebugText(text string)          { v.debug = text; v.record("debug") }
func (v *fakeView) SetWarning(text string)            { v.warning = text; v.record("warning") }

func (v *fakeView) snapshot() (bool, string, int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.enabled, v.label, len(v.calls)
}

// analyzerFunc adapts a function to app.Analyzer.
type analyzerFunc func(ctx context.Context, req *analysis.SubmissionRequest) (*analysis.Result, error)

func (f analyzerFunc) Analyze(ctx context.Context, req *analysis.SubmissionRequest) (*analysis.Result, error) {
	return f(ctx, req)
}

func pdf() *analysis.ResumeFile {
	return analysis.NewResumeFile("cv.pdf", []byte("%PDF-1.4\n"), "application/pdf")
}

func analyzerServer(status int, contentType, body string, hits *atomic.Int64) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
}

func TestControllerSubmit(t *testing.T) {
	Convey("Given a controller over a mock analyzer returning the canonical response", t, func() {
		var hits atomic.Int64
		srv := analyzerServer(http.StatusOK, "application/json",
			`{"ats_score":72.345,"section_scores":{"Skills":50},"missing_keywords":["a","b"],"suggestions":["s1"],"debug":{"resume_text":"R","jd_text":"J"}}`,
			&hits)
		defer srv.Close()

		view := newFakeView(pdf(), "Go developer")
		ctrl := app.New(analyzer.New(srv.URL+"/api/analyze"), view)

		err := ctrl.Submit(context.Background())

		Convey("Then every region should be rendered", func() {
			So(err, ShouldBeNil)
			So(hits.Load(), ShouldEqual, 1)
			So(view.shown, ShouldBeTrue)
			So(view.score, ShouldEqual, "72.3%")
			So(view.sections, ShouldResemble, []string{"Skills: 50.0%"})
			So(view.keywords, ShouldResemble, []string{"a", "b"})
			So(view.suggestions, ShouldResemble, []string{"s1"})
			So(view.debug, ShouldEqual, "--- RESUME ---\nR\n\n--- JOB DESCRIPTION ---\nJ")
			So(view.alerts, ShouldBeEmpty)
		})

		Convey("Then the control should be disabled around the request and restored after", func() {
			So(view.calls, ShouldResemble, []string{
				"disable", "label:Analyzing...",
				"show", "score", "sections", "keywords", "suggestions", "debug", "warning",
				"enable", "label:Analyze",
			})
			So(view.enabled, ShouldBeTrue)
			So(view.label, ShouldEqual, "Analyze")
			So(ctrl.State(), ShouldEqual, app.StateIdle)
		})
	})

	Convey("Given a form without a selected file", t, func() {
		var hits atomic.Int64
		srv := analyzerServer(http.StatusOK, "application/json", `{}`, &hits)
		defer srv.Close()

		view := newFakeView(nil, "anything")
		view.label = "Check my CV"
		ctrl := app.New(analyzer.New(srv.URL), view)

		err := ctrl.Submit(context.Background())

		Convey("Then no request should be made and the input alert shown", func() {
			So(errors.Is(err, analysis.ErrInput), ShouldBeTrue)
			So(hits.Load(), ShouldEqual, 0)
			So(view.alerts, ShouldResemble, []string{"Please select a resume file."})
			So(view.shown, ShouldBeFalse)
		})

		Convey("Then the control should end enabled with its original label", func() {
			So(view.enabled, ShouldBeTrue)
			So(view.label, ShouldEqual, "Check my CV")
		})
	})
}

func TestControllerFailures(t *testing.T) {
	cases := []struct {
		name        string
		status      int
		contentType string
		body        string
		kind        error
		alert       string
	}{
		{
			name:        "a non-2xx JSON error",
			status:      http.StatusBadRequest,
			contentType: "application/json",
			body:        `{"error":"bad file"}`,
			kind:        analysis.ErrHTTPStatus,
			alert:       "{\n  \"error\": \"bad file\"\n}",
		},
		{
			name:        "a 2xx application error",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"error":"unsupported format"}`,
			kind:        analysis.ErrApplication,
			alert:       "unsupported format",
		},
		{
			name:        "a 2xx truthy non-string error",
			status:      http.StatusOK,
			contentType: "application/json",
			body:        `{"error":true}`,
			kind:        analysis.ErrApplication,
			alert:       "Analysis failed.",
		},
		{
			name:        "an empty 503",
			status:      http.StatusServiceUnavailable,
			contentType: "text/plain",
			body:        "",
			kind:        analysis.ErrHTTPStatus,
			alert:       "503 Service Unavailable",
		},
	}

	for _, tc := range cases {
		Convey("Given an analyzer answering with "+tc.name, t, func() {
			var hits atomic.Int64
			srv := analyzerServer(tc.status, tc.contentType, tc.body, &hits)
			defer srv.Close()

			view := newFakeView(pdf(), "")
			ctrl := app.New(analyzer.New(srv.URL), view, app.WithBusyLabel("Working"))

			err := ctrl.Submit(context.Background())

			Convey("Then the alert should carry the message and no region is filled", func() {
				So(errors.Is(err, tc.kind), ShouldBeTrue)
				So(view.alerts, ShouldResemble, []string{tc.alert})
				So(view.shown, ShouldBeFalse)
				So(view.score, ShouldBeEmpty)
			})

			Convey("Then the control should be restored", func() {
				So(view.calls[0:2], ShouldResemble, []string{"disable", "label:Working"})
				So(view.enabled, ShouldBeTrue)
				So(view.label, ShouldEqual, "Analyze")
			})
		})
	}

	Convey("Given an unreachable analyzer", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		view := newFakeView(pdf(), "")
		err := app.New(analyzer.New(url), view).Submit(context.Background())

		Convey("Then an unexpected failure should be alerted", func() {
			So(errors.Is(err, analysis.ErrUnexpected), ShouldBeTrue)
			So(view.alerts, ShouldHaveLength, 1)
			So(view.alerts[0], ShouldStartWith, "analyzer request failed")
			So(view.enabled, ShouldBeTrue)
		})
	})
}

func TestControllerConcurrency(t *testing.T) {
	Convey("Given a submission blocked inside the analyzer", t, func() {
		entered := make(chan struct{})
		release := make(chan struct{})
		var tokens []string
		a := analyzerFunc(func(ctx context.Context, req *analysis.SubmissionRequest) (*analysis.Result, error) {
			tokens = append(tokens, req.Token)
			close(entered)
			select {
			case <-release:
				return &analysis.Result{ATSScore: 10}, nil
			case <-ctx.Done():
				return nil, analysis.NewUnexpectedReport("analyzer request failed", ctx.Err())
			}
		})

		view := newFakeView(pdf(), "jd")
		ctrl := app.New(a, view, app.WithTokenSource(func() string { return "fixed-token" }))

		done := make(chan error, 1)
		go func() { done <- ctrl.Submit(context.Background()) }()
		<-entered

		Convey("When a second submission is triggered", func() {
			enabledBefore, labelBefore, callsBefore := view.snapshot()
			err := ctrl.Submit(context.Background())
			enabledAfter, labelAfter, callsAfter := view.snapshot()
			close(release)

			Convey("Then it should be rejected without touching the view", func() {
				So(errors.Is(err, app.ErrSubmissionInFlight), ShouldBeTrue)
				So(enabledBefore, ShouldBeFalse)
				So(labelBefore, ShouldEqual, "Analyzing...")
				So(enabledAfter, ShouldEqual, enabledBefore)
				So(labelAfter, ShouldEqual, labelBefore)
				So(callsAfter, ShouldEqual, callsBefore)
				So(<-done, ShouldBeNil)
				So(tokens, ShouldResemble, []string{"fixed-token"})
				So(view.score, ShouldEqual, "10.0%")
			})
		})

		Convey("When the submission is cancelled", func() {
			So(ctrl.State(), ShouldEqual, app.StateSubmitting)
			So(ctrl.Cancel(), ShouldBeTrue)
			err := <-done

			Convey("Then nothing should be alerted and the control restored", func() {
				So(errors.Is(err, app.ErrCancelled), ShouldBeTrue)
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(view.alerts, ShouldBeEmpty)
				So(view.enabled, ShouldBeTrue)
				So(view.label, ShouldEqual, "Analyze")
				So(ctrl.State(), ShouldEqual, app.StateIdle)
				So(ctrl.Cancel(), ShouldBeFalse)
			})
		})

		Convey("When the controller is closed", func() {
			So(ctrl.Close(), ShouldBeNil)
			err := <-done

			Convey("Then the running submission is cancelled and new ones refused", func() {
				So(errors.Is(err, app.ErrCancelled), ShouldBeTrue)
				So(view.alerts, ShouldBeEmpty)
				So(ctrl.State(), ShouldEqual, app.StateClosed)
				So(ctrl.Submit(context.Background()), ShouldEqual, app.ErrClosed)
			})
		})
	})
}

func TestControllerKeywordCap(t *testing.T) {
	Convey("Given a response with more keywords than the cap", t, func() {
		keywords := make(analysis.TextList, 75)
		for i := range keywords {
			keywords[i] = strings.Repeat("k", i+1)
		}
		a := analyzerFunc(func(context.Context, *analysis.SubmissionRequest) (*analysis.Result, error) {
			return &analysis.Result{MissingKeywords: keywords}, nil
		})

		Convey("Then the default cap of 50 applies", func() {
			view := newFakeView(pdf(), "")
			So(app.New(a, view).Submit(context.Background()), ShouldBeNil)
			So(view.keywords, ShouldHaveLength, 50)
			So(view.keywords[49], ShouldEqual, keywords[49])
			So(view.score, ShouldEqual, "0.0%")
		})

		Convey("Then a configured cap applies", func() {
			view := newFakeView(pdf(), "")
			So(app.New(a, view, app.WithMaxKeywords(3)).Submit(context.Background()), ShouldBeNil)
			So(view.keywords, ShouldResemble, []string{"k", "kk", "kkk"})
		})
	})

	Convey("Given several submissions in a row", t, func() {
		calls := 0
		a := analyzerFunc(func(context.Context, *analysis.SubmissionRequest) (*analysis.Result, error) {
			calls++
			if calls%2 == 0 {
				return nil, analysis.NewApplicationReport("")
			}
			return &analysis.Result{}, nil
		})
		view := newFakeView(pdf(), "")
		ctrl := app.New(a, view)

		Convey("Then the control state should be identical after each", func() {
			for i := 0; i < 4; i++ {
				_ = ctrl.Submit(context.Background())
				So(view.enabled, ShouldBeTrue)
				So(view.label, ShouldEqual, "Analyze")
			}
			So(view.alerts, ShouldResemble, []string{"Analysis failed.", "Analysis failed."})
		})
	})
}

func TestControllerCloseRace(t *testing.T) {
	Convey("Given a controller closed right as a submission starts", t, func() {
		var sawCancelled atomic.Bool
		a := analyzerFunc(func(ctx context.Context, _ *analysis.SubmissionRequest) (*analysis.Result, error) {
			sawCancelled.Store(errors.Is(context.Cause(ctx), app.ErrCancelled))
			return nil, analysis.NewUnexpectedReport("analyzer request failed", ctx.Err())
		})
		view := newFakeView(pdf(), "")
		ctrl := app.New(a, view)
		view.onDisable = func() { _ = ctrl.Close() }

		err := ctrl.Submit(context.Background())

		Convey("Then the request should already be cancelled", func() {
			So(sawCancelled.Load(), ShouldBeTrue)
			So(errors.Is(err, app.ErrCancelled), ShouldBeTrue)
			So(view.alerts, ShouldBeEmpty)
			So(view.enabled, ShouldBeTrue)
			So(ctrl.State(), ShouldEqual, app.StateClosed)
		})
	})

	Convey("Given Close racing Submit many times", t, func() {
		a := analyzerFunc(func(ctx context.Context, _ *analysis.SubmissionRequest) (*analysis.Result, error) {
			select {
			case <-ctx.Done():
				return nil, analysis.NewUnexpectedReport("analyzer request failed", ctx.Err())
			case <-time.After(time.Second):
				return &analysis.Result{}, nil
			}
		})

		Convey("Then no submission should outlive Close", func() {
			for i := 0; i < 100; i++ {
				ctrl := app.New(a, newFakeView(pdf(), ""))
				done := make(chan error, 1)
				go func() { done <- ctrl.Submit(context.Background()) }()
				_ = ctrl.Close()

				var err error
				select {
				case err = <-done:
				case <-time.After(500 * time.Millisecond):
					t.Fatalf("submission %d kept running after Close", i)
				}
				ok := errors.Is(err, app.ErrClosed) || errors.Is(err, app.ErrCancelled)
				So(ok, ShouldBeTrue)
			}
		})
	})
}
