// Package web serves the résumé form and renders analysis results as HTML.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/atscheck/internal/app"
	"github.com/okian/atscheck/internal/domain/analysis"
	"github.com/okian/atscheck/internal/domain/tokens"
	"github.com/okian/atscheck/pkg/logger"
	"github.com/okian/atscheck/pkg/metrics"
)

const (
	defaultMaxUploadBytes = 10 << 20
	// multipart bookkeeping on top of the file itself
	formOverheadBytes = 1 << 20
)

// Server renders the form and runs one controller per posted form.
type Server struct {
	analyzer app.Analyzer
	ledger   tokens.Ledger
	logger   logger.Logger

	submitLabel    string
	busyLabel      string
	maxKeywords    int
	maxUploadBytes int64
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLabels sets the idle and busy labels of the submit button.
func WithLabels(submit, busy string) Option {
	return func(s *Server) {
		if submit != "" {
			s.submitLabel = submit
		}
		if busy != "" {
			s.busyLabel = busy
		}
	}
}

// WithMaxKeywords caps the rendered missing-keyword list.
func WithMaxKeywords(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxKeywords = n
		}
	}
}

// WithMaxUploadBytes caps the accepted résumé size.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// NewServer creates a server submitting through a and deduplicating forms with ledger.
func NewServer(a app.Analyzer, ledger tokens.Ledger, opts ...Option) *Server {
	s := &Server{
		analyzer:       a,
		ledger:         ledger,
		logger:         logger.Nop(),
		submitLabel:    "Analyze",
		busyLabel:      app.DefaultBusyLabel,
		maxKeywords:    analysis.DefaultMaxKeywords,
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Use(MetricsMiddleware)
	// r.Use skips requests no route matched; count those as "unmatched"
	r.NotFoundHandler = MetricsMiddleware(http.NotFoundHandler())
	r.MethodNotAllowedHandler = MetricsMiddleware(http.HandlerFunc(methodNotAllowed))
	r.HandleFunc("/", s.HandleIndex).Methods(http.MethodGet)
	r.HandleFunc("/analyze", s.HandleAnalyze).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.HandleHealth).Methods(http.MethodGet)
}

// Router returns a new router with every route registered.
func (s *Server) Router(ctx context.Context) *mux.Router {
	r := mux.NewRouter()
	s.Register(ctx, r)
	return r
}

// HandleIndex handles GET / and renders an empty form with a fresh token.
func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	data := newPageView(nil, "", s.submitLabel, s.busyLabel).snapshot()
	s.render(r.Context(), w, http.StatusOK, data)
}

// HandleHealth handles GET /healthz by serving the metrics registry.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

// HandleAnalyze handles POST /analyze.
func (s *Server) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	view, token, err := s.readForm(w, r)
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}
	if err != nil {
		s.logger.Warn(ctx, "rejected form", logger.Error(err))
		status, msg := http.StatusBadRequest, badFormMessage
		if errors.Is(err, ErrUploadTooBig) {
			status, msg = http.StatusRequestEntityTooLarge, err.Error()
		}
		s.renderAlert(ctx, w, status, view, msg)
		return
	}

	claimed, err := s.ledger.Claim(ctx, token)
	if err != nil {
		s.logger.Warn(ctx, "invalid form token", logger.String("token", token), logger.Error(err))
		s.renderAlert(ctx, w, http.StatusBadRequest, view, invalidTokenMessage)
		return
	}
	if !claimed {
		metrics.RecordTokenReplay()
		s.logger.Info(ctx, "form replayed", logger.String("token", token))
		s.renderAlert(ctx, w, http.StatusConflict, view, replayMessage)
		return
	}

	ctrl := app.New(s.analyzer, view,
		app.WithLogger(s.logger),
		app.WithBusyLabel(s.busyLabel),
		app.WithMaxKeywords(s.maxKeywords),
		app.WithTokenSource(func() string { return token }),
	)
	defer func() { _ = ctrl.Close() }()

	if err := ctrl.Submit(ctx); errors.Is(err, analysis.ErrInput) {
		// nothing reached the analyzer, so the same form may be posted again
		s.ledger.Release(ctx, token)
	}
	s.render(ctx, w, http.StatusOK, view.snapshot())
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}

// readForm parses the posted form into a view. The view is never nil.
func (s *Server) readForm(w http.ResponseWriter, r *http.Request) (*pageView, string, error) {
	empty := newPageView(nil, "", s.submitLabel, s.busyLabel)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+formOverheadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return empty, "", s.tooBig()
		}
		return empty, "", fmt.Errorf("%w: %w", ErrBadForm, err)
	}
	jd := r.FormValue("jd")
	token := r.FormValue("token")

	var resume *analysis.ResumeFile
	file, hdr, err := r.FormFile("resume")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return newPageView(nil, jd, s.submitLabel, s.busyLabel), token, fmt.Errorf("%w: %w", ErrBadForm, err)
	default:
		defer func() { _ = file.Close() }()
		if hdr.Size > s.maxUploadBytes {
			return newPageView(nil, jd, s.submitLabel, s.busyLabel), token, s.tooBig()
		}
		data, err := io.ReadAll(file)
		if err != nil {
			return newPageView(nil, jd, s.submitLabel, s.busyLabel), token, fmt.Errorf("%w: %w", ErrBadForm, err)
		}
		resume = analysis.NewResumeFile(hdr.Filename, data, hdr.Header.Get("Content-Type"))
	}
	return newPageView(resume, jd, s.submitLabel, s.busyLabel), token, nil
}

func (s *Server) tooBig() error {
	return fmt.Errorf("%w: the resume must be at most %s", ErrUploadTooBig, humanize.Bytes(uint64(s.maxUploadBytes)))
}

func (s *Server) renderAlert(ctx context.Context, w http.ResponseWriter, status int, view *pageView, msg string) {
	view.Alert(msg)
	s.render(ctx, w, status, view.snapshot())
}

// render issues a fresh token so the rendered form can be posted again.
func (s *Server) render(ctx context.Context, w http.ResponseWriter, status int, data pageData) {
	data.Token = s.ledger.Issue()

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Error(ctx, "failed to render page", logger.Error(fmt.Errorf("%w: %w", ErrRenderFailure, err)))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn(ctx, "failed to write page", logger.Error(err))
	}
}
