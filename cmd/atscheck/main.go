package main

import (
	"context"
	"flag"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/atscheck/internal/adapters/http/analyzer"
	"github.com/okian/atscheck/internal/adapters/terminal"
	"github.com/okian/atscheck/internal/app"
	"github.com/okian/atscheck/internal/config"
	"github.com/okian/atscheck/pkg/logger"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one submission and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("atscheck", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		baseURL = fs.String("url", "", "Base URL of the analysis service")
		resume  = fs.String("resume", "", "Path to the resume file")
		jdText  = fs.String("jd", "", "Job description text")
		jdFile  = fs.String("jd-file", "", "Read the job description from a file")
		timeout = fs.Duration("timeout", 0, "Request timeout (0 for none)")
		logFile = fs.String("log", "", "Also append logs to this file")
		verbose = fs.Bool("verbose", false, "Enable debug logging")
		help    = fs.Bool("help", false, "Show help")
	)
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *help {
		terminal.ShowHelp(stdout)
		return exitOK
	}

	// Load configuration (defaults -> .env -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = io.WriteString(stderr, "failed to load config: "+err.Error()+"\n")
		return exitFailed
	}
	if *baseURL != "" {
		cfg.AnalyzerURL = *baseURL
	}
	if *timeout > 0 {
		cfg.RequestTimeoutMS = int(*timeout / time.Millisecond)
	}
	if err := cfg.Validate(); err != nil {
		_, _ = io.WriteString(stderr, "invalid options: "+err.Error()+"\n")
		return exitUsage
	}

	level := cfg.LogLevel
	if *verbose {
		level = "debug"
	}
	closeLog, err := terminal.SetupLogging(stderr, *logFile, level)
	if err != nil {
		_, _ = io.WriteString(stderr, "failed to setup logging: "+err.Error()+"\n")
		return exitFailed
	}
	defer func() { _ = closeLog() }()
	log := logger.Named("atscheck")

	file, err := terminal.LoadResume(*resume)
	if err != nil {
		_, _ = io.WriteString(stderr, err.Error()+"\n")
		return exitFailed
	}
	jd, err := terminal.LoadJobDescription(*jdText, *jdFile)
	if err != nil {
		_, _ = io.WriteString(stderr, err.Error()+"\n")
		return exitUsage
	}

	client := analyzer.New(cfg.Endpoint(),
		analyzer.WithTimeout(cfg.RequestTimeout()),
		analyzer.WithLogger(log.Named("analyzer")),
	)
	view := terminal.NewView(stdout, stderr, file, jd,
		terminal.WithSubmitLabel(cfg.SubmitLabel),
		terminal.WithLogger(log),
	)
	ctrl := app.New(client, view,
		app.WithLogger(log),
		app.WithBusyLabel(cfg.BusyLabel),
		app.WithMaxKeywords(cfg.MaxKeywords),
	)

	// Interrupts abort the request without an alert.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = ctrl.Close()
		case <-done:
		}
	}()

	log.Debug(ctx, "submitting", logger.String("endpoint", client.Endpoint()))
	if err := ctrl.Submit(context.WithoutCancel(ctx)); err != nil {
		return exitFailed
	}
	return exitOK
}
