package terminal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/atscheck/internal/domain/analysis"
	"github.com/okian/atscheck/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// ErrConflictingJD is returned when both inline and file job descriptions are given.
var ErrConflictingJD = errors.New("use either -jd or -jd-file, not both")

// SetupLogging sends logs to errOut and, when logFile is set, appends them to
// that file as well. The returned func closes the file.
func SetupLogging(errOut io.Writer, logFile, level string) (func() error, error) {
	closeFn := func() error { return nil }
	w := errOut
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = io.MultiWriter(errOut, file)
		closeFn = file.Close
	}

	if err := logger.InitWithWriter(w); err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := logger.SetLevelString(level); err != nil {
		_ = closeFn()
		return nil, err
	}
	return closeFn, nil
}

// LoadResume reads the file at path and sniffs its MIME type. An empty path
// returns nil so the submission reports the missing file itself.
func LoadResume(path string) (*analysis.ResumeFile, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resume: %w", err)
	}
	return analysis.NewResumeFile(filepath.Base(path), data, ""), nil
}

// LoadJobDescription returns the inline text or the contents of path.
func LoadJobDescription(text, path string) (string, error) {
	if path == "" {
		return text, nil
	}
	if text != "" {
		return "", ErrConflictingJD
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read job description: %w", err)
	}
	return string(data), nil
}

// ShowHelp prints usage information for the atscheck tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `atscheck
========

Submits a resume and a job description to the analysis service and prints
the ATS score, section scores, missing keywords and suggestions.

Usage:
  go run ./cmd/atscheck [options]

Options:
  -url string
        Base URL of the analysis service (default from config, "http://localhost:5000")
  -resume string
        Path to the resume file (PDF, DOCX or text)
  -jd string
        Job description text
  -jd-file string
        Read the job description from a file
  -timeout duration
        Request timeout (default: none)
  -log string
        Also append logs to this file
  -verbose
        Enable debug logging
  -help
        Show this help message

Configuration is also read from .env, $ATSCHECK_CONFIG and ATSCHECK_* variables.

Examples:
  go run ./cmd/atscheck -resume cv.pdf -jd-file job.txt
  go run ./cmd/atscheck -url http://analyzer:5000 -resume cv.pdf -jd "Go engineer" -timeout 30s
`)
}
