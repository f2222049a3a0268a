// Package analyzer is the HTTP client for the remote résumé-analysis service.
package analyzer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/okian/atscheck/internal/domain/analysis"
	"github.com/okian/atscheck/pkg/logger"
	"github.com/okian/atscheck/pkg/metrics"
)

// Multipart field names expected by the analyzer.
const (
	FieldResume = "resume"
	FieldJD     = "jd"
)

const (
	defaultMaxResponseBytes = 10 << 20
	requestIDHeader         = "X-Request-ID"
)

// ErrResponseTooLarge is wrapped when the analyzer response exceeds the cap.
var ErrResponseTooLarge = errors.New("analyzer response too large")

// Client submits résumés to a single analyze endpoint.
type Client struct {
	endpoint         string
	httpClient       *http.Client
	timeout          time.Duration
	maxResponseBytes int64
	logger           logger.Logger
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. Zero keeps the default of no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxResponseBytes caps how much of a response body is read.
func WithMaxResponseBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxResponseBytes = n
		}
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Client posting to endpoint, e.g. "http://localhost:5000/api/analyze".
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:         endpoint,
		httpClient:       &http.Client{},
		maxResponseBytes: defaultMaxResponseBytes,
		logger:           logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the URL submissions are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Analyze performs exactly one POST and maps the response to a Result or a
// *analysis.Report. It never retries.
func (c *Client) Analyze(ctx context.Context, req *analysis.SubmissionRequest) (*analysis.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, contentType, err := encodeMultipart(req)
	if err != nil {
		return nil, analysis.NewUnexpectedReport("failed to encode submission", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, analysis.NewUnexpectedReport("failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", contentType)
	if req.Token != "" {
		httpReq.Header.Set(requestIDHeader, req.Token)
	}

	c.logger.Debug(ctx, "submitting resume",
		logger.String("endpoint", c.endpoint),
		logger.String("file", req.Resume.Name),
		logger.String("contentType", req.Resume.ContentType),
		logger.String("size", req.Resume.HumanSize()),
		logger.Int("jdLength", len(req.JobDescription)),
		logger.String("token", req.Token))
	metrics.RecordUploadBytes(req.Resume.Size())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, analysis.NewUnexpectedReport("analyzer request failed", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.Warn(ctx, "failed to close response body", logger.Error(err))
		}
	}()

	data, readErr := c.readBody(resp)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if readErr != nil {
			data = nil
		}
		return nil, analysis.NewHTTPReport(resp.StatusCode, errorMessage(resp, data))
	}
	if readErr != nil {
		return nil, analysis.NewUnexpectedReport("failed to read analyzer response", readErr)
	}
	return analysis.DecodeResult(data)
}

func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > c.maxResponseBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, c.maxResponseBytes)
	}
	return data, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// encodeMultipart writes the résumé part with its own MIME type, followed by the jd field.
func encodeMultipart(req *analysis.SubmissionRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		FieldResume, quoteEscaper.Replace(req.Resume.Name)))
	h.Set("Content-Type", req.Resume.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, req.Resume.Reader()); err != nil {
		return nil, "", err
	}
	if err := w.WriteField(FieldJD, req.JobDescription); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// errorMessage extracts display text from a non-2xx response: pretty JSON
// when declared as JSON, else the body text, else "<status> <statusText>".
func errorMessage(resp *http.Response, body []byte) string {
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "json") {
		if pretty, err := prettyJSON(body); err == nil {
			return pretty
		}
	}
	if len(body) > 0 {
		return string(body)
	}
	return statusLine(resp)
}

func statusLine(resp *http.Response) string {
	if resp.Status != "" {
		return resp.Status
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
}
