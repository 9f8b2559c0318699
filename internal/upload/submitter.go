package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const (
	// DefaultFileField is the multipart part name the report endpoint reads.
	DefaultFileField = "evidence_files"
	// CaptionField pairs its i-th value with the i-th file part.
	CaptionField = "evidence_captions"
)

// Progress receives bytes sent so far and the exact body size.
type Progress func(sent, total int64)

// RetryPolicy controls exponential backoff between attempts.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryPolicy retries three times starting at half a second.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    4,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     10 * time.Second,
	Multiplier:     2,
}

// BackOff builds the schedule for one submission: deterministic exponential
// waits, at most MaxAttempts-1 of them, stopped early when ctx ends.
func (p RetryPolicy) BackOff(ctx context.Context) backoff.BackOffContext {
	multiplier := p.Multiplier
	if multiplier < 1 {
		multiplier = 1
	}
	maxInterval := p.MaxBackoff
	if maxInterval <= 0 {
		maxInterval = backoff.DefaultMaxInterval
	}
	exp := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.InitialBackoff),
		backoff.WithMultiplier(multiplier),
		backoff.WithMaxInterval(maxInterval),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)
	retries := 0
	if p.MaxAttempts > 1 {
		retries = p.MaxAttempts - 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

// Result is a successful submission.
type Result struct {
	StatusCode int
	Data       json.RawMessage
	Warnings   []string
	Attempts   int
}

// ValidationFailure carries field errors returned by the server.
type ValidationFailure struct {
	StatusCode int
	Message    string
	Fields     map[string][]string
}

func (v *ValidationFailure) Error() string {
	if len(v.Fields) == 0 {
		return "upload: " + v.Message
	}
	names := make([]string, 0, len(v.Fields))
	for name := range v.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("upload: %s (%s)", v.Message, strings.Join(names, ", "))
}

// ResponseError is any other failure the server reported.
type ResponseError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("upload: server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("upload: server returned %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type networkError struct{ err error }

func (e *networkError) Error() string { return "upload: " + e.err.Error() }
func (e *networkError) Unwrap() error { return e.err }

// Submitter posts report forms with their evidence.
type Submitter struct {
	endpoint  string
	client    *http.Client
	token     string
	fileField string
	retry     RetryPolicy
	logger    *zap.Logger
	after     func(time.Duration) <-chan time.Time
}

// Option customises a Submitter.
type Option func(*Submitter)

// WithHTTPClient replaces the default client. Its timeout bounds each attempt.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Submitter) { s.client = client }
}

// WithToken submits as an authenticated reporter.
func WithToken(token string) Option {
	return func(s *Submitter) { s.token = token }
}

// WithRetry overrides the retry policy.
func WithRetry(policy RetryPolicy) Option {
	return func(s *Submitter) { s.retry = policy }
}

// WithFileField changes the multipart part name for files.
func WithFileField(name string) Option {
	return func(s *Submitter) { s.fileField = name }
}

// WithLogger logs retries.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Submitter) { s.logger = logger }
}

// NewSubmitter targets endpoint, normally <base>/reports.
func NewSubmitter(endpoint string, opts ...Option) *Submitter {
	s := &Submitter{
		endpoint:  endpoint,
		client:    &http.Client{},
		fileField: DefaultFileField,
		retry:     DefaultRetryPolicy,
		logger:    zap.NewNop(),
		after:     time.After,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.MaxAttempts < 1 {
		s.retry.MaxAttempts = 1
	}
	return s
}

// Submit streams fields and files as one multipart body. Network failures and
// 5xx responses are retried with backoff; cancelling ctx aborts immediately.
func (s *Submitter) Submit(ctx context.Context, fields url.Values, files []File, progress Progress) (*Result, error) {
	attempts := 0
	var result *Result
	operation := func() error {
		attempts++
		res, err := s.attempt(ctx, fields, files, progress)
		if err == nil {
			result = res
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return backoff.Permanent(ctxErr)
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		s.logger.Warn("submission failed; retrying",
			zap.Int("attempt", attempts),
			zap.Duration("backoff", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotifyWithTimer(operation, s.retry.BackOff(ctx), notify, &afterTimer{after: s.after}); err != nil {
		return nil, err
	}
	result.Attempts = attempts
	return result, nil
}

// afterTimer adapts a time.After style function to backoff.Timer.
type afterTimer struct {
	after func(time.Duration) <-chan time.Time
	c     <-chan time.Time
}

func (t *afterTimer) Start(d time.Duration) { t.c = t.after(d) }
func (t *afterTimer) Stop()                 {}
func (t *afterTimer) C() <-chan time.Time   { return t.c }

func retryable(err error) bool {
	var netErr *networkError
	if errors.As(err, &netErr) {
		return true
	}
	var respErr *ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode >= http.StatusInternalServerError
}

func (s *Submitter) attempt(ctx context.Context, fields url.Values, files []File, progress Progress) (*Result, error) {
	body, err := newMultipartBody(fields, s.fileField, files)
	if err != nil {
		return nil, err
	}
	reader := body.Reader()
	defer reader.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, &progressReader{r: reader, total: body.Size, fn: progress})
	if err != nil {
		return nil, err
	}
	req.ContentLength = body.Size
	req.Header.Set("Content-Type", body.ContentType)
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var fileErr *fileError
		if errors.As(err, &fileErr) {
			return nil, fileErr
		}
		return nil, &networkError{err: err}
	}
	defer resp.Body.Close()
	return parseResponse(resp)
}

type envelope struct {
	Success  bool            `json:"success"`
	Data     json.RawMessage `json:"data"`
	Warnings []string        `json:"warnings"`
	Error    *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Errors map[string][]string `json:"errors"`
}

func parseResponse(resp *http.Response) (*Result, error) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &networkError{err: err}
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &ResponseError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if env.Success && resp.StatusCode < http.StatusBadRequest {
		return &Result{StatusCode: resp.StatusCode, Data: env.Data, Warnings: env.Warnings}, nil
	}
	code, message := "", "request failed"
	if env.Error != nil {
		code, message = env.Error.Code, env.Error.Message
	}
	if len(env.Errors) > 0 || code == "VALIDATION_FAILED" {
		return nil, &ValidationFailure{StatusCode: resp.StatusCode, Message: message, Fields: env.Errors}
	}
	return nil, &ResponseError{StatusCode: resp.StatusCode, Code: code, Message: message}
}

type progressReader struct {
	r     io.Reader
	total int64
	sent  int64
	fn    Progress
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		if p.fn != nil {
			p.fn(p.sent, p.total)
		}
	}
	return n, err
}

// fileError reports a staged file that could not be read as declared.
type fileError struct {
	name string
	err  error
}

func (e *fileError) Error() string { return fmt.Sprintf("upload: %s: %v", e.name, e.err) }
func (e *fileError) Unwrap() error { return e.err }

type multipartBody struct {
	boundary    string
	ContentType string
	Size        int64
	fields      url.Values
	fileField   string
	files       []File
}

// newMultipartBody lays out the body once with a throwaway writer so the
// exact Content-Length is known before streaming.
func newMultipartBody(fields url.Values, fileField string, files []File) (*multipartBody, error) {
	fields = withCaptions(fields, files)
	counter := &countingWriter{}
	mw := multipart.NewWriter(counter)
	b := &multipartBody{
		boundary:    mw.Boundary(),
		ContentType: mw.FormDataContentType(),
		fields:      fields,
		fileField:   fileField,
		files:       files,
	}
	if err := b.write(mw, func(w io.Writer, f File) error {
		counter.n += f.Size
		return nil
	}); err != nil {
		return nil, err
	}
	b.Size = counter.n
	return b, nil
}

// withCaptions replaces CaptionField with one value per file, in file order,
// when any staged file carries its own caption.
func withCaptions(fields url.Values, files []File) url.Values {
	captioned := false
	for _, f := range files {
		if f.Caption != "" {
			captioned = true
			break
		}
	}
	if !captioned {
		return fields
	}
	out := make(url.Values, len(fields)+1)
	for key, values := range fields {
		out[key] = values
	}
	captions := make([]string, len(files))
	for i, f := range files {
		captions[i] = f.Caption
	}
	out[CaptionField] = captions
	return out
}

// Reader streams the body through a pipe.
func (b *multipartBody) Reader() io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		mw := multipart.NewWriter(pw)
		if err := mw.SetBoundary(b.boundary); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(b.write(mw, copyFile))
	}()
	return pr
}

func (b *multipartBody) write(mw *multipart.Writer, content func(io.Writer, File) error) error {
	keys := make([]string, 0, len(b.fields))
	for key := range b.fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		for _, value := range b.fields[key] {
			if err := mw.WriteField(key, value); err != nil {
				return err
			}
		}
	}
	for _, f := range b.files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(b.fileField), escapeQuotes(f.Name)))
		contentType := f.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := mw.CreatePart(header)
		if err != nil {
			return err
		}
		if err := content(part, f); err != nil {
			return err
		}
	}
	return mw.Close()
}

func copyFile(w io.Writer, f File) error {
	if f.Open == nil {
		return &fileError{name: f.Name, err: errors.New("no content")}
	}
	rc, err := f.Open()
	if err != nil {
		return &fileError{name: f.Name, err: err}
	}
	defer rc.Close()
	n, err := io.Copy(w, io.LimitReader(rc, f.Size))
	if err != nil {
		return err
	}
	if n != f.Size {
		return &fileError{name: f.Name, err: fmt.Errorf("read %d of %d bytes", n, f.Size)}
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
