package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func instant(time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestSubmitStreamsExactMultipart(t *testing.T) {
	type received struct {
		contentLength int64
		read          int64
		auth          string
		fields        url.Values
		files         map[string]string
		types         []string
	}
	got := make(chan received, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		r.Body = io.NopCloser(strings.NewReader(string(raw)))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		rec := received{
			contentLength: r.ContentLength,
			read:          int64(len(raw)),
			auth:          r.Header.Get("Authorization"),
			fields:        url.Values(r.MultipartForm.Value),
			files:         map[string]string{},
		}
		for _, fh := range r.MultipartForm.File[DefaultFileField] {
			f, err := fh.Open()
			require.NoError(t, err)
			body, _ := io.ReadAll(f)
			f.Close()
			rec.files[fh.Filename] = string(body)
			rec.types = append(rec.types, fh.Header.Get("Content-Type"))
		}
		got <- rec
		writeJSON(w, http.StatusCreated, map[string]any{
			"success":  true,
			"data":     map[string]any{"report": map[string]any{"id": "r1"}},
			"warnings": []string{"huge.mp4 skipped"},
		})
	}))
	defer server.Close()

	var lastSent, lastTotal int64
	calls := 0
	s := NewSubmitter(server.URL+"/reports", WithToken("tok"))
	fields := url.Values{"description": {"what happened"}, "evidence_captions": {"front", "back"}}
	files := []File{stubFile(`say "cheese".jpg`, 2048), {Name: "note.txt", ContentType: "text/plain", Size: 5, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("hello")), nil
	}}}

	result, err := s.Submit(context.Background(), fields, files, func(sent, total int64) {
		calls++
		lastSent, lastTotal = sent, total
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, result.StatusCode)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, []string{"huge.mp4 skipped"}, result.Warnings)
	assert.JSONEq(t, `{"report":{"id":"r1"}}`, string(result.Data))

	rec := <-got
	assert.Equal(t, rec.read, rec.contentLength)
	assert.Equal(t, "Bearer tok", rec.auth)
	assert.Equal(t, "what happened", rec.fields.Get("description"))
	assert.Equal(t, []string{"front", "back"}, rec.fields["evidence_captions"])
	assert.Equal(t, strings.Repeat("x", 2048), rec.files[`say "cheese".jpg`])
	assert.Equal(t, "hello", rec.files["note.txt"])
	assert.Equal(t, []string{"application/octet-stream", "text/plain"}, rec.types)

	assert.Positive(t, calls)
	assert.Equal(t, rec.contentLength, lastTotal)
	assert.Equal(t, lastTotal, lastSent)
}

func TestSubmitValidationFailure(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"success": false,
			"error":   map[string]any{"code": "VALIDATION_FAILED", "message": "validation failed"},
			"errors":  map[string][]string{"description": {"This field is required."}},
		})
	}))
	defer server.Close()

	s := NewSubmitter(server.URL)
	s.after = instant
	_, err := s.Submit(context.Background(), url.Values{}, nil, nil)

	var vf *ValidationFailure
	require.ErrorAs(t, err, &vf)
	assert.Equal(t, http.StatusUnprocessableEntity, vf.StatusCode)
	assert.Equal(t, []string{"This field is required."}, vf.Fields["description"])
	assert.Equal(t, "upload: validation failed (description)", vf.Error())
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestSubmitRetriesServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		if atomic.AddInt32(&hits, 1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"success": false,
				"error":   map[string]any{"code": "DEPENDENCY_UNAVAILABLE", "message": "try later"},
			})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": map[string]any{}})
	}))
	defer server.Close()

	var waits []time.Duration
	s := NewSubmitter(server.URL)
	s.after = func(d time.Duration) <-chan time.Time {
		waits = append(waits, d)
		return instant(d)
	}
	opened := 0
	file := File{Name: "a.txt", Size: 3, Open: func() (io.ReadCloser, error) {
		opened++
		return io.NopCloser(strings.NewReader("abc")), nil
	}}

	result, err := s.Submit(context.Background(), url.Values{"description": {"d"}}, []File{file}, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, 3, opened)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, waits)
}

func TestSubmitGivesUpAfterMaxAttempts(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("bad gateway"))
	}))
	defer server.Close()

	s := NewSubmitter(server.URL, WithRetry(RetryPolicy{MaxAttempts: 2, InitialBackoff: time.Millisecond, Multiplier: 2}))
	s.after = instant
	_, err := s.Submit(context.Background(), url.Values{}, nil, nil)

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, http.StatusBadGateway, respErr.StatusCode)
	assert.Equal(t, "bad gateway", respErr.Message)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestSubmitDoesNotRetryClientErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusForbidden, map[string]any{
			"success": false,
			"error":   map[string]any{"code": "FORBIDDEN", "message": "access denied"},
		})
	}))
	defer server.Close()

	s := NewSubmitter(server.URL)
	s.after = instant
	_, err := s.Submit(context.Background(), url.Values{}, nil, nil)

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	assert.Equal(t, "FORBIDDEN", respErr.Code)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestSubmitRetriesNetworkErrors(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	attempts := 0
	s := NewSubmitter(endpoint, WithRetry(RetryPolicy{MaxAttempts: 3, InitialBackoff: time.Millisecond, Multiplier: 2}))
	s.after = func(d time.Duration) <-chan time.Time {
		attempts++
		return instant(d)
	}
	_, err := s.Submit(context.Background(), url.Values{}, nil, nil)

	var netErr *networkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, 2, attempts)
}

func TestSubmitCancelledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewSubmitter(server.URL)
	s.after = func(time.Duration) <-chan time.Time {
		cancel()
		return make(chan time.Time)
	}
	_, err := s.Submit(ctx, url.Values{}, nil, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSubmitShortFileFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusCreated, map[string]any{"success": true})
	}))
	defer server.Close()

	s := NewSubmitter(server.URL)
	s.after = instant
	short := File{Name: "short.bin", Size: 10, Open: func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("abc")), nil
	}}
	_, err := s.Submit(context.Background(), url.Values{}, []File{short}, nil)
	assert.Error(t, err)
}

func TestRetryPolicyBackOffSchedule(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 6, InitialBackoff: time.Second, MaxBackoff: 5 * time.Second, Multiplier: 2}
	b := p.BackOff(context.Background())
	b.Reset()
	var waits []time.Duration
	for next := b.NextBackOff(); next != backoff.Stop; next = b.NextBackOff() {
		waits = append(waits, next)
	}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second, 5 * time.Second}, waits)
}

func TestRetryPolicyBackOffStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	b := DefaultRetryPolicy.BackOff(ctx)
	b.Reset()
	assert.Equal(t, 500*time.Millisecond, b.NextBackOff())
	cancel()
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestRetryPolicySingleAttemptNeverWaits(t *testing.T) {
	b := RetryPolicy{MaxAttempts: 1, InitialBackoff: time.Second}.BackOff(context.Background())
	b.Reset()
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestSubmitSendsOneCaptionPerFile(t *testing.T) {
	got := make(chan url.Values, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		got <- url.Values(r.MultipartForm.Value)
		writeJSON(w, http.StatusCreated, map[string]any{"success": true})
	}))
	defer server.Close()

	photo := stubFile("photo.jpg", 4)
	photo.Caption = "checkpoint"
	receipt := stubFile("receipt.pdf", 4)

	s := NewSubmitter(server.URL)
	s.after = instant
	_, err := s.Submit(context.Background(), url.Values{"description": {"d"}, CaptionField: {"stale"}}, []File{photo, receipt}, nil)
	require.NoError(t, err)

	fields := <-got
	assert.Equal(t, []string{"checkpoint", ""}, fields[CaptionField])
	assert.Equal(t, "d", fields.Get("description"))
}

func TestWithCaptionsLeavesFieldsAloneWithoutFileCaptions(t *testing.T) {
	fields := url.Values{CaptionField: {"front"}}
	assert.Equal(t, fields, withCaptions(fields, []File{stubFile("a.jpg", 1)}))

	captioned := stubFile("b.jpg", 1)
	captioned.Caption = "back"
	out := withCaptions(fields, []File{stubFile("a.jpg", 1), captioned})
	assert.Equal(t, []string{"", "back"}, out[CaptionField])
	assert.Equal(t, []string{"front"}, fields[CaptionField])
}
