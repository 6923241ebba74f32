package quotelog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	pkgerrors "github.com/Simplici0/partquote/internal/errors"
)

const (
	defaultSinkTimeout   = 5 * time.Second
	defaultRetryBase     = 200 * time.Millisecond
	sinkBodyReadLimit    = 512
	defaultRetryAttempts = 3
)

// HTTPSink posts each logged quote as JSON to a remote logging endpoint.
// Transport failures and 5xx answers are retried with exponential backoff.
type HTTPSink struct {
	url        string
	httpClient *http.Client
	retries    uint64
	base       time.Duration
}

type HTTPSinkOption func(*HTTPSink)

func WithSinkHTTPClient(client *http.Client) HTTPSinkOption {
	return func(s *HTTPSink) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithRetries sets how many times a failed post is retried.
func WithRetries(n uint64) HTTPSinkOption {
	return func(s *HTTPSink) {
		s.retries = n
	}
}

// WithRetryBase sets the first backoff interval.
func WithRetryBase(d time.Duration) HTTPSinkOption {
	return func(s *HTTPSink) {
		if d > 0 {
			s.base = d
		}
	}
}

func NewHTTPSink(url string, opts ...HTTPSinkOption) (*HTTPSink, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("log sink url is required")
	}
	s := &HTTPSink{
		url:        url,
		httpClient: &http.Client{Timeout: defaultSinkTimeout},
		retries:    defaultRetryAttempts,
		base:       defaultRetryBase,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *HTTPSink) Write(ctx context.Context, q Quote) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal quote log")
	}

	backoff := retry.WithMaxRetries(s.retries, retry.NewExponential(s.base))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		return s.post(ctx, payload)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send quote log "+q.Number)
	}
	return nil
}

func (s *HTTPSink) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return retry.RetryableError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, sinkBodyReadLimit))
	statusErr := fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return retry.RetryableError(statusErr)
	}
	return statusErr
}
