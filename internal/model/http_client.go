package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/Simplici0/partquote/internal/errors"
)

const (
	defaultTimeout        = 10 * time.Second
	responseBodyReadLimit = 1024
)

// HTTPClient calls a remote prediction service.
//
// POST {base}/predict takes {"model", "row"} and answers
// {"price"}; GET {base}/features answers {"features": [...]} in model order.
type HTTPClient struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option configures optional client behavior.
type Option func(*HTTPClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *HTTPClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.httpClient = &http.Client{Timeout: d}
		}
	}
}

// NewHTTPClient returns a client for the model named modelName at baseURL.
func NewHTTPClient(baseURL, modelName string, opts ...Option) (*HTTPClient, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, fmt.Errorf("model url is required")
	}
	c := &HTTPClient{
		baseURL:    trimmed,
		model:      modelName,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

func (c *HTTPClient) Name() string {
	return c.model
}

type predictRequest struct {
	Model string    `json:"model"`
	Row   []float64 `json:"row"`
}

type predictResponse struct {
	Price *float64 `json:"price"`
}

// Predict sends one feature row and returns the predicted unit price.
func (c *HTTPClient) Predict(ctx context.Context, row []float64) (float64, error) {
	payload, err := json.Marshal(predictRequest{Model: c.model, Row: row})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePrediction, err, "marshal predict request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePrediction, err, "build predict request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePrediction, err, "execute predict request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return 0, pkgerrors.Wrap(pkgerrors.CodePrediction,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "predict request failed")
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodePrediction, err, "decode predict response")
	}
	if out.Price == nil {
		return 0, pkgerrors.New(pkgerrors.CodePrediction, "predict response has no price")
	}
	return *out.Price, nil
}

// FeatureNames asks the remote service for its column order.
func (c *HTTPClient) FeatureNames(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/features", nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build features request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute features request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("unexpected status code: %d", resp.StatusCode), "features request failed")
	}

	var out struct {
		Features []string `json:"features"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode features response")
	}
	return out.Features, nil
}

// VerifyColumns fails with an encoding error unless the remote service
// expects exactly the manifest's columns in the same order.
func (c *HTTPClient) VerifyColumns(ctx context.Context, m *Manifest) error {
	remote, err := c.FeatureNames(ctx)
	if err != nil {
		return err
	}
	local := m.ColumnNames()
	if len(remote) != len(local) {
		return pkgerrors.Newf(pkgerrors.CodeEncoding, "model %s expects %d features, manifest declares %d", c.model, len(remote), len(local)).
			WithDetails(map[string]any{"remote": remote, "manifest": local})
	}
	for i := range local {
		if remote[i] != local[i] {
			return pkgerrors.Newf(pkgerrors.CodeEncoding, "feature %d is %s in the model but %s in the manifest", i, remote[i], local[i]).
				WithDetails(map[string]any{"remote": remote, "manifest": local})
		}
	}
	return nil
}
