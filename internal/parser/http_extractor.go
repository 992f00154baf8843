package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"triage/internal/constants"
	"triage/internal/rules"
	"triage/pkg/metrics"
	"triage/pkg/retry"
)

type HTTPExtractorConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
	Retry   retry.Policy
}

// HTTPExtractor calls a text-to-rule model endpoint. Server errors are
// retried with backoff, client errors are not.
type HTTPExtractor struct {
	client *http.Client
	cfg    HTTPExtractorConfig
}

type extractRequest struct {
	Text          string       `json:"text"`
	DefaultAction rules.Action `json:"default_action"`
	Schema        string       `json:"schema"`
}

type extractResponse struct {
	Output string `json:"output"`
}

func NewHTTPExtractor(cfg HTTPExtractorConfig) *HTTPExtractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = constants.DefaultExtractorTimeout
	}
	return &HTTPExtractor{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg: cfg,
	}
}

func (e *HTTPExtractor) Extract(ctx context.Context, text string, defaultAction rules.Action) (string, error) {
	body, err := json.Marshal(extractRequest{
		Text:          text,
		DefaultAction: defaultAction,
		Schema:        OutputSchema,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal extract request: %w", err)
	}

	start := time.Now()
	defer func() {
		metrics.ObserveExtractorDuration(constants.ExtractorNameHTTP, time.Since(start))
	}()

	var output string
	err = retry.Do(ctx, e.cfg.Retry, func() error {
		out, callErr := e.call(ctx, body)
		if callErr != nil {
			return callErr
		}
		output = out
		return nil
	})
	if err != nil {
		metrics.IncExtractorRequest(constants.ExtractorNameHTTP, "error")
		return "", err
	}

	metrics.IncExtractorRequest(constants.ExtractorNameHTTP, "success")
	return output, nil
}

func (e *HTTPExtractor) call(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", retry.Fatal(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", retry.Retryable(fmt.Errorf("extractor request failed: %w", err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxExtractorResponseBytes+1))
	if err != nil {
		return "", retry.Retryable(fmt.Errorf("failed to read extractor response: %w", err))
	}
	if len(payload) > constants.MaxExtractorResponseBytes {
		return "", retry.Fatal(fmt.Errorf("extractor response exceeds %d bytes", constants.MaxExtractorResponseBytes))
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return "", retry.Retryable(fmt.Errorf("extractor returned status: %d", resp.StatusCode))
	}
	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return "", retry.Fatal(fmt.Errorf("extractor returned status: %d", resp.StatusCode))
	}

	var decoded extractResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return "", retry.Fatal(fmt.Errorf("failed to decode extractor response: %w", err))
	}
	return decoded.Output, nil
}
