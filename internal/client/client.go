// Package client is a small HTTP client for the coach-facing API, used by
// planctl and by anything else that needs to drive generations remotely.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"alcyxob/coaching-app/internal/domain"
	"alcyxob/coaching-app/internal/poller"
)

const (
	DefaultTimeout = 30 * time.Second
	// maxResponseSize bounds how much of a response body is read.
	maxResponseSize = 10 * 1024 * 1024
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status      int
	Code        string
	Message     string
	Field       string
	ActiveJobID string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("api error (HTTP %d): %s", e.Status, e.Message)
}

// IsConflict reports whether err is a rejected submission because another
// job is active. The active job id is returned when known.
func IsConflict(err error) (string, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict && apiErr.ActiveJobID != "" {
		return apiErr.ActiveJobID, true
	}
	return "", false
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for the API rooted at baseURL, for example
// http://localhost:8080/api/v1. A nil httpClient gets a default with
// DefaultTimeout.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, http: httpClient}
}

type submitRequest struct {
	Mode   domain.JobMode          `json:"mode"`
	Inputs domain.GenerationInputs `json:"inputs"`
}

type submitResponse struct {
	JobID  string           `json:"jobId"`
	Status domain.JobStatus `json:"status"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a token and keeps it for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return "", err
	}
	c.token = resp.Token
	return resp.Token, nil
}

// Submit starts a generation and returns the new job id.
func (c *Client) Submit(ctx context.Context, clientID string, mode domain.JobMode, inputs domain.GenerationInputs) (string, error) {
	var resp submitResponse
	path := "/coach/clients/" + url.PathEscape(clientID) + "/generations"
	if err := c.do(ctx, http.MethodPost, path, submitRequest{Mode: mode, Inputs: inputs}, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// JobStatus implements poller.StatusSource. Unknown jobs yield an error
// wrapping poller.ErrJobNotFound.
func (c *Client) JobStatus(ctx context.Context, jobID string) (*domain.JobStatusView, error) {
	var view domain.JobStatusView
	err := c.do(ctx, http.MethodGet, "/coach/generations/"+url.PathEscape(jobID), nil, &view)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", poller.ErrJobNotFound, jobID)
		}
		return nil, err
	}
	return &view, nil
}

func (c *Client) ListPlans(ctx context.Context, clientID string, kind domain.PlanKind) ([]domain.Plan, error) {
	var plans []domain.Plan
	path := "/coach/clients/" + url.PathEscape(clientID) + "/plans?kind=" + url.QueryEscape(string(kind))
	if err := c.do(ctx, http.MethodGet, path, nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (c *Client) ListQuestionnaires(ctx context.Context, clientID string) ([]domain.QuestionnaireSubmission, error) {
	var list []domain.QuestionnaireSubmission
	if err := c.do(ctx, http.MethodGet, "/coach/clients/"+url.PathEscape(clientID)+"/questionnaires", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) LineageDefaults(ctx context.Context, clientID string) (*domain.LineageDefaults, error) {
	var defaults domain.LineageDefaults
	if err := c.do(ctx, http.MethodGet, "/coach/clients/"+url.PathEscape(clientID)+"/lineage-defaults", nil, &defaults); err != nil {
		return nil, err
	}
	return &defaults, nil
}

// LoadClientSession implements poller.SessionLoader.
func (c *Client) LoadClientSession(ctx context.Context, clientID string) (*domain.ClientSession, error) {
	var session domain.ClientSession
	if err := c.do(ctx, http.MethodGet, "/coach/clients/"+url.PathEscape(clientID)+"/session", nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var payload struct {
			Error       string `json:"error"`
			Code        string `json:"code"`
			Field       string `json:"field"`
			ActiveJobID string `json:"activeJobId"`
		}
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Code = payload.Code
			apiErr.Field = payload.Field
			apiErr.ActiveJobID = payload.ActiveJobID
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
			if apiErr.Message == "" {
				apiErr.Message = http.StatusText(resp.StatusCode)
			}
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
