// Package client implements task.Repository against the remote task API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/api"
	"taskdeck/internal/task"
)

const DefaultTimeout = 15 * time.Second

type Client struct {
	baseURL   string
	http      *http.Client
	batchSize int
}

var _ task.Repository = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBatchSize sets how many rows FetchAll asks for per request.
func WithBatchSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// New returns a client for the API rooted at baseURL, for example
// http://localhost:8080/api/Task.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("api url is empty")
	}
	c := &Client{
		baseURL:   baseURL,
		http:      &http.Client{Timeout: DefaultTimeout},
		batchSize: api.DefaultLimitRow,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// FetchAll downloads the full collection, one batch at a time until the
// reported total is reached, and filters it locally; the API has no filter
// parameters.
func (c *Client) FetchAll(ctx context.Context, filters task.Filters) ([]task.Task, error) {
	var all []api.Task
	for {
		req := api.ListRequest{CurRow: len(all), LimitRow: c.batchSize}
		var resp api.ListResponse
		if err := c.do(ctx, http.MethodPost, api.PathList, req, &resp); err != nil {
			return nil, fmt.Errorf("fetch tasks: %w", err)
		}
		all = append(all, resp.Data...)
		if len(resp.Data) == 0 || len(all) >= resp.TotalRecord {
			break
		}
	}

	tasks := make([]task.Task, 0, len(all))
	for _, item := range all {
		t := item.ToTask()
		if filters.Matches(t) {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (c *Client) Create(ctx context.Context, in task.CreateInput) error {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return err
	}
	body := api.SaveRequest{
		Title:       in.Title,
		Description: in.Description,
		Priority:    api.FromPriority(in.Priority),
		Status:      api.FromStatus(in.Status),
	}
	if err := c.do(ctx, http.MethodPost, api.PathSave, body, nil); err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (c *Client) Update(ctx context.Context, in task.UpdateInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	body := api.UpdateRequest{
		TaskID:      in.ID,
		Title:       in.Title,
		Description: in.Description,
	}
	if in.Priority != nil {
		p := api.FromPriority(*in.Priority)
		body.Priority = &p
	}
	if in.Status != nil {
		s := api.FromStatus(*in.Status)
		body.Status = &s
	}
	if err := c.do(ctx, http.MethodPost, api.PathUpdate, body, nil); err != nil {
		return fmt.Errorf("update task %d: %w", in.ID, err)
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, id int) error {
	if err := c.do(ctx, http.MethodDelete, api.PathDelete+"/"+strconv.Itoa(id), nil, nil); err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(api.HeaderRequestID, uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return responseError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// StatusError is a non-2xx API response.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %s", http.StatusText(e.Code))
	}
	return fmt.Sprintf("api: %s: %s", http.StatusText(e.Code), e.Message)
}

// Unwrap maps API statuses onto the task sentinel errors.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return task.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return task.ErrInvalid
	default:
		return nil
	}
}

func responseError(resp *http.Response) error {
	var body api.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(data))
	}
	return &StatusError{Code: resp.StatusCode, Message: body.Error}
}
