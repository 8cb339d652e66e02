package frappe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/BalanceBalls/timesheet-tracker/internal/logger"
)

const (
	resourcePath  = "api/resource"
	methodPath    = "api/method"
	authHeaderKey = "Authorization"
)

// Client talks to the Frappe REST API of one site.
type Client struct {
	baseURL *url.URL
	client  *http.Client
	token   string
}

// NewClient creates a client for the site at baseURL. The underlying http
// client keeps cookies so a password login survives between calls.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid frappe url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid frappe url %q: scheme and host are required", baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("could not create cookie jar: %w", err)
	}

	return &Client{
		baseURL: u,
		client:  &http.Client{Timeout: timeout, Jar: jar},
	}, nil
}

// Resource returns CRUD access to one doctype.
func (c *Client) Resource(doctype string) *Resource {
	return &Resource{client: c, doctype: doctype}
}

type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type messageEnvelope struct {
	Message json.RawMessage `json:"message"`
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.baseURL
	u.Path = path.Join(append([]string{c.baseURL.Path}, parts...)...)
	return u.String()
}

// doRequest sends the request and returns the body of a successful response.
// A status >= 400 yields a *Error of the given kind.
func (c *Client) doRequest(ctx context.Context, kind error, doctype, name, method, endpoint string, params url.Values, body any) ([]byte, error) {
	logger := logger.GetFromContext(ctx)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, wrapError(kind, doctype, name, fmt.Errorf("could not encode request body: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, wrapError(kind, doctype, name, fmt.Errorf("could not construct request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set(authHeaderKey, c.token)
	}
	if params != nil {
		req.URL.RawQuery = params.Encode()
	}

	res, err := c.client.Do(req)
	if err != nil {
		logger.ErrorContext(ctx, "http request failed", "method", method, "doctype", doctype, "error", err)
		return nil, wrapError(kind, doctype, name, err)
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		logger.ErrorContext(ctx, "response body read failed", "error", err)
		return nil, wrapError(kind, doctype, name, fmt.Errorf("could not read response body: %w", err))
	}

	logger.DebugContext(ctx, "http request finished",
		"method", method,
		"request_url", res.Request.URL.Path,
		"status_code", res.StatusCode)

	if res.StatusCode >= 400 {
		ferr := newError(kind, doctype, name, res.StatusCode, resBody)
		logger.ErrorContext(ctx, "request rejected",
			"method", method,
			"doctype", doctype,
			"status_code", res.StatusCode,
			"message", ferr.Message)
		return nil, ferr
	}

	return resBody, nil
}

func readQueryParams(q Query) (url.Values, error) {
	params := url.Values{}

	if len(q.Fields) > 0 {
		fields, err := json.Marshal(q.Fields)
		if err != nil {
			return nil, err
		}
		params.Set("fields", string(fields))
	}

	if len(q.Filters) > 0 {
		filters, err := json.Marshal(q.Filters)
		if err != nil {
			return nil, err
		}
		params.Set("filters", string(filters))
	}

	if q.OrderBy != "" {
		params.Set("order_by", q.OrderBy)
	}

	// Frappe pages at 20 rows unless told otherwise; 0 disables paging.
	params.Set("limit_page_length", strconv.Itoa(q.Limit))

	return params, nil
}

// Resource is CRUD access to a single doctype.
type Resource struct {
	client  *Client
	doctype string
}

func (r *Resource) Doctype() string {
	return r.doctype
}

func (r *Resource) Read(ctx context.Context, q Query) ([]Record, error) {
	params, err := readQueryParams(q)
	if err != nil {
		return nil, wrapError(ErrRead, r.doctype, "", fmt.Errorf("could not encode query: %w", err))
	}

	body, err := r.client.doRequest(ctx, ErrRead, r.doctype, "", http.MethodGet,
		r.client.endpoint(resourcePath, r.doctype), params, nil)
	if err != nil {
		return nil, err
	}

	var env dataEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, wrapError(ErrRead, r.doctype, "", fmt.Errorf("could not parse response data: %w", err))
	}

	var records []Record
	if err := json.Unmarshal(env.Data, &records); err != nil {
		return nil, wrapError(ErrRead, r.doctype, "", fmt.Errorf("could not parse response data: %w", err))
	}

	return records, nil
}

func (r *Resource) Create(ctx context.Context, data Record) (Record, error) {
	body, err := r.client.doRequest(ctx, ErrCreate, r.doctype, "", http.MethodPost,
		r.client.endpoint(resourcePath, r.doctype), nil, data)
	if err != nil {
		return nil, err
	}
	return decodeRecord(ErrCreate, r.doctype, "", body)
}

func (r *Resource) Update(ctx context.Context, name string, data Record) (Record, error) {
	body, err := r.client.doRequest(ctx, ErrUpdate, r.doctype, name, http.MethodPut,
		r.client.endpoint(resourcePath, r.doctype, name), nil, data)
	if err != nil {
		return nil, err
	}
	return decodeRecord(ErrUpdate, r.doctype, name, body)
}

func (r *Resource) Delete(ctx context.Context, name string) error {
	_, err := r.client.doRequest(ctx, ErrDelete, r.doctype, name, http.MethodDelete,
		r.client.endpoint(resourcePath, r.doctype, name), nil, nil)
	return err
}

func decodeRecord(kind error, doctype, name string, body []byte) (Record, error) {
	var env dataEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, wrapError(kind, doctype, name, fmt.Errorf("could not parse response data: %w", err))
	}

	var rec Record
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		return nil, wrapError(kind, doctype, name, fmt.Errorf("could not parse response data: %w", err))
	}
	if rec == nil {
		return nil, wrapError(kind, doctype, name, fmt.Errorf("response carries no document"))
	}

	return rec, nil
}
