package catalog

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	pathHierarchy = "/categories/hierarchy"
	pathMain      = "/categories/main"
	pathCreate    = "/categories"
	pathCategory  = "/categories/{id}"

	defaultTimeout = 30 * time.Second
)

type ClientOpts struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the category endpoints of the marketplace backend.
type Client struct {
	httpClient *resty.Client
	baseURL    string
	token      string
}

func NewClient(opts ClientOpts) *Client {
	c := Client{baseURL: opts.BaseURL, token: opts.Token}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.httpClient = resty.New().
		SetDebug(false).
		SetBaseURL(c.baseURL).
		SetTimeout(timeout).
		SetHeaders(
			map[string]string{
				"Accept":     "application/json",
				"User-Agent": "category-admin/1.0",
			},
		)

	return &c
}

func (c *Client) req(ctx context.Context) *resty.Request {
	request := c.httpClient.
		NewRequest().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.NewString())

	if c.token != "" {
		request.SetAuthToken(c.token)
	}

	return request
}

// Hierarchy returns the main categories with one level of nested children.
func (c *Client) Hierarchy(ctx context.Context) ([]Category, error) {
	res, err := handleError(c.req(ctx).Get(pathHierarchy))
	if err != nil {
		return nil, err
	}
	return DecodeList(res.Body())
}

// MainCategories returns the flat list of main categories.
func (c *Client) MainCategories(ctx context.Context) ([]Category, error) {
	res, err := handleError(c.req(ctx).Get(pathMain))
	if err != nil {
		return nil, err
	}
	return DecodeList(res.Body())
}

func (c *Client) Create(ctx context.Context, input CategoryInput) (Category, error) {
	res, err := handleError(c.req(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(input).
		Post(pathCreate))
	if err != nil {
		return Category{}, err
	}
	return DecodeOne(res.Body())
}

func (c *Client) Update(ctx context.Context, id string, input CategoryInput) (Category, error) {
	res, err := handleError(c.req(ctx).
		SetHeader("Content-Type", "application/json").
		SetPathParam("id", id).
		SetBody(input).
		Put(pathCategory))
	if err != nil {
		return Category{}, err
	}
	return DecodeOne(res.Body())
}

// Delete removes a category and returns the server's confirmation message,
// which may be empty.
func (c *Client) Delete(ctx context.Context, id string) (string, error) {
	res, err := handleError(c.req(ctx).
		SetPathParam("id", id).
		Delete(pathCategory))
	if err != nil {
		return "", err
	}
	return DecodeMessage(res.Body()), nil
}

// handleError is a generic error handler for failing response (>399 status
// code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		apiErr := &APIError{
			Method:  res.Request.Method,
			URL:     res.Request.URL,
			Status:  res.StatusCode(),
			Message: DecodeMessage(res.Body()),
		}
		log.Debug().
			Str("method", apiErr.Method).
			Str("url", apiErr.URL).
			Int("status", apiErr.Status).
			Str("message", apiErr.Message).
			Msg("category api request failed")
		return res, apiErr
	}

	return res, nil
}
