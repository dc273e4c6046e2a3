// Package orderapi talks to the order service over HTTP: it fetches order
// documents and sends the cancel command.
package orderapi

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
	"unicode/utf8"

	"github.com/julianstephens/dietline/internal/constants"
	"github.com/julianstephens/dietline/internal/logger"
	"github.com/julianstephens/dietline/internal/models"
)

var (
	// ErrUnrecognizedOrder means the service answered with something that is
	// not an order document.
	ErrUnrecognizedOrder = errors.New("unrecognized order document")
	ErrNotFound          = errors.New("order not found")
	ErrUnauthorized      = errors.New("order service rejected the API token")
	// ErrRejected means the service answered 2xx but reported failure.
	ErrRejected = errors.New("order service rejected the request")
)

// StatusError carries an unexpected HTTP status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("order service returned %d", e.Code)
	}
	return fmt.Sprintf("order service returned %d: %s", e.Code, e.Body)
}

// TokenSource yields the bearer token per request. An empty token sends no
// Authorization header.
type TokenSource func() (string, error)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.token = ts }
}

func WithToken(token string) Option {
	return WithTokenSource(func() (string, error) { return token, nil })
}

// WithLocation sets the calendar order dates are read in.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.loc = loc }
}

type Client struct {
	base  *url.URL
	http  *http.Client
	token TokenSource
	loc   *time.Location
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid API base URL %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base: u,
		http: &http.Client{Timeout: constants.DefaultHTTPTimeout},
		loc:  time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) orderURL(orderID string) string {
	return c.base.JoinPath("orders", orderID).String()
}

// FetchOrder loads one order document.
func (c *Client) FetchOrder(ctx context.Context, orderID string) (models.Order, error) {
	body, err := c.do(ctx, http.MethodGet, orderID, nil)
	if err != nil {
		return models.Order{}, err
	}
	return decodeOrder(body, orderID, c.loc)
}

// CancelOrder sends the cancel command. It succeeds only on a 2xx answer
// whose body, if any, does not report failure.
func (c *Client) CancelOrder(ctx context.Context, orderID string) error {
	payload, err := json.Marshal(newCancelRequest())
	if err != nil {
		return err
	}
	body, err := c.do(ctx, http.MethodPatch, orderID, payload)
	if err != nil {
		return err
	}

	var ack envelope
	if len(bytes.TrimSpace(body)) > 0 && json.Unmarshal(body, &ack) == nil {
		if ack.Success != nil && !*ack.Success {
			if ack.Message == "" {
				return ErrRejected
			}
			return fmt.Errorf("%w: %s", ErrRejected, ack.Message)
		}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, orderID string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.orderURL(orderID), reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", constants.AppName+"/"+constants.Version)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		token, err := c.token()
		if err != nil {
			return nil, fmt.Errorf("reading API token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s order %s: %w", strings.ToLower(method), orderID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	logger.Debug("Order service call", "method", method, "order", orderID, "status", resp.StatusCode, "elapsed", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, orderID)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrUnauthorized
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{Code: resp.StatusCode, Body: snippet(body)}
	}
	return body, nil
}

const maxSnippetRunes = 200

// snippet trims an error body to maxSnippetRunes without splitting a rune.
func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if utf8.RuneCountInString(s) <= maxSnippetRunes {
		return s
	}
	n := 0
	for i := range s {
		if n == maxSnippetRunes {
			return s[:i] + "..."
		}
		n++
	}
	return s
}
