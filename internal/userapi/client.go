package userapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/pkg/circuitbreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const maxBodySize = 4 << 20 // 4MB

// Client talks to the remote user listing API.
type Client struct {
	baseURL string
	http    *http.Client
	list    *circuitbreaker.Breaker[[]domain.User]
	get     *circuitbreaker.Breaker[domain.User]
}

type Option func(*Client)

// WithHTTPClient replaces the default traced client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithBreakerConfig overrides the circuit breaker settings.
func WithBreakerConfig(cfg circuitbreaker.Config, logger *slog.Logger) Option {
	if cfg.Ignore == nil {
		cfg.Ignore = ignoreExpected
	}
	return func(cl *Client) {
		cl.list = circuitbreaker.New[[]domain.User]("userapi.list", cfg, logger)
		cl.get = circuitbreaker.New[domain.User]("userapi.get", cfg, logger)
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	cfg := circuitbreaker.DefaultConfig()
	cfg.Ignore = ignoreExpected

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		list: circuitbreaker.New[[]domain.User]("userapi.list", cfg, nil),
		get:  circuitbreaker.New[domain.User]("userapi.get", cfg, nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListUsers fetches the whole user listing.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := c.list.Execute(func() ([]domain.User, error) {
		var users []domain.User
		if err := c.getJSON(ctx, "/users", false, &users); err != nil {
			return nil, err
		}
		if users == nil {
			users = []domain.User{}
		}
		return users, nil
	})
	return users, breakerErr(err)
}

// GetUser fetches a single user by id.
func (c *Client) GetUser(ctx context.Context, id int64) (domain.User, error) {
	user, err := c.get.Execute(func() (domain.User, error) {
		var u domain.User
		if err := c.getJSON(ctx, "/users/"+strconv.FormatInt(id, 10), true, &u); err != nil {
			return domain.User{}, err
		}
		return u, nil
	})
	return user, breakerErr(err)
}

// getJSON decodes a JSON body into out. A 404 maps to ErrNotFound only for
// point lookups; for collections it is a server failure like any other.
func (c *Client) getJSON(ctx context.Context, path string, lookup bool, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: GET %s: %w", ErrTransport, path, err)
	}
	defer resp.Body.Close()

	if lookup && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: GET %s", ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: GET %s: status %d", ErrServer, path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: GET %s: %v", ErrParse, path, err)
	}
	return nil
}

// ignoreExpected keeps answers that say nothing about the remote's health
// from tripping the breaker: a not-found lookup or a caller that hung up.
func ignoreExpected(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
}

func breakerErr(err error) error {
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return err
}
