package pocketbase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"crmgateway/internal/config"
	"crmgateway/internal/domain"
	apperrors "crmgateway/internal/errors"
)

// HTTPClient abstracts http.Client.Do for tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Option func(*Client)

func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// Client talks to the PocketBase records API. It holds one superuser token,
// obtained lazily and refreshed when it expires or is rejected.
type Client struct {
	baseURL        string
	authCollection string
	identity       string
	password       string
	tokenTTL       time.Duration
	maxRetries     int
	backoff        time.Duration
	httpClient     HTTPClient
	logger         *zap.Logger
	now            func() time.Time

	mu              sync.Mutex
	token           string
	authenticatedAt time.Time
	expiresAt       time.Time
}

func NewClient(cfg config.PocketBaseConfig, logger *zap.Logger, opts ...Option) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		baseURL:        cfg.URL,
		authCollection: cfg.AuthCollection,
		identity:       cfg.Identity,
		password:       cfg.Password,
		tokenTTL:       cfg.TokenTTL,
		maxRetries:     cfg.MaxRetries,
		backoff:        cfg.RetryBackoff,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         logger,
		now:            time.Now,
	}
	if c.authCollection == "" {
		c.authCollection = "_superusers"
	}
	if c.tokenTTL <= 0 {
		c.tokenTTL = time.Hour
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if cfg.BreakerFailures > 0 {
		c.httpClient = NewBreakerClient(c.httpClient, uint32(cfg.BreakerFailures), cfg.BreakerTimeout, logger)
	}

	return c
}

// AuthenticatedSince returns when the current token was issued, zero if none.
func (c *Client) AuthenticatedSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticatedAt
}

func (c *Client) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

type ListResult struct {
	Page       int               `json:"page"`
	PerPage    int               `json:"perPage"`
	TotalItems int               `json:"totalItems"`
	TotalPages int               `json:"totalPages"`
	Items      []json.RawMessage `json:"items"`
}

func (c *Client) Get(ctx context.Context, collection, id string, out any) error {
	return c.do(ctx, http.MethodGet, recordPath(collection, id), nil, out)
}

func (c *Client) Update(ctx context.Context, collection, id string, patch any, out any) error {
	return c.do(ctx, http.MethodPatch, recordPath(collection, id), patch, out)
}

func (c *Client) Create(ctx context.Context, collection string, body any, out any) error {
	return c.do(ctx, http.MethodPost, recordsPath(collection), body, out)
}

func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.do(ctx, http.MethodDelete, recordPath(collection, id), nil, nil)
}

func (c *Client) List(ctx context.Context, collection string, q domain.ListQuery) (*ListResult, error) {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		params.Set("perPage", strconv.Itoa(q.PerPage))
	}
	if q.Filter != "" {
		params.Set("filter", q.Filter)
	}
	if q.Sort != "" {
		params.Set("sort", q.Sort)
	}

	path := recordsPath(collection)
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var result ListResult
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do runs one API call. Network errors are retried with linear backoff; a
// rejected cached token triggers one re-authentication.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	call := func() error {
		token, err := c.ensureToken(ctx)
		if err != nil {
			return err
		}
		return c.send(ctx, method, path, payload, token, out)
	}

	err := c.withRetry(ctx, call)
	if _, ok := apperrors.IsAuthExpiredError(err); ok && c.hasCredentials() {
		c.logger.Warn("pocketbase token rejected, re-authenticating", zap.String("path", path))
		c.invalidate()
		err = c.withRetry(ctx, call)
	}
	return err
}

func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if _, ok := apperrors.IsNetworkError(err); !ok || attempt == c.maxRetries {
			return err
		}

		wait := time.Duration(attempt+1) * c.backoff
		c.logger.Warn("pocketbase network error, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("maxRetries", c.maxRetries),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

func (c *Client) hasCredentials() bool {
	return c.identity != ""
}

func (c *Client) invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.authenticatedAt = time.Time{}
	c.expiresAt = time.Time{}
}

// ensureToken returns a valid token, authenticating when none is cached or
// the cached one has expired. Without credentials requests go out anonymous.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	if !c.hasCredentials() {
		return "", nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	reqBody, err := json.Marshal(map[string]string{
		"identity": c.identity,
		"password": c.password,
	})
	if err != nil {
		return "", fmt.Errorf("encoding auth request: %w", err)
	}

	var resp struct {
		Token string `json:"token"`
	}
	path := fmt.Sprintf("/api/collections/%s/auth-with-password", url.PathEscape(c.authCollection))
	if err := c.send(ctx, http.MethodPost, path, reqBody, "", &resp); err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return "", apperrors.NewAuthExpiredError("pocketbase auth collection not found")
		}
		return "", err
	}
	if resp.Token == "" {
		return "", apperrors.NewAuthExpiredError("pocketbase returned an empty token")
	}

	now := c.now()
	c.token = resp.Token
	c.authenticatedAt = now
	c.expiresAt = now.Add(c.tokenTTL)
	c.logger.Info("pocketbase authenticated", zap.Time("expiresAt", c.expiresAt))

	return c.token, nil
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building pocketbase request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return apperrors.NewNetworkError(fmt.Sprintf("%s %s", method, path), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewNetworkError("reading pocketbase response", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		_ = json.Unmarshal(data, &apiErr)
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return apperrors.NewNotFoundError(fmt.Sprintf("pocketbase %s: %s", path, msg))
		case http.StatusUnauthorized:
			return apperrors.NewAuthExpiredError(fmt.Sprintf("pocketbase rejected credentials: %s", msg))
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return apperrors.NewNetworkError(fmt.Sprintf("%s %s", method, path), fmt.Errorf("status %d: %s", resp.StatusCode, msg))
		default:
			return apperrors.NewInternalError(fmt.Sprintf("pocketbase %s %s failed with status %d", method, path, resp.StatusCode), fmt.Errorf("%s", msg))
		}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding pocketbase response: %w", err)
	}
	return nil
}

func recordsPath(collection string) string {
	return fmt.Sprintf("/api/collections/%s/records", url.PathEscape(collection))
}

func recordPath(collection, id string) string {
	return fmt.Sprintf("%s/%s", recordsPath(collection), url.PathEscape(id))
}
