package profile

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

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/rs/zerolog"
)

const maxErrorBody = 512

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("profile service unavailable")

type ClientConfig struct {
	BaseURL         string
	Collection      string
	Timeout         time.Duration
	BreakerFailures uint
	BreakerDelay    time.Duration
	HTTPClient      *http.Client
	Logger          zerolog.Logger
}

// Client talks to a PocketBase-style records API:
//
//	GET   {base}/api/collections/{collection}/records/{id}
//	PATCH {base}/api/collections/{collection}/records/{id}
//
// Requests go through a circuit breaker and are never retried.
type Client struct {
	baseURL    *url.URL
	collection string
	http       *http.Client
	auth       *AuthStore
	executor   failsafe.Executor[*http.Response]
	logger     zerolog.Logger
}

func NewClient(cfg ClientConfig, auth *AuthStore) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("profile base url must be absolute: %q", cfg.BaseURL)
	}
	if cfg.Collection == "" {
		cfg.Collection = "users"
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerDelay <= 0 {
		cfg.BreakerDelay = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if auth == nil {
		auth = NewAuthStore()
	}

	logger := cfg.Logger.With().Str("component", "profile_client").Logger()
	breaker := circuitbreaker.NewBuilder[*http.Response]().
		WithFailureThreshold(cfg.BreakerFailures).
		WithDelay(cfg.BreakerDelay).
		WithSuccessThreshold(1).
		HandleIf(func(resp *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp != nil && resp.StatusCode >= 500
		}).
		OnStateChanged(func(event circuitbreaker.StateChangedEvent) {
			logger.Warn().
				Str("from_state", stateName(event.OldState)).
				Str("to_state", stateName(event.NewState)).
				Msg("Profile service circuit breaker state change")
		}).
		Build()

	return &Client{
		baseURL:    base,
		collection: cfg.Collection,
		http:       httpClient,
		auth:       auth,
		executor:   failsafe.With[*http.Response](breaker),
		logger:     logger,
	}, nil
}

// CurrentUser fetches the record of the token's user. No token, an expired
// token, or a 401/403 answer all mean nobody is signed in.
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	token, userID, ok := c.auth.Token()
	if !ok {
		return nil, nil
	}

	resp, err := c.do(ctx, http.MethodGet, c.recordPath(c.collection, userID), token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.Warn().Int("status", resp.StatusCode).Str("user_id", userID).Msg("Profile service rejected auth token")
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, statusError(http.MethodGet, c.recordPath(c.collection, userID), resp)
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode user record: %w", err)
	}
	if user.ID == "" {
		user.ID = userID
	}
	return &user, nil
}

func (c *Client) UpdateFields(ctx context.Context, collection, userID string, fields map[string]string) error {
	token, _, ok := c.auth.Token()
	if !ok {
		return fmt.Errorf("update %s/%s: not signed in", collection, userID)
	}
	if collection == "" {
		collection = c.collection
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	path := c.recordPath(collection, userID)
	resp, err := c.do(ctx, http.MethodPatch, path, token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(http.MethodPatch, path, resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body []byte) (*http.Response, error) {
	endpoint := c.baseURL.JoinPath(path)

	resp, err := c.executor.WithContext(ctx).Get(func() (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		return c.http.Do(req)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, fmt.Errorf("%s %s: %w", method, path, ErrUnavailable)
		}
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func stateName(state circuitbreaker.State) string {
	switch state {
	case circuitbreaker.ClosedState:
		return "closed"
	case circuitbreaker.HalfOpenState:
		return "half-open"
	case circuitbreaker.OpenState:
		return "open"
	default:
		return "unknown"
	}
}

func (c *Client) recordPath(collection, userID string) string {
	return "/api/collections/" + url.PathEscape(collection) + "/records/" + url.PathEscape(userID)
}

func statusError(method, path string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(data)),
	}
}
