// pkg/posclient/client.go
package posclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo"

	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/domain"
	"github.com/mahabubulhasibshawon/coffeeshop-pos/internal/shift"
)

var logger = loggo.GetLogger("pos.client")

// DefaultBaseURL is where a local server listens.
const DefaultBaseURL = "http://localhost:5000/api"

// Store is where the session token and user are kept between runs.
type Store = shift.Store

type Client struct {
	base  string
	http  *http.Client
	store Store

	// OnUnauthorized runs after a 401 purged the stored session.
	OnUnauthorized func()
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithUnauthorizedHandler(fn func()) Option {
	return func(c *Client) { c.OnUnauthorized = fn }
}

func New(baseURL string, store Store, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		base:  strings.TrimRight(baseURL, "/"),
		http:  &http.Client{Timeout: 30 * time.Second},
		store: store,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Token() string {
	t, _ := c.store.Get(TokenKey)
	return t
}

// CurrentUser returns the user saved at login.
func (c *Client) CurrentUser() (*domain.User, bool) {
	raw, ok := c.store.Get(UserKey)
	if !ok {
		return nil, false
	}
	var u domain.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil, false
	}
	return &u, true
}

func (c *Client) saveSession(token string, user *domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return errors.Trace(err)
	}
	if err := c.store.Set(TokenKey, token); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(c.store.Set(UserKey, string(raw)))
}

func (c *Client) clearSession() {
	for _, k := range []string{TokenKey, UserKey} {
		if err := c.store.Remove(k); err != nil {
			logger.Warningf("removing %s: %v", k, err)
		}
	}
}

// unauthorized purges the session after any 401 and hands over to the hook.
func (c *Client) unauthorized() {
	c.clearSession()
	if c.OnUnauthorized != nil {
		c.OnUnauthorized()
	}
}

type envelope struct {
	Success    bool               `json:"success"`
	Message    string             `json:"message"`
	Data       json.RawMessage    `json:"data"`
	Errors     []string           `json:"errors"`
	Pagination *domain.Pagination `json:"pagination"`
}

// errorFor turns an error envelope back into a typed error.
func errorFor(status int, env envelope) error {
	msg := env.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	if len(env.Errors) > 0 {
		msg = msg + ": " + strings.Join(env.Errors, "; ")
	}
	switch status {
	case http.StatusBadRequest:
		return errors.NewNotValid(nil, msg)
	case http.StatusUnauthorized:
		return errors.NewUnauthorized(nil, msg)
	case http.StatusForbidden:
		return errors.NewForbidden(nil, msg)
	case http.StatusNotFound:
		return errors.NewNotFound(nil, msg)
	case http.StatusTooManyRequests:
		return errors.NewQuotaLimitExceeded(nil, msg)
	}
	return errors.Errorf("server error %d: %s", status, msg)
}

// do sends one API call and decodes the envelope's data into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (*envelope, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Trace(err)
		}
		rd = bytes.NewReader(raw)
	}
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, errors.Trace(err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Annotatef(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.unauthorized()
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode == http.StatusUnauthorized {
			return nil, errors.NewUnauthorized(err, http.StatusText(resp.StatusCode))
		}
		return nil, errors.Annotatef(err, "decoding %s %s (status %d)", method, path, resp.StatusCode)
	}
	if resp.StatusCode >= 400 || !env.Success {
		return nil, errorFor(resp.StatusCode, env)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, errors.Annotatef(err, "decoding data of %s %s", method, path)
		}
	}
	return &env, nil
}

func pageOf(env *envelope) domain.Pagination {
	if env == nil || env.Pagination == nil {
		return domain.Pagination{}
	}
	return *env.Pagination
}

func pageQuery(p domain.Page) url.Values {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", fmt.Sprint(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", fmt.Sprint(p.Limit))
	}
	return q
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}
