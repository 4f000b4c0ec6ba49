package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hugo-r/server-challenge/internal/convert"
	"github.com/hugo-r/server-challenge/internal/session"
)

var (
	errBadCredentials = errors.New("invalid username or password")
	errLockedOut      = errors.New("too many failed login attempts, try again later")
	errUnauthorized   = errors.New("session expired or invalid (login required)")
)

// apiError is a non-2xx answer from the server.
type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// client talks to the todo server as an API client: it sends the session
// cookie by hand and never follows redirects.
type client struct {
	base   *url.URL
	hc     *http.Client
	cookie string
	token  string
}

func newClient(addr, cookieName string, insecure bool) (*client, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	base, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("bad addr %q: %w", addr, err)
	}
	if cookieName == "" {
		cookieName = session.DefaultCookieName
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // dev only
	}
	return &client{
		base:   base,
		cookie: cookieName,
		hc: &http.Client{
			Transport: tr,
			Timeout:   30 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

func (c *client) withToken(tok string) *client {
	cp := *c
	cp.token = tok
	return &cp
}

func (c *client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: c.cookie, Value: c.token})
	}
	return req, nil
}

// do sends req and decodes a 200 JSON answer into out (if non-nil).
func (c *client) do(req *http.Request, out any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusFound:
		return errUnauthorized
	case resp.StatusCode != http.StatusOK:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &apiError{Status: resp.StatusCode, Body: string(b)}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, method, path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// login posts the form and returns the issued cookie value with its expiry.
// A zero expiry means the token carries no exp claim.
func (c *client) login(ctx context.Context, username, password string) (string, time.Time, error) {
	form := url.Values{"username": {username}, "password": {password}}
	req, err := c.newRequest(ctx, http.MethodPost, "/login", strings.NewReader(form.Encode()))
	if err != nil {
		return "", time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusFound:
	case http.StatusTooManyRequests:
		return "", time.Time{}, errLockedOut
	case http.StatusOK:
		// the login page was rendered again with a message
		return "", time.Time{}, errBadCredentials
	default:
		return "", time.Time{}, &apiError{Status: resp.StatusCode, Body: resp.Status}
	}

	for _, ck := range resp.Cookies() {
		if ck.Name == c.cookie && ck.Value != "" {
			return ck.Value, tokenExpiry(ck.Value), nil
		}
	}
	return "", time.Time{}, fmt.Errorf("login: no %s cookie in response", c.cookie)
}

// tokenExpiry reads exp without verifying the signature; only the server can.
func tokenExpiry(tok string) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(tok, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

func (c *client) logout(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/logout", nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *client) list(ctx context.Context, filter, orderBy string) ([]convert.TodoJSON, error) {
	q := url.Values{}
	if filter != "" {
		q.Set("filter", filter)
	}
	if orderBy != "" {
		q.Set("orderBy", orderBy)
	}
	path := "/todos"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var out convert.TodoList
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return out.Todos, nil
}

func (c *client) add(ctx context.Context, description string) (convert.TodoJSON, error) {
	var out convert.TodoJSON
	err := c.sendJSON(ctx, http.MethodPut, "/todos", convert.CreateRequest{Description: description}, &out)
	return out, err
}

func (c *client) patch(ctx context.Context, id int64, state, description string) (convert.TodoJSON, error) {
	var out convert.TodoJSON
	in := convert.PatchRequest{State: state, Description: description}
	err := c.sendJSON(ctx, http.MethodPatch, "/todo/"+strconv.FormatInt(id, 10), in, &out)
	return out, err
}

func (c *client) remove(ctx context.Context, id int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/todo/"+strconv.FormatInt(id, 10), nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}
