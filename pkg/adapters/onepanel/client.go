// Package onepanel is a typed client for the OnePanel REST API.
package onepanel

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
	"golang.org/x/oauth2"
)

const DefaultTimeout = 15 * time.Second

// Client talks to the backend on behalf of one session. The bearer token is
// read from the session right before every request.
type Client struct {
	baseURL string
	client  *http.Client
	session ports.SessionStore
}

func NewClient(baseURL string, session ports.SessionStore, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		session: session,
	}
}

// WithSession returns a client for another session sharing the same
// transport.
func (c *Client) WithSession(session ports.SessionStore) *Client {
	cp := *c
	cp.session = session
	return &cp
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, v any) (request, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return request{}, err
	}
	return request{method: method, path: path, body: bytes.NewReader(raw), contentType: "application/json"}, nil
}

func formRequest(method, path string, form url.Values) request {
	return request{method: method, path: path, body: strings.NewReader(form.Encode()), contentType: "application/x-www-form-urlencoded"}
}

func multipartRequest(path string, file ports.Upload, fields map[string]string) (request, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return request{}, err
		}
	}
	part, err := w.CreateFormFile("file", file.Filename)
	if err != nil {
		return request{}, err
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return request{}, fmt.Errorf("read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return request{}, err
	}
	return request{method: http.MethodPost, path: path, body: &buf, contentType: w.FormDataContentType()}, nil
}

// do sends req and decodes a 2xx body into out when out is non-nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, req.body)
	if err != nil {
		return err
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.session != nil {
		token, err := c.session.Token(ctx)
		if err != nil {
			return fmt.Errorf("read session token: %w", err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %w", req.method, req.path, ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w: %w", req.method, req.path, ErrUnavailable, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if c.session != nil {
			if err := c.session.Clear(ctx); err != nil {
				slog.Warn("Failed to clear session after 401", "error", err)
			}
		}
		return fmt.Errorf("%s %s: %w", req.method, req.path, ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s %s: %w: %v", req.method, req.path, ErrMalformedResponse, err)
	}
	return nil
}

// getList decodes a JSON array; anything else, null included, is malformed.
func getList[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	var raw json.RawMessage
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &raw); err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("GET %s: %w: expected an array", path, ErrMalformedResponse)
	}
	var out []T
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("GET %s: %w: %v", path, ErrMalformedResponse, err)
	}
	return out, nil
}

type message struct {
	Msg    string `json:"msg"`
	Detail string `json:"detail"`
}

func (m message) text() string {
	if m.Msg != "" {
		return m.Msg
	}
	return m.Detail
}

// Auth & system

func (c *Client) Login(ctx context.Context, username, password string) (*domain.Token, error) {
	return c.passwordGrant(ctx, "/login", username, password)
}

func (c *Client) AdminLogin(ctx context.Context, username, password string) (*domain.Token, error) {
	return c.passwordGrant(ctx, "/admin/login", username, password)
}

func (c *Client) passwordGrant(ctx context.Context, path, username, password string) (*domain.Token, error) {
	conf := &oauth2.Config{
		Endpoint: oauth2.Endpoint{
			TokenURL:  c.baseURL + path,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)

	tok, err := conf.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return nil, newAPIError(re.Response.StatusCode, re.Body)
		}
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	return &domain.Token{AccessToken: tok.AccessToken, TokenType: tok.TokenType}, nil
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	req, err := jsonRequest(http.MethodPost, "/register", map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

func (c *Client) SystemStatus(ctx context.Context) (*domain.SystemStatus, error) {
	var status domain.SystemStatus
	if err := c.do(ctx, request{method: http.MethodGet, path: "/system/status"}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) InitSystem(ctx context.Context, username, password string) error {
	query := url.Values{"username": {username}, "password": {password}}
	return c.do(ctx, request{method: http.MethodPost, path: "/system/init", query: query}, nil)
}

// SiteConfig reads the public key/value config, where every value is a string.
func (c *Client) SiteConfig(ctx context.Context) (*domain.SiteConfig, error) {
	var kv map[string]any
	if err := c.do(ctx, request{method: http.MethodGet, path: "/system/config"}, &kv); err != nil {
		return nil, err
	}
	return siteConfigFromMap(kv), nil
}

func siteConfigFromMap(kv map[string]any) *domain.SiteConfig {
	str := func(key string) string {
		switch v := kv[key].(type) {
		case string:
			return v
		case nil:
			return ""
		default:
			return fmt.Sprint(v)
		}
	}
	open := false
	switch v := kv["registration_open"].(type) {
	case bool:
		open = v
	case string:
		open, _ = strconv.ParseBool(v)
	}
	return &domain.SiteConfig{
		SiteTitle:        str("site_title"),
		FaviconAPI:       str("favicon_api"),
		CustomStyles:     str("custom_styles"),
		CustomScripts:    str("custom_scripts"),
		RiskKeywords:     str("risk_keywords"),
		RegistrationOpen: open,
	}
}

// Current user

func (c *Client) Me(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/user/me"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateMe(ctx context.Context, update domain.UserUpdate) (*domain.User, error) {
	req, err := jsonRequest(http.MethodPut, "/user/me", update)
	if err != nil {
		return nil, err
	}
	var user domain.User
	if err := c.do(ctx, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UploadBackground(ctx context.Context, file ports.Upload) (string, error) {
	req, err := multipartRequest("/user/background", file, nil)
	if err != nil {
		return "", err
	}
	var res struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, req, &res); err != nil {
		return "", err
	}
	return res.URL, nil
}

// Groups

func (c *Client) Groups(ctx context.Context) ([]domain.Group, error) {
	return getList[domain.Group](ctx, c, "/groups/")
}

func (c *Client) PublicGroups(ctx context.Context) ([]domain.Group, error) {
	return getList[domain.Group](ctx, c, "/groups/public")
}

func (c *Client) SelectableGroups(ctx context.Context) ([]domain.Group, error) {
	return getList[domain.Group](ctx, c, "/groups/selectable")
}

func (c *Client) CreateGroup(ctx context.Context, name string) (*domain.Group, error) {
	var group domain.Group
	req := request{method: http.MethodPost, path: "/groups/", query: url.Values{"name": {name}}}
	if err := c.do(ctx, req, &group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (c *Client) RenameGroup(ctx context.Context, id int64, name string) error {
	req := request{method: http.MethodPut, path: "/groups/" + strconv.FormatInt(id, 10), query: url.Values{"name": {name}}}
	return c.do(ctx, req, nil)
}

func (c *Client) DeleteGroup(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/groups/" + strconv.FormatInt(id, 10)}, nil)
}

func (c *Client) ReorderGroups(ctx context.Context, groupIDs []int64) error {
	if groupIDs == nil {
		groupIDs = []int64{}
	}
	req, err := jsonRequest(http.MethodPut, "/groups/reorder", groupIDs)
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

// Links

func (c *Client) CreateLink(ctx context.Context, link domain.NewLink) (*domain.Link, error) {
	req, err := jsonRequest(http.MethodPost, "/links/", link)
	if err != nil {
		return nil, err
	}
	var created domain.Link
	if err := c.do(ctx, req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) DeleteLink(ctx context.Context, id int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/links/" + strconv.FormatInt(id, 10)}, nil)
}

func (c *Client) ReorderLinks(ctx context.Context, order domain.LinkOrder) error {
	if order.LinkIDs == nil {
		order.LinkIDs = []int64{}
	}
	req, err := jsonRequest(http.MethodPut, "/links/reorder", order)
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

type iconResponse struct {
	IconURL string `json:"icon_url"`
}

func (c *Client) UploadIcon(ctx context.Context, file ports.Upload, linkID int64) (string, error) {
	fields := map[string]string{}
	if linkID > 0 {
		fields["link_id"] = strconv.FormatInt(linkID, 10)
	}
	req, err := multipartRequest("/links/upload-icon", file, fields)
	if err != nil {
		return "", err
	}
	var res iconResponse
	if err := c.do(ctx, req, &res); err != nil {
		return "", err
	}
	return res.IconURL, nil
}

func (c *Client) DownloadIcon(ctx context.Context, iconURL string, linkID int64) (string, error) {
	form := url.Values{"url": {iconURL}}
	if linkID > 0 {
		form.Set("link_id", strconv.FormatInt(linkID, 10))
	}
	var res iconResponse
	if err := c.do(ctx, formRequest(http.MethodPost, "/links/download-icon", form), &res); err != nil {
		return "", err
	}
	return res.IconURL, nil
}

var _ ports.OnePanelAPI = (*Client)(nil)
