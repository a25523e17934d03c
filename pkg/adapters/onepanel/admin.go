package onepanel

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

func userPath(id int64, suffix string) string {
	return "/admin/users/" + strconv.FormatInt(id, 10) + suffix
}

func pageQuery(page, size int, query string) url.Values {
	return url.Values{
		"page": {strconv.Itoa(page)},
		"size": {strconv.Itoa(size)},
		"q":    {query},
	}
}

func (c *Client) AdminConfig(ctx context.Context) (*domain.SiteConfig, error) {
	var kv map[string]any
	if err := c.do(ctx, request{method: http.MethodGet, path: "/admin/config"}, &kv); err != nil {
		return nil, err
	}
	return siteConfigFromMap(kv), nil
}

func (c *Client) SetRegistration(ctx context.Context, open bool) error {
	query := url.Values{"open": {strconv.FormatBool(open)}}
	return c.do(ctx, request{method: http.MethodPost, path: "/admin/config/registration", query: query}, nil)
}

// UpdateSiteInfo sends only the fields that are set; the backend ignores
// blank ones.
func (c *Client) UpdateSiteInfo(ctx context.Context, info domain.SiteInfo) error {
	form := url.Values{}
	if info.SiteTitle != "" {
		form.Set("site_title", info.SiteTitle)
	}
	if info.FaviconAPI != "" {
		form.Set("favicon_api", info.FaviconAPI)
	}
	return c.do(ctx, formRequest(http.MethodPost, "/admin/config/site-info", form), nil)
}

func (c *Client) ListUsers(ctx context.Context, page, size int, query string) (*domain.UserPage, error) {
	var res domain.UserPage
	req := request{method: http.MethodGet, path: "/admin/users", query: pageQuery(page, size, query)}
	if err := c.do(ctx, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) UserAction(ctx context.Context, userID int64, action domain.UserAction) (string, error) {
	form := url.Values{"action": {string(action)}}
	var res message
	if err := c.do(ctx, formRequest(http.MethodPost, userPath(userID, "/action"), form), &res); err != nil {
		return "", err
	}
	return res.text(), nil
}

func (c *Client) ResetPassword(ctx context.Context, userID int64, password string) error {
	form := url.Values{"new_password": {password}}
	return c.do(ctx, formRequest(http.MethodPost, userPath(userID, "/reset-password"), form), nil)
}

func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	return c.do(ctx, request{method: http.MethodDelete, path: userPath(userID, "")}, nil)
}

func (c *Client) ListLinks(ctx context.Context, page, size int, query string) (*domain.LinkPage, error) {
	var res domain.LinkPage
	req := request{method: http.MethodGet, path: "/admin/links", query: pageQuery(page, size, query)}
	if err := c.do(ctx, req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) RiskKeywords(ctx context.Context) (string, error) {
	var res struct {
		Keywords string `json:"keywords"`
	}
	if err := c.do(ctx, request{method: http.MethodGet, path: "/admin/config/risk-keywords"}, &res); err != nil {
		return "", err
	}
	return res.Keywords, nil
}

func (c *Client) SetRiskKeywords(ctx context.Context, keywords string) error {
	req, err := jsonRequest(http.MethodPost, "/admin/config/risk-keywords", map[string]string{"keywords": keywords})
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

func (c *Client) UnusedIcons(ctx context.Context) ([]domain.UnusedIcon, error) {
	return getList[domain.UnusedIcon](ctx, c, "/admin/unused-icons")
}

func (c *Client) DeleteUnusedIcons(ctx context.Context, filenames []string) (string, error) {
	if filenames == nil {
		filenames = []string{}
	}
	req, err := jsonRequest(http.MethodDelete, "/admin/unused-icons", map[string][]string{"filenames": filenames})
	if err != nil {
		return "", err
	}
	var res message
	if err := c.do(ctx, req, &res); err != nil {
		return "", err
	}
	return res.text(), nil
}

func (c *Client) CustomCode(ctx context.Context) (*domain.CustomCode, error) {
	var code domain.CustomCode
	if err := c.do(ctx, request{method: http.MethodGet, path: "/admin/config/custom-code"}, &code); err != nil {
		return nil, err
	}
	return &code, nil
}

func (c *Client) SaveCustomCode(ctx context.Context, code domain.CustomCode) error {
	req, err := jsonRequest(http.MethodPost, "/admin/config/custom-code", code)
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}

var _ ports.AdminAPI = (*Client)(nil)
