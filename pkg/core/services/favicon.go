package services

import (
	"net/url"
	"strings"

	"github.com/wadjakorntonsri/onepanel-web/pkg/config"
	"github.com/wadjakorntonsri/onepanel-web/pkg/core/domain"
)

const hostnamePlaceholder = "${hostname}"

// FaviconResolver derives a link's icon from its hostname via a URL template.
type FaviconResolver struct {
	Template    string
	DefaultIcon string
}

func NewFaviconResolver(template string) FaviconResolver {
	if strings.TrimSpace(template) == "" {
		template = config.DefaultFaviconAPI
	}
	return FaviconResolver{Template: template, DefaultIcon: config.DefaultLinkIcon}
}

// URL returns the favicon URL for rawURL, or the default icon when rawURL has
// no parsable host.
func (f FaviconResolver) URL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return f.defaultIcon()
	}
	template := f.Template
	if template == "" {
		template = config.DefaultFaviconAPI
	}
	return strings.Replace(template, hostnamePlaceholder, u.Hostname(), 1)
}

// Icon prefers the link's own icon over the derived favicon.
func (f FaviconResolver) Icon(link domain.Link) string {
	if icon := strings.TrimSpace(link.Icon); icon != "" {
		return icon
	}
	return f.URL(link.URL)
}

func (f FaviconResolver) defaultIcon() string {
	if f.DefaultIcon == "" {
		return config.DefaultLinkIcon
	}
	return f.DefaultIcon
}
