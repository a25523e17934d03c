package domain

// SiteConfig is the public site configuration (/system/config) merged with the
// admin-only fields (/admin/config).
type SiteConfig struct {
	SiteTitle        string `json:"site_title"`
	FaviconAPI       string `json:"favicon_api"`
	CustomStyles     string `json:"custom_styles"`
	CustomScripts    string `json:"custom_scripts"`
	RiskKeywords     string `json:"risk_keywords,omitempty"`
	RegistrationOpen bool   `json:"registration_open"`
}

type SystemStatus struct {
	IsInitialized bool   `json:"is_initialized"`
	Status        string `json:"status"`
}

// CustomCode is the CSS/JS injected into every dashboard page
type CustomCode struct {
	CustomStyles  string `json:"custom_styles"`
	CustomScripts string `json:"custom_scripts"`
}

// SiteInfo is a partial update of the site title and favicon template.
type SiteInfo struct {
	SiteTitle  string
	FaviconAPI string
}

func (s SiteInfo) Empty() bool {
	return s.SiteTitle == "" && s.FaviconAPI == ""
}
