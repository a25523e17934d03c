package domain

// Link is a titled URL belonging to exactly one group
type Link struct {
	ID        int64  `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	URL       string `json:"url" yaml:"url"`
	Icon      string `json:"icon,omitempty" yaml:"icon,omitempty"`
	GroupID   int64  `json:"group_id" yaml:"group_id"`
	Position  int    `json:"order" yaml:"order"`
	HTTPTitle string `json:"http_title,omitempty" yaml:"http_title,omitempty"`
}

// NewLink is the payload for creating a link
type NewLink struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	GroupID int64  `json:"group_id"`
	Icon    string `json:"icon,omitempty"`
}

// LinkOrder is the authoritative replacement order of one group's links
type LinkOrder struct {
	LinkIDs []int64 `json:"link_ids"`
	GroupID int64   `json:"group_id"`
}
