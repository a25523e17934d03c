package domain

// UserAction is an admin operation on a user account
type UserAction string

const (
	ActionDisable    UserAction = "disable"
	ActionEnable     UserAction = "enable"
	ActionSetAdmin   UserAction = "set_admin"
	ActionUnsetAdmin UserAction = "unset_admin"
)

func (a UserAction) Valid() bool {
	switch a {
	case ActionDisable, ActionEnable, ActionSetAdmin, ActionUnsetAdmin:
		return true
	}
	return false
}

type UserPage struct {
	Items []User `json:"items"`
	Total int    `json:"total"`
	Page  int    `json:"page"`
	Size  int    `json:"size"`
}

// AdminLink is a link as listed in the admin console, with its owner and risk rating
type AdminLink struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	Owner     string `json:"owner"`
	RiskScore string `json:"risk_score"`
}

func (l AdminLink) HighRisk() bool {
	return l.RiskScore == "high"
}

type LinkPage struct {
	Items []AdminLink `json:"items"`
	Total int         `json:"total"`
	Page  int         `json:"page"`
	Size  int         `json:"size"`
}

// UnusedIcon is an icon file on the backend no link references anymore
type UnusedIcon struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     string `json:"size"`
}
