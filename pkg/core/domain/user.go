package domain

import (
	"strconv"
	"strings"
)

// User is the current viewer as returned by /user/me
type User struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	IsAdmin      bool    `json:"is_admin"`
	IsActive     bool    `json:"is_active"`
	CustomBG     *string `json:"custom_bg"`
	HiddenGroups string  `json:"hidden_groups"`
}

// Background returns the user's background or fallback when unset.
func (u User) Background(fallback string) string {
	if u.CustomBG == nil || strings.TrimSpace(*u.CustomBG) == "" {
		return fallback
	}
	return *u.CustomBG
}

func (u User) Hidden() HiddenGroups {
	return ParseHiddenGroups(u.HiddenGroups)
}

// UserUpdate is a partial update; nil fields are left untouched by the backend.
type UserUpdate struct {
	CustomBG     *string `json:"custom_bg,omitempty"`
	HiddenGroups *string `json:"hidden_groups,omitempty"`
}

// HiddenGroups is the per-user set of hidden group ids, stored by the backend
// as a comma-joined string.
type HiddenGroups struct {
	ids []int64
}

func ParseHiddenGroups(raw string) HiddenGroups {
	var h HiddenGroups
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		if !h.Contains(id) {
			h.ids = append(h.ids, id)
		}
	}
	return h
}

func (h HiddenGroups) Contains(id int64) bool {
	for _, v := range h.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Toggle flips membership of id and reports whether it is now hidden.
func (h *HiddenGroups) Toggle(id int64) bool {
	for i, v := range h.ids {
		if v == id {
			h.ids = append(h.ids[:i:i], h.ids[i+1:]...)
			return false
		}
	}
	h.ids = append(h.ids, id)
	return true
}

func (h HiddenGroups) Len() int {
	return len(h.ids)
}

func (h HiddenGroups) String() string {
	parts := make([]string, len(h.ids))
	for i, id := range h.ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// Token is the result of a successful login
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
