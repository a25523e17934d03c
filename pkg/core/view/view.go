// Package view holds the typed view models the render engine produces. They
// carry every decision the templates need, so templates never compute
// permissions and rendering can be tested without a browser.
package view

import "fmt"

type State int

const (
	StateGroups State = iota
	StateEmpty
	StateError
)

func (s State) String() string {
	switch s {
	case StateGroups:
		return "groups"
	case StateEmpty:
		return "empty"
	case StateError:
		return "error"
	}
	return "unknown"
}

// Viewer is who the dashboard was rendered for
type Viewer struct {
	Authenticated bool
	IsAdmin       bool
	UserID        int64
	Username      string
	Background    string
	PublicHidden  bool
}

type Dashboard struct {
	State    State
	Viewer   Viewer
	Sortable bool
	Groups   []Group
	// Message is the placeholder text for the empty and error states.
	Message string
}

type Group struct {
	ID          int64
	NodeID      string
	Name        string
	IsPublic    bool
	Readonly    bool
	CanHide     bool
	CanDelete   bool
	CanDrag     bool
	CanRename   bool
	ShowAddHint bool
	Links       []Link
}

func (g Group) Empty() bool {
	return len(g.Links) == 0
}

type Link struct {
	ID           int64
	NodeID       string
	GroupID      int64
	Title        string
	URL          string
	Icon         string
	FallbackIcon string
	Deletable    bool
}

func GroupNodeID(id int64) string {
	return fmt.Sprintf("group-%d", id)
}

func LinkNodeID(id int64) string {
	return fmt.Sprintf("link-%d", id)
}

// LinkCount is the total number of links on the dashboard.
func (d Dashboard) LinkCount() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Links)
	}
	return n
}

// Group looks up a rendered group by id.
func (d Dashboard) Group(id int64) (Group, bool) {
	for _, g := range d.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return Group{}, false
}
