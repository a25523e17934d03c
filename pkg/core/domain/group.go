package domain

// PublicGroupID is the shared group every user sees. Only admins may change it;
// everyone else can only hide it for themselves.
const PublicGroupID int64 = 1

// Group is a named, ordered collection of links
type Group struct {
	ID       int64  `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Position int    `json:"order" yaml:"order"`
	UserID   int64  `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Links    []Link `json:"links" yaml:"links"`
}

func (g Group) IsPublic() bool {
	return g.ID == PublicGroupID
}

// LinkIDs returns the ids of the group's links in display order.
func (g Group) LinkIDs() []int64 {
	ids := make([]int64, 0, len(g.Links))
	for _, l := range g.Links {
		ids = append(ids, l.ID)
	}
	return ids
}
