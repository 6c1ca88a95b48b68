package models

// Region is a node of the geographic hierarchy. Children are ordered as
// loaded. Summary is rewritten wholesale by every aggregation pass; it is
// never updated incrementally.
type Region struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Desc     string          `json:"desc,omitempty"`
	Level    int             `json:"level"`
	Children []*Region       `json:"children,omitempty"`
	Summary  PrioritySummary `json:"priorityGroups"`
}

// IsLeaf reports whether the region has no child regions. Leaf regions are
// the usual offer targets, though offers may attach to any region.
func (r *Region) IsLeaf() bool {
	return len(r.Children) == 0
}

// RegionRecord is the flat wire and storage form of a region: hierarchy is
// expressed through the parent id, empty for roots.
type RegionRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Desc   string `json:"desc,omitempty"`
	Parent string `json:"parent,omitempty"`
}
