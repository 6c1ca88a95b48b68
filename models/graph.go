package models

// NodeKind distinguishes region hubs from offer leaves in the visible graph.
type NodeKind string

const (
	NodeRegion NodeKind = "region"
	NodeOffer  NodeKind = "offer"
)

// GraphNode is one displayed node of the visible slice. Region nodes carry
// their priority summary; offer nodes carry the raw listing properties and
// the band the offer classified into.
type GraphNode struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Kind           NodeKind         `json:"kind"`
	Level          int              `json:"level,omitempty"`
	Collapsed      bool             `json:"isCollapsed,omitempty"`
	PriorityGroups *PrioritySummary `json:"priorityGroups,omitempty"`
	Properties     *OfferProperties `json:"properties,omitempty"`
	Value          float64          `json:"value,omitempty"`
	Band           string           `json:"band,omitempty"`
}

// GraphEdge links a visible node to its nearest visible ancestor. Priority
// drives presentation styling: the offer's band for offer edges, the
// dominant band of the child's summary for region edges.
type GraphEdge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Priority string `json:"priority"`
}

// VisibleGraph is the slice of the hierarchy currently presented to the
// client.
type VisibleGraph struct {
	Nodes []*GraphNode `json:"nodes"`
	Edges []*GraphEdge `json:"edges"`
}

// Crumb is one entry of the zoom breadcrumb trail.
type Crumb struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}
