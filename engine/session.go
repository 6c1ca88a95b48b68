package engine

import (
	"github.com/sadikovi/pulsar/models"
)

// Options configure one exploration session.
type Options struct {
	// ReferencePrice anchors classification; it must be positive.
	ReferencePrice float64
	// Policy overrides the default threshold table when non-nil.
	Policy *Policy
}

// Session owns the navigation state of one exploration: the aggregated tree,
// the current root, the expanded set, the visible slice, the zoom stack, and
// the selection. All methods are synchronous and single-threaded; callers
// serialize access. Navigation misuse never fails hard: operations return
// false and leave the slice untouched.
type Session struct {
	tree       *Tree
	offers     []*models.Offer
	classifier *Classifier
	result     AggregateResult

	currentRoot *models.Region
	expanded    map[string]bool
	nodes       []*models.GraphNode
	edges       []*models.GraphEdge
	visible     map[string]struct{}
	stack       Stack
	selected    string
}

// NewSession builds the tree, aggregates summaries, and opens the session at
// the root slice. Integrity errors (no regions, duplicate ids, orphan
// offers) and a bad reference price are fatal here; unclassifiable offers
// are excluded and reported through Excluded.
func NewSession(records []models.RegionRecord, offers []*models.Offer, opts Options) (*Session, error) {
	policy := DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	classifier, err := NewClassifier(policy, opts.ReferencePrice)
	if err != nil {
		return nil, err
	}
	tree, err := BuildTree(records)
	if err != nil {
		return nil, err
	}
	result, err := tree.Aggregate(offers, classifier)
	if err != nil {
		return nil, err
	}

	s := &Session{
		tree:       tree,
		offers:     offers,
		classifier: classifier,
		result:     result,
	}
	s.resetView()
	return s, nil
}

// Tree exposes the aggregated hierarchy for summary lookups and reports.
func (s *Session) Tree() *Tree {
	return s.tree
}

// Reference returns the active reference price.
func (s *Session) Reference() float64 {
	return s.classifier.Reference()
}

// Policy returns the active threshold table.
func (s *Session) Policy() Policy {
	return s.classifier.policy
}

// Classified returns how many offers the summaries cover.
func (s *Session) Classified() int {
	return s.result.Classified
}

// Excluded returns how many offers were dropped as unclassifiable.
func (s *Session) Excluded() int {
	return s.result.Excluded
}

// Graph returns the current visible slice. The slices are replaced, never
// mutated, on navigation, so a held reference stays consistent.
func (s *Session) Graph() *models.VisibleGraph {
	return &models.VisibleGraph{Nodes: s.nodes, Edges: s.edges}
}

// CanZoomIn reports whether the region can become the new root: it must be
// visible, have at least one child region, and not already be the root.
func (s *Session) CanZoomIn(id string) bool {
	r, ok := s.tree.Lookup(id)
	if !ok || r == s.currentRoot {
		return false
	}
	return s.isVisible(id) && len(r.Children) > 0
}

// CanZoomOut reports whether there is a zoom to undo.
func (s *Session) CanZoomOut() bool {
	return s.stack.Len() > 0
}

// ZoomIn re-roots the slice at the region: the current state is pushed onto
// the stack and the new slice shows the region expanded over its immediate
// children. Returns false without side effects when the region cannot be
// zoomed into.
func (s *Session) ZoomIn(id string) (*models.VisibleGraph, bool) {
	if !s.CanZoomIn(id) {
		return s.Graph(), false
	}
	target, _ := s.tree.Lookup(id)
	s.stack.Push(s.snapshot())
	s.currentRoot = target
	s.expanded = map[string]bool{id: true}
	s.rebuild()
	return s.Graph(), true
}

// ZoomOut undoes up to steps zoom-ins, restoring the exact slice that was
// visible before the oldest zoom undone. Steps beyond the stack depth clamp
// to the original root slice; with an empty stack the call is a no-op. It
// never fails.
func (s *Session) ZoomOut(steps int) *models.VisibleGraph {
	popped := s.stack.Pop(steps)
	if len(popped) == 0 {
		return s.Graph()
	}
	s.restore(popped[len(popped)-1])
	return s.Graph()
}

// Drilldown expands a visible, collapsed region in place: its child regions
// and directly attached offers join the slice. The stack is not involved.
// Returns false for unknown, hidden, already expanded, or unexpandable
// regions.
func (s *Session) Drilldown(id string) (*models.VisibleGraph, bool) {
	r, ok := s.tree.Lookup(id)
	if !ok || !s.isVisible(id) || s.expanded[id] {
		return s.Graph(), false
	}
	if len(r.Children) == 0 && len(s.tree.attached[id]) == 0 {
		return s.Graph(), false
	}
	s.expanded[id] = true
	s.rebuild()
	return s.Graph(), true
}

// Rollup collapses a visible, expanded region back to its summarized form,
// folding away its entire expanded subtree. The stack is not involved.
func (s *Session) Rollup(id string) (*models.VisibleGraph, bool) {
	r, ok := s.tree.Lookup(id)
	if !ok || !s.isVisible(id) || !s.expanded[id] {
		return s.Graph(), false
	}
	s.collapse(r)
	s.rebuild()
	return s.Graph(), true
}

// Select marks a visible node as selected, replacing any prior selection.
func (s *Session) Select(id string) bool {
	if !s.isVisible(id) {
		return false
	}
	s.selected = id
	return true
}

// Deselect clears the selection.
func (s *Session) Deselect() {
	s.selected = ""
}

// Selected returns the selected node id, if any.
func (s *Session) Selected() (string, bool) {
	return s.selected, s.selected != ""
}

// Breadcrumbs returns the zoom trail: stacked roots oldest first, ending
// with the current root.
func (s *Session) Breadcrumbs() []models.Crumb {
	crumbs := make([]models.Crumb, 0, s.stack.Len()+1)
	for _, snap := range s.stack.entries {
		crumbs = append(crumbs, models.Crumb{ID: snap.Root.ID, Name: snap.Root.Name, Level: snap.Root.Level})
	}
	crumbs = append(crumbs, models.Crumb{ID: s.currentRoot.ID, Name: s.currentRoot.Name, Level: s.currentRoot.Level})
	return crumbs
}

// Depth returns the zoom stack depth.
func (s *Session) Depth() int {
	return s.stack.Len()
}

// Reset discards all navigation state and returns to the original root
// slice.
func (s *Session) Reset() *models.VisibleGraph {
	s.stack.Clear()
	s.resetView()
	return s.Graph()
}

// Reprice runs a new search over the same data: every summary is recomputed
// against the new reference price and navigation starts over at the root.
// Nothing from the previous search survives.
func (s *Session) Reprice(referencePrice float64) error {
	classifier, err := NewClassifier(s.classifier.policy, referencePrice)
	if err != nil {
		return err
	}
	result, err := s.tree.Aggregate(s.offers, classifier)
	if err != nil {
		return err
	}
	s.classifier = classifier
	s.result = result
	s.stack.Clear()
	s.resetView()
	return nil
}

func (s *Session) resetView() {
	s.currentRoot = s.tree.Root()
	s.expanded = map[string]bool{s.currentRoot.ID: true}
	s.selected = ""
	s.rebuild()
}

func (s *Session) isVisible(id string) bool {
	_, ok := s.visible[id]
	return ok
}

// snapshot copies the mutable expansion state; node and edge slices are
// shared because rebuild replaces them instead of mutating.
func (s *Session) snapshot() Snapshot {
	expanded := make(map[string]bool, len(s.expanded))
	for id, v := range s.expanded {
		expanded[id] = v
	}
	return Snapshot{
		Root:     s.currentRoot,
		Nodes:    s.nodes,
		Edges:    s.edges,
		Expanded: expanded,
		Selected: s.selected,
	}
}

func (s *Session) restore(snap Snapshot) {
	s.currentRoot = snap.Root
	s.expanded = snap.Expanded
	s.nodes = snap.Nodes
	s.edges = snap.Edges
	s.selected = snap.Selected
	s.visible = make(map[string]struct{}, len(snap.Nodes))
	for _, n := range snap.Nodes {
		s.visible[n.ID] = struct{}{}
	}
}

func (s *Session) collapse(r *models.Region) {
	delete(s.expanded, r.ID)
	for _, c := range r.Children {
		s.collapse(c)
	}
}

// rebuild derives the visible slice from the current root and expanded set.
// Every non-root node gets exactly one edge to its parent in the slice, so
// the result is always a connected tree. An expanded region shows its child
// regions first, then its own offers; a collapsed region is a summarized
// hub. The selection is dropped if it left the slice.
func (s *Session) rebuild() {
	var nodes []*models.GraphNode
	var edges []*models.GraphEdge

	var walk func(r *models.Region, parentID string)
	walk = func(r *models.Region, parentID string) {
		collapsed := !s.expanded[r.ID]
		nodes = append(nodes, regionNode(r, collapsed))
		if parentID != "" {
			edges = append(edges, &models.GraphEdge{
				Source:   parentID,
				Target:   r.ID,
				Priority: r.Summary.Dominant().String(),
			})
		}
		if collapsed {
			return
		}
		for _, child := range r.Children {
			walk(child, r.ID)
		}
		for _, entry := range s.tree.attached[r.ID] {
			nodes = append(nodes, offerNode(entry.offer, entry.band))
			edges = append(edges, &models.GraphEdge{
				Source:   r.ID,
				Target:   entry.offer.ID,
				Priority: entry.band.String(),
			})
		}
	}
	walk(s.currentRoot, "")

	s.nodes = nodes
	s.edges = edges
	s.visible = make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		s.visible[n.ID] = struct{}{}
	}
	if s.selected != "" && !s.isVisible(s.selected) {
		s.selected = ""
	}
}

// regionNode freezes the region's summary into the node so a held slice
// keeps the counts it was built with.
func regionNode(r *models.Region, collapsed bool) *models.GraphNode {
	summary := r.Summary
	return &models.GraphNode{
		ID:             r.ID,
		Name:           r.Name,
		Kind:           models.NodeRegion,
		Level:          r.Level,
		Collapsed:      collapsed,
		PriorityGroups: &summary,
	}
}

func offerNode(o *models.Offer, band models.Band) *models.GraphNode {
	props := o.Properties
	return &models.GraphNode{
		ID:         o.ID,
		Name:       o.Name,
		Kind:       models.NodeOffer,
		Properties: &props,
		Value:      o.Value,
		Band:       band.String(),
	}
}
