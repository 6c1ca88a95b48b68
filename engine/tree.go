package engine

import (
	"errors"
	"fmt"

	"github.com/sadikovi/pulsar/models"
)

// ErrNotComputed is returned by Summary before the first aggregation pass.
// Asking for counts that were never computed is a caller bug, not a zero.
var ErrNotComputed = errors.New("priority summaries have not been computed")

// ErrUnknownRegion is returned for lookups of ids outside the tree.
var ErrUnknownRegion = errors.New("unknown region")

// ErrNoRegions rejects datasets with an empty region set.
var ErrNoRegions = errors.New("dataset has no regions")

// DuplicateRegionError is a fatal integrity error: two records share an id.
type DuplicateRegionError struct {
	ID string
}

func (e *DuplicateRegionError) Error() string {
	return fmt.Sprintf("duplicate region id %q", e.ID)
}

// OrphanOfferError is a fatal integrity error: an offer targets a region
// that does not exist in the tree.
type OrphanOfferError struct {
	OfferID  string
	RegionID string
}

func (e *OrphanOfferError) Error() string {
	return fmt.Sprintf("offer %q targets unknown region %q", e.OfferID, e.RegionID)
}

// AggregateResult reports one aggregation pass: how many offers were
// classified into the summaries and how many were excluded as
// unclassifiable.
type AggregateResult struct {
	Classified int
	Excluded   int
}

type attachedOffer struct {
	offer *models.Offer
	band  models.Band
}

// Tree is the indexed region hierarchy: every region is reachable from the
// single root and addressable by id. It owns summary computation; navigation
// is layered on top by Session.
type Tree struct {
	root     *models.Region
	index    map[string]*models.Region
	parent   map[string]string
	attached map[string][]attachedOffer
	promoted []string
	synth    bool
	computed bool
}

// BuildTree assembles the hierarchy from flat parent-id records. Records
// with an empty, self-referencing, or unknown parent become roots; multiple
// roots hang under a synthesized "All regions" root so the tree always has a
// single entry point. Parent cycles are broken by promoting the region that
// closes the cycle to a root; promoted ids are recorded for callers to log.
// Duplicate ids are fatal.
func BuildTree(records []models.RegionRecord) (*Tree, error) {
	if len(records) == 0 {
		return nil, ErrNoRegions
	}

	index := make(map[string]*models.Region, len(records))
	order := make([]*models.Region, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			return nil, fmt.Errorf("region %q has an empty id", rec.Name)
		}
		if _, dup := index[rec.ID]; dup {
			return nil, &DuplicateRegionError{ID: rec.ID}
		}
		node := &models.Region{ID: rec.ID, Name: rec.Name, Desc: rec.Desc}
		index[rec.ID] = node
		order = append(order, node)
	}

	parent := make(map[string]string, len(records))
	var roots []*models.Region
	for i, rec := range records {
		node := order[i]
		p, ok := index[rec.Parent]
		if rec.Parent == "" || rec.Parent == rec.ID || !ok {
			roots = append(roots, node)
			continue
		}
		p.Children = append(p.Children, node)
		parent[rec.ID] = rec.Parent
	}

	reachable := make(map[string]bool, len(order))
	var mark func(r *models.Region)
	mark = func(r *models.Region) {
		if reachable[r.ID] {
			return
		}
		reachable[r.ID] = true
		for _, c := range r.Children {
			mark(c)
		}
	}
	for _, r := range roots {
		mark(r)
	}

	// Anything still unreachable sits in or under a parent cycle. Walk up
	// from each such region until the path revisits itself; the region that
	// closes the cycle is cut loose and promoted to a root.
	var promoted []string
	for _, node := range order {
		if reachable[node.ID] {
			continue
		}
		onPath := map[string]bool{node.ID: true}
		cur := node
		for {
			pid, ok := parent[cur.ID]
			if !ok {
				break
			}
			if onPath[pid] {
				entry := index[pid]
				detach(index[parent[entry.ID]], entry)
				delete(parent, entry.ID)
				roots = append(roots, entry)
				promoted = append(promoted, entry.ID)
				mark(entry)
				break
			}
			onPath[pid] = true
			cur = index[pid]
		}
	}

	var root *models.Region
	synth := false
	if len(roots) == 1 {
		root = roots[0]
	} else {
		rootID := "all"
		if _, taken := index[rootID]; taken {
			rootID = "all-regions"
			if _, taken := index[rootID]; taken {
				return nil, fmt.Errorf("cannot synthesize root: ids \"all\" and \"all-regions\" are taken")
			}
		}
		root = &models.Region{ID: rootID, Name: "All regions"}
		root.Children = append(root.Children, roots...)
		index[rootID] = root
		for _, r := range roots {
			parent[r.ID] = rootID
		}
		synth = true
	}

	var assign func(r *models.Region, level int)
	assign = func(r *models.Region, level int) {
		r.Level = level
		for _, c := range r.Children {
			assign(c, level+1)
		}
	}
	assign(root, 0)

	return &Tree{
		root:     root,
		index:    index,
		parent:   parent,
		attached: make(map[string][]attachedOffer),
		promoted: promoted,
		synth:    synth,
	}, nil
}

func detach(p *models.Region, child *models.Region) {
	if p == nil {
		return
	}
	for i, c := range p.Children {
		if c == child {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			return
		}
	}
}

// Root returns the tree's single entry point.
func (t *Tree) Root() *models.Region {
	return t.root
}

// Lookup resolves a region by id.
func (t *Tree) Lookup(id string) (*models.Region, bool) {
	r, ok := t.index[id]
	return r, ok
}

// Len returns the number of regions, including any synthesized root.
func (t *Tree) Len() int {
	return len(t.index)
}

// Promoted lists region ids that were cut out of parent cycles during the
// build, oldest first. Callers surface these as data-quality warnings.
func (t *Tree) Promoted() []string {
	return t.promoted
}

// HasSyntheticRoot reports whether the root was synthesized over multiple
// top-level records.
func (t *Tree) HasSyntheticRoot() bool {
	return t.synth
}

// Aggregate recomputes every region summary in one post-order pass over the
// tree plus one pass over the offers: O(offers + regions). An offer whose
// target is missing from the tree aborts the pass before any state changes.
// Unclassifiable offers are excluded and counted, never attached. Calling
// Aggregate again fully replaces the previous pass; nothing stale survives.
func (t *Tree) Aggregate(offers []*models.Offer, c *Classifier) (AggregateResult, error) {
	if c == nil {
		return AggregateResult{}, fmt.Errorf("classifier is required")
	}
	for _, o := range offers {
		if _, ok := t.index[o.Target]; !ok {
			return AggregateResult{}, &OrphanOfferError{OfferID: o.ID, RegionID: o.Target}
		}
	}

	for _, r := range t.index {
		r.Summary = models.PrioritySummary{}
	}
	t.attached = make(map[string][]attachedOffer)

	var res AggregateResult
	for _, o := range offers {
		band, err := c.ClassifyOffer(o)
		if err != nil {
			res.Excluded++
			continue
		}
		t.attached[o.Target] = append(t.attached[o.Target], attachedOffer{offer: o, band: band})
		res.Classified++
	}

	t.sumUp(t.root)
	t.computed = true
	return res, nil
}

// sumUp computes the subtree summary: children first, then the region's own
// attached offers.
func (t *Tree) sumUp(r *models.Region) models.PrioritySummary {
	var sum models.PrioritySummary
	for _, child := range r.Children {
		sum.Merge(t.sumUp(child))
	}
	for _, entry := range t.attached[r.ID] {
		sum.Add(entry.band)
	}
	r.Summary = sum
	return sum
}

// Summary returns the computed counts for a region. It fails with
// ErrNotComputed before the first Aggregate and ErrUnknownRegion for ids
// outside the tree. A zero summary is a real answer, not an error.
func (t *Tree) Summary(id string) (models.PrioritySummary, error) {
	if !t.computed {
		return models.PrioritySummary{}, ErrNotComputed
	}
	r, ok := t.index[id]
	if !ok {
		return models.PrioritySummary{}, fmt.Errorf("%w: %s", ErrUnknownRegion, id)
	}
	return r.Summary, nil
}

// OffersOf returns the offers attached to a region by the last aggregation
// pass, in attachment order. Excluded offers are not attached.
func (t *Tree) OffersOf(id string) []*models.Offer {
	entries := t.attached[id]
	out := make([]*models.Offer, len(entries))
	for i, e := range entries {
		out[i] = e.offer
	}
	return out
}
