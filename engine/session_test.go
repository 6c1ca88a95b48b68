package engine

import (
	"errors"
	"testing"

	"github.com/sadikovi/pulsar/models"
)

// Four-level hierarchy for navigation tests: world > country > city > area.
func navRecords() []models.RegionRecord {
	return []models.RegionRecord{
		{ID: "world", Name: "World"},
		{ID: "th", Name: "Thailand", Parent: "world"},
		{ID: "uk", Name: "United Kingdom", Parent: "world"},
		{ID: "bkk", Name: "Bangkok", Parent: "th"},
		{ID: "cnx", Name: "Chiang Mai", Parent: "th"},
		{ID: "sukhumvit", Name: "Sukhumvit", Parent: "bkk"},
		{ID: "sathorn", Name: "Sathorn", Parent: "bkk"},
		{ID: "london", Name: "London", Parent: "uk"},
	}
}

func navOffers() []*models.Offer {
	return []*models.Offer{
		offer("s1", "sukhumvit", 290000), // A
		offer("s2", "sukhumvit", 330000), // C
		offer("s3", "sathorn", 320000),   // B
		offer("l1", "london", 315000),    // A
		offer("c1", "cnx", 0),            // excluded
	}
}

func newNavSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(navRecords(), navOffers(), Options{ReferencePrice: 300000})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func nodeIDs(g *models.VisibleGraph) []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func hasNode(g *models.VisibleGraph, id string) bool {
	for _, n := range g.Nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}

func findNode(g *models.VisibleGraph, id string) *models.GraphNode {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

func findEdge(g *models.VisibleGraph, source, target string) *models.GraphEdge {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target {
			return e
		}
	}
	return nil
}

func wantNodes(t *testing.T, g *models.VisibleGraph, want ...string) {
	t.Helper()
	got := nodeIDs(g)
	if len(got) != len(want) {
		t.Fatalf("nodes: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("nodes: got %v, want %v", got, want)
		}
	}
}

// sameSlice asserts reference equality of the node and edge sets.
func sameSlice(t *testing.T, got, want *models.VisibleGraph) {
	t.Helper()
	if len(got.Nodes) != len(want.Nodes) || len(got.Edges) != len(want.Edges) {
		t.Fatalf("slice shape: got %d/%d nodes/edges, want %d/%d",
			len(got.Nodes), len(got.Edges), len(want.Nodes), len(want.Edges))
	}
	for i := range want.Nodes {
		if got.Nodes[i] != want.Nodes[i] {
			t.Fatalf("node %d is not the same reference", i)
		}
	}
	for i := range want.Edges {
		if got.Edges[i] != want.Edges[i] {
			t.Fatalf("edge %d is not the same reference", i)
		}
	}
}

// checkConnected asserts the visible slice is a tree hanging off root: every
// other node is the target of exactly one edge.
func checkConnected(t *testing.T, g *models.VisibleGraph, root string) {
	t.Helper()
	if len(g.Edges) != len(g.Nodes)-1 {
		t.Fatalf("edges: got %d for %d nodes, want %d", len(g.Edges), len(g.Nodes), len(g.Nodes)-1)
	}
	targets := make(map[string]int)
	for _, e := range g.Edges {
		targets[e.Target]++
	}
	for _, n := range g.Nodes {
		if n.ID == root {
			if targets[n.ID] != 0 {
				t.Fatalf("root %s must not be an edge target", root)
			}
			continue
		}
		if targets[n.ID] != 1 {
			t.Fatalf("node %s has %d incoming edges, want 1", n.ID, targets[n.ID])
		}
	}
}

func TestSessionInitialSlice(t *testing.T) {
	s := newNavSession(t)
	g := s.Graph()

	wantNodes(t, g, "world", "th", "uk")
	checkConnected(t, g, "world")

	world := findNode(g, "world")
	if world.Collapsed {
		t.Error("root must start expanded")
	}
	if world.PriorityGroups == nil {
		t.Fatal("region node must carry its summary")
	}
	want := models.PrioritySummary{Acceptable: 2, Considerable: 1, Expensive: 1}
	if *world.PriorityGroups != want {
		t.Errorf("world summary: got %+v, want %+v", *world.PriorityGroups, want)
	}

	th := findNode(g, "th")
	if !th.Collapsed {
		t.Error("children of the root start collapsed")
	}

	if s.Classified() != 4 || s.Excluded() != 1 {
		t.Errorf("classified/excluded: got %d/%d, want 4/1", s.Classified(), s.Excluded())
	}
	if s.CanZoomOut() {
		t.Error("fresh session must not allow zoom out")
	}
}

func TestSessionDrilldown(t *testing.T) {
	s := newNavSession(t)

	g, ok := s.Drilldown("th")
	if !ok {
		t.Fatal("drilldown th should succeed")
	}
	wantNodes(t, g, "world", "th", "bkk", "cnx", "uk")
	checkConnected(t, g, "world")

	if e := findEdge(g, "th", "bkk"); e == nil || e.Priority != "A" {
		t.Errorf("th->bkk edge: %+v", e)
	}

	// Misuse is a no-op returning false.
	if _, ok := s.Drilldown("th"); ok {
		t.Error("drilldown of an expanded region must fail")
	}
	if _, ok := s.Drilldown("sathorn"); ok {
		t.Error("drilldown of a hidden region must fail")
	}
	if _, ok := s.Drilldown("ghost"); ok {
		t.Error("drilldown of an unknown id must fail")
	}
	after := s.Graph()
	wantNodes(t, after, "world", "th", "bkk", "cnx", "uk")
}

func TestSessionDrilldownRevealsOffers(t *testing.T) {
	s := newNavSession(t)
	s.Drilldown("th")
	s.Drilldown("bkk")

	g, ok := s.Drilldown("sathorn")
	if !ok {
		t.Fatal("drilldown sathorn should succeed")
	}
	if !hasNode(g, "s3") {
		t.Fatalf("expected offer s3 in slice, have %v", nodeIDs(g))
	}
	checkConnected(t, g, "world")

	node := findNode(g, "s3")
	if node.Kind != models.NodeOffer {
		t.Errorf("s3 kind: got %s", node.Kind)
	}
	if node.Properties == nil || node.Properties.Price != 320000 {
		t.Errorf("s3 must carry raw properties, got %+v", node.Properties)
	}
	if node.Band != "B" {
		t.Errorf("s3 band: got %s, want B", node.Band)
	}
	if e := findEdge(g, "sathorn", "s3"); e == nil || e.Priority != "B" {
		t.Errorf("sathorn->s3 edge: %+v", e)
	}

	// A leaf with no children and no offers is not expandable.
	sbkk := findEdge(g, "bkk", "sathorn")
	if sbkk == nil || sbkk.Priority != "B" {
		t.Errorf("bkk->sathorn edge priority: %+v", sbkk)
	}
}

func TestSessionDrilldownUnexpandable(t *testing.T) {
	records := append(navRecords(), models.RegionRecord{ID: "empty", Name: "Empty", Parent: "world"})
	s, err := NewSession(records, navOffers(), Options{ReferencePrice: 300000})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if _, ok := s.Drilldown("empty"); ok {
		t.Error("a leaf with no children and no offers must not expand")
	}
}

func TestSessionRollup(t *testing.T) {
	s := newNavSession(t)
	s.Drilldown("th")
	s.Drilldown("bkk")
	s.Drilldown("sukhumvit")

	g, ok := s.Rollup("th")
	if !ok {
		t.Fatal("rollup th should succeed")
	}
	wantNodes(t, g, "world", "th", "uk")
	checkConnected(t, g, "world")

	// The rollup cascades: re-expanding th must not bring back the deeper
	// expansions.
	g, _ = s.Drilldown("th")
	wantNodes(t, g, "world", "th", "bkk", "cnx", "uk")
	if bkk := findNode(g, "bkk"); !bkk.Collapsed {
		t.Error("bkk must come back collapsed after the cascading rollup")
	}
}

func TestSessionRollupMisuse(t *testing.T) {
	s := newNavSession(t)
	if _, ok := s.Rollup("th"); ok {
		t.Error("rollup of a collapsed region must fail")
	}
	if _, ok := s.Rollup("ghost"); ok {
		t.Error("rollup of an unknown id must fail")
	}
}

func TestSessionRollupRoot(t *testing.T) {
	s := newNavSession(t)
	g, ok := s.Rollup("world")
	if !ok {
		t.Fatal("rollup of the current root is allowed")
	}
	wantNodes(t, g, "world")
	if len(g.Edges) != 0 {
		t.Errorf("bare root slice has no edges, got %d", len(g.Edges))
	}
}

func TestSessionZoomRoundTrip(t *testing.T) {
	s := newNavSession(t)
	s.Drilldown("th")
	before := s.Graph()

	g, ok := s.ZoomIn("bkk")
	if !ok {
		t.Fatal("zoom into bkk should succeed")
	}
	wantNodes(t, g, "bkk", "sukhumvit", "sathorn")
	checkConnected(t, g, "bkk")
	if !s.CanZoomOut() {
		t.Error("CanZoomOut after a zoom")
	}

	restored := s.ZoomOut(1)
	sameSlice(t, restored, before)
	if s.CanZoomOut() {
		t.Error("stack should be empty after the round trip")
	}
}

func TestSessionZoomInMisuse(t *testing.T) {
	s := newNavSession(t)

	cases := []string{
		"world",     // already the root
		"sukhumvit", // not visible
		"london",    // not visible
		"ghost",     // unknown
	}
	for _, id := range cases {
		if _, ok := s.ZoomIn(id); ok {
			t.Errorf("ZoomIn(%s) should fail", id)
		}
	}
	if s.Depth() != 0 {
		t.Errorf("failed zooms must not touch the stack, depth=%d", s.Depth())
	}

	s.Drilldown("th")
	// cnx is visible but has no child regions to zoom into.
	if _, ok := s.ZoomIn("cnx"); ok {
		t.Error("ZoomIn on a childless region should fail")
	}
}

func TestSessionZoomOutClamps(t *testing.T) {
	s := newNavSession(t)
	original := s.Graph()

	if _, ok := s.ZoomIn("th"); !ok {
		t.Fatal("zoom th")
	}
	if _, ok := s.ZoomIn("bkk"); !ok {
		t.Fatal("zoom bkk")
	}
	if s.Depth() != 2 {
		t.Fatalf("depth: got %d, want 2", s.Depth())
	}

	restored := s.ZoomOut(10)
	sameSlice(t, restored, original)
	if s.Depth() != 0 {
		t.Errorf("depth after clamped zoom out: %d", s.Depth())
	}

	// Zooming out with nothing stacked is a harmless no-op.
	again := s.ZoomOut(1)
	sameSlice(t, again, original)
}

func TestSessionZoomOutIntermediate(t *testing.T) {
	s := newNavSession(t)
	s.ZoomIn("th")
	mid := s.Graph()
	s.ZoomIn("bkk")

	restored := s.ZoomOut(1)
	sameSlice(t, restored, mid)
	crumbs := s.Breadcrumbs()
	if len(crumbs) != 2 || crumbs[1].ID != "th" {
		t.Errorf("breadcrumbs after partial zoom out: %v", crumbs)
	}
}

func TestSessionSelection(t *testing.T) {
	s := newNavSession(t)

	if ok := s.Select("th"); !ok {
		t.Fatal("select th")
	}
	if id, ok := s.Selected(); !ok || id != "th" {
		t.Errorf("selected: %s %v", id, ok)
	}

	// Selecting a hidden node fails and keeps the prior selection.
	if ok := s.Select("sukhumvit"); ok {
		t.Error("selecting a hidden node should fail")
	}
	if id, _ := s.Selected(); id != "th" {
		t.Errorf("selection must survive a failed select, got %s", id)
	}

	// Replacing and clearing.
	s.Select("uk")
	if id, _ := s.Selected(); id != "uk" {
		t.Errorf("selection should be replaced, got %s", id)
	}
	s.Deselect()
	if _, ok := s.Selected(); ok {
		t.Error("deselect should clear the selection")
	}
}

func TestSessionSelectionDroppedWhenHidden(t *testing.T) {
	s := newNavSession(t)
	s.Drilldown("th")
	s.Select("bkk")

	s.Rollup("th")
	if _, ok := s.Selected(); ok {
		t.Error("selection must drop when the node leaves the slice")
	}
}

func TestSessionSelectionRestoredByZoomOut(t *testing.T) {
	s := newNavSession(t)
	s.Drilldown("th")
	s.Select("cnx")

	s.ZoomIn("bkk")
	if _, ok := s.Selected(); ok {
		t.Error("selection should drop when zooming away from it")
	}

	s.ZoomOut(1)
	if id, ok := s.Selected(); !ok || id != "cnx" {
		t.Errorf("selection should be restored with the snapshot, got %q %v", id, ok)
	}
}

func TestSessionBreadcrumbs(t *testing.T) {
	s := newNavSession(t)

	crumbs := s.Breadcrumbs()
	if len(crumbs) != 1 || crumbs[0].ID != "world" || crumbs[0].Level != 0 {
		t.Fatalf("initial crumbs: %v", crumbs)
	}

	s.ZoomIn("th")
	s.ZoomIn("bkk")
	crumbs = s.Breadcrumbs()
	if len(crumbs) != 3 {
		t.Fatalf("crumbs after two zooms: %v", crumbs)
	}
	for i, want := range []string{"world", "th", "bkk"} {
		if crumbs[i].ID != want || crumbs[i].Level != i {
			t.Errorf("crumb %d: got %+v, want %s at level %d", i, crumbs[i], want, i)
		}
	}
}

func TestSessionCanZoomIn(t *testing.T) {
	s := newNavSession(t)

	tests := []struct {
		id   string
		want bool
	}{
		{"world", false}, // current root
		{"th", true},
		{"uk", true},
		{"bkk", false},   // not visible yet
		{"ghost", false}, // unknown
	}
	for _, tt := range tests {
		if got := s.CanZoomIn(tt.id); got != tt.want {
			t.Errorf("CanZoomIn(%s): got %v, want %v", tt.id, got, tt.want)
		}
	}

	s.Drilldown("th")
	if !s.CanZoomIn("bkk") {
		t.Error("bkk should be zoomable once visible")
	}
	if s.CanZoomIn("cnx") {
		t.Error("cnx has no child regions and is not zoomable")
	}
}

func TestSessionReset(t *testing.T) {
	s := newNavSession(t)
	initial := s.Graph()

	s.ZoomIn("th")
	s.Drilldown("bkk")
	s.Select("bkk")

	g := s.Reset()
	wantNodes(t, g, "world", "th", "uk")
	if s.Depth() != 0 {
		t.Errorf("depth after reset: %d", s.Depth())
	}
	if _, ok := s.Selected(); ok {
		t.Error("reset must clear the selection")
	}
	// A reset rebuilds rather than restores; shape matches the initial
	// slice even though references may differ.
	if len(g.Nodes) != len(initial.Nodes) {
		t.Errorf("reset slice: %v", nodeIDs(g))
	}
}

func TestSessionReprice(t *testing.T) {
	s := newNavSession(t)
	s.ZoomIn("th")
	s.Select("bkk")

	if err := s.Reprice(1000000); err != nil {
		t.Fatalf("Reprice: %v", err)
	}
	if s.Reference() != 1000000 {
		t.Errorf("reference: got %v", s.Reference())
	}
	if s.Depth() != 0 || s.CanZoomOut() {
		t.Error("reprice must reset navigation")
	}
	if _, ok := s.Selected(); ok {
		t.Error("reprice must clear the selection")
	}

	// Every priced offer is acceptable against the new reference; nothing
	// stale may survive anywhere in the tree.
	world, err := s.Tree().Summary("world")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if world != (models.PrioritySummary{Acceptable: 4}) {
		t.Errorf("world after reprice: %+v", world)
	}
	suk, _ := s.Tree().Summary("sukhumvit")
	if suk != (models.PrioritySummary{Acceptable: 2}) {
		t.Errorf("sukhumvit after reprice: %+v", suk)
	}
	if node := findNode(s.Graph(), "world"); *node.PriorityGroups != world {
		t.Errorf("rendered summary is stale: %+v", *node.PriorityGroups)
	}
}

func TestSessionRepriceBadReference(t *testing.T) {
	s := newNavSession(t)
	s.ZoomIn("th")

	if err := s.Reprice(-5); !errors.Is(err, ErrBadReference) {
		t.Fatalf("got %v, want ErrBadReference", err)
	}
	// Failed reprice leaves the session untouched.
	if s.Reference() != 300000 || s.Depth() != 1 {
		t.Errorf("failed reprice mutated state: ref=%v depth=%d", s.Reference(), s.Depth())
	}
}

func TestNewSessionErrors(t *testing.T) {
	if _, err := NewSession(nil, nil, Options{ReferencePrice: 100}); !errors.Is(err, ErrNoRegions) {
		t.Errorf("empty records: got %v, want ErrNoRegions", err)
	}

	if _, err := NewSession(navRecords(), nil, Options{ReferencePrice: 0}); !errors.Is(err, ErrBadReference) {
		t.Errorf("zero reference: got %v, want ErrBadReference", err)
	}

	orphans := []*models.Offer{offer("x", "atlantis", 100000)}
	_, err := NewSession(navRecords(), orphans, Options{ReferencePrice: 300000})
	var orphan *OrphanOfferError
	if !errors.As(err, &orphan) {
		t.Errorf("orphan offer: got %v, want OrphanOfferError", err)
	}
}

func TestNewSessionCustomPolicy(t *testing.T) {
	strict := Policy{AcceptableMax: 1.001, ConsiderableMax: 1.002, Weights: DefaultPolicy().Weights}
	s, err := NewSession(navRecords(), navOffers(), Options{ReferencePrice: 300000, Policy: &strict})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	world, _ := s.Tree().Summary("world")
	// Under the strict policy only s1 (290000) stays acceptable.
	want := models.PrioritySummary{Acceptable: 1, Considerable: 0, Expensive: 3}
	if world != want {
		t.Errorf("world under strict policy: got %+v, want %+v", world, want)
	}
}
