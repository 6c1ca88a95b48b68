package services

import (
	"testing"
)

func TestRegionIndexBuildsChain(t *testing.T) {
	idx := NewRegionIndex()
	target := idx.Target("Sukhumvit, Bangkok, Thailand")
	if target != "sukhumvit" {
		t.Fatalf("target: got %q, want %q", target, "sukhumvit")
	}
	if idx.Len() != 3 {
		t.Fatalf("Len: got %d, want 3", idx.Len())
	}

	// Parents come before children so the records load in one pass.
	records := idx.Records()
	wantParents := map[string]string{
		"thailand":  "",
		"bangkok":   "thailand",
		"sukhumvit": "bangkok",
	}
	for i, id := range []string{"thailand", "bangkok", "sukhumvit"} {
		rec := records[i]
		if rec.ID != id {
			t.Errorf("records[%d].ID: got %q, want %q", i, rec.ID, id)
		}
		if rec.Parent != wantParents[id] {
			t.Errorf("records[%d].Parent: got %q, want %q", i, rec.Parent, wantParents[id])
		}
	}
	if records[1].Name != "Bangkok" {
		t.Errorf("records[1].Name: got %q, want %q", records[1].Name, "Bangkok")
	}
}

func TestRegionIndexReusesChain(t *testing.T) {
	idx := NewRegionIndex()
	a := idx.Target("Sukhumvit, Bangkok, Thailand")
	b := idx.Target("Sathorn, Bangkok, Thailand")
	if a == b {
		t.Errorf("distinct areas share id %q", a)
	}
	// thailand and bangkok are shared, only sathorn is new.
	if idx.Len() != 4 {
		t.Errorf("Len: got %d, want 4", idx.Len())
	}
	if again := idx.Target("Sukhumvit, Bangkok, Thailand"); again != a {
		t.Errorf("repeat lookup: got %q, want %q", again, a)
	}
	if idx.Len() != 4 {
		t.Errorf("Len after repeat: got %d, want 4", idx.Len())
	}
}

func TestRegionIndexIgnoresCase(t *testing.T) {
	idx := NewRegionIndex()
	a := idx.Target("Bangkok, Thailand")
	b := idx.Target("BANGKOK, THAILAND")
	if a != b {
		t.Errorf("case variants split the chain: %q vs %q", a, b)
	}
	if idx.Len() != 2 {
		t.Errorf("Len: got %d, want 2", idx.Len())
	}
}

func TestRegionIndexUnlocated(t *testing.T) {
	idx := NewRegionIndex()
	for _, loc := range []string{"", "   ", ",,"} {
		if got := idx.Target(loc); got != UnlocatedID {
			t.Errorf("Target(%q): got %q, want %q", loc, got, UnlocatedID)
		}
	}
	if idx.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", idx.Len())
	}
	if rec := idx.Records()[0]; rec.Parent != "" {
		t.Errorf("unlocated parent: got %q, want root", rec.Parent)
	}
}

func TestRegionIndexSlugCollision(t *testing.T) {
	idx := NewRegionIndex()
	a := idx.Target("Springfield, Illinois, USA")
	b := idx.Target("Springfield, Missouri, USA")
	if a != "springfield" {
		t.Errorf("first leaf: got %q, want %q", a, "springfield")
	}
	if b != "springfield-2" {
		t.Errorf("second leaf: got %q, want %q", b, "springfield-2")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Bangkok", "bangkok"},
		{"Chiang Mai", "chiang-mai"},
		{"St. John's", "st-john-s"},
		{"  Phuket  ", "phuket"},
		{"曼谷", "region"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.name); got != tt.want {
			t.Errorf("Slugify(%q): got %q, want %q", tt.name, got, tt.want)
		}
	}
}
