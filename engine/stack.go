package engine

import "github.com/sadikovi/pulsar/models"

// Snapshot captures the navigation state saved by a zoom-in: the slice is
// stored by reference, so restoring yields the exact node and edge sets that
// were visible before the zoom.
type Snapshot struct {
	Root     *models.Region
	Nodes    []*models.GraphNode
	Edges    []*models.GraphEdge
	Expanded map[string]bool
	Selected string
}

// Stack is the plain LIFO of navigation snapshots. It is not a general
// container: only the operations navigation needs exist, and underflow is
// clamped rather than failed.
type Stack struct {
	entries []Snapshot
}

// Push appends a snapshot.
func (s *Stack) Push(snap Snapshot) {
	s.entries = append(s.entries, snap)
}

// Pop removes up to n of the most recent snapshots and returns them most
// recent first; the last element is the deepest state removed. n beyond the
// depth clamps, n below one removes nothing.
func (s *Stack) Pop(n int) []Snapshot {
	if n <= 0 || len(s.entries) == 0 {
		return nil
	}
	if n > len(s.entries) {
		n = len(s.entries)
	}
	cut := len(s.entries) - n
	popped := make([]Snapshot, 0, n)
	for i := len(s.entries) - 1; i >= cut; i-- {
		popped = append(popped, s.entries[i])
	}
	s.entries = s.entries[:cut]
	return popped
}

// Top returns the most recent snapshot without removing it.
func (s *Stack) Top() (Snapshot, bool) {
	if len(s.entries) == 0 {
		return Snapshot{}, false
	}
	return s.entries[len(s.entries)-1], true
}

// Len returns the stack depth.
func (s *Stack) Len() int {
	return len(s.entries)
}

// Clear drops every snapshot.
func (s *Stack) Clear() {
	s.entries = nil
}
