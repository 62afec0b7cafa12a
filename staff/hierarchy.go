package staff

import (
	"fmt"
	"sort"
)

// Hierarchy is the supervisor tree. Each node has at most one parent and
// no node is its own ancestor.
type Hierarchy struct {
	parent   map[ID]ID
	children map[ID]map[ID]struct{}
}

// NewHierarchy builds the tree from stored profiles. Links that would close
// a loop are refused, which only happens with data written around Service.
func NewHierarchy(profiles []Profile) (*Hierarchy, error) {
	h := &Hierarchy{
		parent:   make(map[ID]ID, len(profiles)),
		children: make(map[ID]map[ID]struct{}),
	}
	for _, p := range profiles {
		h.ensure(p.ID)
	}
	for _, p := range profiles {
		if p.SupervisorID == "" {
			continue
		}
		if err := h.SetSupervisor(p.ID, p.SupervisorID); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hierarchy) ensure(id ID) {
	if _, ok := h.children[id]; !ok {
		h.children[id] = make(map[ID]struct{})
	}
}

// Supervisor returns the parent of id, or "" for a root.
func (h *Hierarchy) Supervisor(id ID) ID { return h.parent[id] }

// Subordinates returns direct reports sorted by id.
func (h *Hierarchy) Subordinates(id ID) []ID {
	out := make([]ID, 0, len(h.children[id]))
	for c := range h.children[id] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Chain returns the supervisors of id, nearest first.
func (h *Hierarchy) Chain(id ID) []ID {
	var out []ID
	seen := map[ID]bool{id: true}
	for cur := h.parent[id]; cur != ""; cur = h.parent[cur] {
		if seen[cur] {
			break
		}
		seen[cur] = true
		out = append(out, cur)
	}
	return out
}

// IsAncestor reports whether a is somewhere above b.
func (h *Hierarchy) IsAncestor(a, b ID) bool {
	for _, up := range h.Chain(b) {
		if up == a {
			return true
		}
	}
	return false
}

// SetSupervisor links id under supervisor. An empty supervisor detaches id.
func (h *Hierarchy) SetSupervisor(id, supervisor ID) error {
	h.ensure(id)
	if supervisor == "" {
		h.detach(id)
		return nil
	}
	if supervisor == id || h.IsAncestor(id, supervisor) {
		return fmt.Errorf("%w: %s under %s", ErrSupervisorCycle, id, supervisor)
	}
	h.ensure(supervisor)
	h.detach(id)
	h.parent[id] = supervisor
	h.children[supervisor][id] = struct{}{}
	return nil
}

func (h *Hierarchy) detach(id ID) {
	if old, ok := h.parent[id]; ok {
		delete(h.children[old], id)
		delete(h.parent, id)
	}
}
