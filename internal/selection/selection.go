// Package selection tracks which snapshots a user has picked, keyed by
// snapshot timestamp.
package selection

import "github.com/intraceai/archive-viewer/pkg/models"

// Set is an insertion-ordered set of snapshot identities. The zero value
// is empty and ready to use. A Set is not safe for concurrent use.
type Set struct {
	order []string
	index map[string]struct{}
}

func New(ids ...string) *Set {
	s := &Set{}
	for _, id := range ids {
		s.add(id)
	}
	return s
}

func (s *Set) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Set) Len() int {
	return len(s.order)
}

// IDs returns the selected identities in the order they were selected.
func (s *Set) IDs() []string {
	return append([]string{}, s.order...)
}

func (s *Set) Clear() {
	s.order = nil
	s.index = nil
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Set) Toggle(id string) bool {
	if s.Contains(id) {
		s.remove(id)
		return false
	}
	s.add(id)
	return true
}

// ToggleAll clears the set when every snapshot in list is selected and
// otherwise replaces the selection with exactly the snapshots in list.
func (s *Set) ToggleAll(list []models.Snapshot) {
	if s.AllSelected(list) {
		s.Clear()
		return
	}
	s.Clear()
	for _, snap := range list {
		s.add(snap.Timestamp)
	}
}

// AllSelected reports whether every snapshot in list is selected. It is
// vacuously true for an empty list.
func (s *Set) AllSelected(list []models.Snapshot) bool {
	for _, snap := range list {
		if !s.Contains(snap.Timestamp) {
			return false
		}
	}
	return true
}

// Retain drops every identity that is not present in list.
func (s *Set) Retain(list []models.Snapshot) {
	present := make(map[string]struct{}, len(list))
	for _, snap := range list {
		present[snap.Timestamp] = struct{}{}
	}
	kept := s.order[:0]
	for _, id := range s.order {
		if _, ok := present[id]; ok {
			kept = append(kept, id)
		} else {
			delete(s.index, id)
		}
	}
	s.order = kept
}

// Resolve returns the selected snapshots of list, in list order.
func (s *Set) Resolve(list []models.Snapshot) []models.Snapshot {
	out := make([]models.Snapshot, 0, s.Len())
	for _, snap := range list {
		if s.Contains(snap.Timestamp) {
			out = append(out, snap)
		}
	}
	return out
}

func (s *Set) add(id string) {
	if s.Contains(id) {
		return
	}
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	s.index[id] = struct{}{}
	s.order = append(s.order, id)
}

func (s *Set) remove(id string) {
	delete(s.index, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
