package tether

import "github.com/akmonengine/tether/actor"

// Set keeps unique values in insertion order.
type Set[T comparable] struct {
	index map[T]struct{}
	items []T
}

// Insert adds v and reports whether it was new.
func (s *Set[T]) Insert(v T) bool {
	if s.index == nil {
		s.index = make(map[T]struct{})
	}
	if _, ok := s.index[v]; ok {
		return false
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

func (s *Set[T]) Contains(v T) bool {
	_, ok := s.index[v]
	return ok
}

func (s *Set[T]) Len() int {
	return len(s.items)
}

// Items returns the values in insertion order. The slice is shared.
func (s *Set[T]) Items() []T {
	return s.items
}

func (s *Set[T]) Clear() {
	clear(s.index)
	s.items = s.items[:0]
}

// GroupSet collects the primary collision groups touched during a step.
type GroupSet = Set[int]

// NodeSet collects ancestor nodes whose subtree state must follow their children.
type NodeSet = Set[*actor.Node]
