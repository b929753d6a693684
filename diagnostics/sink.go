// Copyright 2016 Patrick Brosi
// Authors: info@patrickbrosi.de
//
// Use of this source code is governed by a GPL v2
// license that can be found in the LICENSE file

package diagnostics

import (
	"strings"
	"sync"

	"golang.org/x/exp/slices"
)

type groupKey struct {
	kind Kind
	key  string
}

// Sink is an append-only multimap of records, keyed by kind and grouping
// key. It is safe for concurrent use. A nil *Sink discards everything.
type Sink struct {
	mu     sync.Mutex
	groups map[groupKey][]Record
	counts [numKinds]int
	closed bool
	onAdd  []func(Record)
}

// Group is all records sharing one grouping key
type Group struct {
	Kind    Kind
	Key     string
	Records []Record
}

// Count returns the number of records in g
func (g Group) Count() int {
	return len(g.Records)
}

// NewSink returns an empty sink
func NewSink() *Sink {
	return &Sink{groups: make(map[groupKey][]Record)}
}

// OnAdd registers f to be called for every record added afterwards
func (s *Sink) OnAdd(f func(Record)) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onAdd = append(s.onAdd, f)
}

// Add appends r. Records added after Close are dropped.
func (s *Sink) Add(r Record) {
	if s == nil {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	k := groupKey{r.Kind, r.Key()}
	s.groups[k] = append(s.groups[k], r)
	if int(r.Kind) < len(s.counts) {
		s.counts[r.Kind]++
	}
	hooks := s.onAdd
	s.mu.Unlock()

	for _, f := range hooks {
		f(r)
	}
}

// Close ends the accumulation phase
func (s *Sink) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Len returns the total number of records
func (s *Sink) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

// Count returns the number of records of kind k
func (s *Sink) Count(k Kind) int {
	if s == nil || int(k) >= len(s.counts) {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[k]
}

// Records returns all records of kind k in report order
func (s *Sink) Records(k Kind) []Record {
	ret := make([]Record, 0)
	for _, g := range s.Report() {
		if g.Kind == k {
			ret = append(ret, g.Records...)
		}
	}
	return ret
}

// Report groups all records and sorts the groups by descending record
// count, then kind, then key. Records inside a group are sorted by their
// content, so the report does not depend on insertion order.
func (s *Sink) Report() []Group {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	ret := make([]Group, 0, len(s.groups))
	for k, recs := range s.groups {
		ret = append(ret, Group{Kind: k.kind, Key: k.key, Records: append([]Record(nil), recs...)})
	}
	s.mu.Unlock()

	for _, g := range ret {
		slices.SortStableFunc(g.Records, func(a, b Record) int {
			return strings.Compare(a.sortKey(), b.sortKey())
		})
	}

	slices.SortFunc(ret, func(a, b Group) int {
		if a.Count() != b.Count() {
			return b.Count() - a.Count()
		}
		if a.Kind != b.Kind {
			return int(a.Kind) - int(b.Kind)
		}
		return strings.Compare(a.Key, b.Key)
	})

	return ret
}
