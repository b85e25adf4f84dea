package anamnesis

import (
	"context"

	"github.com/ashita-ai/anamnesis/internal/telemetry"
)

// buildRevIndex computes, for every belief visible in self, which subjects
// its resolved tt value references (or contains, for arrays). Visibility is
// delegated entirely to self.GetBeliefs, which already implements the
// tracks overlay (spec §4.3) and the Convergence union (spec §4.4) — so
// building the index this way automatically satisfies "the index must
// recurse into tracks and Convergence components" (spec §4.2) without
// duplicating that traversal here.
func buildRevIndex(self State, tt *Traittype) (map[int][]*Belief, error) {
	beliefs, err := self.GetBeliefs()
	if err != nil {
		return nil, err
	}
	idx := map[int][]*Belief{}
	for _, b := range beliefs {
		v, err := b.GetTrait(self, tt)
		if err != nil {
			return nil, err
		}
		for _, sid := range referencedSubjectIDs(v) {
			idx[sid] = append(idx[sid], b)
		}
	}
	return idx, nil
}

// referencedSubjectIDs collects every Subject sid directly referenced by v,
// recursing into arrays.
func referencedSubjectIDs(v Value) []int {
	switch v.Kind() {
	case KindSubject:
		s, _ := v.Subj()
		if s == nil {
			return nil
		}
		return []int{s.SID()}
	case KindArray:
		items, _ := v.Array()
		var out []int
		for _, item := range items {
			out = append(out, referencedSubjectIDs(item)...)
		}
		return out
	default:
		return nil
	}
}

// revTraitUsing answers rev_trait(self, tt) → beliefs referencing subject,
// using core's lazily-built index once self is locked (spec §4.2 step 5's
// sibling rule for the reverse index, spec §9 "Caches ... buildable on
// demand"). Before lock there is nothing to cache against, since mutation
// can only happen while open, so the index is rebuilt fresh every call.
func (s *stateCore) revTraitUsing(self State, tt *Traittype, subject *Subject) ([]*Belief, error) {
	_, span := telemetry.Tracer().Start(context.Background(), "anamnesis.rev_trait")
	defer span.End()

	if !s.locked {
		idx, err := buildRevIndex(self, tt)
		if err != nil {
			return nil, err
		}
		return idx[subject.SID()], nil
	}

	s.rev.mu.Lock()
	built := s.rev.built[tt.Label]
	s.rev.mu.Unlock()

	if !built {
		idx, err := buildRevIndex(self, tt)
		if err != nil {
			return nil, err
		}
		s.rev.mu.Lock()
		s.rev.byTT[tt.Label] = idx
		s.rev.built[tt.Label] = true
		s.rev.mu.Unlock()
	}

	s.rev.mu.Lock()
	defer s.rev.mu.Unlock()
	return s.rev.byTT[tt.Label][subject.SID()], nil
}
