package anamnesis

import (
	"context"
	"fmt"
	"sort"

	"github.com/ashita-ai/anamnesis/internal/integrity"
	"github.com/ashita-ai/anamnesis/internal/telemetry"
)

// TemporalState owns an insert set and a remove set over a base state in
// the same mind, anchored to a ground_state in the parent mind, with an
// optional tracks overlay (spec §3.1).
type TemporalState struct {
	stateCore

	base        State
	tracksState State

	insertOrder []*Belief
	insertIDs   map[int]bool
	removeIDs   map[int]bool
}

func newTemporalState(id int, mind Mind, ground State, opts StateOptions) *TemporalState {
	return &TemporalState{
		stateCore:   newStateCore(id, mind, ground, opts),
		tracksState: opts.Tracks,
		insertIDs:   map[int]bool{},
		removeIDs:   map[int]bool{},
	}
}

func (t *TemporalState) Kind() StateKind { return StateKindTemporal }
func (t *TemporalState) Base() State     { return t.base }
func (t *TemporalState) Tracks() State   { return t.tracksState }

func (t *TemporalState) AddBelief(tmpl BeliefTemplate) (*Belief, error) {
	if t.locked {
		return nil, lockedf("TemporalState.AddBelief", "state %d is locked", t.id)
	}

	subject := tmpl.Subject
	if subject == nil {
		subject = &Subject{sid: db.ids.nextID(), label: tmpl.Label, homeMind: t.mind}
	}

	traits := make(map[string]Value, len(tmpl.Traits))
	for k, v := range tmpl.Traits {
		traits[k] = v
	}
	var promotions map[string][]Promotion
	if len(tmpl.Promotions) > 0 {
		promotions = make(map[string][]Promotion, len(tmpl.Promotions))
		for k, v := range tmpl.Promotions {
			promotions[k] = append([]Promotion{}, v...)
		}
	}

	b := &Belief{
		id:          db.ids.nextID(),
		subject:     subject,
		label:       tmpl.Label,
		inMind:      t.mind,
		originState: t,
		bases:       append([]BaseRef{}, tmpl.Bases...),
		traits:      traits,
		promotions:  promotions,
	}

	t.insertOrder = append(t.insertOrder, b)
	t.insertIDs[b.id] = true
	db.registerBelief(b)
	if owner, ok := t.mind.(beliefOwner); ok {
		owner.addBelief(b)
	}
	return b, nil
}

func (t *TemporalState) RemoveBeliefs(ids ...int) error {
	if t.locked {
		return lockedf("TemporalState.RemoveBeliefs", "state %d is locked", t.id)
	}
	for _, id := range ids {
		if t.insertIDs[id] {
			delete(t.insertIDs, id)
			filtered := t.insertOrder[:0]
			for _, b := range t.insertOrder {
				if b.id != id {
					filtered = append(filtered, b)
				}
			}
			t.insertOrder = filtered
		}
		t.removeIDs[id] = true
	}
	return nil
}

func (t *TemporalState) Lock() error {
	if t.locked {
		return nil
	}
	t.locked = true
	return nil
}

// Branch implements spec §4.3: requires the state be locked, anchors a new
// state with base = t, tt = ground.VT() (the fork invariant), vt = vt
// (must be ≥ t.VT()), auto-advancing any tracks overlay.
func (t *TemporalState) Branch(ground State, vt int64) (State, error) {
	if !t.locked {
		return nil, lockedf("TemporalState.Branch", "branch requires state %d to be locked first", t.id)
	}
	if t.vt != nil && vt < *t.vt {
		return nil, temporalf("TemporalState.Branch", "new vt %d must be >= base vt %v", vt, *t.vt)
	}

	opts := StateOptions{Certainty: t.certainty, Self: t.self}
	if ground != nil {
		opts.TT = ground.VT()
	}
	vtCopy := vt
	opts.VT = &vtCopy

	if t.tracksState != nil {
		advanced, err := advanceTracks(t.tracksState, vt)
		if err != nil {
			return nil, err
		}
		opts.Tracks = advanced
	}

	id := db.ids.nextID()
	ns := newTemporalState(id, t.mind, ground, opts)
	ns.base = t

	if owner, ok := t.mind.(stateOwner); ok {
		owner.addState(ns)
	}
	db.registerState(ns)
	return ns, nil
}

// advanceTracks implements spec §4.3's Branch auto-advance rule: the new
// tracks pointer is the latest locked state in the tracked timeline (tracks'
// own lineage, walked via base) with vt ≤ newVT.
func advanceTracks(tracks State, newVT int64) (State, error) {
	var candidates []State
	if m, ok := tracks.Mind().(interface{ allStates() []State }); ok {
		for _, s := range m.allStates() {
			if !sameState(s.GroundState(), tracks.GroundState()) {
				continue
			}
			if !s.Locked() || s.VT() == nil || *s.VT() > newVT {
				continue
			}
			if s.ID() == tracks.ID() || isDescendant(s, tracks) {
				candidates = append(candidates, s)
			}
		}
	}
	if len(candidates) == 0 {
		return tracks, nil
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.VT() != nil && best.VT() != nil && *c.VT() > *best.VT() {
			best = c
		}
	}
	return best, nil
}

func isDescendant(candidate, ancestor State) bool {
	for base := baseOf(candidate); base != nil; base = baseOf(base) {
		if base.ID() == ancestor.ID() {
			return true
		}
	}
	return false
}

// GetBeliefs implements spec §4.3 steps 1-3.
func (t *TemporalState) GetBeliefs() ([]*Belief, error) {
	_, span := telemetry.Tracer().Start(context.Background(), "anamnesis.get_beliefs")
	defer span.End()

	removedSubjects := map[int]bool{}
	for id := range t.removeIDs {
		if b := db.BeliefByID(id); b != nil {
			removedSubjects[b.Subject().SID()] = true
		}
	}
	localSubjects := map[int]bool{}
	for _, b := range t.insertOrder {
		localSubjects[b.Subject().SID()] = true
	}

	var out []*Belief
	out = append(out, t.insertOrder...)

	if t.base != nil {
		baseBeliefs, err := t.base.GetBeliefs()
		if err != nil {
			return nil, err
		}
		for _, b := range baseBeliefs {
			sid := b.Subject().SID()
			if removedSubjects[sid] || localSubjects[sid] {
				continue
			}
			out = append(out, b)
		}
	}

	if t.tracksState != nil {
		trackedBeliefs, err := t.tracksState.GetBeliefs()
		if err != nil {
			return nil, err
		}
		for _, b := range trackedBeliefs {
			sid := b.Subject().SID()
			if removedSubjects[sid] || localSubjects[sid] {
				continue
			}
			out = append(out, b)
		}
	}

	return out, nil
}

func (t *TemporalState) GetBeliefByLabel(label string) (*Belief, bool, error) {
	return getBeliefByLabelGeneric(t, label)
}

func (t *TemporalState) GetBeliefBySubject(s *Subject) (*Belief, bool, error) {
	return getBeliefBySubjectGeneric(t, s)
}

func (t *TemporalState) RevTrait(tt *Traittype, subject *Subject) ([]*Belief, error) {
	return t.revTraitUsing(t, tt, subject)
}

func (t *TemporalState) ContentHash() (string, error) {
	fields := []string{"Temporal", fmt.Sprintf("%d", t.id)}
	fields = append(fields, optInt64Str(t.tt), optInt64Str(t.vt), fmt.Sprintf("%.6f", t.certainty))
	fields = append(fields, optStateIDStr(t.base), optStateIDStr(t.ground), optStateIDStr(t.tracksState))

	ids := make([]int, 0, len(t.insertOrder))
	for _, b := range t.insertOrder {
		ids = append(ids, b.id)
	}
	fields = append(fields, intsToFields(ids)...)

	removed := make([]int, 0, len(t.removeIDs))
	for id := range t.removeIDs {
		removed = append(removed, id)
	}
	sort.Ints(removed)
	fields = append(fields, intsToFields(removed)...)

	return integrity.HashFields(fields...), nil
}

func optInt64Str(v *int64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%d", *v)
}

func optStateIDStr(s State) string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("%d", s.ID())
}

func intsToFields(ids []int) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprintf("%d", id)
	}
	return out
}

// getBeliefByLabelGeneric and getBeliefBySubjectGeneric are shared across
// all three State variants: they're defined purely in terms of GetBeliefs,
// so Temporal, Timeless, and Convergence all get consistent behavior
// without re-implementing the search.
func getBeliefByLabelGeneric(self State, label string) (*Belief, bool, error) {
	beliefs, err := self.GetBeliefs()
	if err != nil {
		return nil, false, err
	}
	for _, b := range beliefs {
		if b.label != nil && *b.label == label {
			return b, true, nil
		}
	}
	return nil, false, nil
}

// getBeliefBySubjectGeneric implements the "visible-belief-per-subject
// resolution" rule (spec §4.3): the first match in GetBeliefs order, which
// already places local/base-chain versions ahead of tracked ones.
func getBeliefBySubjectGeneric(self State, s *Subject) (*Belief, bool, error) {
	beliefs, err := self.GetBeliefs()
	if err != nil {
		return nil, false, err
	}
	for _, b := range beliefs {
		if b.Subject().Equal(s) {
			return b, true, nil
		}
	}
	return nil, false, nil
}

// stateOwner and beliefOwner let Branch/AddBelief register new states and
// beliefs back onto whichever concrete Mind variant owns them, without the
// State package depending on Mind's concrete types.
type stateOwner interface{ addState(State) }
type beliefOwner interface{ addBelief(*Belief) }
